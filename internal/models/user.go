package models

import "time"

// UserProfile is the profile document stored under the user's ID.
// It never carries a password.
type UserProfile struct {
	FirstName    string `json:"firstName" validate:"required,max=100"`
	LastName     string `json:"lastName" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"omitempty,max=32"`
	Address      string `json:"address" validate:"omitempty,max=500"`
	Gender       string `json:"gender" validate:"omitempty,max=32"`
	ProfileImage string `json:"profileImage"`
}

// Credentials are used for a single sign-in call and never stored.
type Credentials struct {
	Email  string `json:"email" validate:"required,email"`
	Secret string `json:"password" validate:"required,min=6"`
}

// SignUp is what the registration form submits.
type SignUp struct {
	Profile UserProfile `json:"profile"`
	Secret  string      `json:"password" validate:"required,min=6"`
	Confirm string      `json:"confirmPassword" validate:"required,eqfield=Secret"`
}

// Session is the signed-in state handed out by the auth gateway.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Account is the auth gateway's record of a user.
type Account struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255)"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
