package models

import "time"

// CartLine is one product in a user's cart. Product fields are copied at the
// time the line is added.
type CartLine struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId" validate:"required"`
	ProductID       string    `json:"productId" validate:"required"`
	ProductName     string    `json:"productName"`
	ProductImageURL string    `json:"productImageUrl,omitempty"`
	Quantity        int       `json:"quantity" validate:"gte=1"`
	Price           float64   `json:"price" validate:"gte=0"`
	AddedAt         time.Time `json:"addedAt"`
}

// WishlistEntry is one product a user saved for later.
type WishlistEntry struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId" validate:"required"`
	ProductID       string    `json:"productId" validate:"required"`
	ProductName     string    `json:"productName"`
	ProductImageURL string    `json:"productImageUrl,omitempty"`
	Price           float64   `json:"price" validate:"gte=0"`
	AddedAt         time.Time `json:"addedAt"`
}
