package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed sign-in, whether the
// email is unknown or the secret is wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SessionListener is told about every sign-in and sign-out. It receives nil
// when signed out.
type SessionListener func(session *models.Session)

// Authenticator is the auth capability of the remote data gateway.
type Authenticator interface {
	CreateAccount(ctx context.Context, email, secret string) (string, error)
	SignIn(ctx context.Context, email, secret string) (*models.Session, error)
	CurrentSession() *models.Session
	SignOut()
	OnSessionChange(listener SessionListener) (unsubscribe func())
}

// AuthService handles accounts, sign-in and token validation.
type AuthService struct {
	accounts   repositories.AccountRepository
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid

	mu        sync.RWMutex
	current   *models.Session
	listeners map[uint64]SessionListener
	nextID    uint64
}

var _ Authenticator = (*AuthService)(nil)

// NewAuthService creates a new AuthService.
func NewAuthService(accounts repositories.AccountRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		accounts:   accounts,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenTTL,
		listeners:  make(map[uint64]SessionListener),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount registers a new account and returns its user ID.
func (s *AuthService) CreateAccount(ctx context.Context, email, secret string) (string, error) {
	email = normalizeEmail(email)
	if err := models.Validate(models.Credentials{Email: email, Secret: secret}); err != nil {
		return "", err
	}
	if existing, err := s.accounts.GetByEmail(ctx, email); err == nil && existing != nil {
		return "", fmt.Errorf("email '%s' already registered", email)
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return "", fmt.Errorf("failed to look up account: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{Email: email, PasswordHash: string(hashedPassword)}
	if err := s.accounts.Create(ctx, account); err != nil {
		return "", fmt.Errorf("failed to register account: %w", err)
	}
	zap.L().Info("account created",
		zap.String("namespace", "auth"),
		zap.String("user_id", account.ID),
	)
	return account.ID, nil
}

// SignIn checks the credentials, issues a token and makes the session current.
func (s *AuthService) SignIn(ctx context.Context, email, secret string) (*models.Session, error) {
	email = normalizeEmail(email)
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	session := &models.Session{
		UserID:    account.ID,
		Email:     account.Email,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.tokenDurat),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": session.UserID,
		"email":   session.Email,
		"exp":     session.ExpiresAt.Unix(),
		"iat":     session.IssuedAt.Unix(),
	})
	session.Token, err = token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.setCurrent(session)
	return session, nil
}

// CurrentSession returns the signed-in session or nil.
func (s *AuthService) CurrentSession() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SignOut clears the current session.
func (s *AuthService) SignOut() {
	s.setCurrent(nil)
}

// OnSessionChange registers listener and calls it once with the current
// session straight away.
func (s *AuthService) OnSessionChange(listener SessionListener) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = listener
	current := s.current
	s.mu.Unlock()

	listener(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *AuthService) setCurrent(session *models.Session) {
	s.mu.Lock()
	s.current = session
	listeners := make([]SessionListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(session)
	}
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		zap.S().Debugf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
