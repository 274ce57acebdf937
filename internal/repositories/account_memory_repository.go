package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// MemoryAccountRepository is an in-memory implementation of AccountRepository.
type MemoryAccountRepository struct {
	accounts map[string]models.Account
	byEmail  map[string]string
	mu       sync.RWMutex
}

// NewMemoryAccountRepository creates a new instance of MemoryAccountRepository.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[string]models.Account),
		byEmail:  make(map[string]string),
	}
}

// Create adds a new account.
func (r *MemoryAccountRepository) Create(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[account.Email]; taken {
		return fmt.Errorf("failed to create account: email %s already exists", account.Email)
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	r.accounts[account.ID] = *account
	r.byEmail[account.Email] = account.ID
	return nil
}

// GetByEmail returns an account by its email.
func (r *MemoryAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("account with email %s not found: %w", email, ErrNotFound)
	}
	account := r.accounts[id]
	return &account, nil
}

// GetByID returns an account by its ID.
func (r *MemoryAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account with ID %s not found: %w", id, ErrNotFound)
	}
	return &account, nil
}
