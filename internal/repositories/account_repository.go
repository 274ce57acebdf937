package repositories

import (
	"context"

	"storefront/internal/models"
)

// AccountRepository defines the interface for auth account data access.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
}
