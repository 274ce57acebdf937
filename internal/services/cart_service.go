package services

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/state"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	MsgCartAdded       = "Product added to cart successfully."
	MsgCartRemoved     = "Product removed from cart successfully."
	MsgWishlistAdded   = "Product added to wishlist successfully."
	MsgWishlistRemoved = "Product removed from wishlist successfully."
)

// CartService handles the cart lines of signed-in users.
type CartService struct {
	store repositories.DocumentStore
	exec  state.Executor
}

// NewCartService creates a new CartService.
func NewCartService(store repositories.DocumentStore, exec state.Executor) *CartService {
	return &CartService{
		store: store,
		exec:  exec,
	}
}

// Cart follows the cart of userID live.
func (s *CartService) Cart(userID string) state.Stream[[]models.CartLine] {
	return liveQuery[models.CartLine](s.store, repositories.CollectionCart, repositories.Where("userId", userID))
}

// AddToCart stores a new cart line. The line is validated before anything
// is written.
func (s *CartService) AddToCart(line models.CartLine) state.Stream[string] {
	return state.FromCall(s.exec, func(ctx context.Context) (string, error) {
		if err := models.Validate(line); err != nil {
			return "", err
		}
		if line.AddedAt.IsZero() {
			line.AddedAt = time.Now().UTC()
		}
		doc, err := repositories.EncodeDocument(line)
		if err != nil {
			return "", err
		}
		id, err := s.store.Add(ctx, repositories.CollectionCart, doc)
		if err != nil {
			return "", pkgerrors.Wrapf(err, "failed to add product %s to cart", line.ProductID)
		}
		zap.L().Debug("cart line added",
			zap.String("namespace", "cart"),
			zap.String("user_id", line.UserID),
			zap.String("line_id", id),
		)
		return MsgCartAdded, nil
	})
}

// RemoveFromCart deletes one cart line by its ID.
func (s *CartService) RemoveFromCart(lineID string) state.Stream[string] {
	return state.FromCall(s.exec, func(ctx context.Context) (string, error) {
		if err := s.store.Delete(ctx, repositories.CollectionCart, lineID); err != nil {
			return "", pkgerrors.Wrapf(err, "failed to remove cart line %s", lineID)
		}
		return MsgCartRemoved, nil
	})
}

// CartLine loads one cart line, used to check ownership before removal.
func (s *CartService) CartLine(ctx context.Context, lineID string) (*models.CartLine, error) {
	rec, err := s.store.Get(ctx, repositories.CollectionCart, lineID)
	if err != nil {
		return nil, err
	}
	var line models.CartLine
	if err := repositories.DecodeRecord(rec, &line); err != nil {
		return nil, err
	}
	return &line, nil
}
