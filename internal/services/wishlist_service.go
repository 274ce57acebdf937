package services

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/state"

	pkgerrors "github.com/pkg/errors"
)

// WishlistService handles saved products of signed-in users.
type WishlistService struct {
	store repositories.DocumentStore
	exec  state.Executor
}

// NewWishlistService creates a new WishlistService.
func NewWishlistService(store repositories.DocumentStore, exec state.Executor) *WishlistService {
	return &WishlistService{store: store, exec: exec}
}

// Wishlist follows the wishlist of userID live.
func (s *WishlistService) Wishlist(userID string) state.Stream[[]models.WishlistEntry] {
	return liveQuery[models.WishlistEntry](s.store, repositories.CollectionWishlist, repositories.Where("userId", userID))
}

func (s *WishlistService) AddToWishlist(entry models.WishlistEntry) state.Stream[string] {
	return state.FromCall(s.exec, func(ctx context.Context) (string, error) {
		if err := models.Validate(entry); err != nil {
			return "", err
		}
		if entry.AddedAt.IsZero() {
			entry.AddedAt = time.Now().UTC()
		}
		doc, err := repositories.EncodeDocument(entry)
		if err != nil {
			return "", err
		}
		if _, err := s.store.Add(ctx, repositories.CollectionWishlist, doc); err != nil {
			return "", pkgerrors.Wrapf(err, "failed to add product %s to wishlist", entry.ProductID)
		}
		return MsgWishlistAdded, nil
	})
}

func (s *WishlistService) RemoveFromWishlist(entryID string) state.Stream[string] {
	return state.FromCall(s.exec, func(ctx context.Context) (string, error) {
		if err := s.store.Delete(ctx, repositories.CollectionWishlist, entryID); err != nil {
			return "", pkgerrors.Wrapf(err, "failed to remove wishlist entry %s", entryID)
		}
		return MsgWishlistRemoved, nil
	})
}

// Entry loads one wishlist entry.
func (s *WishlistService) Entry(ctx context.Context, entryID string) (*models.WishlistEntry, error) {
	rec, err := s.store.Get(ctx, repositories.CollectionWishlist, entryID)
	if err != nil {
		return nil, err
	}
	var entry models.WishlistEntry
	if err := repositories.DecodeRecord(rec, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
