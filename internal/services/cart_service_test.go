package services_test

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_AddThenLivePush(t *testing.T) {
	store := repositories.NewMemoryStore(nil)
	cart := services.NewCartService(store, newPool(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := cart.Cart("u1").Observe(ctx)
	assert.True(t, next(t, ch).IsLoading())
	st := next(t, ch)
	require.True(t, st.IsSuccess())
	assert.Empty(t, st.Data)

	write := last(t, cart.AddToCart(models.CartLine{
		UserID:      "u1",
		ProductID:   "p1",
		ProductName: "Runner",
		Quantity:    1,
		Price:       80,
	}))
	require.True(t, write.IsSuccess(), write.Message)
	assert.Equal(t, services.MsgCartAdded, write.Data)

	st = next(t, ch)
	require.True(t, st.IsSuccess())
	require.Len(t, st.Data, 1)
	assert.Equal(t, "p1", st.Data[0].ProductID)
	assert.Equal(t, 1, st.Data[0].Quantity)
	assert.NotEmpty(t, st.Data[0].ID)
	assert.False(t, st.Data[0].AddedAt.IsZero())

	// Lines of other users do not show up.
	write = last(t, cart.AddToCart(models.CartLine{UserID: "u2", ProductID: "p9", Quantity: 2}))
	require.True(t, write.IsSuccess())
	st = next(t, ch)
	require.Len(t, st.Data, 1)

	write = last(t, cart.RemoveFromCart(st.Data[0].ID))
	assert.Equal(t, services.MsgCartRemoved, write.Data)
	st = next(t, ch)
	require.True(t, st.IsSuccess())
	assert.Empty(t, st.Data)
}

func TestCartService_InvalidQuantityNeverWrites(t *testing.T) {
	store := repositories.NewMemoryStore(nil)
	cart := services.NewCartService(store, nil)

	st := last(t, cart.AddToCart(models.CartLine{UserID: "u1", ProductID: "p1", Quantity: 0}))
	require.True(t, st.IsError())
	assert.Contains(t, st.Message, "Quantity")

	records, err := store.Query(context.Background(), repositories.CollectionCart, repositories.Query{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCartService_RemoveMissingLine(t *testing.T) {
	cart := services.NewCartService(repositories.NewMemoryStore(nil), nil)

	st := last(t, cart.RemoveFromCart("nope"))
	require.True(t, st.IsError())
	assert.Contains(t, st.Message, "Error Message : failed to remove cart line nope")
}

func TestWishlistService_AddAndRemove(t *testing.T) {
	store := repositories.NewMemoryStore(nil)
	wishlist := services.NewWishlistService(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := wishlist.Wishlist("u1").Observe(ctx)
	assert.True(t, next(t, ch).IsLoading())
	assert.Empty(t, next(t, ch).Data)

	st := last(t, wishlist.AddToWishlist(models.WishlistEntry{UserID: "u1", ProductID: "p1", Price: 12}))
	assert.Equal(t, services.MsgWishlistAdded, st.Data)
	live := next(t, ch)
	require.Len(t, live.Data, 1)

	entry, err := wishlist.Entry(context.Background(), live.Data[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", entry.ProductID)

	st = last(t, wishlist.RemoveFromWishlist(entry.ID))
	assert.Equal(t, services.MsgWishlistRemoved, st.Data)
	assert.Empty(t, next(t, ch).Data)

	st = last(t, wishlist.AddToWishlist(models.WishlistEntry{ProductID: "p1"}))
	assert.True(t, st.IsError())
}
