package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/state"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect[T any](t *testing.T, ch <-chan state.State[T]) []state.State[T] {
	t.Helper()
	var got []state.State[T]
	timeout := time.After(2 * time.Second)
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, st)
		case <-timeout:
			t.Fatalf("stream did not close, got %v", got)
			return got
		}
	}
}

func next[T any](t *testing.T, ch <-chan state.State[T]) state.State[T] {
	t.Helper()
	select {
	case st, ok := <-ch:
		require.True(t, ok, "stream closed unexpectedly")
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a state")
		return state.State[T]{}
	}
}

// last reads a one-shot stream to the end and returns its terminal state.
func last[T any](t *testing.T, stream state.Stream[T]) state.State[T] {
	t.Helper()
	got := collect(t, stream.Observe(context.Background()))
	require.Len(t, got, 2)
	require.True(t, got[0].IsLoading())
	return got[1]
}

func newPool(t *testing.T) *ants.Pool {
	t.Helper()
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	return pool
}

func seedCatalog(t *testing.T, catalog *services.CatalogService, categories, products int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < categories; i++ {
		_, err := catalog.CreateCategory(ctx, models.Category{Name: fmt.Sprintf("Category %d", i)})
		require.NoError(t, err)
	}
	for i := 0; i < products; i++ {
		_, err := catalog.CreateProduct(ctx, models.Product{
			Name:          fmt.Sprintf("Product %d", i),
			Price:         10,
			StockQuantity: 5,
			IsAvailable:   true,
			Category:      "Shoes",
		})
		require.NoError(t, err)
	}
}

func TestCatalogService_ProductByID(t *testing.T) {
	store := repositories.NewMemoryStore(nil)
	catalog := services.NewCatalogService(store, newPool(t), 0)

	discount := 20
	id, err := catalog.CreateProduct(context.Background(), models.Product{
		Name:            "Runner",
		Price:           80,
		DiscountPercent: &discount,
		Category:        "Shoes",
		ImageURLs:       []string{"/objects/runner.png"},
	})
	require.NoError(t, err)

	st := last(t, catalog.ProductByID(id))
	require.True(t, st.IsSuccess(), st.Message)
	assert.Equal(t, id, st.Data.ID)
	assert.Equal(t, "Runner", st.Data.Name)
	require.NotNil(t, st.Data.DiscountPercent)
	assert.Equal(t, 20, *st.Data.DiscountPercent)
	assert.Equal(t, []string{"/objects/runner.png"}, st.Data.ImageURLs)
	assert.False(t, st.Data.CreatedAt.IsZero())

	// Test product not found
	st = last(t, catalog.ProductByID("missing"))
	assert.Equal(t, state.Error[models.Product]("Product not found"), st)
}

func TestCatalogService_CreateProductValidation(t *testing.T) {
	store := repositories.NewMemoryStore(nil)
	catalog := services.NewCatalogService(store, nil, 0)

	discount := 150
	_, err := catalog.CreateProduct(context.Background(), models.Product{
		Name:            "Broken",
		Price:           -1,
		DiscountPercent: &discount,
		Category:        "Shoes",
	})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "Price")
	assert.Contains(t, verr.Fields, "DiscountPercent")

	records, err := store.Query(context.Background(), repositories.CollectionProducts, repositories.Query{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCatalogService_HomeData(t *testing.T) {
	store := repositories.NewMemoryStore(nil)
	catalog := services.NewCatalogService(store, newPool(t), 4)
	seedCatalog(t, catalog, 6, 3)

	got := collect(t, catalog.HomeData().Observe(context.Background()))
	require.NotEmpty(t, got)
	assert.True(t, got[0].IsLoading())
	final := got[len(got)-1]
	require.True(t, final.IsSuccess(), final.Message)
	assert.Len(t, final.Data.First, 4)
	assert.Len(t, final.Data.Second, 3)
	for _, st := range got[:len(got)-1] {
		assert.True(t, st.IsLoading())
	}
}

func TestCatalogService_HomeDataWithoutProducts(t *testing.T) {
	store := repositories.NewMemoryStore(nil)
	catalog := services.NewCatalogService(store, nil, 0)
	seedCatalog(t, catalog, 2, 0)

	got := collect(t, catalog.HomeData().Observe(context.Background()))
	final := got[len(got)-1]
	require.True(t, final.IsSuccess(), final.Message)
	assert.Len(t, final.Data.First, 2)
	assert.NotNil(t, final.Data.Second)
	assert.Empty(t, final.Data.Second)
}

func TestCatalogService_ProductsByCategoryFollowsWrites(t *testing.T) {
	store := repositories.NewMemoryStore(nil)
	catalog := services.NewCatalogService(store, nil, 0)
	seedCatalog(t, catalog, 0, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := catalog.ProductsByCategory("Shoes").Observe(ctx)

	assert.True(t, next(t, ch).IsLoading())
	st := next(t, ch)
	require.True(t, st.IsSuccess())
	assert.Len(t, st.Data, 1)

	_, err := catalog.CreateProduct(context.Background(), models.Product{Name: "Sandal", Price: 15, Category: "Shoes"})
	require.NoError(t, err)
	st = next(t, ch)
	require.True(t, st.IsSuccess())
	assert.Len(t, st.Data, 2)

	_, err = catalog.CreateProduct(context.Background(), models.Product{Name: "Hat", Price: 5, Category: "Hats"})
	require.NoError(t, err)
	st = next(t, ch)
	require.True(t, st.IsSuccess())
	assert.Len(t, st.Data, 2)

	cancel()
	assert.Eventually(t, func() bool {
		return store.Hub().Subscribers(repositories.CollectionProducts) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
