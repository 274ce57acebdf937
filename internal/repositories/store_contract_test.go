package repositories_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects listener calls.
type recorder struct {
	mu    sync.Mutex
	calls [][]repositories.Record
	errs  []error
}

func (r *recorder) listen(records []repositories.Record, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, records)
	r.errs = append(r.errs, err)
}

func (r *recorder) last() []repositories.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// runStoreContract exercises the behaviour every DocumentStore backend shares.
func runStoreContract(t *testing.T, store repositories.DocumentStore) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get(ctx, "products", "missing")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("AddGetSetDelete", func(t *testing.T) {
		id, err := store.Add(ctx, "products", repositories.Document{"name": "Laptop", "price": 1200.0, "category": "Electronics"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		rec, err := store.Get(ctx, "products", id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, "Laptop", rec.Data["name"])

		require.NoError(t, store.Set(ctx, "products", id, repositories.Document{"name": "Laptop Pro", "category": "Electronics"}))
		rec, err = store.Get(ctx, "products", id)
		require.NoError(t, err)
		assert.Equal(t, "Laptop Pro", rec.Data["name"])
		_, hasPrice := rec.Data["price"]
		assert.False(t, hasPrice, "Set must replace the whole document")

		require.NoError(t, store.Delete(ctx, "products", id))
		_, err = store.Get(ctx, "products", id)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		err = store.Delete(ctx, "products", id)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("QueryFilterAndLimit", func(t *testing.T) {
		for _, name := range []string{"Shoes", "Bags", "Hats", "Coats", "Socks"} {
			require.NoError(t, store.Set(ctx, "categories", "cat-"+name, repositories.Document{"name": name, "group": "apparel"}))
		}

		all, err := store.Query(ctx, "categories", repositories.Query{})
		require.NoError(t, err)
		assert.Len(t, all, 5)
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID, all[i].ID)
		}

		limited, err := store.Query(ctx, "categories", repositories.Query{Limit: 4})
		require.NoError(t, err)
		assert.Len(t, limited, 4)

		hats, err := store.Query(ctx, "categories", repositories.Where("name", "Hats"))
		require.NoError(t, err)
		require.Len(t, hats, 1)
		assert.Equal(t, "cat-Hats", hats[0].ID)

		byID, err := store.Query(ctx, "categories", repositories.Where(repositories.FieldID, "cat-Bags"))
		require.NoError(t, err)
		require.Len(t, byID, 1)

		firstTwo, err := store.Query(ctx, "categories", repositories.Query{
			Where: []repositories.Filter{{Field: "group", Value: "apparel"}},
			Limit: 2,
		})
		require.NoError(t, err)
		require.Len(t, firstTwo, 2)
		assert.Equal(t, "cat-Bags", firstTwo[0].ID)
		assert.Equal(t, "cat-Coats", firstTwo[1].ID)

		require.NoError(t, store.Set(ctx, "categories", "cat-Shoes", repositories.Document{"name": "Shoes", "group": "apparel", "rank": 3}))
		ranked, err := store.Query(ctx, "categories", repositories.Where("rank", 3))
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, "cat-Shoes", ranked[0].ID)

		none, err := store.Query(ctx, "empty-collection", repositories.Query{})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("SubscribeReceivesSnapshots", func(t *testing.T) {
		rec := &recorder{}
		unsubscribe, err := store.Subscribe(ctx, "cart", repositories.Where("userId", "u1"), rec.listen)
		require.NoError(t, err)

		require.Equal(t, 1, rec.count())
		assert.Empty(t, rec.last())

		id, err := store.Add(ctx, "cart", repositories.Document{"userId": "u1", "productId": "p1", "quantity": 1})
		require.NoError(t, err)
		_, err = store.Add(ctx, "cart", repositories.Document{"userId": "u2", "productId": "p9", "quantity": 1})
		require.NoError(t, err)

		latest := rec.last()
		require.Len(t, latest, 1)
		assert.Equal(t, id, latest[0].ID)

		unsubscribe()
		unsubscribe()
		before := rec.count()
		_, err = store.Add(ctx, "cart", repositories.Document{"userId": "u1", "productId": "p2", "quantity": 2})
		require.NoError(t, err)
		assert.Equal(t, before, rec.count())
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, repositories.NewMemoryStore(nil))
}
