package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cast"
)

// Collection names used by the storefront.
const (
	CollectionCategories = "categories"
	CollectionProducts   = "products"
	CollectionCart       = "cart"
	CollectionWishlist   = "wishlist"
	CollectionUsers      = "users"
)

// FieldID filters on the document ID rather than a stored field.
const FieldID = "id"

// ErrNotFound is returned (wrapped) when a requested document is absent.
var ErrNotFound = errors.New("not found")

func notFound(collection, id string) error {
	return fmt.Errorf("document with ID %s not found in %s: %w", id, collection, ErrNotFound)
}

// Document is the schemaless body of a stored record.
type Document map[string]any

// Record is a document together with its gateway-assigned ID.
type Record struct {
	ID   string
	Data Document
}

// Filter is an equality predicate on one field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents of one collection. A zero Limit means no limit.
type Query struct {
	Where []Filter
	Limit int
}

// Where starts a query with one equality filter.
func Where(field string, value any) Query {
	return Query{Where: []Filter{{Field: field, Value: value}}}
}

// Matches reports whether the record satisfies every filter. Values are
// compared loosely so that numbers decoded from JSON still match.
func (q Query) Matches(r Record) bool {
	for _, f := range q.Where {
		var got any
		if f.Field == FieldID {
			got = r.ID
		} else {
			v, ok := r.Data[f.Field]
			if !ok {
				return false
			}
			got = v
		}
		if cast.ToString(got) != cast.ToString(f.Value) {
			return false
		}
	}
	return true
}

// pinnedID returns the ID an ID filter restricts the query to.
func (q Query) pinnedID() (string, bool) {
	for _, f := range q.Where {
		if f.Field == FieldID {
			return cast.ToString(f.Value), true
		}
	}
	return "", false
}

// apply filters, orders by ID and limits records already loaded in memory.
func (q Query) apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Listener receives the full result of a subscribed query each time it may
// have changed, or the error that prevented computing it.
type Listener func(records []Record, err error)

// Unsubscribe removes a listener. It is safe to call more than once.
type Unsubscribe func()

// Querier is the read side of a DocumentStore.
type Querier interface {
	Query(ctx context.Context, collection string, q Query) ([]Record, error)
}

// DocumentStore is the document database of the remote data gateway.
type DocumentStore interface {
	Querier
	Get(ctx context.Context, collection, id string) (Record, error)
	Add(ctx context.Context, collection string, doc Document) (string, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string, q Query, listener Listener) (Unsubscribe, error)
}
