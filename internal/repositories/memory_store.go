package repositories

import (
	"context"
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"
)

type memRecord struct {
	id   string
	data Document
}

func memRecordLess(a, b memRecord) bool {
	return a.id < b.id
}

// MemoryStore is an in-memory implementation of DocumentStore. Each
// collection is kept ordered by ID.
type MemoryStore struct {
	collections map[string]*btree.BTreeG[memRecord]
	mu          sync.RWMutex
	hub         *ChangeHub
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore(hub *ChangeHub) *MemoryStore {
	if hub == nil {
		hub = NewChangeHub()
	}
	return &MemoryStore{
		collections: make(map[string]*btree.BTreeG[memRecord]),
		hub:         hub,
	}
}

func (s *MemoryStore) tree(collection string) *btree.BTreeG[memRecord] {
	t, ok := s.collections[collection]
	if !ok {
		t = btree.NewG[memRecord](16, memRecordLess)
		s.collections[collection] = t
	}
	return t
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// Get returns a document by its ID.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.collections[collection]
	if !ok {
		return Record{}, notFound(collection, id)
	}
	item, ok := t.Get(memRecord{id: id})
	if !ok {
		return Record{}, notFound(collection, id)
	}
	return Record{ID: item.id, Data: cloneDocument(item.data)}, nil
}

// Query returns the matching documents in ID order.
func (s *MemoryStore) Query(ctx context.Context, collection string, q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0)
	t, ok := s.collections[collection]
	if !ok {
		return out, nil
	}
	t.Ascend(func(item memRecord) bool {
		r := Record{ID: item.id, Data: item.data}
		if q.Matches(r) {
			out = append(out, Record{ID: item.id, Data: cloneDocument(item.data)})
		}
		return q.Limit == 0 || len(out) < q.Limit
	})
	return out, nil
}

// Add stores a new document under a generated ID.
func (s *MemoryStore) Add(ctx context.Context, collection string, doc Document) (string, error) {
	id := uuid.New().String()
	s.mu.Lock()
	s.tree(collection).ReplaceOrInsert(memRecord{id: id, data: cloneDocument(doc)})
	s.mu.Unlock()

	s.hub.Notify(collection)
	return id, nil
}

// Set creates or fully replaces the document with the given ID.
func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc Document) error {
	s.mu.Lock()
	s.tree(collection).ReplaceOrInsert(memRecord{id: id, data: cloneDocument(doc)})
	s.mu.Unlock()

	s.hub.Notify(collection)
	return nil
}

// Delete removes a document by its ID.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	t, ok := s.collections[collection]
	if !ok {
		s.mu.Unlock()
		return notFound(collection, id)
	}
	if _, ok := t.Delete(memRecord{id: id}); !ok {
		s.mu.Unlock()
		return notFound(collection, id)
	}
	s.mu.Unlock()

	s.hub.Notify(collection)
	return nil
}

// Subscribe registers a live query on the store.
func (s *MemoryStore) Subscribe(ctx context.Context, collection string, q Query, listener Listener) (Unsubscribe, error) {
	return s.hub.Subscribe(ctx, s, collection, q, listener)
}

// Hub returns the change hub delivering this store's live queries.
func (s *MemoryStore) Hub() *ChangeHub {
	return s.hub
}
