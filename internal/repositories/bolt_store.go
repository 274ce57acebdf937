package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// BoltStore keeps documents in an embedded bbolt file, one bucket per
// collection. Keys are document IDs, so ForEach yields ID order.
type BoltStore struct {
	db  *bolt.DB
	hub *ChangeHub
}

func NewBoltStore(db *bolt.DB, hub *ChangeHub) *BoltStore {
	if hub == nil {
		hub = NewChangeHub()
	}
	return &BoltStore{db: db, hub: hub}
}

func (s *BoltStore) Get(ctx context.Context, collection, id string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return notFound(collection, id)
		}
		raw := b.Get([]byte(id))
		if raw == nil {
			return notFound(collection, id)
		}
		doc := Document{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		rec = Record{ID: id, Data: doc}
		return nil
	})
	return rec, err
}

// Query walks the bucket in key order and stops once the limit is reached.
// A query pinned to one ID reads only that key.
func (s *BoltStore) Query(ctx context.Context, collection string, q Query) ([]Record, error) {
	out := make([]Record, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		visit := func(k, v []byte) (bool, error) {
			doc := Document{}
			if err := json.Unmarshal(v, &doc); err != nil {
				return false, fmt.Errorf("failed to decode document %s: %w", k, err)
			}
			rec := Record{ID: string(k), Data: doc}
			if q.Matches(rec) {
				out = append(out, rec)
			}
			return q.Limit > 0 && len(out) >= q.Limit, nil
		}
		if id, ok := q.pinnedID(); ok {
			if v := b.Get([]byte(id)); v != nil {
				_, err := visit([]byte(id), v)
				return err
			}
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			done, err := visit(k, v)
			if err != nil || done {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	return q.apply(out), nil
}

func (s *BoltStore) put(collection, id string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		return b.Put([]byte(id), body)
	})
}

func (s *BoltStore) Add(ctx context.Context, collection string, doc Document) (string, error) {
	id := uuid.New().String()
	if err := s.put(collection, id, doc); err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}
	s.hub.Notify(collection)
	return id, nil
}

func (s *BoltStore) Set(ctx context.Context, collection, id string, doc Document) error {
	if err := s.put(collection, id, doc); err != nil {
		return fmt.Errorf("failed to set document %s: %w", id, err)
	}
	s.hub.Notify(collection)
	return nil
}

func (s *BoltStore) Delete(ctx context.Context, collection, id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil || b.Get([]byte(id)) == nil {
			return notFound(collection, id)
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		return err
	}
	s.hub.Notify(collection)
	return nil
}

func (s *BoltStore) Subscribe(ctx context.Context, collection string, q Query, listener Listener) (Unsubscribe, error) {
	return s.hub.Subscribe(ctx, s, collection, q, listener)
}
