package repositories

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ChangeFeed broadcasts collection changes to other processes sharing the
// same database.
type ChangeFeed interface {
	PublishChange(collection string) error
}

// ChangeHub delivers live query results for every store backend. Stores call
// Notify after each committed write; the hub re-runs every subscribed query
// on that collection and hands the fresh result to its listener.
type ChangeHub struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[string]map[uint64]*hubSubscriber
	feed    ChangeFeed
	timeout time.Duration
}

type hubSubscriber struct {
	mu       sync.Mutex
	source   Querier
	query    Query
	listener Listener
	closed   bool
}

func NewChangeHub() *ChangeHub {
	return &ChangeHub{
		subs:    make(map[string]map[uint64]*hubSubscriber),
		timeout: 10 * time.Second,
	}
}

// SetFeed attaches a cross-process change feed. Local writes are published to
// it; remote notices should be passed to Refresh.
func (h *ChangeHub) SetFeed(feed ChangeFeed) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.feed = feed
}

// Subscribe delivers the current result to listener before returning, then
// again after every change to collection.
func (h *ChangeHub) Subscribe(ctx context.Context, source Querier, collection string, q Query, listener Listener) (Unsubscribe, error) {
	sub := &hubSubscriber{source: source, query: q, listener: listener}
	// Registered before the initial query so no write is missed; held
	// until the initial result is delivered so no refresh overtakes it.
	sub.mu.Lock()
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[uint64]*hubSubscriber)
	}
	h.subs[collection][id] = sub
	h.mu.Unlock()

	records, err := source.Query(ctx, collection, q)
	if err != nil {
		sub.closed = true
		sub.mu.Unlock()
		h.remove(collection, id)
		return nil, err
	}
	listener(records, nil)
	sub.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.remove(collection, id)

			sub.mu.Lock()
			sub.closed = true
			sub.mu.Unlock()
		})
	}, nil
}

func (h *ChangeHub) remove(collection string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[collection], id)
	if len(h.subs[collection]) == 0 {
		delete(h.subs, collection)
	}
}

// Notify refreshes local subscribers of collection and publishes the change
// to the feed, if any.
func (h *ChangeHub) Notify(collection string) {
	h.Refresh(collection)

	h.mu.Lock()
	feed := h.feed
	h.mu.Unlock()
	if feed == nil {
		return
	}
	if err := feed.PublishChange(collection); err != nil {
		zap.L().Warn("failed to publish store change",
			zap.String("namespace", "store"),
			zap.String("collection", collection),
			zap.Error(err),
		)
	}
}

// Refresh re-runs every query subscribed on collection.
func (h *ChangeHub) Refresh(collection string) {
	h.mu.Lock()
	subs := make([]*hubSubscriber, 0, len(h.subs[collection]))
	for _, sub := range h.subs[collection] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.deliver(collection, sub)
	}
}

// Subscribers reports how many live queries watch collection.
func (h *ChangeHub) Subscribers(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}

// deliver queries under the subscriber's lock so results reach the listener
// in the order they were read.
func (h *ChangeHub) deliver(collection string, sub *hubSubscriber) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	records, err := sub.source.Query(ctx, collection, sub.query)
	if err != nil {
		zap.L().Error("live query refresh failed",
			zap.String("namespace", "store"),
			zap.String("collection", collection),
			zap.Error(err),
		)
	}
	sub.listener(records, err)
}
