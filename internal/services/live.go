package services

import (
	"context"

	"storefront/internal/repositories"
	"storefront/internal/state"
)

// liveQuery follows a collection query and decodes every snapshot into T.
func liveQuery[T any](store repositories.DocumentStore, collection string, q repositories.Query) state.Stream[[]T] {
	return state.FromSubscription(func(ctx context.Context, push state.Push[[]T]) (func(), error) {
		unsubscribe, err := store.Subscribe(ctx, collection, q, func(records []repositories.Record, err error) {
			if err != nil {
				push(nil, err)
				return
			}
			push(repositories.DecodeRecords[T](records))
		})
		if err != nil {
			return nil, err
		}
		return unsubscribe, nil
	})
}
