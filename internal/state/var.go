package state

import (
	"context"
	"sync"
)

// Var is an observable value holder. Observers always see the latest value;
// intermediate values set while an observer is busy are skipped.
type Var[T any] struct {
	mu      sync.RWMutex
	value   T
	changed chan struct{}
}

func NewVar[T any](initial T) *Var[T] {
	return &Var[T]{value: initial, changed: make(chan struct{})}
}

func (v *Var[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

func (v *Var[T]) Set(val T) {
	v.mu.Lock()
	v.value = val
	close(v.changed)
	v.changed = make(chan struct{})
	v.mu.Unlock()
}

func (v *Var[T]) snapshot() (T, <-chan struct{}) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value, v.changed
}

// Observe emits the current value and then every later value until ctx ends.
func (v *Var[T]) Observe(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			val, changed := v.snapshot()
			select {
			case out <- val:
			case <-ctx.Done():
				return
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Until blocks until the value satisfies ok and returns it.
func (v *Var[T]) Until(ctx context.Context, ok func(T) bool) (T, error) {
	for {
		val, changed := v.snapshot()
		if ok(val) {
			return val, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
