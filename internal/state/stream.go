package state

import (
	"context"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// Stream is a cold sequence of states. Every Observe starts a fresh run of the
// underlying operation or subscription; cancelling ctx ends the observation.
type Stream[T any] func(ctx context.Context) <-chan State[T]

// Observe starts the stream.
func (s Stream[T]) Observe(ctx context.Context) <-chan State[T] {
	return s(ctx)
}

// Subscribe starts the stream with its own cancel handle.
func (s Stream[T]) Subscribe(ctx context.Context) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	return &Subscription[T]{C: s(ctx), cancel: cancel}
}

// Subscription is a running observation. Cancel may be called any number of
// times; C is closed once the underlying resources are released.
type Subscription[T any] struct {
	C      <-chan State[T]
	cancel context.CancelFunc
}

func (s *Subscription[T]) Cancel() {
	s.cancel()
}

// Executor runs gateway work off the caller's goroutine. *ants.Pool satisfies it.
type Executor interface {
	Submit(task func()) error
}

// FromCall adapts an operation that completes once. The stream emits Loading,
// then exactly one of Success or Error, then closes. A panic inside call is
// reported as Error. If ctx is cancelled the result is simply not read.
func FromCall[T any](exec Executor, call func(ctx context.Context) (T, error)) Stream[T] {
	return func(ctx context.Context) <-chan State[T] {
		out := make(chan State[T], 2)
		out <- Loading[T]()
		task := func() {
			defer close(out)
			out <- settle(ctx, call)
		}
		if exec == nil {
			go task()
			return out
		}
		if err := exec.Submit(task); err != nil {
			out <- Error[T](Describe(pkgerrors.Wrap(err, "gateway pool rejected the call")))
			close(out)
		}
		return out
	}
}

func settle[T any](ctx context.Context, call func(ctx context.Context) (T, error)) (st State[T]) {
	defer func() {
		if r := recover(); r != nil {
			st = Error[T](Describe(pkgerrors.Errorf("panic: %v", r)))
		}
	}()
	v, err := call(ctx)
	if err != nil {
		return Error[T](Describe(withStack(err)))
	}
	return Success(v)
}

// Push delivers one gateway update to a live stream. A non-nil err becomes an
// Error state; the stream keeps running.
type Push[T any] func(v T, err error)

// SubscribeFunc registers push with the gateway and returns the handle that
// removes it again.
type SubscribeFunc[T any] func(ctx context.Context, push Push[T]) (unsubscribe func(), err error)

// FromSubscription adapts a listener-based gateway query. The stream emits
// Loading, then one state per push in gateway order, and only ends when ctx is
// cancelled. The unsubscribe handle runs exactly once per observation.
func FromSubscription[T any](subscribe SubscribeFunc[T]) Stream[T] {
	return func(ctx context.Context) <-chan State[T] {
		q := newQueue[State[T]]()
		q.push(Loading[T]())

		unsubscribe, err := subscribe(ctx, func(v T, err error) {
			if err != nil {
				q.push(Error[T](Describe(withStack(err))))
				return
			}
			q.push(Success(v))
		})
		if err != nil {
			q.push(Error[T](Describe(withStack(err))))
		}

		var once sync.Once
		release := func() {
			once.Do(func() {
				if unsubscribe != nil {
					unsubscribe()
				}
			})
		}

		out := make(chan State[T])
		go func() {
			defer close(out)
			defer release()
			q.drain(ctx, out)
		}()
		return out
	}
}

// queue is an unbounded FIFO so gateway callbacks never block on a slow observer.
type queue[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{ready: make(chan struct{}, 1)}
}

func (q *queue[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *queue[T]) take() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.items
	q.items = nil
	return batch
}

func (q *queue[T]) drain(ctx context.Context, out chan<- T) {
	for {
		batch := q.take()
		for _, v := range batch {
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			return
		}
	}
}

// Await returns the first terminal state read from ch.
func Await[T any](ctx context.Context, ch <-chan State[T]) (State[T], error) {
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return State[T]{}, pkgerrors.New("stream closed before a terminal state")
			}
			if st.IsTerminal() {
				return st, nil
			}
		case <-ctx.Done():
			return State[T]{}, ctx.Err()
		}
	}
}
