package state

import "context"

// Pair is the joint value of two successful sources.
type Pair[A, B any] struct {
	First  A `json:"first"`
	Second B `json:"second"`
}

// Merge2 combines the latest state of two sources. Errors win over loading,
// and the first source's error wins over the second's. Success needs both.
func Merge2[A, B any](labelA string, a State[A], labelB string, b State[B]) State[Pair[A, B]] {
	switch {
	case a.Kind == KindError:
		return Error[Pair[A, B]](labelA + " Error " + a.Message)
	case b.Kind == KindError:
		return Error[Pair[A, B]](labelB + " Error " + b.Message)
	case a.Kind == KindSuccess && b.Kind == KindSuccess:
		return Success(Pair[A, B]{First: a.Data, Second: b.Data})
	default:
		return Loading[Pair[A, B]]()
	}
}

// Combine2 recombines on every update of either source. The result ends when
// both sources have ended.
func Combine2[A, B any](labelA string, a Stream[A], labelB string, b Stream[B]) Stream[Pair[A, B]] {
	return func(ctx context.Context) <-chan State[Pair[A, B]] {
		out := make(chan State[Pair[A, B]])
		go func() {
			defer close(out)
			ca, cb := a.Observe(ctx), b.Observe(ctx)
			var sa State[A]
			var sb State[B]
			for ca != nil || cb != nil {
				select {
				case st, ok := <-ca:
					if !ok {
						ca = nil
						continue
					}
					sa = st
				case st, ok := <-cb:
					if !ok {
						cb = nil
						continue
					}
					sb = st
				case <-ctx.Done():
					return
				}
				select {
				case out <- Merge2(labelA, sa, labelB, sb):
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// Source is one labelled input of CombineAll.
type Source[T any] struct {
	Label  string
	Stream Stream[T]
}

// MergeAll is Merge2 for any number of same-typed sources, ordered by position.
func MergeAll[T any](labels []string, states []State[T]) State[[]T] {
	for i, st := range states {
		if st.Kind == KindError {
			return Error[[]T](labels[i] + " Error " + st.Message)
		}
	}
	values := make([]T, 0, len(states))
	for _, st := range states {
		if st.Kind != KindSuccess {
			return Loading[[]T]()
		}
		values = append(values, st.Data)
	}
	return Success(values)
}

type indexed[T any] struct {
	idx int
	st  State[T]
	end bool
}

// CombineAll generalises Combine2 to N sources.
func CombineAll[T any](sources ...Source[T]) Stream[[]T] {
	return func(ctx context.Context) <-chan State[[]T] {
		out := make(chan State[[]T])
		go func() {
			defer close(out)
			labels := make([]string, len(sources))
			states := make([]State[T], len(sources))
			updates := make(chan indexed[T])
			for i, src := range sources {
				labels[i] = src.Label
				go func(i int, ch <-chan State[T]) {
					for st := range ch {
						select {
						case updates <- indexed[T]{idx: i, st: st}:
						case <-ctx.Done():
							return
						}
					}
					select {
					case updates <- indexed[T]{idx: i, end: true}:
					case <-ctx.Done():
					}
				}(i, src.Stream.Observe(ctx))
			}
			live := len(sources)
			for live > 0 {
				select {
				case u := <-updates:
					if u.end {
						live--
						continue
					}
					states[u.idx] = u.st
				case <-ctx.Done():
					return
				}
				select {
				case out <- MergeAll(labels, states):
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}
