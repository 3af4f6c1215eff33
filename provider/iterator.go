package provider

import "context"

// Iterator provides pull-based sequential access to a stream of values.
// The consumer calls Next() to retrieve values one at a time.
// Close must be called when done to release resources.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// SliceIterator iterates over an in-memory slice.
type SliceIterator[T any] struct {
	items []T
	pos   int
}

// FromSlice returns an Iterator over items.
func FromSlice[T any](items []T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items}
}

// Next returns the next item.
func (s *SliceIterator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if s.pos >= len(s.items) {
		return zero, false, nil
	}
	item := s.items[s.pos]
	s.pos++
	return item, true, nil
}

// Close is a no-op.
func (s *SliceIterator[T]) Close() error { return nil }

// Collect drains it and closes it.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	defer it.Close() //nolint:errcheck // close errors are secondary to Next errors
	var out []T
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
