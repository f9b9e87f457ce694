package dataflow

import (
	"context"
)

// Batch groups items into slices of up to size elements. The last batch
// may be shorter.
func Batch[T any](ctx context.Context, input Stream[T], size int) Stream[[]T] {
	if size < 1 {
		size = 1
	}
	out := make(chan []T)

	go func() {
		defer close(out)
		batch := make([]T, 0, size)
		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			select {
			case <-ctx.Done():
				return false
			case out <- batch:
				batch = make([]T, 0, size)
				return true
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-input:
				if !ok {
					flush()
					return
				}
				batch = append(batch, msg)
				if len(batch) == size && !flush() {
					return
				}
			}
		}
	}()

	return out
}
