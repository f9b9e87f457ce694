package dataflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Stream is a read-only channel of messages.
type Stream[T any] <-chan T

// ErrSkip drops an item without reporting it.
var ErrSkip = errors.New("skip item")

// From creates a stream from a slice of data.
func From[T any](ctx context.Context, items ...T) Stream[T] {
	out := make(chan T, len(items))
	go func() {
		defer close(out)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case out <- item:
			}
		}
	}()
	return out
}

// run calls fn with the retry policy of cfg.
func run[T any](ctx context.Context, cfg *config, fn func() (T, error)) (T, error) {
	res, err := fn()
	for i := 1; err != nil && i <= cfg.maxRetries; i++ {
		if errors.Is(err, ErrSkip) || (cfg.retryable != nil && !cfg.retryable(err)) {
			break
		}
		if cfg.backoff != nil {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(cfg.backoff(i)):
			}
		}
		res, err = fn()
	}
	return res, err
}

// Map transforms the stream using the provided function. Items whose
// function fails are dropped after the error handler has seen them.
func Map[In, Out any](ctx context.Context, input Stream[In], fn func(context.Context, In) (Out, error), opts ...Option) Stream[Out] {
	cfg := newConfig(opts)
	out := make(chan Out)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-input:
				if !ok {
					return
				}
				res, err := run(ctx, cfg, func() (Out, error) { return fn(ctx, msg) })
				if err != nil {
					if !errors.Is(err, ErrSkip) && cfg.errorHandler != nil {
						cfg.errorHandler(err)
					}
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- res:
				}
			}
		}
	}

	wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go worker()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// ForEach executes an action for every item in the stream. It blocks until
// the stream is exhausted or ctx is done and returns the first error the
// error handler did not swallow. The stream is drained after an error so
// upstream stages can exit.
func ForEach[T any](ctx context.Context, input Stream[T], fn func(context.Context, T) error, opts ...Option) error {
	cfg := newConfig(opts)

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	worker := func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-input:
				if !ok {
					return
				}
				_, err := run(ctx, cfg, func() (struct{}, error) { return struct{}{}, fn(ctx, msg) })
				if err == nil || errors.Is(err, ErrSkip) {
					continue
				}
				if cfg.errorHandler != nil && cfg.errorHandler(err) {
					continue
				}
				errOnce.Do(func() { firstErr = err })
			}
		}
	}

	wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go worker()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return firstErr
}
