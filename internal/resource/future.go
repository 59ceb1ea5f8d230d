package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrSuperseded is the result of a request voided by a later request for
// the same resource, subject and operation, or by a clear.
var ErrSuperseded = errors.New("superseded by a later request")

// PanicError wraps a panic recovered from the transport or transform.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("transport panic: %v", e.Value)
}

// Future is the eventual result of an operation. It resolves exactly once.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// NewFuture returns an unresolved future and the function that resolves it.
// Calls after the first are ignored.
func NewFuture[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.resolve
}

// Resolved returns a future already resolved with v.
func Resolved[T any](v T) *Future[T] {
	f, resolve := NewFuture[T]()
	resolve(v, nil)
	return f
}

// Rejected returns a future already resolved with err.
func Rejected[T any](err error) *Future[T] {
	f, resolve := NewFuture[T]()
	var zero T
	resolve(zero, err)
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Done is closed when the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx is done. Giving up on ctx
// does not cancel the underlying request.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking; ok is false while pending.
func (f *Future[T]) Result() (v T, ok bool, err error) {
	select {
	case <-f.done:
		return f.val, true, f.err
	default:
		var zero T
		return zero, false, nil
	}
}

// Superseded reports whether the future resolved with ErrSuperseded.
func (f *Future[T]) Superseded() bool {
	_, ok, err := f.Result()
	return ok && errors.Is(err, ErrSuperseded)
}
