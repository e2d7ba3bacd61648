// Package promise implements a write-once result shared by many waiters.
//
// A Promise is resolved exactly once, either with a value (Complete) or an
// error (Fail). Both return whether this call won the resolution, so a caller
// racing an external cancellation can tell that somebody else already decided
// the outcome and compensate.
//
// Callbacks registered with OnComplete run on the goroutine that resolves the
// promise, after the result is visible, in registration order. A callback
// registered after resolution runs immediately on the registering goroutine.
package promise

import (
	"context"
	"errors"
	"sync"
)

// ErrCanceled is the error used by Cancel.
var ErrCanceled = errors.New("promise canceled")

// Promise is a write-once result.
type Promise[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	resolved  bool
	value     T
	err       error
	callbacks []func(T, error)
}

// New returns an unresolved promise.
func New[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Completed returns a promise already resolved with v.
func Completed[T any](v T) *Promise[T] {
	p := New[T]()
	p.Complete(v)
	return p
}

// Failed returns a promise already failed with err.
func Failed[T any](err error) *Promise[T] {
	p := New[T]()
	p.Fail(err)
	return p
}

// Complete resolves the promise with v. It returns false if the promise was
// already resolved.
func (p *Promise[T]) Complete(v T) bool {
	return p.resolve(v, nil)
}

// Fail resolves the promise with err. It returns false if the promise was
// already resolved.
func (p *Promise[T]) Fail(err error) bool {
	var zero T
	return p.resolve(zero, err)
}

// Cancel fails the promise with ErrCanceled.
func (p *Promise[T]) Cancel() bool {
	return p.Fail(ErrCanceled)
}

func (p *Promise[T]) resolve(v T, err error) bool {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return false
	}
	p.resolved = true
	p.value = v
	p.err = err
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(v, err)
	}
	return true
}

// OnComplete registers fn to run once the promise is resolved.
func (p *Promise[T]) OnComplete(fn func(T, error)) {
	p.mu.Lock()
	if !p.resolved {
		p.callbacks = append(p.callbacks, fn)
		p.mu.Unlock()
		return
	}
	v, err := p.value, p.err
	p.mu.Unlock()
	fn(v, err)
}

// Done returns a channel closed when the promise is resolved.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// IsDone reports whether the promise is resolved.
func (p *Promise[T]) IsDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Result returns the resolved value and error without blocking. While the
// promise is unresolved it returns the zero value and a nil error; check
// IsDone first.
func (p *Promise[T]) Result() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

// Wait blocks until the promise is resolved or ctx is done.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
