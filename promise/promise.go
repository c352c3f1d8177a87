// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package promise

import (
	"context"
	"errors"
	"sync"
)

// ErrPending is returned by Result when the promise has not settled yet.
var ErrPending = errors.New("fetchx/promise: not settled")

// A Promise is a single-assignment result cell. It starts pending and
// settles exactly once, either with a value (Resolve) or with an error
// (Reject). Settlement attempts after the first are no-ops, and the
// losing caller is told so by the boolean return value.
//
// A Promise must be created with New. It is safe for concurrent use by
// multiple goroutines.
type Promise[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	value   T
	err     error
}

// New creates a pending promise.
func New[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Resolve settles the promise with a success value. It returns true if
// this call settled the promise and false if the promise was already
// settled, in which case the call has no effect.
func (p *Promise[T]) Resolve(value T) bool {
	return p.settle(value, nil)
}

// Reject settles the promise with a failure cause. It returns true if
// this call settled the promise and false if the promise was already
// settled, in which case the call has no effect.
func (p *Promise[T]) Reject(err error) bool {
	var zero T
	return p.settle(zero, err)
}

func (p *Promise[T]) settle(value T, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return false
	}
	p.settled = true
	p.value = value
	p.err = err
	close(p.done)
	return true
}

// Done returns a channel that is closed when the promise settles.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Settled indicates whether the promise has settled.
func (p *Promise[T]) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

// Result returns the settlement of the promise. If the promise is still
// pending, it returns the zero value and ErrPending without blocking.
func (p *Promise[T]) Result() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.settled {
		var zero T
		return zero, ErrPending
	}
	return p.value, p.err
}

// Wait blocks until the promise settles or ctx is done, whichever comes
// first, and returns the settlement or the context's error.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.Result()
	case <-ctx.Done():
		// The promise may have settled in the same instant. Prefer the
		// settlement, since it is what the caller asked for.
		select {
		case <-p.done:
			return p.Result()
		default:
		}
		var zero T
		return zero, ctx.Err()
	}
}
