// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"sync"

	"github.com/gogama/fetchx/transport"
)

// A Registry tracks the transport handles of requests currently in
// flight. A handle joins the registry at dispatch, before its body is
// sent, and leaves it exactly once, when its request settles or when
// the registry is force-closed.
//
// The registry is a membership index only: it does not own the
// handles' contents and never settles a pending result itself. On a
// forced close, settlement follows from the abort surfacing through
// each request's own event wiring, exactly as for a single-request
// cancellation.
type Registry struct {
	mu   sync.Mutex
	live map[transport.Handle]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{live: make(map[transport.Handle]struct{})}
}

// DefaultRegistry tracks the live handles of every Adapter that does
// not carry its own registry.
var DefaultRegistry = NewRegistry()

func (r *Registry) add(h transport.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[h]; ok {
		panic("fetchx: handle registered twice")
	}
	if r.live == nil {
		r.live = make(map[transport.Handle]struct{})
	}
	r.live[h] = struct{}{}
}

func (r *Registry) remove(h transport.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, h)
}

// Len returns the number of handles currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close clears the registry. If force is true, every registered handle
// is aborted first, best effort and independently: one handle's abort
// failure never blocks aborting the rest.
func (r *Registry) Close(force bool) {
	r.mu.Lock()
	handles := make([]transport.Handle, 0, len(r.live))
	for h := range r.live {
		handles = append(handles, h)
	}
	r.live = make(map[transport.Handle]struct{})
	r.mu.Unlock()
	if !force {
		return
	}
	for _, h := range handles {
		_ = h.Abort()
	}
}

// Close is the administrative shutdown operation for the default
// registry: Close(true) aborts every request currently in flight
// through it, Close(false) only clears the tracking.
func Close(force bool) {
	DefaultRegistry.Close(force)
}
