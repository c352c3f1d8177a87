// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/fetchx/promise"
	"github.com/gogama/fetchx/request"
	"github.com/gogama/fetchx/timeout"
	"github.com/gogama/fetchx/transport"
)

// An Adapter dispatches single HTTP requests over an event-driven
// transport handle and returns promise-style pending results. Its zero
// value is a valid configuration.
//
// The zero value adapter constructs a net/http-backed handle for each
// dispatch, sends requests without ambient credentials, and tracks
// live handles in DefaultRegistry. An Adapter is safe for concurrent
// use by multiple goroutines.
//
// An Adapter is deliberately thin: it owns exactly the single-request
// lifecycle. It does not retry, follow redirects, or pool connections;
// those are concerns of the caller or of the transport implementation
// underneath.
type Adapter struct {
	// NewTransport constructs the transport handle for one dispatch.
	//
	// If NewTransport is nil, a transport.HTTPHandle on a default
	// net/http client is used.
	NewTransport func() transport.Handle
	// WithCredentials is the adapter-wide default for whether ambient
	// credentials (URL userinfo, cookie jars) travel with requests. A
	// plan's WithCredentials field, when non-nil, overrides it per
	// request.
	WithCredentials bool
	// Registry tracks the live transport handles dispatched through
	// this adapter, for forced shutdown.
	//
	// If Registry is nil, DefaultRegistry is used.
	Registry *Registry
}

// Fetch dispatches the request described by p and returns the pending
// result immediately.
//
// The promise settles exactly once: with a *Response when the
// transport delivers its terminal success event, or with a *Error when
// the transport fails, a phase timeout window expires, or the plan's
// context is cancelled while the request is outstanding. Whichever
// settlement path runs first wins; all others become no-ops. On every
// path the handle leaves the adapter's registry and all timeout
// windows are neutralized, so no stale timer fires after the request
// has concluded.
func (a *Adapter) Fetch(p *request.Plan) *promise.Promise[*Response] {
	if p == nil {
		panic("fetchx: nil plan")
	}
	if p.URL == nil {
		panic("fetchx: plan has nil URL")
	}

	result := promise.New[*Response]()
	h := a.newTransport()
	if err := h.Open(p.Method, p.URL.String()); err != nil {
		result.Reject(&Error{Kind: TransportError, Cause: err})
		return result
	}
	applyHeader(h, p.Header)
	h.SetCredentials(a.credentials(p))

	reg := a.registry()
	reg.add(h)

	rt := &router{plan: p, handle: h, result: result}
	rt.wire()

	// Settlement cleanup runs exactly once, whichever path settled.
	go func() {
		<-result.Done()
		rt.neutralize()
		reg.remove(h)
	}()

	if ctx := p.Context(); ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				rt.cancelled(context.Cause(ctx))
			case <-result.Done():
			}
		}()
	}

	rt.connect.Arm(p.ConnectTimeout, rt.expire(ConnectTimeout, p.ConnectTimeout))
	if err := h.Send(p.Body); err != nil {
		result.Reject(&Error{Kind: TransportError, Cause: err})
	}
	return result
}

func (a *Adapter) newTransport() transport.Handle {
	if a.NewTransport != nil {
		return a.NewTransport()
	}
	return transport.NewHTTPHandle(nil)
}

func (a *Adapter) registry() *Registry {
	if a.Registry != nil {
		return a.Registry
	}
	return DefaultRegistry
}

func (a *Adapter) credentials(p *request.Plan) bool {
	if p.WithCredentials != nil {
		return *p.WithCredentials
	}
	return a.WithCredentials
}

// applyHeader copies the plan headers onto the handle, dropping any
// Content-Length entry: the transport computes the content length from
// the buffered body, and a stale caller-supplied value would corrupt
// the request.
func applyHeader(h transport.Handle, header http.Header) {
	for name, values := range header {
		if http.CanonicalHeaderKey(name) == "Content-Length" {
			continue
		}
		for _, value := range values {
			h.SetHeader(name, value)
		}
	}
}

// A router wires the five transport events, the three timeout windows,
// and the cancellation signal of one dispatch around a shared
// single-assignment result. One handler per event name; each handler
// leans on the promise's first-wins contract instead of tracking who
// settled.
type router struct {
	plan    *request.Plan
	handle  transport.Handle
	result  *promise.Promise[*Response]
	connect timeout.Window
	send    timeout.Window
	receive timeout.Window
}

func (rt *router) wire() {
	h := rt.handle
	h.On(transport.Open, transport.HandlerFunc(rt.opened))
	h.On(transport.UploadProgress, transport.HandlerFunc(rt.uploadProgress))
	h.On(transport.DownloadProgress, transport.HandlerFunc(rt.downloadProgress))
	h.On(transport.Load, transport.HandlerFunc(rt.loaded))
	h.On(transport.Error, transport.HandlerFunc(rt.failed))
}

// opened handles the transport's readiness notification. Response
// headers in hand mean the connect phase ended and the upload
// necessarily completed, so both windows are satisfied.
func (rt *router) opened(_ transport.Event, _ transport.Progress) {
	rt.connect.Satisfy()
	rt.send.Satisfy()
}

// uploadProgress ends the connect phase and lazily arms the send
// window: the send budget counts from the first progress tick, not
// from dispatch, since the interval before any upload progress is
// connect-phase time.
func (rt *router) uploadProgress(_ transport.Event, p transport.Progress) {
	rt.connect.Satisfy()
	rt.send.Arm(rt.plan.SendTimeout, rt.expire(SendTimeout, rt.plan.SendTimeout))
	if f := rt.plan.OnSendProgress; f != nil && p.Total >= 0 {
		f(p.Loaded, p.Total)
	}
}

// downloadProgress ends the connect and send phases and lazily arms
// the receive window.
func (rt *router) downloadProgress(_ transport.Event, p transport.Progress) {
	rt.connect.Satisfy()
	rt.send.Satisfy()
	rt.receive.Arm(rt.plan.ReceiveTimeout, rt.expire(ReceiveTimeout, rt.plan.ReceiveTimeout))
	if f := rt.plan.OnReceiveProgress; f != nil && p.Total >= 0 {
		f(p.Loaded, p.Total)
	}
}

// loaded handles the terminal success event.
func (rt *router) loaded(_ transport.Event, _ transport.Progress) {
	rt.neutralize()
	rt.result.Resolve(newResponse(rt.handle))
}

// failed handles the terminal failure event. The transport exposes no
// structured reason at this layer, and it is already in a terminal
// state, so no abort is attempted.
func (rt *router) failed(_ transport.Event, _ transport.Progress) {
	rt.neutralize()
	rt.result.Reject(&Error{Kind: TransportError})
}

// expire builds the expiry callback for one phase window: abort the
// transport, then settle with the phase's timeout error if the result
// is still pending.
func (rt *router) expire(kind Kind, d time.Duration) func() {
	return func() {
		_ = rt.handle.Abort()
		rt.neutralize()
		rt.result.Reject(&Error{Kind: kind, Duration: d})
	}
}

// cancelled handles the external cancellation signal. Abort is best
// effort and does not itself produce a transport error event, so the
// result is settled here, with the cancellation cause verbatim, to
// keep the caller from hanging.
func (rt *router) cancelled(cause error) {
	if s := rt.handle.State(); s == transport.Opened || s == transport.Sending {
		_ = rt.handle.Abort()
	}
	rt.neutralize()
	rt.result.Reject(&Error{Kind: Cancelled, Cause: cause})
}

// neutralize satisfies all three windows so no late timer fires after
// the request has concluded. Satisfy is idempotent, so every
// settlement path calls it unconditionally.
func (rt *router) neutralize() {
	rt.connect.Satisfy()
	rt.send.Satisfy()
	rt.receive.Satisfy()
}
