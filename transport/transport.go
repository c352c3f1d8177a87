// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"errors"
	"net/http"
)

// A State is the lifecycle state of a Handle. States are ordered: a
// handle only ever moves forward through them.
type State int

const (
	// Unsent is the initial state, before Open is called.
	Unsent State = iota
	// Opened means Open succeeded and the handle is ready to Send.
	Opened
	// Sending means Send was called and the exchange is in flight.
	Sending
	// Done is the terminal state, reached on success, failure, or
	// abort.
	Done
)

var transportStateNames = []string{
	"Unsent",
	"Opened",
	"Sending",
	"Done",
}

// String returns the name of the state.
func (s State) String() string {
	return transportStateNames[int(s)]
}

// Errors returned by Handle implementations when a method is called in
// the wrong lifecycle state.
var (
	ErrNotOpen     = errors.New("fetchx/transport: handle not open")
	ErrAlreadyOpen = errors.New("fetchx/transport: handle already open")
)

// A Handle is a single-use, event-driven network exchange: the
// transport primitive driven by the fetchx adapter.
//
// The owner calls Open, applies headers and the credentials flag, then
// calls Send with a fully buffered body. Send does not block: the
// exchange proceeds asynchronously and the handle reports its life
// through events registered with On. Once the handle reaches Done, the
// response accessors are valid (for a Load outcome) and remain so for
// the life of the handle.
//
// Implementations must deliver at most one terminal event (Load or
// Error) per handle.
type Handle interface {
	// Open readies the handle to exchange with the given method and
	// absolute URL. It transitions the handle from Unsent to Opened.
	Open(method, url string) error
	// SetHeader adds a request header. Repeated calls with the same
	// name append values in order. SetHeader must be called between
	// Open and Send.
	SetHeader(name, value string)
	// SetCredentials controls whether ambient credentials (URL
	// userinfo, client cookie jar) travel with the request.
	SetCredentials(with bool)
	// Send starts the exchange with the given request body, which may
	// be nil or empty, and returns without waiting for it to conclude.
	// The handle computes the content length from body itself.
	Send(body []byte) error
	// Abort makes a best-effort attempt to tear down an in-flight
	// exchange. Aborting a handle that is already Done is a no-op.
	Abort() error
	// State returns the handle's current lifecycle state.
	State() State
	// On registers an observer for an event type. Observers must be
	// registered before Send.
	On(Event, Handler)

	// StatusCode returns the response status code, or 0 before the
	// response arrived.
	StatusCode() int
	// Status returns the response status line, e.g. "200 OK", or the
	// empty string before the response arrived.
	Status() string
	// Header returns the response headers, or nil before the response
	// arrived.
	Header() http.Header
	// Body returns the fully buffered response body. It is valid only
	// after Load fired.
	Body() []byte
}
