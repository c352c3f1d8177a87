// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

// An Event identifies one of the discrete lifecycle notifications a
// Handle delivers to its registered observers.
type Event int

const (
	// Open identifies the event that occurs when the remote host has
	// begun responding: the status line and response headers have been
	// received. It is a readiness notification, not a terminal event:
	// the response body is still in flight when Open fires.
	Open Event = iota
	// UploadProgress identifies the event that occurs each time a chunk
	// of the request body has been written toward the remote host. The
	// Progress value carries the cumulative byte count and, when known,
	// the total body size.
	UploadProgress
	// DownloadProgress identifies the event that occurs each time a
	// chunk of the response body has been received. The Progress value
	// carries the cumulative byte count and, when known, the total
	// response size.
	DownloadProgress
	// Load identifies the terminal success event. When Load fires, the
	// handle's state is Done and its status code, status line, response
	// headers, and response body are all available.
	Load
	// Error identifies the terminal failure event. The handle exposes
	// no structured diagnostic at this layer; the exchange simply did
	// not complete.
	Error
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events typed as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"Open",
	"UploadProgress",
	"DownloadProgress",
	"Load",
	"Error",
}

// Events returns a slice containing all events a Handle can deliver, in
// the order in which they would occur in a fully successful exchange
// (Error replaces Load in a failed one).
func Events() []Event {
	return []Event{
		Open,
		UploadProgress,
		DownloadProgress,
		Load,
		Error,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}

// Progress carries the byte counts delivered with UploadProgress and
// DownloadProgress events. Total is negative when the total size is not
// known. For all other events the Progress value is the zero value and
// carries no meaning.
type Progress struct {
	Loaded int64
	Total  int64
}

// A Handler observes events delivered by a Handle.
//
// Handlers registered on the same handle are run sequentially in
// registration order, on whatever goroutine the handle delivers the
// event from. A Handler must not block.
type Handler interface {
	Handle(Event, Progress)
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as event handlers. If f is a function with the appropriate
// signature, HandlerFunc(f) is a Handler that calls f.
type HandlerFunc func(Event, Progress)

// Handle calls f(evt, p).
func (f HandlerFunc) Handle(evt Event, p Progress) {
	f(evt, p)
}

// A Hub fans events out to registered observers. Handle implementations
// embed a Hub to satisfy the On method of the Handle interface and call
// Emit to deliver events. The zero value is an empty hub, ready to use.
type Hub struct {
	handlers [numEvents][]Handler
}

// On registers an event handler for a specific event type. It is not
// safe to call On concurrently with Emit: observers are wired before
// the handle is sent.
func (h *Hub) On(evt Event, hr Handler) {
	if hr == nil {
		panic("fetchx/transport: nil handler")
	}
	h.handlers[evt] = append(h.handlers[evt], hr)
}

// Emit delivers an event to every handler registered for it, in
// registration order.
func (h *Hub) Emit(evt Event, p Progress) {
	for _, hr := range h.handlers[evt] {
		hr.Handle(evt, p)
	}
}
