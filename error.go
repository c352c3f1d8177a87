// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"fmt"
	"time"
)

// A Kind tags an Error with the failure class it represents. Callers
// branch on Kind rather than on message text.
type Kind int

const (
	// TransportError indicates the transport primitive reported a
	// terminal failure. The primitive exposes no structured diagnostic
	// at this layer, so the error is opaque.
	TransportError Kind = iota
	// ConnectTimeout indicates the connect-phase budget elapsed before
	// the transport showed any sign of life.
	ConnectTimeout
	// SendTimeout indicates the send-phase budget elapsed after upload
	// progress began but before the upload concluded.
	SendTimeout
	// ReceiveTimeout indicates the receive-phase budget elapsed after
	// download progress began but before the response was fully
	// received.
	ReceiveTimeout
	// Cancelled indicates the caller's cancellation signal fired while
	// the request was outstanding. The Error's Cause carries the
	// cancellation cause verbatim.
	Cancelled
)

var kindNames = []string{
	"TransportError",
	"ConnectTimeout",
	"SendTimeout",
	"ReceiveTimeout",
	"Cancelled",
}

// String returns the name of the kind.
func (k Kind) String() string {
	return kindNames[int(k)]
}

// An Error is the failure cause a pending result settles with.
type Error struct {
	// Kind is the failure class.
	Kind Kind
	// Duration is the configured phase budget that elapsed. It is only
	// set for the three timeout kinds.
	Duration time.Duration
	// Cause is the underlying cause, when one exists: the caller's
	// cancellation cause for Cancelled, or the transport's own error
	// for a TransportError raised at dispatch.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case ConnectTimeout:
		return fmt.Sprintf("fetchx: connect timeout after %s", e.Duration)
	case SendTimeout:
		return fmt.Sprintf("fetchx: send timeout after %s", e.Duration)
	case ReceiveTimeout:
		return fmt.Sprintf("fetchx: receive timeout after %s", e.Duration)
	case Cancelled:
		if e.Cause != nil {
			return "fetchx: cancelled: " + e.Cause.Error()
		}
		return "fetchx: cancelled"
	default:
		if e.Cause != nil {
			return "fetchx: transport error: " + e.Cause.Error()
		}
		return "fetchx: transport error"
	}
}

// Unwrap returns the underlying cause, if any, so that errors.Is and
// errors.As see through the fetchx error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the error represents a phase timeout. It
// satisfies the Timeout() bool contract shared by net/url and net/http
// errors, so generic timeout-aware callers classify fetchx timeouts
// correctly.
func (e *Error) Timeout() bool {
	switch e.Kind {
	case ConnectTimeout, SendTimeout, ReceiveTimeout:
		return true
	}
	return false
}
