// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"net/http"
	"strings"

	"github.com/gogama/fetchx/transport"
)

// A Response describes the outcome of a successfully concluded
// dispatch. A non-2XX status code is still a Response, not an error.
type Response struct {
	// StatusCode is the HTTP response status code, e.g. 200.
	StatusCode int
	// Status is the HTTP status line, e.g. "200 OK".
	Status string
	// Header maps lowercase-insensitive header names to their values.
	// Each raw header value is split on commas, preserving order, so a
	// folded "Vary: Accept, Accept-Encoding" yields two entries.
	Header http.Header
	// Body is the fully buffered response body. It may have zero
	// length.
	Body []byte
	// Redirect is true if and only if the status code is 301 or 302.
	Redirect bool
}

// newResponse builds the success payload from a handle that delivered
// its Load event.
func newResponse(h transport.Handle) *Response {
	code := h.StatusCode()
	return &Response{
		StatusCode: code,
		Status:     h.Status(),
		Header:     splitHeader(h.Header()),
		Body:       h.Body(),
		Redirect:   code == http.StatusMovedPermanently || code == http.StatusFound,
	}
}

// splitHeader expands comma-separated header values into ordered
// per-value entries.
func splitHeader(raw http.Header) http.Header {
	if raw == nil {
		return nil
	}
	out := make(http.Header, len(raw))
	for name, values := range raw {
		for _, value := range values {
			for _, part := range strings.Split(value, ",") {
				out[name] = append(out[name], strings.TrimSpace(part))
			}
		}
	}
	return out
}
