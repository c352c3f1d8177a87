// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"net/url"

	"github.com/gogama/fetchx/promise"
	"github.com/gogama/fetchx/request"
)

// Fetcher is the interface that wraps the basic Fetch method.
//
// Fetch dispatches the single HTTP request described by the plan and
// returns the pending result immediately. Adapter implements the
// Fetcher interface, and any other Fetcher implementation must behave
// substantially the same as Adapter.Fetch.
type Fetcher interface {
	Fetch(p *request.Plan) *promise.Promise[*Response]
}

// Get uses the specified Fetcher to issue a GET to the specified URL
// and waits for the result.
//
// To set custom headers or timeouts, use request.NewPlan and f.Fetch.
func Get(f Fetcher, url string) (*Response, error) {
	p, err := request.NewPlan("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return f.Fetch(p).Wait(p.Context())
}

// Head uses the specified Fetcher to issue a HEAD to the specified URL
// and waits for the result.
//
// To set custom headers or timeouts, use request.NewPlan and f.Fetch.
func Head(f Fetcher, url string) (*Response, error) {
	p, err := request.NewPlan("HEAD", url, nil)
	if err != nil {
		return nil, err
	}
	return f.Fetch(p).Wait(p.Context())
}

// Post uses the specified Fetcher to issue a POST to the specified URL
// and waits for the result.
//
// The body parameter may be nil for an empty body, or may be any of
// the types supported by request.NewPlan and request.BodyBytes,
// namely: string; []byte; io.Reader; and io.ReadCloser.
//
// To set custom headers or timeouts, use request.NewPlan and f.Fetch.
func Post(f Fetcher, url, contentType string, body interface{}) (*Response, error) {
	p, err := request.NewPlan("POST", url, body)
	if err != nil {
		return nil, err
	}
	p.Header.Set("Content-Type", contentType)
	return f.Fetch(p).Wait(p.Context())
}

// PostForm uses the specified Fetcher to issue a POST to the specified
// URL, with data's keys and values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
// To set other headers, use request.NewPlan and f.Fetch.
func PostForm(f Fetcher, url string, data url.Values) (*Response, error) {
	return Post(f, url, "application/x-www-form-urlencoded", data.Encode())
}

// Get issues a GET to the specified URL, using the same dispatch
// machinery as Fetch, and waits for the result.
func (a *Adapter) Get(url string) (*Response, error) {
	return Get(a, url)
}

// Head issues a HEAD to the specified URL, using the same dispatch
// machinery as Fetch, and waits for the result.
func (a *Adapter) Head(url string) (*Response, error) {
	return Head(a, url)
}

// Post issues a POST to the specified URL, using the same dispatch
// machinery as Fetch, and waits for the result.
//
// The body parameter may be nil for an empty body, or may be any of
// the types supported by request.NewPlan, request.BodyBytes, and
// fetchx.Post, namely: string; []byte; io.Reader; and io.ReadCloser.
func (a *Adapter) Post(url, contentType string, body interface{}) (*Response, error) {
	return Post(a, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
// To set other headers, use request.NewPlan and Adapter.Fetch.
func (a *Adapter) PostForm(url string, data url.Values) (*Response, error) {
	return PostForm(a, url, data)
}
