// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	urlpkg "net/url"
	"sync"
)

// noRedirectClient is the client used by a zero-configured HTTPHandle.
// Redirect policy belongs to an upper layer, so 3xx responses are
// surfaced unchanged instead of being followed.
var noRedirectClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// An HTTPHandle is a Handle backed by the standard net/http client.
//
// It emits UploadProgress as the buffered request body is written,
// Open when the response status line and headers arrive,
// DownloadProgress as response body chunks arrive, and exactly one of
// Load or Error when the exchange concludes. Abort cancels the
// in-flight request context.
type HTTPHandle struct {
	Hub
	client *http.Client

	mu         sync.Mutex
	state      State
	method     string
	url        string
	header     http.Header
	ambient    bool
	cancel     context.CancelFunc
	statusCode int
	status     string
	respHeader http.Header
	body       []byte
}

// NewHTTPHandle creates an unsent handle backed by the given client. If
// client is nil, a default client that does not follow redirects is
// used. Ambient credentials are on by default.
func NewHTTPHandle(client *http.Client) *HTTPHandle {
	if client == nil {
		client = noRedirectClient
	}
	return &HTTPHandle{
		client:  client,
		header:  make(http.Header),
		ambient: true,
	}
}

// Open implements the Handle interface.
func (h *HTTPHandle) Open(method, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Unsent {
		return ErrAlreadyOpen
	}
	if _, err := urlpkg.Parse(url); err != nil {
		return err
	}
	h.method = method
	h.url = url
	h.state = Opened
	return nil
}

// SetHeader implements the Handle interface.
func (h *HTTPHandle) SetHeader(name, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.header.Add(name, value)
}

// SetCredentials implements the Handle interface.
func (h *HTTPHandle) SetCredentials(with bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ambient = with
}

// Send implements the Handle interface. The exchange runs on its own
// goroutine; events are delivered from there.
func (h *HTTPHandle) Send(body []byte) error {
	h.mu.Lock()
	if h.state != Opened {
		h.mu.Unlock()
		return ErrNotOpen
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.state = Sending
	h.mu.Unlock()
	go h.send(ctx, body)
	return nil
}

func (h *HTTPHandle) send(ctx context.Context, body []byte) {
	h.mu.Lock()
	method, url, ambient := h.method, h.url, h.ambient
	header := h.header.Clone()
	h.mu.Unlock()

	client := h.client
	if !ambient {
		url = stripUserinfo(url)
		if client.Jar != nil {
			bare := *client
			bare.Jar = nil
			client = &bare
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		h.fail()
		return
	}
	// NewRequest derives an Authorization header from URL userinfo;
	// keep it when the applied headers do not carry their own.
	auth := req.Header.Get("Authorization")
	req.Header = header
	if auth != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", auth)
	}
	if len(body) > 0 {
		total := int64(len(body))
		req.Body = io.NopCloser(&countingReader{
			r:     bytes.NewReader(body),
			total: total,
			emit: func(p Progress) {
				h.Emit(UploadProgress, p)
			},
		})
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		req.ContentLength = total
	}

	resp, err := client.Do(req)
	if err != nil {
		h.fail()
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	h.mu.Lock()
	h.statusCode = resp.StatusCode
	h.status = resp.Status
	h.respHeader = resp.Header
	h.mu.Unlock()
	h.Emit(Open, Progress{})

	total := resp.ContentLength
	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)
	var loaded int64
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			loaded += int64(n)
			h.Emit(DownloadProgress, Progress{Loaded: loaded, Total: total})
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			h.fail()
			return
		}
	}

	h.mu.Lock()
	h.body = buf.Bytes()
	h.state = Done
	h.mu.Unlock()
	h.Emit(Load, Progress{})
}

func (h *HTTPHandle) fail() {
	h.mu.Lock()
	h.state = Done
	h.mu.Unlock()
	h.Emit(Error, Progress{})
}

// Abort implements the Handle interface. Aborting a Sending handle
// cancels the request context, which surfaces as an Error event from
// the exchange goroutine. Aborting an Opened handle simply retires it.
func (h *HTTPHandle) Abort() error {
	h.mu.Lock()
	cancel := h.cancel
	if h.state == Opened {
		h.state = Done
	}
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// State implements the Handle interface.
func (h *HTTPHandle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// StatusCode implements the Handle interface.
func (h *HTTPHandle) StatusCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusCode
}

// Status implements the Handle interface.
func (h *HTTPHandle) Status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Header implements the Handle interface.
func (h *HTTPHandle) Header() http.Header {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.respHeader
}

// Body implements the Handle interface.
func (h *HTTPHandle) Body() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.body
}

// countingReader reports cumulative bytes read through it.
type countingReader struct {
	r      *bytes.Reader
	loaded int64
	total  int64
	emit   func(Progress)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.loaded += int64(n)
		c.emit(Progress{Loaded: c.loaded, Total: c.total})
	}
	return n, err
}

func stripUserinfo(url string) string {
	u, err := urlpkg.Parse(url)
	if err != nil || u.User == nil {
		return url
	}
	u.User = nil
	return u.String()
}
