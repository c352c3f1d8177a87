// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"sync"

	"github.com/valyala/fasthttp"
)

// defaultFastClient streams response bodies so that FastHandle can
// report download progress instead of learning about the body all at
// once.
var defaultFastClient = &fasthttp.Client{
	StreamResponseBody: true,
}

// A FastHandle is a Handle backed by github.com/valyala/fasthttp.
//
// It honors the same event contract as HTTPHandle with one documented
// limitation of the underlying client: Abort cannot interrupt the
// blocking exchange, it only marks the handle so the outcome is
// reported as an Error event instead of Load.
type FastHandle struct {
	Hub
	client *fasthttp.Client

	mu         sync.Mutex
	state      State
	method     string
	url        string
	header     [][2]string
	ambient    bool
	aborted    bool
	statusCode int
	status     string
	respHeader http.Header
	body       []byte
}

// NewFastHandle creates an unsent handle backed by the given client. If
// client is nil, a shared default client with response-body streaming
// enabled is used.
func NewFastHandle(client *fasthttp.Client) *FastHandle {
	if client == nil {
		client = defaultFastClient
	}
	return &FastHandle{
		client:  client,
		ambient: true,
	}
}

// Open implements the Handle interface.
func (h *FastHandle) Open(method, url string) error {
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
func (h *FastHandle) SetHeader(name, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.header = append(h.header, [2]string{name, value})
}

// SetCredentials implements the Handle interface.
func (h *FastHandle) SetCredentials(with bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ambient = with
}

// Send implements the Handle interface. The exchange runs on its own
// goroutine; events are delivered from there.
func (h *FastHandle) Send(body []byte) error {
	h.mu.Lock()
	if h.state != Opened {
		h.mu.Unlock()
		return ErrNotOpen
	}
	h.state = Sending
	h.mu.Unlock()
	go h.send(body)
	return nil
}

func (h *FastHandle) send(body []byte) {
	h.mu.Lock()
	method, url, ambient := h.method, h.url, h.ambient
	header := h.header
	h.mu.Unlock()

	if !ambient {
		url = stripUserinfo(url)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	for _, kv := range header {
		req.Header.Add(kv[0], kv[1])
	}
	if len(body) > 0 {
		total := int64(len(body))
		req.SetBodyStream(&countingReader{
			r:     bytes.NewReader(body),
			total: total,
			emit: func(p Progress) {
				h.Emit(UploadProgress, p)
			},
		}, len(body))
	}

	err := h.client.Do(req, resp)
	if err != nil || h.isAborted() {
		h.fail()
		return
	}

	code := resp.StatusCode()
	respHeader := make(http.Header)
	resp.Header.VisitAll(func(k, v []byte) {
		respHeader.Add(string(k), string(v))
	})

	h.mu.Lock()
	h.statusCode = code
	h.status = fmt.Sprintf("%d %s", code, http.StatusText(code))
	h.respHeader = respHeader
	h.mu.Unlock()
	h.Emit(Open, Progress{})

	buffered, err := h.readBody(resp)
	if err != nil || h.isAborted() {
		h.fail()
		return
	}

	h.mu.Lock()
	h.body = buffered
	h.state = Done
	h.mu.Unlock()
	h.Emit(Load, Progress{})
}

func (h *FastHandle) readBody(resp *fasthttp.Response) ([]byte, error) {
	stream := resp.BodyStream()
	if stream == nil {
		// Client buffered the body itself; report it as one chunk.
		body := append([]byte(nil), resp.Body()...)
		h.Emit(DownloadProgress, Progress{Loaded: int64(len(body)), Total: int64(len(body))})
		return body, nil
	}
	total := int64(resp.Header.ContentLength())
	if total < 0 {
		total = -1
	}
	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)
	var loaded int64
	for {
		n, err := stream.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			loaded += int64(n)
			h.Emit(DownloadProgress, Progress{Loaded: loaded, Total: total})
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (h *FastHandle) fail() {
	h.mu.Lock()
	h.state = Done
	h.mu.Unlock()
	h.Emit(Error, Progress{})
}

func (h *FastHandle) isAborted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

// Abort implements the Handle interface. The mark is best effort: a
// blocking exchange runs to completion but its outcome is discarded and
// reported as an Error event.
func (h *FastHandle) Abort() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.aborted = true
	if h.state == Opened {
		h.state = Done
	}
	return nil
}

// State implements the Handle interface.
func (h *FastHandle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// StatusCode implements the Handle interface.
func (h *FastHandle) StatusCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusCode
}

// Status implements the Handle interface.
func (h *FastHandle) Status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Header implements the Handle interface.
func (h *FastHandle) Header() http.Header {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.respHeader
}

// Body implements the Handle interface.
func (h *FastHandle) Body() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.body
}
