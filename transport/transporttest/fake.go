// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transporttest provides a scripted transport.Handle for
// testing code that drives the transport primitive, most notably the
// fetchx adapter itself. The test owns the clock: nothing happens until
// it calls one of the Emit methods.
package transporttest

import (
	"net/http"
	"sync"

	"github.com/gogama/fetchx/transport"
)

// A FakeHandle is a scripted transport.Handle. It records everything
// the code under test does to it (headers applied, credentials flag,
// body sent, abort calls) and delivers whatever events the test emits.
type FakeHandle struct {
	transport.Hub

	// OpenErr, if set, is returned by Open.
	OpenErr error
	// SendErr, if set, is returned by Send.
	SendErr error
	// AbortErr, if set, is returned by Abort (after recording the
	// call).
	AbortErr error

	mu          sync.Mutex
	state       transport.State
	method      string
	url         string
	header      http.Header
	credentials []bool
	sent        [][]byte
	abortCalls  int
	statusCode  int
	status      string
	respHeader  http.Header
	body        []byte
}

// NewFakeHandle creates an unsent fake handle.
func NewFakeHandle() *FakeHandle {
	return &FakeHandle{header: make(http.Header)}
}

// Open implements transport.Handle.
func (f *FakeHandle) Open(method, url string) error {
	if f.OpenErr != nil {
		return f.OpenErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != transport.Unsent {
		return transport.ErrAlreadyOpen
	}
	f.method = method
	f.url = url
	f.state = transport.Opened
	return nil
}

// SetHeader implements transport.Handle.
func (f *FakeHandle) SetHeader(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.header.Add(name, value)
}

// SetCredentials implements transport.Handle.
func (f *FakeHandle) SetCredentials(with bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentials = append(f.credentials, with)
}

// Send implements transport.Handle. It records the body and returns;
// the exchange advances only when the test emits events.
func (f *FakeHandle) Send(body []byte) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != transport.Opened {
		return transport.ErrNotOpen
	}
	f.sent = append(f.sent, body)
	f.state = transport.Sending
	return nil
}

// Abort implements transport.Handle. It records the call; the handle's
// state does not change unless the test says so.
func (f *FakeHandle) Abort() error {
	f.mu.Lock()
	f.abortCalls++
	f.mu.Unlock()
	return f.AbortErr
}

// State implements transport.Handle.
func (f *FakeHandle) State() transport.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// StatusCode implements transport.Handle.
func (f *FakeHandle) StatusCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCode
}

// Status implements transport.Handle.
func (f *FakeHandle) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Header implements transport.Handle.
func (f *FakeHandle) Header() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.respHeader
}

// Body implements transport.Handle.
func (f *FakeHandle) Body() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.body
}

// SetState forces the handle into the given lifecycle state.
func (f *FakeHandle) SetState(s transport.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

// EmitOpen delivers an Open event.
func (f *FakeHandle) EmitOpen() {
	f.Emit(transport.Open, transport.Progress{})
}

// EmitUploadProgress delivers an UploadProgress event with the given
// byte counts.
func (f *FakeHandle) EmitUploadProgress(loaded, total int64) {
	f.Emit(transport.UploadProgress, transport.Progress{Loaded: loaded, Total: total})
}

// EmitDownloadProgress delivers a DownloadProgress event with the given
// byte counts.
func (f *FakeHandle) EmitDownloadProgress(loaded, total int64) {
	f.Emit(transport.DownloadProgress, transport.Progress{Loaded: loaded, Total: total})
}

// EmitLoad installs the given response on the handle, moves it to Done,
// and delivers a Load event.
func (f *FakeHandle) EmitLoad(statusCode int, status string, header http.Header, body []byte) {
	f.mu.Lock()
	f.statusCode = statusCode
	f.status = status
	f.respHeader = header
	f.body = body
	f.state = transport.Done
	f.mu.Unlock()
	f.Emit(transport.Load, transport.Progress{})
}

// EmitError moves the handle to Done and delivers an Error event.
func (f *FakeHandle) EmitError() {
	f.mu.Lock()
	f.state = transport.Done
	f.mu.Unlock()
	f.Emit(transport.Error, transport.Progress{})
}

// Method returns the method passed to Open.
func (f *FakeHandle) Method() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.method
}

// URL returns the URL passed to Open.
func (f *FakeHandle) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

// AppliedHeader returns the headers applied with SetHeader.
func (f *FakeHandle) AppliedHeader() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.header
}

// Credentials returns the values passed to SetCredentials, in order.
func (f *FakeHandle) Credentials() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credentials
}

// Sent returns the bodies passed to Send, in order.
func (f *FakeHandle) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

// AbortCalls returns the number of times Abort was called.
func (f *FakeHandle) AbortCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.abortCalls
}
