// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gogama/fetchx/request"
	"github.com/gogama/fetchx/transport"
	"github.com/gogama/fetchx/transport/transporttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAdapter(f *transporttest.FakeHandle) *Adapter {
	return &Adapter{
		NewTransport: func() transport.Handle { return f },
		Registry:     NewRegistry(),
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestFetchSuccess(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	p, err := request.NewPlan("GET", "http://example.com/data", nil)
	require.NoError(t, err)

	pr := a.Fetch(p)
	assert.Equal(t, "GET", f.Method())
	assert.Equal(t, "http://example.com/data", f.URL())
	assert.Equal(t, 1, a.Registry.Len())
	require.Len(t, f.Sent(), 1)
	assert.Empty(t, f.Sent()[0])

	f.EmitLoad(200, "200 OK", http.Header{
		"Content-Type": {"text/plain"},
		"Vary":         {"Accept, Accept-Encoding"},
	}, []byte("hello"))

	resp, err := pr.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "200 OK", resp.Status)
	assert.Equal(t, []byte("hello"), resp.Body)
	assert.False(t, resp.Redirect)
	assert.Equal(t, []string{"text/plain"}, resp.Header["Content-Type"])
	assert.Equal(t, []string{"Accept", "Accept-Encoding"}, resp.Header["Vary"])
	eventually(t, func() bool { return a.Registry.Len() == 0 },
		"handle not removed from registry after settlement")
}

func TestContentLengthStripped(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	p, err := request.NewPlan("PUT", "http://example.com/upload", "payload")
	require.NoError(t, err)
	p.Header.Set("Content-Length", "999")
	p.Header.Set("X-Custom", "kept")

	pr := a.Fetch(p)
	applied := f.AppliedHeader()
	assert.Empty(t, applied.Values("Content-Length"))
	assert.Equal(t, "kept", applied.Get("X-Custom"))
	require.Len(t, f.Sent(), 1)
	assert.Equal(t, []byte("payload"), f.Sent()[0])

	f.EmitLoad(200, "200 OK", nil, nil)
	_, err = pr.Wait(context.Background())
	assert.NoError(t, err)
}

func TestRedirectFlag(t *testing.T) {
	testCases := []struct {
		statusCode int
		redirect   bool
	}{
		{301, true},
		{302, true},
		{200, false},
		{404, false},
	}
	for _, testCase := range testCases {
		f := transporttest.NewFakeHandle()
		a := fakeAdapter(f)
		p, err := request.NewPlan("GET", "http://example.com", nil)
		require.NoError(t, err)
		pr := a.Fetch(p)
		f.EmitLoad(testCase.statusCode, "", nil, nil)
		resp, err := pr.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testCase.redirect, resp.Redirect, "status %d", testCase.statusCode)
	}
}

func TestConnectTimeoutFires(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	p, err := request.NewPlan("GET", "http://example.com", nil)
	require.NoError(t, err)
	p.ConnectTimeout = 50 * time.Millisecond

	start := time.Now()
	pr := a.Fetch(p)
	_, err = pr.Wait(context.Background())
	elapsed := time.Since(start)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ConnectTimeout, fe.Kind)
	assert.Equal(t, 50*time.Millisecond, fe.Duration)
	assert.True(t, fe.Timeout())
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Equal(t, 1, f.AbortCalls())
	eventually(t, func() bool { return a.Registry.Len() == 0 },
		"handle not removed from registry after timeout")
}

func TestConnectTimeoutNeutralized(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	p, err := request.NewPlan("PUT", "http://example.com", "body")
	require.NoError(t, err)
	p.ConnectTimeout = 50 * time.Millisecond

	pr := a.Fetch(p)
	time.Sleep(10 * time.Millisecond)
	f.EmitUploadProgress(4, 4)
	time.Sleep(190 * time.Millisecond)
	f.EmitLoad(200, "200 OK", nil, nil)

	resp, err := pr.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Zero(t, f.AbortCalls())
}

func TestSendTimeoutLazyArming(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	p, err := request.NewPlan("PUT", "http://example.com", "body")
	require.NoError(t, err)
	p.SendTimeout = 50 * time.Millisecond

	pr := a.Fetch(p)
	// The send budget counts from the first upload progress tick, not
	// from dispatch.
	time.Sleep(100 * time.Millisecond)
	assert.False(t, pr.Settled())

	f.EmitUploadProgress(1, 4)
	_, err = pr.Wait(context.Background())
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, SendTimeout, fe.Kind)
	assert.Equal(t, 50*time.Millisecond, fe.Duration)
	assert.Equal(t, 1, f.AbortCalls())
}

func TestReceiveTimeout(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	p, err := request.NewPlan("GET", "http://example.com", nil)
	require.NoError(t, err)
	p.ReceiveTimeout = 50 * time.Millisecond

	pr := a.Fetch(p)
	time.Sleep(100 * time.Millisecond)
	assert.False(t, pr.Settled())

	f.EmitDownloadProgress(1, 100)
	_, err = pr.Wait(context.Background())
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ReceiveTimeout, fe.Kind)
	assert.Equal(t, 1, f.AbortCalls())
}

func TestDownloadProgressSatisfiesSendWindow(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	p, err := request.NewPlan("PUT", "http://example.com", "body")
	require.NoError(t, err)
	p.SendTimeout = 50 * time.Millisecond

	pr := a.Fetch(p)
	f.EmitUploadProgress(4, 4)
	f.EmitDownloadProgress(1, 10)
	time.Sleep(100 * time.Millisecond)
	f.EmitLoad(200, "200 OK", nil, nil)

	_, err = pr.Wait(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, f.AbortCalls())
}

func TestTransportError(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	p, err := request.NewPlan("GET", "http://example.com", nil)
	require.NoError(t, err)

	pr := a.Fetch(p)
	f.EmitError()
	_, err = pr.Wait(context.Background())
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, TransportError, fe.Kind)
	assert.False(t, fe.Timeout())
	// The transport is already in a terminal error state; abort would
	// be meaningless.
	assert.Zero(t, f.AbortCalls())
}

func TestCancellation(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	boom := errors.New("user changed page")
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	p, err := request.NewPlanWithContext(ctx, "GET", "http://example.com", nil)
	require.NoError(t, err)

	pr := a.Fetch(p)
	assert.Equal(t, transport.Sending, f.State())
	cancel(boom)

	_, err = pr.Wait(context.Background())
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, Cancelled, fe.Kind)
	assert.True(t, errors.Is(err, boom))
	eventually(t, func() bool { return f.AbortCalls() == 1 }, "abort not invoked")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.AbortCalls())
	eventually(t, func() bool { return a.Registry.Len() == 0 },
		"handle not removed from registry after cancellation")
}

func TestCancellationAfterSettlement(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	ctx, cancel := context.WithCancel(context.Background())
	p, err := request.NewPlanWithContext(ctx, "GET", "http://example.com", nil)
	require.NoError(t, err)

	pr := a.Fetch(p)
	f.EmitLoad(200, "200 OK", nil, nil)
	resp, err := pr.Wait(context.Background())
	require.NoError(t, err)

	cancel()
	time.Sleep(50 * time.Millisecond)
	// The handle is Done, so cancellation must not abort, and the
	// outcome must not change.
	assert.Zero(t, f.AbortCalls())
	again, err := pr.Result()
	assert.NoError(t, err)
	assert.Same(t, resp, again)
}

func TestExactlyOnceSettlement(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	p, err := request.NewPlanWithContext(ctx, "GET", "http://example.com", nil)
	require.NoError(t, err)

	pr := a.Fetch(p)
	f.EmitLoad(200, "200 OK", nil, []byte("first"))
	f.EmitError()
	cancel(errors.New("late"))
	time.Sleep(50 * time.Millisecond)

	resp, err := pr.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), resp.Body)
}

func TestProgressCallbacks(t *testing.T) {
	f := transporttest.NewFakeHandle()
	a := fakeAdapter(f)
	p, err := request.NewPlan("PUT", "http://example.com", "ping")
	require.NoError(t, err)
	var sent, received [][2]int64
	p.OnSendProgress = func(loaded, total int64) {
		sent = append(sent, [2]int64{loaded, total})
	}
	p.OnReceiveProgress = func(loaded, total int64) {
		received = append(received, [2]int64{loaded, total})
	}

	pr := a.Fetch(p)
	f.EmitUploadProgress(2, 4)
	f.EmitUploadProgress(4, 4)
	f.EmitDownloadProgress(3, -1) // unknown total: not forwarded
	f.EmitDownloadProgress(3, 6)
	f.EmitLoad(200, "200 OK", nil, nil)

	_, err = pr.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][2]int64{{2, 4}, {4, 4}}, sent)
	assert.Equal(t, [][2]int64{{3, 6}}, received)
}

func TestCredentialsPrecedence(t *testing.T) {
	no := false
	yes := true
	testCases := []struct {
		name            string
		adapterDefault  bool
		planOverride    *bool
		wantCredentials bool
	}{
		{"adapter default off", false, nil, false},
		{"adapter default on", true, nil, true},
		{"override wins over on", true, &no, false},
		{"override wins over off", false, &yes, true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			f := transporttest.NewFakeHandle()
			a := fakeAdapter(f)
			a.WithCredentials = testCase.adapterDefault
			p, err := request.NewPlan("GET", "http://example.com", nil)
			require.NoError(t, err)
			p.WithCredentials = testCase.planOverride
			pr := a.Fetch(p)
			require.Equal(t, []bool{testCase.wantCredentials}, f.Credentials())
			f.EmitLoad(200, "200 OK", nil, nil)
			_, err = pr.Wait(context.Background())
			assert.NoError(t, err)
		})
	}
}

func TestOpenErrorRejects(t *testing.T) {
	f := transporttest.NewFakeHandle()
	f.OpenErr = errors.New("bad scheme")
	a := fakeAdapter(f)
	p, err := request.NewPlan("GET", "http://example.com", nil)
	require.NoError(t, err)

	pr := a.Fetch(p)
	_, err = pr.Wait(context.Background())
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, TransportError, fe.Kind)
	assert.True(t, errors.Is(err, f.OpenErr))
	assert.Zero(t, a.Registry.Len())
}

func TestSendErrorRejects(t *testing.T) {
	f := transporttest.NewFakeHandle()
	f.SendErr = errors.New("socket gone")
	a := fakeAdapter(f)
	p, err := request.NewPlan("GET", "http://example.com", nil)
	require.NoError(t, err)

	pr := a.Fetch(p)
	_, err = pr.Wait(context.Background())
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, TransportError, fe.Kind)
	assert.True(t, errors.Is(err, f.SendErr))
	eventually(t, func() bool { return a.Registry.Len() == 0 },
		"handle not removed from registry after send failure")
}

func TestFetchNilPlanPanics(t *testing.T) {
	a := &Adapter{}
	assert.Panics(t, func() { a.Fetch(nil) })
	assert.Panics(t, func() { a.Fetch(&request.Plan{Method: "GET"}) })
}

func TestAdapterEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "POST":
			body := make([]byte, r.ContentLength)
			_, _ = r.Body.Read(body)
			w.Header().Set("X-Echo", r.Header.Get("Content-Type"))
			_, _ = w.Write(body)
		default:
			_, _ = w.Write([]byte("hello"))
		}
	}))
	defer server.Close()

	a := &Adapter{Registry: NewRegistry()}

	resp, err := a.Get(server.URL)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []byte("hello"), resp.Body)
	assert.False(t, resp.Redirect)

	resp, err = a.Post(server.URL, "application/json", `{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), resp.Body)
	assert.Equal(t, "application/json", resp.Header.Get("X-Echo"))

	eventually(t, func() bool { return a.Registry.Len() == 0 },
		"registry not drained after end-to-end requests")
}

func TestAdapterEndToEndTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	a := &Adapter{Registry: NewRegistry()}
	p, err := request.NewPlan("GET", server.URL, nil)
	require.NoError(t, err)
	p.ConnectTimeout = 50 * time.Millisecond

	_, err = a.Fetch(p).Wait(context.Background())
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.Timeout())
}
