// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package fetchx dispatches single HTTP requests over an event-driven
transport primitive and hands back promise-style pending results.

Create an Adapter to begin making requests.

	adapter := &fetchx.Adapter{}
	resp, err := adapter.Get("https://www.example.com")
	...

For anything beyond the convenience verbs, build a request.Plan and
dispatch it with Fetch, which returns immediately with a pending
promise:

	p, err := request.NewPlan("POST", "https://www.example.com/upload", &buf)
	...
	p.ConnectTimeout = 2 * time.Second
	p.ReceiveTimeout = 30 * time.Second
	p.OnReceiveProgress = func(loaded, total int64) {
		fmt.Printf("%d/%d\n", loaded, total)
	}
	resp, err := adapter.Fetch(p).Wait(p.Context())

A dispatch concludes exactly once, whichever of these happens first:
the transport delivers its terminal event, a phase timeout window
expires, or the plan's context is cancelled. Failures surface as
*fetchx.Error values tagged with a Kind (ConnectTimeout, SendTimeout,
ReceiveTimeout, TransportError, Cancelled).

The three timeout budgets guard sequential phases, not the whole
dispatch: the connect window is armed at dispatch and neutralized by
the first sign of life from the transport; the send window starts
counting at the first upload progress event; the receive window at the
first download progress event. A slow but progressing upload is never
killed by the connect budget.

For control over how bytes actually move, supply a transport factory.
Package transport provides an implementation on the standard net/http
client and one on github.com/valyala/fasthttp:

	adapter := &fetchx.Adapter{
		NewTransport: func() transport.Handle {
			return transport.NewFastHandle(nil)
		},
	}

Every live transport handle is tracked in a Registry until its request
settles. Close(true) force-aborts everything in flight, for example
during process shutdown.
*/
package fetchx
