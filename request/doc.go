// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package request describes a single HTTP request to be dispatched by a
// fetchx adapter. The central type is Plan, the immutable request
// description: method, URL, headers, a fully buffered body, the three
// per-phase timeout budgets, the credentials switch, and the caller's
// progress callbacks.
//
// A Plan's body is always buffered up front (see BodyBytes): the
// transport primitive computes its own content length and does not
// support chunked upload, so streaming sources are drained before
// dispatch.
package request
