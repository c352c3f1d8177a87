// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transport defines the event-driven network primitive that the
// fetchx adapter drives, and provides two production implementations of
// it: HTTPHandle on top of the standard net/http client, and FastHandle
// on top of github.com/valyala/fasthttp.
//
// A Handle performs exactly one HTTP exchange. Its owner opens it,
// applies headers, and sends a fully buffered body; the handle reports
// its life through discrete events (Open, UploadProgress,
// DownloadProgress, Load, Error) delivered to registered observers, and
// exposes a best-effort Abort. The handle never retries, follows
// policy, or interprets the response beyond the byte stream.
package transport
