// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package promise provides a single-assignment result cell used to
// represent the pending outcome of an in-flight request.
//
// A Promise accepts the first of Resolve or Reject and silently ignores
// every later settlement attempt. The first-wins contract is what lets
// several independently scheduled callbacks (transport events, timer
// expirations, a cancellation signal) race to conclude the same request
// without coordination beyond the cell itself.
package promise
