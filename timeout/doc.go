// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout implements the per-phase timeout window used during a
// request dispatch. A request's life is divided into three sequential
// phases (connect, send, receive) and each phase may carry its own
// budget, represented by a Window.
//
// A Window is lazily armed when its phase begins and neutralized
// (satisfied) when a transport event proves the phase ended in time. A
// window whose budget elapses first fires its expiry callback exactly
// once. Windows are never re-armed: a phase that has been satisfied or
// has fired is over.
package timeout
