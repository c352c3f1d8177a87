// Copyright 2024 The fetchx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"sync"
	"time"
)

// A State is the lifecycle state of a Window.
type State int

const (
	// Unarmed is the initial state. A window stays Unarmed permanently
	// if it is armed with a non-positive duration (phase timeout
	// disabled).
	Unarmed State = iota
	// Armed means the window's timer is counting down.
	Armed
	// Satisfied means a qualifying transport event ended the phase
	// before the budget elapsed. The timer is cancelled and no error is
	// emitted.
	Satisfied
	// Fired means the budget elapsed while the window was still Armed
	// and the expiry callback has run.
	Fired
)

var stateNames = []string{
	"Unarmed",
	"Armed",
	"Satisfied",
	"Fired",
}

// String returns the name of the state.
func (s State) String() string {
	return stateNames[int(s)]
}

// A Window is the timeout budget for one phase of a request dispatch.
// Its zero value is an unarmed window, ready to use.
//
// Once armed, exactly one of Satisfy or expiry wins; every transition
// after the first is a no-op. A Window is safe for concurrent use by
// multiple goroutines.
type Window struct {
	mu    sync.Mutex
	state State
	timer *time.Timer
}

// Arm starts the window's timer with the given budget. If d is not
// positive, the window stays Unarmed and will never fire: the phase has
// no timeout. Arming a window that is not Unarmed is a no-op, which is
// what makes lazy arming on repeated progress events safe.
//
// If the budget elapses while the window is still Armed, the window
// transitions to Fired and onExpire runs exactly once. onExpire must
// not be nil when d is positive.
func (w *Window) Arm(d time.Duration, onExpire func()) {
	w.mu.Lock()
	if w.state != Unarmed || d <= 0 {
		w.mu.Unlock()
		return
	}
	w.state = Armed
	w.timer = time.AfterFunc(d, func() {
		w.fire(onExpire)
	})
	w.mu.Unlock()
}

func (w *Window) fire(onExpire func()) {
	w.mu.Lock()
	if w.state != Armed {
		w.mu.Unlock()
		return
	}
	w.state = Fired
	w.timer = nil
	w.mu.Unlock()
	onExpire()
}

// Satisfy neutralizes the window: if it is Armed, the timer is
// cancelled and the window transitions to Satisfied without firing.
// Satisfy is a no-op on an Unarmed, Satisfied, or Fired window.
func (w *Window) Satisfy() {
	w.mu.Lock()
	if w.state != Armed {
		w.mu.Unlock()
		return
	}
	w.state = Satisfied
	t := w.timer
	w.timer = nil
	w.mu.Unlock()
	t.Stop()
}

// State returns the window's current lifecycle state.
func (w *Window) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
