// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package inflight

import (
	"sync/atomic"
	"time"

	"github.com/gogama/inflight/request"
)

type guardState int32

const (
	armed guardState = iota
	fired
	disarmed
)

// A guard is the timeout guard of one tracked request.
//
// A guard starts armed and makes exactly one transition, either to
// fired (its timer expired first) or to disarmed (the request completed
// or was cancelled first). The transition is a compare-and-swap, so
// whichever of expiry and completion reaches the guard second finds it
// terminal and does nothing.
//
// The guard knows its request only by handle. The cancel action reports
// whether it actually removed the tracked entry, and the timeout side
// effect runs only when it did.
type guard struct {
	handle    request.Handle
	state     atomic.Int32
	timer     *time.Timer
	cancel    func(request.Handle) bool
	onTimeout func()
}

// newGuard arms a guard for handle h. When d elapses, an msgExpired
// message for the guard is pushed onto q; the dispatcher then calls
// fire.
func newGuard(h request.Handle, d time.Duration, q *queue, cancel func(request.Handle) bool, onTimeout func()) *guard {
	g := &guard{
		handle:    h,
		cancel:    cancel,
		onTimeout: onTimeout,
	}
	g.timer = time.AfterFunc(d, func() {
		q.push(message{kind: msgExpired, handle: h, guard: g, at: time.Now()})
	})
	return g
}

// fire runs the timeout path if the guard is still armed. It returns
// true if the guard transitioned to fired.
func (g *guard) fire() bool {
	if !g.state.CompareAndSwap(int32(armed), int32(fired)) {
		return false
	}
	if g.cancel(g.handle) && g.onTimeout != nil {
		g.onTimeout()
	}
	return true
}

// disarm stops the timer if the guard is still armed. It returns true
// if the guard transitioned to disarmed.
func (g *guard) disarm() bool {
	if !g.state.CompareAndSwap(int32(armed), int32(disarmed)) {
		return false
	}
	g.timer.Stop()
	return true
}
