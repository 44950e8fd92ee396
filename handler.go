// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package inflight

import (
	"github.com/gogama/inflight/request"
)

// A HandlerGroup is a group of event handler chains which can be
// installed in a Tracker.
type HandlerGroup struct {
	handlers [][]Handler
}

// PushBack adds an event handler to the back of the event handler chain
// for a specific event type.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("inflight: nil handler")
	}

	if g.handlers == nil {
		g.handlers = make([][]Handler, numEvents)
	}

	g.handlers[evt] = append(g.handlers[evt], h)
}

func (g *HandlerGroup) run(evt Event, r *request.Result) {
	i := int(evt)
	if i < len(g.handlers) {
		run(g.handlers[i], evt, r)
	}
}

func run(chain []Handler, evt Event, r *request.Result) {
	for _, h := range chain {
		h.Handle(evt, r)
	}
}

// A Handler handles the occurrence of an event in the lifecycle of a
// tracked request.
//
// Except for BeforeStart, handlers run on the tracker's dispatcher
// goroutine. They may call Issue and Cancel, but must not block on a
// request tracked by the same Tracker.
type Handler interface {
	Handle(Event, *request.Result)
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as event handlers. If f is a function with appropriate
// signature, then HandlerFunc(f) is a Handler that calls f.
type HandlerFunc func(Event, *request.Result)

// Handle calls f(evt, r).
func (f HandlerFunc) Handle(evt Event, r *request.Result) {
	f(evt, r)
}
