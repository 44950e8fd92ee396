// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package inflight

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Tracker to observe the lifecycle
// of every request it tracks.
type Event int

const (
	// BeforeStart identifies the event that occurs before the transport
	// is asked to start the request.
	//
	// When Tracker fires BeforeStart, the result is non-nil but the
	// only fields set are the plan and the start time. BeforeStart runs
	// on the issuing goroutine, so handlers may still modify the plan.
	BeforeStart Event = iota
	// AfterStart identifies the event that occurs after the transport
	// started the request and the tracker registered it.
	//
	// When Tracker fires AfterStart, the result's handle is set.
	// AfterStart runs on the dispatcher goroutine and always precedes
	// every other event for the same request.
	AfterStart
	// AfterTimeout identifies the event that occurs after the request's
	// time bound expired and the transport operation was aborted.
	//
	// When Tracker fires AfterTimeout, the result's outcome is
	// request.TimedOut and the user's timeout side effect has already
	// run.
	AfterTimeout
	// AfterCancel identifies the event that occurs after the request
	// was cancelled, either explicitly or because the tracker closed.
	//
	// When Tracker fires AfterCancel, the result's outcome is
	// request.Cancelled.
	AfterCancel
	// AfterComplete identifies the event that occurs immediately before
	// the result is delivered to its completion callback or blocked
	// caller.
	//
	// AfterComplete fires exactly once for every request that started,
	// whatever its outcome, and always after AfterTimeout or
	// AfterCancel when those apply.
	AfterComplete
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeStart",
	"AfterStart",
	"AfterTimeout",
	"AfterCancel",
	"AfterComplete",
}

// Events returns a slice containing all events which can occur in the
// lifecycle of a tracked request, in the order in which they would
// occur.
func Events() []Event {
	return []Event{
		BeforeStart,
		AfterStart,
		AfterTimeout,
		AfterCancel,
		AfterComplete,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
