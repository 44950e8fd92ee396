// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gogama/inflight/transient"
)

// An Outcome is the final disposition of a tracked request.
type Outcome int

const (
	// Pending indicates the request has not completed yet. A Result
	// handed to a completion callback never has this outcome.
	Pending Outcome = iota
	// Success indicates the transport finished the operation without
	// error. The HTTP status may still indicate a failure; the tracker
	// does not interpret status codes.
	Success
	// TransportError indicates the transport finished the operation
	// with an error.
	TransportError
	// TimedOut indicates the request's time bound expired before the
	// transport finished, and the operation was aborted.
	TimedOut
	// Cancelled indicates the request was explicitly cancelled, or
	// cancelled because the tracker was closed.
	Cancelled
)

var outcomeNames = [...]string{
	Pending:        "pending",
	Success:        "success",
	TransportError: "transport_error",
	TimedOut:       "timed_out",
	Cancelled:      "cancelled",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// A Result is the completion value of one tracked request.
//
// Exactly one Result is delivered per issued request, either to the
// completion callback (asynchronous issue) or as the return value of a
// blocking issue. Event handlers receive the same Result and may attach
// data to it with SetValue.
//
// Exported fields should be treated as read-only once the Result has
// been delivered.
type Result struct {
	// Plan is the request plan that was issued. It is never nil.
	Plan *Plan

	// Handle identifies the transport operation.
	Handle Handle

	// Start is the time the request was issued.
	Start time.Time

	// End is the time the outcome was decided. It is zero while the
	// request is pending.
	End time.Time

	// Outcome is the final disposition of the request.
	Outcome Outcome

	// Request is the HTTP request sent by the transport, if any.
	Request *http.Request

	// Response is the HTTP response received, if any. Its body has
	// already been consumed into Body.
	Response *http.Response

	// Body is the complete response body.
	Body []byte

	// Err is nil on Success. For every other completed outcome it is
	// non-nil and has the type *url.Error.
	Err error

	data    context.Context
	release func()
	once    sync.Once
}

// StatusCode returns the HTTP response status code, or 0 if there is no
// response.
func (r *Result) StatusCode() int {
	if r.Response == nil {
		return 0
	}

	return r.Response.StatusCode
}

// Header returns the HTTP response headers, or a nil header if there is
// no response.
func (r *Result) Header() http.Header {
	if r.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return r.Response.Header
}

// Duration returns End minus Start once the result has ended, the time
// elapsed since Start while it is pending, and zero if it never
// started.
func (r *Result) Duration() time.Duration {
	if !r.Started() {
		return time.Duration(0)
	} else if !r.Ended() {
		return time.Since(r.Start)
	}

	return r.End.Sub(r.Start)
}

// Started indicates whether Start is set.
func (r *Result) Started() bool {
	return r.Start != (time.Time{})
}

// Ended indicates whether End is set.
func (r *Result) Ended() bool {
	return r.End != (time.Time{})
}

// Timeout indicates whether the request timed out, either because its
// time bound expired or because the transport itself reported a
// timeout error.
func (r *Result) Timeout() bool {
	return r.Outcome == TimedOut || transient.Categorize(r.Err) == transient.Timeout
}

// SetValue stores arbitrary data in the result. The key follows the
// rules of the key parameter of context.WithValue: it must be non-nil
// and comparable, and should be of an unexported type to avoid
// collisions between event handlers.
func (r *Result) SetValue(key, value interface{}) {
	ctx := r.data
	if ctx == nil {
		ctx = context.Background()
	}

	r.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with key, or nil.
func (r *Result) Value(key interface{}) interface{} {
	ctx := r.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}

// SetRelease installs the function Close invokes to release the
// transport resources behind the result. It is called by the request
// tracker for results whose ownership passes to the caller.
func (r *Result) SetRelease(f func()) {
	r.release = f
}

// Close releases the transport resources behind the result. It only has
// an effect on results returned by a blocking issue, which the caller
// owns; for results the tracker owns it is a no-op. Close is idempotent
// and always returns nil.
func (r *Result) Close() error {
	r.once.Do(func() {
		if r.release != nil {
			r.release()
		}
	})
	return nil
}
