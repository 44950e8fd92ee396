// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package inflight

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gogama/inflight/request"
	"github.com/gogama/inflight/transient"
)

var (
	// ErrTimedOut is wrapped in the error of a result whose time bound
	// expired. Its Timeout method reports true.
	ErrTimedOut error = &lifecycleError{msg: "inflight: request timed out", timeout: true}

	// ErrCancelled is wrapped in the error of a cancelled result.
	ErrCancelled = errors.New("inflight: request cancelled")

	// ErrClosed is returned when issuing on a closed Tracker.
	ErrClosed = errors.New("inflight: tracker closed")

	// ErrDuplicateHandle is returned when the transport starts an
	// operation under a handle that is still tracked.
	ErrDuplicateHandle = errors.New("inflight: transport returned a handle already in flight")
)

type lifecycleError struct {
	msg     string
	timeout bool
}

func (err *lifecycleError) Error() string {
	return err.msg
}

func (err *lifecycleError) Timeout() bool {
	return err.timeout
}

// A CompletionFunc receives the result of an asynchronously issued
// request. It is called exactly once per issued request, on the
// tracker's dispatcher goroutine.
type CompletionFunc func(r *request.Result)

var emptyHandlers = HandlerGroup{}

// A Tracker issues requests through a Transport, tracks every request
// in flight by its handle, enforces optional per-request time bounds,
// and delivers exactly one result per request. Its zero value is a
// valid configuration.
//
// The zero value tracker uses DefaultTransport, no event handlers, no
// logger and no metrics. The exported fields must not be changed once
// the tracker has been used.
//
// The first use of a tracker starts its dispatcher goroutine, which
// runs until Close is called. Call Close when done with a tracker to
// release the goroutine.
//
// Every result is delivered on a single dispatcher goroutine owned by
// the tracker, so completion callbacks, timeout side effects and event
// handlers (other than BeforeStart) never run concurrently with each
// other. Callbacks may issue and cancel requests, but must not call
// IssueBlocking or Close on the same tracker, since the dispatcher
// they would wait for is the goroutine running them.
//
// For a given request exactly one of completion, timeout and
// cancellation wins. A completion wins as soon as the transport reports
// it, even though it is dispatched later: a cancellation or timeout
// that comes after it finds nothing to do, and Cancel returns false.
// A transport completion that arrives after a cancellation or timeout
// is ignored, and a timer that expires after the completion never runs
// the timeout side effect.
//
// Tracker is safe for concurrent use by multiple goroutines.
type Tracker struct {
	// Transport starts and tears down the underlying operations.
	//
	// If Transport is nil, DefaultTransport is used.
	Transport Transport
	// Handlers allows custom handler chains to be invoked when
	// designated events occur in the lifecycle of a request.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Logger receives diagnostic messages.
	//
	// If Logger is nil, nothing is logged.
	Logger Logger
	// Metrics is updated as requests start and complete.
	//
	// If Metrics is nil, no metrics are recorded.
	Metrics *Metrics

	once      sync.Once
	closeOnce sync.Once
	q         *queue
	done      chan struct{}

	mu      sync.Mutex
	entries map[request.Handle]*entry
	closed  bool

	// finishing holds handles whose completion is queued but not yet
	// dispatched. It has its own lock because transports may call
	// finish from inside Start, while mu is held.
	fmu       sync.Mutex
	finishing map[request.Handle]struct{}
}

// An entry is the tracking record of one in-flight request.
type entry struct {
	handle     request.Handle
	owned      bool
	onComplete CompletionFunc
	result     *request.Result
	guard      *guard
	// started is only touched on the dispatcher goroutine.
	started bool
}

// Issue starts the request described by p and returns its handle
// without waiting for it to complete.
//
// If timeout is positive, the request is bounded: if the transport has
// not finished it within timeout, the operation is aborted, onTimeout
// is called if it is not nil, and onComplete receives a result with
// outcome request.TimedOut. Otherwise onComplete receives the
// transport's result, or a request.Cancelled result if the handle is
// cancelled first.
//
// The tracker owns the result passed to onComplete, and releases its
// transport resources once onComplete returns. Callers should copy out
// whatever they need instead of retaining the result.
//
// An error is returned, and onComplete is never called, if the
// transport could not start the request or the tracker is closed. Any
// returned error is of type *url.Error.
func (t *Tracker) Issue(p *request.Plan, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	if onComplete == nil {
		panic("inflight: nil completion func")
	}

	return t.issue(p, timeout, true, onComplete, onTimeout)
}

// IssueBlocking starts the request described by p and waits for its
// result.
//
// The time bound and timeout side effect work as in Issue. If the
// plan's context is done before the result is available, the request
// is cancelled and the request.Cancelled result is returned.
//
// The returned error is the result's Err, so it is nil exactly when
// the outcome is request.Success. If the request could not be started,
// the result is nil. Any returned error is of type *url.Error.
//
// The caller owns the returned result and must Close it to release the
// transport resources behind it.
//
// IssueBlocking must not be called from a completion callback or an
// event handler of the same tracker.
func (t *Tracker) IssueBlocking(p *request.Plan, timeout time.Duration, onTimeout func()) (*request.Result, error) {
	ch := make(chan *request.Result, 1)
	h, err := t.issue(p, timeout, false, func(r *request.Result) {
		ch <- r
	}, onTimeout)
	if err != nil {
		return nil, err
	}

	var r *request.Result
	select {
	case r = <-ch:
	case <-p.Context().Done():
		t.Cancel(h)
		r = <-ch
	}

	return r, r.Err
}

// Cancel stops tracking the request with handle h and aborts its
// transport operation. The request's completion callback, or its
// blocked caller, then receives a request.Cancelled result.
//
// Cancel returns false, and has no effect, if h is not in flight: it
// already completed (even if the completion is still waiting to be
// dispatched), was already cancelled or timed out, or was never issued.
func (t *Tracker) Cancel(h request.Handle) bool {
	t.init()
	return t.cancel(h, request.Cancelled)
}

// Len returns the number of requests currently in flight.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close cancels every request in flight, waits until their results are
// delivered, and stops the dispatcher. Issuing on a closed tracker
// fails with ErrClosed. Close is idempotent and always returns nil.
//
// Close must not be called from a completion callback or an event
// handler of the same tracker.
func (t *Tracker) Close() error {
	t.init()
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		var retired []*entry
		t.fmu.Lock()
		for h, ent := range t.entries {
			// A queued completion is ahead of msgStop and wins.
			if _, ok := t.finishing[h]; !ok {
				retired = append(retired, ent)
				delete(t.entries, h)
			}
		}
		t.fmu.Unlock()
		t.mu.Unlock()

		if len(retired) > 0 {
			t.logger().Debugf("inflight: closing with %d requests in flight", len(retired))
		}
		for _, ent := range retired {
			t.retire(ent, request.Cancelled)
		}
		t.q.push(message{kind: msgStop})
	})
	<-t.done
	return nil
}

// CloseIdleConnections invokes the same method on the Transport, if it
// has one.
func (t *Tracker) CloseIdleConnections() {
	if ic, ok := t.transport().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

// Get issues a GET to the specified URL. See Issue.
func (t *Tracker) Get(url string, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	return Get(t, url, timeout, onComplete, onTimeout)
}

// Head issues a HEAD to the specified URL. See Issue.
func (t *Tracker) Head(url string, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	return Head(t, url, timeout, onComplete, onTimeout)
}

// Post issues a POST to the specified URL. See Issue.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.NewPlan and request.BodyBytes, namely:
// string; []byte; url.Values; io.Reader; and io.ReadCloser.
func (t *Tracker) Post(url, contentType string, body interface{}, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	return Post(t, url, contentType, body, timeout, onComplete, onTimeout)
}

// GetBlocking issues a GET to the specified URL and waits for the
// result. See IssueBlocking.
func (t *Tracker) GetBlocking(url string, timeout time.Duration, onTimeout func()) (*request.Result, error) {
	return GetBlocking(t, url, timeout, onTimeout)
}

// HeadBlocking issues a HEAD to the specified URL and waits for the
// result. See IssueBlocking.
func (t *Tracker) HeadBlocking(url string, timeout time.Duration, onTimeout func()) (*request.Result, error) {
	return HeadBlocking(t, url, timeout, onTimeout)
}

// PostBlocking issues a POST to the specified URL and waits for the
// result. See IssueBlocking.
func (t *Tracker) PostBlocking(url, contentType string, body interface{}, timeout time.Duration, onTimeout func()) (*request.Result, error) {
	return PostBlocking(t, url, contentType, body, timeout, onTimeout)
}

func (t *Tracker) init() {
	t.once.Do(func() {
		t.q = newQueue()
		t.done = make(chan struct{})
		t.finishing = make(map[request.Handle]struct{})
		t.mu.Lock()
		if t.entries == nil && !t.closed {
			t.entries = make(map[request.Handle]*entry)
		}
		t.mu.Unlock()
		go t.loop()
	})
}

func (t *Tracker) issue(p *request.Plan, timeout time.Duration, owned bool, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	if p == nil {
		panic("inflight: nil plan")
	}

	t.init()
	r := &request.Result{Plan: p, Start: time.Now()}
	t.handlers().run(BeforeStart, r)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return request.NilHandle, urlErrorWrap(p, ErrClosed)
	}

	tr := t.transport()
	h, err := tr.Start(p, t.finish)
	if err != nil {
		t.logger().Warnf("inflight: failed to start %s: %v", p, err)
		return request.NilHandle, urlErrorWrap(p, err)
	}
	if _, ok := t.entries[h]; ok {
		// Teardown is keyed by handle, so it would hit the live entry.
		t.logger().Warnf("inflight: duplicate handle %s for %s", h, p)
		return request.NilHandle, urlErrorWrap(p, ErrDuplicateHandle)
	}

	r.Handle = h
	ent := &entry{
		handle:     h,
		owned:      owned,
		onComplete: onComplete,
		result:     r,
	}
	if timeout > 0 {
		ent.guard = newGuard(h, timeout, t.q, t.timeOut, onTimeout)
	}
	t.entries[h] = ent
	t.q.push(message{kind: msgStarted, entry: ent})
	t.Metrics.started()
	return h, nil
}

// finish is the FinishFunc handed to the transport.
func (t *Tracker) finish(h request.Handle, r *request.Result) {
	t.fmu.Lock()
	defer t.fmu.Unlock()
	t.finishing[h] = struct{}{}
	t.q.push(message{kind: msgFinished, handle: h, result: r, at: time.Now()})
}

// timeOut is the cancel action of timeout guards.
func (t *Tracker) timeOut(h request.Handle) bool {
	return t.cancel(h, request.TimedOut)
}

// cancel removes the entry for h and retires it with outcome. It
// returns false if h is not tracked or its completion is already
// queued, in which case the completion is delivered instead.
func (t *Tracker) cancel(h request.Handle, outcome request.Outcome) bool {
	t.mu.Lock()
	ent, ok := t.entries[h]
	if ok && t.isFinishing(h) {
		ok = false
	}
	if ok {
		delete(t.entries, h)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}

	t.retire(ent, outcome)
	return true
}

// retire tears down the transport operation of an entry already removed
// from the table, and queues delivery of its aborted result.
func (t *Tracker) retire(ent *entry, outcome request.Outcome) {
	if ent.guard != nil {
		ent.guard.disarm()
	}
	tr := t.transport()
	if ent.owned {
		tr.Release(ent.handle)
	}
	tr.Close(ent.handle)
	tr.Abort(ent.handle)
	t.q.push(message{kind: msgRetired, entry: ent, outcome: outcome, at: time.Now()})
}

func (t *Tracker) loop() {
	for range t.q.wait() {
		for _, m := range t.q.drain() {
			switch m.kind {
			case msgStarted:
				t.markStarted(m.entry)
			case msgFinished:
				t.dispatch(m.handle, m.result, m.at)
			case msgExpired:
				if m.guard.fire() {
					t.logger().Debugf("inflight: request %s timed out", m.handle)
				}
			case msgRetired:
				t.deliverRetired(m.entry, m.outcome, m.at)
			case msgStop:
				close(t.done)
				return
			}
		}
	}
}

func (t *Tracker) isFinishing(h request.Handle) bool {
	t.fmu.Lock()
	defer t.fmu.Unlock()
	_, ok := t.finishing[h]
	return ok
}

func (t *Tracker) markStarted(ent *entry) {
	if ent.started {
		return
	}
	ent.started = true
	t.handlers().run(AfterStart, ent.result)
}

// dispatch is the single delivery point for transport completions.
func (t *Tracker) dispatch(h request.Handle, tr *request.Result, at time.Time) {
	t.mu.Lock()
	ent, ok := t.entries[h]
	if ok {
		delete(t.entries, h)
	}
	t.fmu.Lock()
	delete(t.finishing, h)
	t.fmu.Unlock()
	t.mu.Unlock()

	if !ok {
		t.logger().Debugf("inflight: dropping completion for untracked handle %s", h)
		return
	}

	if ent.guard != nil {
		ent.guard.disarm()
	}

	r := ent.result
	r.End = at
	if tr != nil {
		r.Request = tr.Request
		r.Response = tr.Response
		r.Body = tr.Body
		r.Err = tr.Err
	}
	if r.Err == nil {
		r.Outcome = request.Success
	} else {
		r.Outcome = request.TransportError
		r.Err = urlErrorWrap(r.Plan, r.Err)
		t.logger().Debugf("inflight: %s failed (%s): %v", r.Plan, transient.Categorize(r.Err), r.Err)
	}

	t.deliver(ent, r)

	if ent.owned {
		t.transport().Release(h)
	}
}

func (t *Tracker) deliverRetired(ent *entry, outcome request.Outcome, at time.Time) {
	r := ent.result
	r.End = at
	r.Outcome = outcome
	if outcome == request.TimedOut {
		r.Err = urlErrorWrap(r.Plan, ErrTimedOut)
	} else {
		r.Err = urlErrorWrap(r.Plan, ErrCancelled)
	}

	t.deliver(ent, r)
}

func (t *Tracker) deliver(ent *entry, r *request.Result) {
	t.markStarted(ent)
	if !ent.owned {
		tr, h := t.transport(), ent.handle
		r.SetRelease(func() {
			tr.Release(h)
		})
	}

	handlers := t.handlers()
	switch r.Outcome {
	case request.TimedOut:
		handlers.run(AfterTimeout, r)
	case request.Cancelled:
		handlers.run(AfterCancel, r)
	}
	handlers.run(AfterComplete, r)

	t.Metrics.delivered(r)
	ent.onComplete(r)
}

func (t *Tracker) transport() Transport {
	if t.Transport != nil {
		return t.Transport
	}

	return DefaultTransport
}

func (t *Tracker) handlers() *HandlerGroup {
	if t.Handlers != nil {
		return t.Handlers
	}

	return &emptyHandlers
}

func (t *Tracker) logger() Logger {
	return validLoggerOrDefault(t.Logger)
}

func urlErrorWrap(p *request.Plan, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	var u string
	if p.URL != nil {
		u = p.URL.String()
	}

	return &url.Error{
		Op:  urlErrorOp(p.Method),
		URL: u,
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
