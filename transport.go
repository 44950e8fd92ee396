// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package inflight

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gogama/inflight/request"
)

// A FinishFunc receives the completion of a transport operation. The
// result carries the HTTP request, response and body, or the error the
// operation ended with.
type FinishFunc func(h request.Handle, r *request.Result)

// A Transport starts and tears down outbound operations on behalf of a
// Tracker.
//
// Start must return promptly. The operation's I/O happens
// asynchronously, and when it ends the transport calls finish exactly
// once for the handle, unless the operation was closed first. Start may
// call finish before it returns.
//
// Abort, Close and Release are idempotent and must tolerate handles
// that are unknown or already torn down. Abort interrupts the I/O of
// the operation. Close additionally suppresses its finish call. Release
// frees whatever the transport retains for the handle once its result
// has been consumed.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
type Transport interface {
	Start(p *request.Plan, finish FinishFunc) (request.Handle, error)
	Abort(h request.Handle)
	Close(h request.Handle)
	Release(h request.Handle)
}

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package.
	Do(r *http.Request) (*http.Response, error)
}

// DefaultTransport is the Transport used by a Tracker whose Transport
// is nil.
var DefaultTransport Transport = &HTTPTransport{}

// HTTPTransport is a Transport that runs each operation on its own
// goroutine through an HTTPDoer. Its zero value is ready to use.
//
// Each operation gets a context derived from the plan's context, and
// Abort cancels it. The response body is read and buffered in full
// before finish is called, so a finished result holds no open
// connection. HTTPTransport keeps a small record per operation until
// the handle is released.
type HTTPTransport struct {
	// HTTPDoer specifies the mechanics of sending HTTP requests and
	// receiving responses.
	//
	// If HTTPDoer is nil, http.DefaultClient from the standard net/http
	// package is used.
	HTTPDoer HTTPDoer

	mu  sync.Mutex
	ops map[request.Handle]*operation
}

type operation struct {
	cancel context.CancelFunc
	closed bool
}

var errNilURL = errors.New("inflight: plan has nil URL")

// Start sends the plan on a new goroutine and returns a fresh handle.
func (t *HTTPTransport) Start(p *request.Plan, finish FinishFunc) (request.Handle, error) {
	if p.URL == nil {
		return request.NilHandle, errNilURL
	}

	h := request.NewHandle()
	ctx, cancel := context.WithCancel(p.Context())
	op := &operation{cancel: cancel}

	t.mu.Lock()
	if t.ops == nil {
		t.ops = make(map[request.Handle]*operation)
	}
	t.ops[h] = op
	t.mu.Unlock()

	go t.do(ctx, h, op, p, finish)
	return h, nil
}

func (t *HTTPTransport) do(ctx context.Context, h request.Handle, op *operation, p *request.Plan, finish FinishFunc) {
	defer op.cancel()

	r := &request.Result{Plan: p, Handle: h, Request: p.ToRequest(ctx)}
	var err error
	r.Response, err = t.doer().Do(r.Request)
	if err != nil {
		r.Err = err
	} else {
		readBody(r)
	}

	t.mu.Lock()
	_, live := t.ops[h]
	closed := op.closed
	t.mu.Unlock()
	if !live || closed {
		return
	}

	finish(h, r)
}

func readBody(r *request.Result) {
	defer func() {
		_ = r.Response.Body.Close()
	}()
	var err error
	r.Body, err = io.ReadAll(r.Response.Body)
	if err != nil {
		r.Err = err
	}
}

// Abort cancels the context of the operation, which interrupts its
// I/O. The operation still finishes, with a context error.
func (t *HTTPTransport) Abort(h request.Handle) {
	if op := t.op(h); op != nil {
		op.cancel()
	}
}

// Close marks the operation closed, so it never finishes, and cancels
// its context.
func (t *HTTPTransport) Close(h request.Handle) {
	t.mu.Lock()
	op := t.ops[h]
	if op != nil {
		op.closed = true
	}
	t.mu.Unlock()
	if op != nil {
		op.cancel()
	}
}

// Release forgets the operation.
func (t *HTTPTransport) Release(h request.Handle) {
	t.mu.Lock()
	op := t.ops[h]
	delete(t.ops, h)
	t.mu.Unlock()
	if op != nil {
		op.cancel()
	}
}

// Len returns the number of operations not yet released.
func (t *HTTPTransport) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ops)
}

// CloseIdleConnections invokes the same method on the HTTPDoer, if it
// has one.
func (t *HTTPTransport) CloseIdleConnections() {
	if ic, ok := t.doer().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (t *HTTPTransport) op(h request.Handle) *operation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ops[h]
}

func (t *HTTPTransport) doer() HTTPDoer {
	if t.HTTPDoer != nil {
		return t.HTTPDoer
	}

	return http.DefaultClient
}
