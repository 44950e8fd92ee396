// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package inflight

import (
	urlpkg "net/url"
	"time"

	"github.com/gogama/inflight/request"
)

// Issuer is the interface that wraps the basic Issue, IssueBlocking and
// Cancel methods.
//
// Tracker implements the Issuer interface, and any other Issuer
// implementation must behave substantially the same as Tracker: one
// result per issued request, timeouts delivered as request.TimedOut
// results, and Cancel returning false for handles not in flight.
//
// Any Issuer can be converted into a Multiplexer via the Inflate
// function.
type Issuer interface {
	Issue(p *request.Plan, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error)
	IssueBlocking(p *request.Plan, timeout time.Duration, onTimeout func()) (*request.Result, error)
	Cancel(h request.Handle) bool
}

// Getter is the interface that wraps the Get and GetBlocking methods.
//
// Any Issuer can be used to emulate a Getter via the Get and
// GetBlocking functions.
type Getter interface {
	Get(url string, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error)
	GetBlocking(url string, timeout time.Duration, onTimeout func()) (*request.Result, error)
}

// Header is the interface that wraps the Head and HeadBlocking methods.
//
// Any Issuer can be used to emulate a Header via the Head and
// HeadBlocking functions.
type Header interface {
	Head(url string, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error)
	HeadBlocking(url string, timeout time.Duration, onTimeout func()) (*request.Result, error)
}

// Poster is the interface that wraps the Post and PostBlocking methods.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.NewPlan and request.BodyBytes, namely:
// string; []byte; url.Values; io.Reader; and io.ReadCloser.
//
// Any Issuer can be used to emulate a Poster via the Post and
// PostBlocking functions.
type Poster interface {
	Post(url, contentType string, body interface{}, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error)
	PostBlocking(url, contentType string, body interface{}, timeout time.Duration, onTimeout func()) (*request.Result, error)
}

// IdleCloser is the interface that wraps the basic CloseIdleConnections
// method.
//
// If the underlying implementation supports it, CloseIdleConnections
// closes any connections which were previously connected from previous
// requests but are now sitting idle in a "keep-alive" state. It does
// not interrupt any connections currently in use.
//
// If the underlying implementation does not support this ability,
// CloseIdleConnections does nothing.
type IdleCloser interface {
	CloseIdleConnections()
}

// Multiplexer is the interface that groups the Issuer methods with the
// verb methods and CloseIdleConnections.
//
// Any Issuer can be converted into a Multiplexer via the Inflate
// function.
type Multiplexer interface {
	Issuer
	Getter
	Header
	Poster
	IdleCloser
}

// Get uses the specified Issuer to issue a GET to the specified URL.
//
// To make a request plan with custom headers, use request.NewPlan and
// i.Issue.
func Get(i Issuer, url string, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	p, err := request.NewPlan("GET", url, nil)
	if err != nil {
		return request.NilHandle, err
	}
	return i.Issue(p, timeout, onComplete, onTimeout)
}

// Head uses the specified Issuer to issue a HEAD to the specified URL.
func Head(i Issuer, url string, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	p, err := request.NewPlan("HEAD", url, nil)
	if err != nil {
		return request.NilHandle, err
	}
	return i.Issue(p, timeout, onComplete, onTimeout)
}

// Post uses the specified Issuer to issue a POST to the specified URL,
// with the Content-Type header set to contentType.
func Post(i Issuer, url, contentType string, body interface{}, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	p, err := postPlan(url, contentType, body)
	if err != nil {
		return request.NilHandle, err
	}
	return i.Issue(p, timeout, onComplete, onTimeout)
}

// GetBlocking uses the specified Issuer to issue a GET to the specified
// URL and wait for the result.
func GetBlocking(i Issuer, url string, timeout time.Duration, onTimeout func()) (*request.Result, error) {
	p, err := request.NewPlan("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return i.IssueBlocking(p, timeout, onTimeout)
}

// HeadBlocking uses the specified Issuer to issue a HEAD to the
// specified URL and wait for the result.
func HeadBlocking(i Issuer, url string, timeout time.Duration, onTimeout func()) (*request.Result, error) {
	p, err := request.NewPlan("HEAD", url, nil)
	if err != nil {
		return nil, err
	}
	return i.IssueBlocking(p, timeout, onTimeout)
}

// PostBlocking uses the specified Issuer to issue a POST to the
// specified URL and wait for the result.
func PostBlocking(i Issuer, url, contentType string, body interface{}, timeout time.Duration, onTimeout func()) (*request.Result, error) {
	p, err := postPlan(url, contentType, body)
	if err != nil {
		return nil, err
	}
	return i.IssueBlocking(p, timeout, onTimeout)
}

func postPlan(url, contentType string, body interface{}) (*request.Plan, error) {
	p, err := request.NewPlan("POST", url, body)
	if err != nil {
		return nil, err
	}
	if _, ok := body.(urlpkg.Values); ok && contentType == "" {
		contentType = "application/x-www-form-urlencoded"
	}
	p.Header.Set("Content-Type", contentType)
	return p, nil
}

// Inflate converts any non-nil Issuer into a Multiplexer. This may be
// helpful for interop across library boundaries, i.e. if code that only
// has access to an Issuer needs to call a function that requires a
// Multiplexer.
func Inflate(i Issuer) Multiplexer {
	if i == nil {
		panic("inflight: nil issuer")
	}

	if m, ok := i.(Multiplexer); ok {
		return m
	}

	return inflated{i}
}

type inflated struct {
	Issuer
}

func (i inflated) Get(url string, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	return Get(i.Issuer, url, timeout, onComplete, onTimeout)
}

func (i inflated) GetBlocking(url string, timeout time.Duration, onTimeout func()) (*request.Result, error) {
	return GetBlocking(i.Issuer, url, timeout, onTimeout)
}

func (i inflated) Head(url string, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	return Head(i.Issuer, url, timeout, onComplete, onTimeout)
}

func (i inflated) HeadBlocking(url string, timeout time.Duration, onTimeout func()) (*request.Result, error) {
	return HeadBlocking(i.Issuer, url, timeout, onTimeout)
}

func (i inflated) Post(url, contentType string, body interface{}, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	return Post(i.Issuer, url, contentType, body, timeout, onComplete, onTimeout)
}

func (i inflated) PostBlocking(url, contentType string, body interface{}, timeout time.Duration, onTimeout func()) (*request.Result, error) {
	return PostBlocking(i.Issuer, url, contentType, body, timeout, onTimeout)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.Issuer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
