// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package inflight multiplexes outbound HTTP requests over a transport,
tracking every request in flight by its handle, bounding each request
by an optional timeout, and delivering exactly one result per request.

Create a Tracker to begin issuing requests. Asynchronous verbs return a
handle at once and deliver the result to a callback later:

	tracker := &inflight.Tracker{}
	h, err := tracker.Get("https://www.example.com", 5*time.Second,
		func(r *request.Result) {
			fmt.Println(r.Outcome, r.StatusCode())
		}, nil)
	...
	tracker.Cancel(h)

Blocking verbs wait for the result. The caller owns a blocking result
and must close it:

	r, err := tracker.PostBlocking("https://www.example.com/upload",
		"application/json", &buf, 10*time.Second, nil)
	...
	defer r.Close()

Every result carries an Outcome: request.Success and
request.TransportError come from the transport, request.TimedOut from
an expired time bound, and request.Cancelled from Cancel or Close.
Transport errors, timeouts and cancellations are all data in the
result, never panics.

For control over how requests are sent, give the tracker a Transport.
HTTPTransport sends them through any HTTPDoer, for example a GoLang
standard HTTP client:

	tracker := &inflight.Tracker{
		Transport: &inflight.HTTPTransport{
			HTTPDoer: &http.Client{...},
		},
	}

To observe the lifecycle of every request, install a handler into the
appropriate handler chain:

	handlers := &inflight.HandlerGroup{}
	handlers.PushBack(inflight.AfterTimeout, inflight.HandlerFunc(
		func(_ inflight.Event, r *request.Result) {
			log.Printf("%s timed out after %s", r.Plan, r.Duration())
		}))
	tracker := &inflight.Tracker{
		Handlers: handlers,
	}

Package inflight provides basic interfaces for each group of tracker
methods (Issuer, Getter, Header, Poster, and IdleCloser); a combined
interface that composes them all (Multiplexer); and utility functions
for working with an Issuer (Inflate, Get, Head, Post, GetBlocking,
HeadBlocking, and PostBlocking).
*/
package inflight
