// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the value types exchanged between a request
tracker, its transport, and its callers: Plan, Handle, and Result.

A Plan describes one outbound HTTP request. It looks like a stripped-down
http.Request with the server-side fields removed and the body replaced
by a pre-buffered []byte, so the same Plan can be handed to a transport
any number of times:

	p, err := request.NewPlan("GET", "https://example.com", nil)
	...
	h, err := tracker.Issue(p, 5*time.Second, onComplete, nil)
	...

A Plan may carry a context. Transports derive the context of the
in-flight operation from it, so cancelling the plan context ends the
operation with a transport error.

A Handle is the opaque identity a transport assigns to a started
operation. The tracker keys its table of in-flight requests by Handle.

A Result is the completion value of a tracked request: the final
Outcome, the HTTP response and buffered body if there is one, and the
error otherwise. Results returned by a blocking issue are owned by the
caller, who must Close them to release transport resources.
*/
package request
