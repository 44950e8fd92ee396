// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"syscall"
)

// A Category is the transience category of a particular error, as
// reported by function Categorize().
//
// The category Not means the error is not transient, or in other words
// that issuing the same request again is very unlikely to succeed. All
// other categories indicate the error has some prospect of clearing up
// on its own.
type Category int

const (
	// Not indicates any non-transient error, and the nil error.
	Not Category = iota
	// Timeout indicates a client-side timeout.
	//
	// Function Categorize() will return Timeout if the error or any of
	// its wrapped causes has a Timeout() function that reports true.
	Timeout
	// ConnRefused indicates the remote host refused the connection, and
	// corresponds to the POSIX error code ECONNREFUSED.
	//
	// Connection refusal is classified as transient because it happens
	// while the service on the remote host is starting or restarting.
	ConnRefused
	// ConnReset indicates the remote host returned an RST packet on a
	// previously active TCP connection, and corresponds to the POSIX
	// error code ECONNRESET.
	ConnReset
	// Aborted indicates the operation was aborted locally, typically
	// because its context was cancelled.
	//
	// Function Categorize() will return Aborted if the error is none of
	// the above, and the error or any of its wrapped causes is equal to
	// context.Canceled.
	Aborted
)

var categoryNames = [...]string{
	Not:         "not",
	Timeout:     "timeout",
	ConnRefused: "conn_refused",
	ConnReset:   "conn_reset",
	Aborted:     "aborted",
}

// String returns a short lower-case name for the category, suitable
// for use as a metric label value.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Categorize returns the transience category of err, looking through
// its whole chain of wrapped causes. A nil error is Not transient.
//
// Temporary() is deliberately ignored since its meaning was never well
// defined.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var t timeouter
	if errors.As(err, &t) && t.Timeout() {
		return Timeout
	}

	switch errno := errnoOf(err); {
	case errno == syscall.ECONNRESET:
		return ConnReset
	case errno == syscall.ECONNREFUSED:
		return ConnRefused
	case errors.Is(err, context.Canceled):
		return Aborted
	}
	return Not
}

type timeouter interface {
	Timeout() bool
}

func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}
