// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import "github.com/google/uuid"

// A Handle identifies one in-flight operation started by a transport.
//
// Handles are minted by the transport when an operation starts and are
// used by the request tracker as the key of its tracking table. The
// zero Handle is never issued to a started operation.
type Handle uuid.UUID

// NilHandle is the zero Handle.
var NilHandle Handle

// NewHandle returns a fresh random Handle.
func NewHandle() Handle {
	return Handle(uuid.New())
}

// IsNil reports whether h is the zero Handle.
func (h Handle) IsNil() bool {
	return h == NilHandle
}

func (h Handle) String() string {
	return uuid.UUID(h).String()
}
