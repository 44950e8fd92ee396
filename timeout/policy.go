// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"net/http"
	"strings"
	"time"

	"github.com/gogama/inflight/request"
)

// A Policy decides the time bound to place on an issued request.
//
// A zero or negative return value means the request is issued without a
// time bound, so no timeout guard is armed for it.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the time bound for the request described by p.
	Timeout(p *request.Plan) time.Duration
}

// DefaultPolicy is the default timeout policy. It sets a fixed timeout
// of 5 seconds on each request.
var DefaultPolicy Policy = Fixed(5 * time.Second)

// None is a built-in timeout policy which never arms a timeout.
var None Policy = Fixed(0)

// Fixed constructs a timeout policy that returns d for every request.
func Fixed(d time.Duration) Policy {
	return fixed(d)
}

type fixed time.Duration

func (f fixed) Timeout(_ *request.Plan) time.Duration {
	return time.Duration(f)
}

// ByMethod constructs a timeout policy that looks up the request method
// in m, and returns fallback for methods not found in m. Method names
// are matched case-insensitively. An empty plan method is treated as
// GET.
//
// Use ByMethod when, for example, uploads need a longer bound than
// lightweight HEAD probes:
//
//	p := ByMethod(map[string]time.Duration{
//		"HEAD": 500 * time.Millisecond,
//		"POST": 30 * time.Second,
//	}, 5*time.Second)
func ByMethod(m map[string]time.Duration, fallback time.Duration) Policy {
	c := make(byMethod, len(m)+1)
	for k, v := range m {
		c[strings.ToUpper(k)] = v
	}
	c[""] = fallback
	return c
}

type byMethod map[string]time.Duration

func (b byMethod) Timeout(p *request.Plan) time.Duration {
	method := strings.ToUpper(p.Method)
	if method == "" {
		method = http.MethodGet
	}
	if d, ok := b[method]; ok {
		return d
	}
	return b[""]
}
