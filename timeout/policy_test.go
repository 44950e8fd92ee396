// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"testing"
	"time"

	"github.com/gogama/inflight/request"
	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	assert.Equal(t, 5*time.Second, DefaultPolicy.Timeout(&request.Plan{}))
	assert.Equal(t, 5*time.Second, DefaultPolicy.Timeout(&request.Plan{Method: "POST"}))
}

func TestNone(t *testing.T) {
	assert.Equal(t, time.Duration(0), None.Timeout(&request.Plan{}))
	assert.Equal(t, time.Duration(0), None.Timeout(&request.Plan{Method: "HEAD"}))
}

func TestFixed(t *testing.T) {
	p := Fixed(33 * time.Hour)
	assert.Equal(t, 33*time.Hour, p.Timeout(&request.Plan{}))
	assert.Equal(t, 33*time.Hour, p.Timeout(&request.Plan{Method: "GET"}))
}

func TestByMethod(t *testing.T) {
	p := ByMethod(map[string]time.Duration{
		"head": 500 * time.Millisecond,
		"POST": 30 * time.Second,
	}, 5*time.Second)
	t.Run("exact", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, p.Timeout(&request.Plan{Method: "POST"}))
	})
	t.Run("case insensitive", func(t *testing.T) {
		assert.Equal(t, 500*time.Millisecond, p.Timeout(&request.Plan{Method: "HEAD"}))
		assert.Equal(t, 30*time.Second, p.Timeout(&request.Plan{Method: "post"}))
	})
	t.Run("fallback", func(t *testing.T) {
		assert.Equal(t, 5*time.Second, p.Timeout(&request.Plan{Method: "GET"}))
		assert.Equal(t, 5*time.Second, p.Timeout(&request.Plan{}))
		assert.Equal(t, 5*time.Second, p.Timeout(&request.Plan{Method: "DELETE"}))
	})
	t.Run("empty method is GET", func(t *testing.T) {
		q := ByMethod(map[string]time.Duration{"GET": time.Second}, 0)
		assert.Equal(t, time.Second, q.Timeout(&request.Plan{}))
	})
}
