// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package inflight

import (
	"sync"
	"time"

	"github.com/gogama/inflight/request"
)

type messageKind int

const (
	// msgStarted delivers AfterStart for a newly registered entry.
	msgStarted messageKind = iota
	// msgFinished carries a transport completion.
	msgFinished
	// msgExpired carries a timeout guard whose timer went off.
	msgExpired
	// msgRetired carries an entry removed by cancellation or timeout.
	msgRetired
	// msgStop ends the dispatcher loop.
	msgStop
)

// A message is one item of work for the dispatcher goroutine.
type message struct {
	kind    messageKind
	handle  request.Handle
	result  *request.Result
	entry   *entry
	guard   *guard
	outcome request.Outcome
	at      time.Time
}

// A queue is an unbounded FIFO of messages with a single consumer.
//
// Pushing never blocks, so producers may push while holding the tracker
// mutex or from inside a dispatcher callback.
type queue struct {
	mu    sync.Mutex
	items []message
	ready chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

func (q *queue) push(m message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// drain removes and returns every queued message, in FIFO order.
func (q *queue) drain() []message {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// wait returns a channel that receives a value after a push.
func (q *queue) wait() <-chan struct{} {
	return q.ready
}
