// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"sync/atomic"

	"github.com/apex/log"
)

// levelHandler filters entries below a level that can be changed while
// other goroutines are logging, which log.Logger.Level cannot.
type levelHandler struct {
	next  log.Handler
	level atomic.Int32
}

func newLevelHandler(next log.Handler, lvl log.Level) *levelHandler {
	h := &levelHandler{next: next}
	h.set(lvl)
	return h
}

func (h *levelHandler) set(lvl log.Level) {
	h.level.Store(int32(lvl))
}

func (h *levelHandler) get() log.Level {
	return log.Level(h.level.Load())
}

func (h *levelHandler) HandleLog(e *log.Entry) error {
	if e.Level < h.get() {
		return nil
	}
	return h.next.HandleLog(e)
}
