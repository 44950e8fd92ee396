// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command inflight issues HTTP requests through a request tracker and
// prints one line per result.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogama/inflight/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand(os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
