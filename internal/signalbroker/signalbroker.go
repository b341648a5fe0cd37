// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker listens for OS signals that should stop a run.
// By default it listens for os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
// and syscall.SIGQUIT.
//
// The watchdog cancels the run context on the first termination signal.
// Escalation to a forced kill is not the watchdog's job: each process runner
// gives its child a bounded grace period after the context is cancelled.
package signalbroker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/doc-sheet/ansible-parallel-fork/internal/ctxlog"
)

var termSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
	os.Interrupt,
}

// New creates a buffered channel notified on signals that should terminate
// the run. With no arguments it subscribes to the default termination set.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "creating signal broker", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}
