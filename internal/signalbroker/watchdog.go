// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/doc-sheet/ansible-parallel-fork/internal/ctxlog"
)

// Watch monitors the signal channel and cancels the context on the first
// termination signal received. Cancellation is two-phase: the coordinator
// stops admitting new tasks and every in-flight runner interrupts its child,
// escalating to a kill after the grace period. Further signals are logged
// but have no additional effect; the grace period is the escalation path.
//
// Watch returns when the channel is closed.
func Watch(ctx context.Context, sigCh chan os.Signal, cancel context.CancelFunc) {
	cancelled := false

	for sig := range sigCh {
		if cancelled {
			ctxlog.Logger(ctx).Info("received signal while already stopping", "signal", sig.String())
			continue
		}

		ctxlog.Logger(ctx).Info("received signal, stopping run", "signal", sig.String())
		cancelled = true

		cancel()
	}
}
