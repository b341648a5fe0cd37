// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main is the entry point for the ansible-parallel command-line application.
package main

import (
	"context"
	"os"

	"github.com/doc-sheet/ansible-parallel-fork/cmd"
	"github.com/doc-sheet/ansible-parallel-fork/internal/ctxlog"
	"github.com/doc-sheet/ansible-parallel-fork/internal/signalbroker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, cancel)

	// cli.Exit errors carry the process exit code and are handled inside Run,
	// so we only get here with setup failures.
	if err := cmd.RootCmd.Run(ctx, os.Args); err != nil {
		ctxlog.Logger(ctx).Error("command failed", "error", err)
		os.Exit(1)
	}
}
