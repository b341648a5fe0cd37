// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmd contains the command-line interface (CLI) for the module.
package cmd

import (
	"fmt"
	"os"

	"github.com/doc-sheet/ansible-parallel-fork/cmd/run"
	"github.com/urfave/cli/v3"
)

var (
	// Version is set during the build process.
	Version = "dev"
	// Commit is set during the build process.
	Commit = "unknown"
)

// RootCmd is the root command for the CLI.
var RootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "ansible-parallel",
	Description: `ansible-parallel runs one playbook concurrently against many targets,
one isolated ansible-playbook child process per target. Child output is
multiplexed into a single attributed stream, and the process exits 0 only
when every target succeeded (1 when some failed, 130 when interrupted).`,
	Usage:                 "ansible-parallel run site.yml --target web1 --target web2",
	Version:               fmt.Sprintf("%s (commit: %s)", Version, Commit),
	EnableShellCompletion: true,
}
