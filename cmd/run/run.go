// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run implements the run command: expand the target list into
// tasks, execute them concurrently, and surface the aggregate outcome as
// the process exit code.
package run

import (
	"context"
	"fmt"

	"github.com/doc-sheet/ansible-parallel-fork/internal/config"
	"github.com/doc-sheet/ansible-parallel-fork/internal/coordinator"
	"github.com/doc-sheet/ansible-parallel-fork/internal/limiter"
	"github.com/doc-sheet/ansible-parallel-fork/internal/outmux"
	"github.com/doc-sheet/ansible-parallel-fork/internal/runner"
	"github.com/doc-sheet/ansible-parallel-fork/internal/task"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	playbookArg = "playbook"

	configFlag = "config"
	targetFlag = "target"
	forksFlag  = "forks"
	graceFlag  = "grace-period"
	jsonFlag   = "json"
)

// RunCmd runs one playbook against every target concurrently. Arguments
// after the playbook (separate them with --) are passed through verbatim to
// every ansible-playbook child.
var RunCmd = &cli.Command{
	Name:        "run",
	Description: "Run a playbook against every target as its own ansible-playbook process.",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      playbookArg,
			UsageText: "PLAYBOOK",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      configFlag,
			Aliases:   []string{"c"},
			Usage:     "YAML run file with playbook, targets and options",
			TakesFile: true,
		},
		&cli.StringSliceFlag{
			Name:    targetFlag,
			Aliases: []string{"t"},
			Usage:   "Target (host, group or limit expression); repeatable",
		},
		&cli.IntFlag{
			Name:        forksFlag,
			Aliases:     []string{"f"},
			Usage:       "How many targets run concurrently, 0 for unbounded",
			Value:       config.DefaultForks,
			DefaultText: "5",
			Sources:     cli.EnvVars("ANSIBLE_PARALLEL_FORKS"),
		},
		&cli.DurationFlag{
			Name:  graceFlag,
			Usage: "How long a child gets between interrupt and kill on cancellation",
			Value: runner.DefaultGracePeriod,
		},
		&cli.BoolFlag{
			Name:  jsonFlag,
			Usage: "Write the end-of-run summary as JSON instead of text",
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	fs := afero.NewOsFs()

	cfg, err := mergeConfig(cmd, fs)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if err := cfg.Validate(fs); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	units, err := task.Expand(cfg.Playbook, cfg.Targets, cfg.ExtraArgs)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	mux := outmux.New(cmd.Writer, cfg.Targets)

	coord := coordinator.New(&runner.Runner{
		Mux:         mux,
		GracePeriod: cfg.GracePeriod,
	}, limiter.New(cfg.Forks))

	outcome, err := coord.Run(ctx, units)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if cmd.Bool(jsonFlag) {
		err = outcome.WriteJSON(cmd.Writer)
	} else {
		err = outcome.WriteText(cmd.Writer)
	}

	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to write summary: %s", err.Error()), 1)
	}

	if code := outcome.ExitCode(); code != coordinator.ExitCodeSuccess {
		return cli.Exit("", code)
	}

	return nil
}

// mergeConfig combines the run file, flags and passthrough arguments.
// Flags override run-file values; passthrough arguments append.
func mergeConfig(cmd *cli.Command, fs afero.Fs) (*config.Config, error) {
	cfg := &config.Config{
		Forks:       config.DefaultForks,
		GracePeriod: runner.DefaultGracePeriod,
	}

	if path := cmd.String(configFlag); path != "" {
		loaded, err := config.Load(fs, path)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if pb := cmd.StringArg(playbookArg); pb != "" {
		cfg.Playbook = pb
	}

	if targets := cmd.StringSlice(targetFlag); len(targets) > 0 {
		cfg.Targets = targets
	}

	if cmd.IsSet(forksFlag) {
		cfg.Forks = cmd.Int(forksFlag)
	}

	if cmd.IsSet(graceFlag) {
		cfg.GracePeriod = cmd.Duration(graceFlag)
	}

	cfg.ExtraArgs = append(cfg.ExtraArgs, cmd.Args().Slice()...)

	return cfg, nil
}
