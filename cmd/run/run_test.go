// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"context"
	"testing"
	"time"

	"github.com/doc-sheet/ansible-parallel-fork/internal/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

const runFile = `playbook: from-file.yml
targets:
  - filehost1
  - filehost2
forks: 3
grace_period: 7s
extra_args: ["--check"]
`

// captureMerged runs the command argument parsing and returns the merged
// configuration without executing anything.
func captureMerged(t *testing.T, fs afero.Fs, args ...string) *config.Config {
	t.Helper()

	var got *config.Config

	cmd := *RunCmd
	cmd.Action = func(_ context.Context, c *cli.Command) error {
		var err error

		got, err = mergeConfig(c, fs)

		return err
	}

	err := cmd.Run(context.Background(), append([]string{"run"}, args...))
	require.NoError(t, err)
	require.NotNil(t, got)

	return got
}

func TestMergeConfig_FlagsOnly(t *testing.T) {
	cfg := captureMerged(t, afero.NewMemMapFs(),
		"--target", "web1", "--target", "db1", "site.yml")

	assert.Equal(t, "site.yml", cfg.Playbook)
	assert.Equal(t, []string{"web1", "db1"}, cfg.Targets)
	assert.Equal(t, config.DefaultForks, cfg.Forks)
	assert.Equal(t, 5*time.Second, cfg.GracePeriod)
}

func TestMergeConfig_RunFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "run.yaml", []byte(runFile), 0o644))

	cfg := captureMerged(t, fs, "--config", "run.yaml")

	assert.Equal(t, "from-file.yml", cfg.Playbook)
	assert.Equal(t, []string{"filehost1", "filehost2"}, cfg.Targets)
	assert.Equal(t, 3, cfg.Forks)
	assert.Equal(t, 7*time.Second, cfg.GracePeriod)
	assert.Equal(t, []string{"--check"}, cfg.ExtraArgs)
}

func TestMergeConfig_FlagsOverrideRunFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "run.yaml", []byte(runFile), 0o644))

	cfg := captureMerged(t, fs,
		"--config", "run.yaml",
		"--target", "cli-host",
		"--forks", "9",
		"--grace-period", "1s",
		"cli.yml")

	assert.Equal(t, "cli.yml", cfg.Playbook)
	assert.Equal(t, []string{"cli-host"}, cfg.Targets)
	assert.Equal(t, 9, cfg.Forks)
	assert.Equal(t, time.Second, cfg.GracePeriod)
}

func TestMergeConfig_PassthroughArgsAppend(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "run.yaml", []byte(runFile), 0o644))

	cfg := captureMerged(t, fs,
		"--config", "run.yaml", "site.yml", "--", "-e", "env=staging")

	assert.Equal(t, []string{"--check", "-e", "env=staging"}, cfg.ExtraArgs)
}

func TestMergeConfig_MissingRunFile(t *testing.T) {
	var actionErr error

	cmd := *RunCmd
	cmd.Action = func(_ context.Context, c *cli.Command) error {
		_, actionErr = mergeConfig(c, afero.NewMemMapFs())

		return nil
	}

	require.NoError(t, cmd.Run(context.Background(), []string{"run", "--config", "ghost.yaml"}))
	require.ErrorIs(t, actionErr, config.ErrReadRunFile)
}
