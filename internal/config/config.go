// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config loads and validates the optional YAML run file. The run
// file mirrors the command-line flags; flags win when both are given.
//
// Example:
//
//	playbook: site.yml
//	targets:
//	  - web1.example.net
//	  - web2.example.net
//	  - db1.example.net
//	forks: 2
//	grace_period: 10s
//	extra_args: ["-t", "deploy"]
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/doc-sheet/ansible-parallel-fork/internal/runner"
	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// DefaultForks is how many children run concurrently unless configured
// otherwise. Zero means unbounded.
const DefaultForks = 5

var (
	// ErrReadRunFile is returned when the run file cannot be read.
	ErrReadRunFile = errors.New("failed to read run file")
	// ErrParseRunFile is returned when the run file is not valid YAML.
	ErrParseRunFile = errors.New("failed to parse run file")
	// ErrNoPlaybook is returned when no playbook was given.
	ErrNoPlaybook = errors.New("no playbook given")
	// ErrPlaybookNotFound is returned when the playbook file does not exist.
	ErrPlaybookNotFound = errors.New("playbook not found")
	// ErrNoTargets is returned when no targets were given.
	ErrNoTargets = errors.New("no targets given")
	// ErrInvalidForks is returned for a negative forks value.
	ErrInvalidForks = errors.New("forks must be zero or positive")
)

// Config is the fully merged run configuration.
type Config struct {
	Playbook    string        `yaml:"playbook"`
	Targets     []string      `yaml:"targets"`
	Forks       int           `yaml:"forks"`
	ExtraArgs   []string      `yaml:"extra_args"`
	GracePeriod time.Duration `yaml:"grace_period"`
}

// Load reads a run file from the given filesystem.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Join(ErrReadRunFile, err)
	}

	cfg := &Config{
		Forks:       DefaultForks,
		GracePeriod: runner.DefaultGracePeriod,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Join(ErrParseRunFile, err)
	}

	return cfg, nil
}

// Validate checks the merged configuration, collecting every problem rather
// than stopping at the first. The playbook existence check uses the same
// filesystem abstraction as Load so tests stay hermetic.
func (c *Config) Validate(fs afero.Fs) error {
	var result *multierror.Error

	switch {
	case c.Playbook == "":
		result = multierror.Append(result, ErrNoPlaybook)
	default:
		exists, err := afero.Exists(fs, c.Playbook)
		if err != nil || !exists {
			result = multierror.Append(result,
				fmt.Errorf("%w: %s", ErrPlaybookNotFound, c.Playbook))
		}
	}

	if len(c.Targets) == 0 {
		result = multierror.Append(result, ErrNoTargets)
	}

	if c.Forks < 0 {
		result = multierror.Append(result, ErrInvalidForks)
	}

	return result.ErrorOrNil()
}
