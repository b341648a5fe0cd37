// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package task defines the unit of work for a run: one target plus the full
// argument vector of the child process that serves it.
package task

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrEmptyArgv is returned when a task is constructed without an argument vector.
	ErrEmptyArgv = errors.New("task argv must not be empty")
	// ErrEmptyTarget is returned when a task is constructed without a target.
	ErrEmptyTarget = errors.New("task target must not be empty")
	// ErrDuplicateTarget is returned when two tasks in one run share a target.
	ErrDuplicateTarget = errors.New("duplicate target")
)

// Unit describes one child execution: the target it serves and the complete
// argument vector, executable name first. A Unit is immutable once created.
type Unit struct {
	target string
	argv   []string
}

// New creates a Unit for the given target and argument vector.
func New(target string, argv []string) (Unit, error) {
	if target == "" {
		return Unit{}, ErrEmptyTarget
	}

	if len(argv) == 0 {
		return Unit{}, fmt.Errorf("%w: target %q", ErrEmptyArgv, target)
	}

	return Unit{target: target, argv: slices.Clone(argv)}, nil
}

// Target returns the target identifier. Targets are unique within a run, so
// two Units are the same task iff their targets are equal.
func (u Unit) Target() string {
	return u.target
}

// Argv returns a copy of the argument vector, executable name first.
func (u Unit) Argv() []string {
	return slices.Clone(u.argv)
}

// Equal reports whether two units describe the same task.
func (u Unit) Equal(other Unit) bool {
	return u.target == other.target
}

// Expand builds one Unit per target from a fixed argument template. Each
// child runs the playbook with its target as the ansible limit expression:
//
//	ansible-playbook <playbook> -l <target> <extraArgs...>
//
// Target uniqueness is enforced here so output attribution stays unambiguous.
func Expand(playbook string, targets []string, extraArgs []string) ([]Unit, error) {
	units := make([]Unit, 0, len(targets))
	seen := make(map[string]struct{}, len(targets))

	for _, target := range targets {
		if _, ok := seen[target]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTarget, target)
		}

		seen[target] = struct{}{}

		argv := slices.Concat(
			[]string{"ansible-playbook", playbook, "-l", target},
			extraArgs,
		)

		unit, err := New(target, argv)
		if err != nil {
			return nil, err
		}

		units = append(units, unit)
	}

	return units, nil
}
