// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package coordinator

import (
	"github.com/doc-sheet/ansible-parallel-fork/internal/runner"
)

// AggregateStatus is the single verdict computed over all per-target results.
type AggregateStatus int

const (
	// AllSuccess means every child exited zero.
	AllSuccess AggregateStatus = iota
	// SomeFailed means at least one child failed and no cancellation occurred.
	SomeFailed
	// Cancelled means the run was interrupted, regardless of individual
	// exit codes.
	Cancelled
)

// String implements the Stringer interface for AggregateStatus.
func (s AggregateStatus) String() string {
	switch s {
	case AllSuccess:
		return "all-success"
	case SomeFailed:
		return "some-failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Process exit codes surfaced to the invoking environment. This mapping is
// part of the tool's contract and must stay stable:
//
//	0   every target succeeded
//	1   at least one target failed
//	130 the run was cancelled by an interrupt (128+SIGINT)
const (
	ExitCodeSuccess   = 0
	ExitCodeFailed    = 1
	ExitCodeCancelled = 130
)

// Outcome is the process-wide result of one run. Built once after the run,
// never mutated.
type Outcome struct {
	// Results maps target to its result. Tasks that never started under
	// cancellation have no entry.
	Results map[string]*runner.Result
	// Order lists targets with results in task submission order, for
	// stable human-readable reporting.
	Order []string
	// Status is the aggregate verdict.
	Status AggregateStatus
}

// Aggregate computes the outcome for a fixed set of results. It is a pure
// function: the same results and cancellation flag always produce the same
// outcome.
func Aggregate(results []*runner.Result, cancelled bool) *Outcome {
	o := &Outcome{
		Results: make(map[string]*runner.Result, len(results)),
		Order:   make([]string, 0, len(results)),
	}

	failed := false

	for _, res := range results {
		o.Results[res.Target] = res
		o.Order = append(o.Order, res.Target)

		if !res.Success() {
			failed = true
		}
	}

	switch {
	case cancelled:
		o.Status = Cancelled
	case failed:
		o.Status = SomeFailed
	default:
		o.Status = AllSuccess
	}

	return o
}

// ExitCode maps the aggregate status to the documented process exit code.
func (o *Outcome) ExitCode() int {
	switch o.Status {
	case SomeFailed:
		return ExitCodeFailed
	case Cancelled:
		return ExitCodeCancelled
	default:
		return ExitCodeSuccess
	}
}
