// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runner

import (
	"time"
)

// SentinelExitCode is recorded when there is no real child exit code to
// report: the child was cancelled, or it never started. It can never be
// confused with a real code because real codes are non-negative.
const SentinelExitCode = -1

// Status classifies the outcome of one child execution. Keeping this as a
// tagged value instead of a bare exit code keeps aggregation exhaustive.
type Status int

const (
	// StatusSuccess means the child exited zero.
	StatusSuccess Status = iota
	// StatusFailed means the child exited non-zero.
	StatusFailed
	// StatusCancelled means the child was terminated by run cancellation.
	StatusCancelled
	// StatusSpawnError means the child could not be launched at all.
	StatusSpawnError
)

// String implements the Stringer interface for Status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusSpawnError:
		return "spawn-error"
	default:
		return "unknown"
	}
}

// Result is the immutable record of one child execution. Exactly one Result
// exists per task that was started; tasks never started under cancellation
// have none.
type Result struct {
	Target      string    // Target the child ran against
	Status      Status    // Tagged outcome
	ExitCode    int       // Real child exit code, or SentinelExitCode
	Err         error     // Underlying error for spawn failures and kills
	Output      []string  // Captured output lines, child order preserved
	ForceKilled bool      // Child outlived the grace period and was killed
	StartedAt   time.Time // When the child was spawned
	FinishedAt  time.Time // When the result was finalized
}

// Duration returns the wall time of the execution.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Success reports whether the child exited zero.
func (r *Result) Success() bool {
	return r.Status == StatusSuccess
}
