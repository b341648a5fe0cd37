// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package coordinator drives one run: it dispatches every task through the
// concurrency limiter and the process runner, watches for cancellation, and
// aggregates the per-target results into a single outcome.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/doc-sheet/ansible-parallel-fork/internal/ctxlog"
	"github.com/doc-sheet/ansible-parallel-fork/internal/limiter"
	"github.com/doc-sheet/ansible-parallel-fork/internal/runner"
	"github.com/doc-sheet/ansible-parallel-fork/internal/task"
)

var (
	// ErrNoTasks is returned when Run is called with an empty task list.
	ErrNoTasks = errors.New("no tasks to run")
	// ErrAlreadyRun is returned when a Coordinator is reused. A Coordinator
	// runs exactly one generation of tasks.
	ErrAlreadyRun = errors.New("coordinator has already run")
)

// State is the lifecycle of a run.
type State int32

const (
	// StatePending means Run has not been called yet.
	StatePending State = iota
	// StateRunning means tasks are being dispatched or are in flight.
	StateRunning
	// StateCompleted means every task produced a result without cancellation.
	StateCompleted
	// StateCancelled means the run was interrupted before completion.
	StateCancelled
)

// String implements the Stringer interface for State.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TaskRunner executes one task to completion. *runner.Runner satisfies
// this; tests substitute fakes.
type TaskRunner interface {
	Run(ctx context.Context, unit task.Unit) *runner.Result
}

// Coordinator owns the task list for one run. Tasks are embarrassingly
// parallel: no task depends on another's output or status, so dispatch
// order carries no meaning.
type Coordinator struct {
	runner TaskRunner
	lim    *limiter.Limiter
	state  atomic.Int32
}

// New creates a Coordinator that executes tasks with the given runner,
// bounded by the given limiter.
func New(r TaskRunner, lim *limiter.Limiter) *Coordinator {
	return &Coordinator{runner: r, lim: lim}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Run executes every task and blocks until all in-flight work has reported.
// A task that never acquired a slot before cancellation produces no result:
// absent, not a synthetic failure. Run returns an error only for setup
// problems; per-task failures live in the outcome.
func (c *Coordinator) Run(ctx context.Context, units []task.Unit) (*Outcome, error) {
	if len(units) == 0 {
		return nil, ErrNoTasks
	}

	if !c.state.CompareAndSwap(int32(StatePending), int32(StateRunning)) {
		return nil, ErrAlreadyRun
	}

	logger := ctxlog.Logger(ctx)
	logger.Debug("run starting", "tasks", len(units), "bound", c.lim.Bound())

	// One slot per task, written exactly once by its owning goroutine.
	// Slots left nil belong to tasks that never started.
	results := make([]*runner.Result, len(units))

	// Latched only when cancellation actually prevented or interrupted a
	// task. An interrupt arriving after the last task already finished must
	// not turn a fully successful run into a cancelled one.
	interrupted := &atomic.Bool{}

	wg := &sync.WaitGroup{}

	for i, unit := range units {
		wg.Add(1)

		go func(i int, unit task.Unit) {
			defer wg.Done()

			if err := c.lim.Acquire(ctx); err != nil {
				logger.Debug("task not started", "target", unit.Target(), "reason", err)
				interrupted.Store(true)

				return
			}
			defer c.lim.Release()

			res := c.runner.Run(ctx, unit)
			if res.Status == runner.StatusCancelled {
				interrupted.Store(true)
			}

			results[i] = res
		}(i, unit)
	}

	wg.Wait()

	cancelled := interrupted.Load()
	if cancelled {
		c.state.Store(int32(StateCancelled))
	} else {
		c.state.Store(int32(StateCompleted))
	}

	finished := make([]*runner.Result, 0, len(results))

	for _, res := range results {
		if res != nil {
			finished = append(finished, res)
		}
	}

	outcome := Aggregate(finished, cancelled)

	logger.Debug("run finished",
		"state", c.State().String(),
		"aggregate", outcome.Status.String(),
		"results", len(outcome.Results),
	)

	return outcome, nil
}
