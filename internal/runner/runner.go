// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runner spawns one external child process per task, streams its
// combined output line-by-line into the output multiplexer while it runs,
// and yields the final exit status. Cancellation is two-phase: interrupt
// the child, wait a bounded grace period, then kill.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/doc-sheet/ansible-parallel-fork/internal/ctxlog"
	"github.com/doc-sheet/ansible-parallel-fork/internal/task"
)

const (
	// DefaultGracePeriod is how long a child gets between the interrupt
	// signal and a forced kill.
	DefaultGracePeriod = 5 * time.Second

	// maxLineSize bounds a single captured output line. Ansible recap lines
	// are short, but module output can embed large JSON blobs; anything
	// beyond the bound is truncated, never left in the pipe.
	maxLineSize = 1024 * 1024

	// drainTimeout bounds the final pipe drain after the child has exited.
	// An orphaned grandchild can keep the write end open forever; the read
	// loop must not block on it.
	drainTimeout = 2 * time.Second
)

var (
	// ErrCouldNotStartProcess is returned when the child could not be launched.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToCreatePipe is returned when the output pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrKillTimeout is recorded when a child ignored the interrupt and had
	// to be forcibly killed after the grace period.
	ErrKillTimeout = errors.New("child did not stop within grace period, killed")
)

// LineWriter receives attributed output lines as they arrive. The output
// multiplexer satisfies this; tests substitute their own.
type LineWriter interface {
	WriteLine(target, line string)
}

// Runner executes tasks as child processes. One Runner is shared by all
// tasks of a run and may be invoked concurrently.
type Runner struct {
	Mux         LineWriter        // Sink for attributed output lines
	GracePeriod time.Duration     // Zero means DefaultGracePeriod
	Env         map[string]string // Extra environment for every child
}

// Run spawns the child described by the task and blocks until it has a
// final status. Every captured line is pushed to the multiplexer before
// Run returns. Run never returns a nil Result.
func (r *Runner) Run(ctx context.Context, unit task.Unit) *Result {
	logger := ctxlog.Logger(ctx).With("target", unit.Target())

	res := &Result{
		Target:    unit.Target(),
		StartedAt: time.Now(),
	}

	argv := unit.Argv()

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return r.spawnFailure(res, errors.Join(ErrCouldNotStartProcess, err))
	}

	rOut, wOut, err := os.Pipe()
	if err != nil {
		return r.spawnFailure(res, errors.Join(ErrFailedToCreatePipe, err))
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		_ = rOut.Close()
		_ = wOut.Close()

		return r.spawnFailure(res, errors.Join(ErrFailedToCreatePipe, err))
	}

	env := os.Environ()
	// Children think they write to a pipe; ansible would drop color without this.
	env = append(env, "ANSIBLE_FORCE_COLOR=1")

	for k, v := range r.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	logger.Debug("starting process", "path", path, "args", argv[1:])

	// stdout and stderr share one pipe so the stream preserves the order
	// the child produced, same as 2>&1.
	ps, err := os.StartProcess(path, argv, &os.ProcAttr{
		Env:   env,
		Files: []*os.File{devNull, wOut, wOut},
	})
	if err != nil {
		_ = rOut.Close()
		_ = wOut.Close()
		_ = devNull.Close()

		return r.spawnFailure(res, errors.Join(ErrCouldNotStartProcess, err))
	}

	_ = devNull.Close()

	logger.Debug("process started", "pid", ps.Pid)

	// Incremental read loop. Draining the pipe while the child runs is what
	// keeps a chatty child from blocking on a full pipe buffer.
	scanDone := make(chan struct{})

	go func() {
		defer close(scanDone)

		reader := bufio.NewReaderSize(rOut, 64*1024)

		for {
			line, truncated, err := readLine(reader)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					logger.Warn("output read ended early", "error", err)
				}

				return
			}

			if truncated {
				logger.Warn("output line exceeded limit, truncated", "limit", maxLineSize)
			}

			res.Output = append(res.Output, line)
			r.Mux.WriteLine(unit.Target(), line)
		}
	}()

	// Watchdog: on cancellation, interrupt the child and give it the grace
	// period before killing it outright.
	done := make(chan struct{})
	watchdogDone := make(chan struct{})
	interrupted := &atomic.Bool{}

	go func() {
		defer close(watchdogDone)

		select {
		case <-done:
			return
		case <-ctx.Done():
		}

		interrupted.Store(true)

		logger.Info("cancellation requested, interrupting child", "pid", ps.Pid)

		if err := ps.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Warn("failed to interrupt child", "pid", ps.Pid, "error", err)
		}

		grace := r.GracePeriod
		if grace <= 0 {
			grace = DefaultGracePeriod
		}

		timer := time.NewTimer(grace)
		defer timer.Stop()

		select {
		case <-done:
		case <-timer.C:
			res.ForceKilled = true
			res.Err = ErrKillTimeout

			killPs(ctx, ps)
		}
	}()

	state, psErr := ps.Wait()

	close(done)
	<-watchdogDone

	// Closing our copy of the write end is what lets the reader see EOF,
	// unless an orphaned grandchild still holds its inherited copy. The
	// bounded wait below covers that case: closing the read end unblocks
	// the scanner.
	_ = wOut.Close()

	drain := time.NewTimer(drainTimeout)
	defer drain.Stop()

	select {
	case <-scanDone:
	case <-drain.C:
		logger.Warn("output drain timed out, abandoning reader", "pid", ps.Pid)
		_ = rOut.Close()
		<-scanDone
	}

	_ = rOut.Close()

	res.FinishedAt = time.Now()

	switch {
	case interrupted.Load():
		res.Status = StatusCancelled
		res.ExitCode = SentinelExitCode
	case psErr != nil:
		res.Status = StatusFailed
		res.ExitCode = SentinelExitCode
		res.Err = psErr
	case state.ExitCode() == 0:
		res.Status = StatusSuccess
		res.ExitCode = 0
	default:
		res.Status = StatusFailed
		res.ExitCode = state.ExitCode()
	}

	logger.Debug("process finished",
		"pid", ps.Pid,
		"status", res.Status.String(),
		"exitCode", res.ExitCode,
		"duration", res.Duration(),
	)

	return res
}

// readLine returns the next line, truncated to maxLineSize. The remainder of
// an oversized line is consumed and dropped, so the read loop keeps draining
// the pipe no matter what the child writes. A child blocked on a full pipe
// buffer would otherwise never exit.
func readLine(r *bufio.Reader) (line string, truncated bool, err error) {
	var buf []byte

	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			// ReadLine never returns data alongside an error.
			return string(buf), truncated, err
		}

		if room := maxLineSize - len(buf); len(chunk) > room {
			chunk = chunk[:room]
			truncated = true
		}

		buf = append(buf, chunk...)

		if !isPrefix {
			return string(buf), truncated, nil
		}
	}
}

func (r *Runner) spawnFailure(res *Result, err error) *Result {
	res.Status = StatusSpawnError
	res.ExitCode = SentinelExitCode
	res.Err = err
	res.FinishedAt = time.Now()

	r.Mux.WriteLine(res.Target, err.Error())

	return res
}

// killPs kills the process, tolerating one that already exited.
func killPs(ctx context.Context, ps *os.Process) {
	if err := ps.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Debug(ctx, "process already done", "pid", ps.Pid)
			return
		}

		ctxlog.Error(ctx, "process kill error", "pid", ps.Pid, "error", err)

		return
	}

	ctxlog.Info(ctx, "process killed", "pid", ps.Pid)
}
