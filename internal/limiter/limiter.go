// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package limiter bounds how many process runners may be active at once.
package limiter

import (
	"context"
	"errors"
)

// ErrRunCancelled is returned by Acquire once the run context is cancelled,
// so no new task can start after cancellation begins. Tasks that already
// hold a slot are unaffected and finish their grace period.
var ErrRunCancelled = errors.New("run cancelled")

// Limiter is a slot semaphore. A bound of zero or less means unbounded:
// every Acquire succeeds immediately. The bound is fixed for the lifetime
// of a run.
type Limiter struct {
	slots chan struct{}
}

// New creates a Limiter with the given bound.
func New(bound int) *Limiter {
	l := &Limiter{}

	if bound > 0 {
		l.slots = make(chan struct{}, bound)
	}

	return l
}

// Bound returns the configured bound, 0 meaning unbounded.
func (l *Limiter) Bound() int {
	return cap(l.slots)
}

// Acquire blocks until a slot is free or the context is cancelled.
// A cancelled context always yields ErrRunCancelled, even when a slot
// happens to be free at the same instant.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ErrRunCancelled
	}

	if l.slots == nil {
		return nil
	}

	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrRunCancelled
	}
}

// Release frees a slot previously obtained from Acquire.
func (l *Limiter) Release() {
	if l.slots == nil {
		return
	}

	select {
	case <-l.slots:
	default:
		panic("limiter: release without acquire")
	}
}
