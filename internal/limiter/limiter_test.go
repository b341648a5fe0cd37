// Copyright (c) doc-sheet 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package limiter

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLimiter_Unbounded(t *testing.T) {
	t.Parallel()

	for _, bound := range []int{0, -1} {
		l := New(bound)
		assert.Equal(t, 0, l.Bound())

		ctx := context.Background()
		for range 100 {
			require.NoError(t, l.Acquire(ctx))
		}

		for range 100 {
			l.Release()
		}
	}
}

func TestLimiter_BoundedBlocksUntilRelease(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := New(1)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))

	acquired := make(chan struct{})

	go func() {
		_ = l.Acquire(ctx)

		close(acquired)
		l.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the slot is held")
	case <-time.After(50 * time.Millisecond):
	}

	l.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire should succeed after release")
	}
}

func TestLimiter_AcquireAfterCancelFailsImmediately(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A free slot must not win over a cancelled context.
	l := New(4)
	require.ErrorIs(t, l.Acquire(ctx), ErrRunCancelled)

	// Same for the unbounded degenerate case.
	require.ErrorIs(t, New(0).Acquire(ctx), ErrRunCancelled)
}

func TestLimiter_CancelUnblocksWaiters(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := New(1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, l.Acquire(ctx))

	errCh := make(chan error, 1)

	go func() {
		errCh <- l.Acquire(ctx)
	}()

	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrRunCancelled)
	case <-time.After(time.Second):
		t.Fatal("waiter was not unblocked by cancellation")
	}

	l.Release()
}

func TestLimiter_ReleaseWithoutAcquirePanics(t *testing.T) {
	t.Parallel()

	l := New(2)
	assert.Panics(t, func() { l.Release() })
}

// TestLimiter_BoundNeverExceeded drives random bound/task-count
// combinations and asserts the number of concurrent holders never exceeds
// the bound.
func TestLimiter_BoundNeverExceeded(t *testing.T) {
	defer goleak.VerifyNone(t)

	rng := rand.New(rand.NewSource(1)) //nolint:gosec

	for range 10 {
		bound := 1 + rng.Intn(8)
		tasks := 1 + rng.Intn(50)

		l := New(bound)
		ctx := context.Background()

		var active, peak atomic.Int64

		wg := &sync.WaitGroup{}

		for range tasks {
			wg.Add(1)

			go func() {
				defer wg.Done()

				require.NoError(t, l.Acquire(ctx))
				defer l.Release()

				n := active.Add(1)
				defer active.Add(-1)

				// Track the high-water mark.
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}

				time.Sleep(time.Millisecond)
			}()
		}

		wg.Wait()
		assert.LessOrEqual(t, peak.Load(), int64(bound),
			"bound %d exceeded with %d tasks", bound, tasks)
	}
}
