package crawler

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// limiter combines the two process-wide throttles every fetch passes
// through: a counting permit pool capping in-flight requests, and an
// optional token bucket spacing out dispatches.
//
// Design decision: We use semaphore.Weighted instead of a buffered
// channel because Acquire is context-aware, so a worker blocked on a
// permit still honors cancellation. rate.Limiter handles the
// last-dispatch bookkeeping internally; hand-rolling a compare-and-set
// timestamp would duplicate it.
type limiter struct {
	sem *semaphore.Weighted

	// dispatch is nil when no global rate-limit interval is configured.
	dispatch *rate.Limiter
}

// newLimiter creates a limiter with the given concurrency cap and
// minimum interval between dispatches. A zero interval disables the
// dispatch throttle; the permit pool is always active.
func newLimiter(concurrency int, interval time.Duration) *limiter {
	l := &limiter{sem: semaphore.NewWeighted(int64(concurrency))}
	if interval > 0 {
		l.dispatch = rate.NewLimiter(rate.Every(interval), 1)
	}
	return l
}

// Acquire blocks until a concurrency permit is free or ctx is done.
// Every successful Acquire must be paired with exactly one Release.
func (l *limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release returns a concurrency permit to the pool.
func (l *limiter) Release() {
	l.sem.Release(1)
}

// WaitDispatch blocks until the global rate limit grants a dispatch
// slot. A no-op when no interval is configured.
func (l *limiter) WaitDispatch(ctx context.Context) error {
	if l.dispatch == nil {
		return nil
	}
	return l.dispatch.Wait(ctx)
}
