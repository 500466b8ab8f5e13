// Package workerpool implements the reconciler's bounded directory
// fan-out: a submission gate bounded by max-workers, a quiesce barrier
// used before shadow garbage collection, and the atomic counters and
// shared lock the reconciler's workers serialize through.
package workerpool

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool bounds concurrent directory tasks to MaxWorkers. A pool with
// MaxWorkers == 1 runs every task inline on the calling goroutine: no
// semaphore, no separate goroutine, no locking overhead, matching the
// fully-sequential degenerate case.
type Pool struct {
	maxWorkers int
	sem        *semaphore.Weighted
	wg         sync.WaitGroup
	active     int64

	// SharedLock serializes log writes, backup filename generation and
	// copy, and progress-indicator rendering across every worker.
	SharedLock sync.Mutex

	Stats Stats
}

// New returns a Pool admitting at most maxWorkers concurrent tasks.
// maxWorkers < 1 is treated as 1 (sequential).
func New(maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	p := &Pool{maxWorkers: maxWorkers}
	if maxWorkers > 1 {
		p.sem = semaphore.NewWeighted(int64(maxWorkers))
	}
	return p
}

// Sequential reports whether this pool runs every task inline (no
// concurrency, no locking), the max-workers == 1 case.
func (p *Pool) Sequential() bool { return p.sem == nil }

// Submit runs fn, either inline (max-workers == 1) or on a pooled
// goroutine once a slot is free. The caller spin-waits (via the
// semaphore's blocking Acquire) while the pool is saturated: no
// work-stealing, no priorities.
func (p *Pool) Submit(fn func()) {
	if p.Sequential() {
		fn()
		return
	}
	_ = p.sem.Acquire(context.Background(), 1)
	atomic.AddInt64(&p.active, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer atomic.AddInt64(&p.active, -1)
		defer p.sem.Release(1)
		fn()
	}()
}

// Quiesce blocks until every submitted task has completed. The
// reconciler calls this once per pair before running shadow garbage
// collection, so GC never races against an in-flight mutation.
func (p *Pool) Quiesce() {
	if p.Sequential() {
		return
	}
	p.wg.Wait()
}

// Active returns the current number of in-flight tasks, sampled by the
// progress indicator alongside the session's processed/updated counts.
func (p *Pool) Active() int64 {
	return atomic.LoadInt64(&p.active)
}
