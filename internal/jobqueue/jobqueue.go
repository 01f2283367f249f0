// Package jobqueue implements the job pool described in spec §6.2: a
// bounded pool of worker goroutines pulling from one shared job channel
// (there are no per-worker queues and no stealing) that execute short,
// allocation-free jobs submitted by a plugin's off-thread DSP work (FFT
// convolution blocks, voice rendering), backing off through increasing
// sleep bands when idle rather than spinning or blocking on a channel
// receive indefinitely.
package jobqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Job is one unit of work a plugin schedules onto the pool.
type Job func()

// sleep bands: workers poll the queue and back off through these in order
// the longer they find nothing to do, trading latency for CPU usage.
const (
	sleepBandFast  = 10 * time.Microsecond
	sleepBandMid   = 50 * time.Microsecond
	sleepBandSlow  = 200 * time.Microsecond
	fastBandPolls  = 64  // polls at sleepBandFast before escalating
	midBandPolls   = 256 // polls at sleepBandMid before escalating
)

// Queue is a fixed-size pool of worker goroutines draining a shared job
// channel, capped by a weighted semaphore so Execute callers never
// oversubscribe the configured worker count even under bursty submission.
type Queue struct {
	jobs    chan Job
	sem     *semaphore.Weighted
	sleepNs atomic.Int64
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// New starts a pool of workerCount goroutines, each pulling from a job
// channel of the given backlog capacity.
func New(workerCount, backlog int) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	q := &Queue{
		jobs:   make(chan Job, backlog),
		sem:    semaphore.NewWeighted(int64(workerCount)),
		cancel: cancel,
		group:  g,
	}
	q.sleepNs.Store(int64(sleepBandFast))

	for i := 0; i < workerCount; i++ {
		g.Go(func() error {
			q.runWorker(gctx)
			return nil
		})
	}
	return q
}

// Execute submits a job for asynchronous execution, blocking only long
// enough to acquire a worker slot. Returns false if the pool has been
// stopped or ctx is done first.
func (q *Queue) Execute(ctx context.Context, job Job) bool {
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	wrapped := func() {
		defer q.sem.Release(1)
		job()
	}
	select {
	case q.jobs <- wrapped:
		return true
	case <-ctx.Done():
		q.sem.Release(1)
		return false
	}
}

// ExecuteAll submits taskCount independent tasks and blocks until every
// one has completed, matching the thread_pool.exec fanout a plugin's
// audio-thread callback drives: it must not return until every task
// index in [0, taskCount) has been dispatched and completed. A task that
// fails to acquire a worker slot (pool stopped, ctx done) still runs
// inline so the caller's completion guarantee holds.
func (q *Queue) ExecuteAll(ctx context.Context, taskCount uint32, exec func(taskIndex uint32)) {
	var wg sync.WaitGroup
	wg.Add(int(taskCount))
	for i := uint32(0); i < taskCount; i++ {
		idx := i
		submitted := q.Execute(ctx, func() {
			defer wg.Done()
			exec(idx)
		})
		if !submitted {
			wg.Done()
			exec(idx)
		}
	}
	wg.Wait()
}

// SetSleepNs overrides the base idle-poll sleep duration, per §6.2's
// set_sleep_ns control. Workers still escalate through the longer bands
// the longer they stay idle; this only rescales the fast band.
func (q *Queue) SetSleepNs(ns int64) {
	q.sleepNs.Store(ns)
}

// Stop cancels outstanding work and waits for every worker to exit.
func (q *Queue) Stop() {
	q.cancel()
	_ = q.group.Wait()
}

func (q *Queue) runWorker(ctx context.Context) {
	idlePolls := 0
	for {
		select {
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			job()
			idlePolls = 0
		case <-ctx.Done():
			return
		default:
			time.Sleep(q.idleSleep(idlePolls))
			idlePolls++
		}
	}
}

// idleSleep picks the backoff band for the given number of consecutive
// empty polls: fast while work is likely imminent, escalating to slower
// polling once the queue has been empty for a while.
func (q *Queue) idleSleep(idlePolls int) time.Duration {
	base := time.Duration(q.sleepNs.Load())
	switch {
	case idlePolls < fastBandPolls:
		return base
	case idlePolls < fastBandPolls+midBandPolls:
		return sleepBandMid
	default:
		return sleepBandSlow
	}
}
