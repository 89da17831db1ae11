// File: internal/concurrency/workqueue.go
// Package concurrency implements the deferred-work facility used by clock configurations.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WorkQueue runs bound Work items on a fixed set of worker goroutines. A Work
// submitted while queued is coalesced, a Work submitted while running is
// re-queued behind its own execution, and a Work never runs concurrently with
// itself. Pending items are kept in an eapache/queue ring under the queue lock.

package concurrency

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/go-logr/logr"

	"github.com/momentics/hioload-clk/api"
	"github.com/momentics/hioload-clk/internal/logging"
)

// SubmitResult reports what Submit did with a Work.
type SubmitResult int

const (
	// Queued means the work was idle and is now pending.
	Queued SubmitResult = iota
	// AlreadyQueued means the work was pending; the submission was coalesced.
	AlreadyQueued
	// Requeued means the work was running; it will run again once the current run returns.
	Requeued
)

func (r SubmitResult) String() string {
	switch r {
	case Queued:
		return "queued"
	case AlreadyQueued:
		return "already-queued"
	case Requeued:
		return "requeued"
	default:
		return "unknown"
	}
}

// Option configures a WorkQueue.
type Option func(*WorkQueue)

// WithLogger sets the logger used for handler panics and lifecycle events.
func WithLogger(l logr.Logger) Option {
	return func(q *WorkQueue) { q.log = l }
}

// WithCPUs pins worker i to cpus[i%len(cpus)].
func WithCPUs(cpus ...int) Option {
	return func(q *WorkQueue) { q.cpus = append([]int(nil), cpus...) }
}

// WorkQueue manages a pool of worker goroutines executing Work items.
type WorkQueue struct {
	name    string
	log     logr.Logger
	cpus    []int
	mu      sync.Mutex
	cond    *sync.Cond
	pending *queue.Queue // of *Work
	closed  bool
	// outstanding counts works that are queued or running
	outstanding int
	idle        chan struct{}
	wg          sync.WaitGroup

	// statistics
	submitted atomic.Int64
	coalesced atomic.Int64
	executed  atomic.Int64
	panics    atomic.Int64
}

// NewWorkQueue starts a queue with the given number of workers.
// If workers <= 0, defaults to runtime.NumCPU().
func NewWorkQueue(name string, workers int, opts ...Option) *WorkQueue {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	q := &WorkQueue{
		name:    name,
		log:     logr.Discard(),
		pending: queue.New(),
	}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	q.log = q.log.WithValues("workqueue", name)
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		cpu := -1
		if len(q.cpus) > 0 {
			cpu = q.cpus[i%len(q.cpus)]
		}
		go q.run(i, cpu)
	}
	q.log.V(logging.VERBOSE).Info("work queue started", "workers", workers)
	return q
}

// Name returns the queue name.
func (q *WorkQueue) Name() string { return q.name }

// NewWork binds handler to a new Work executed on this queue.
func (q *WorkQueue) NewWork(handler api.WorkHandler) *Work {
	return &Work{q: q, handler: handler}
}

// Bind implements the binder used by clock configurations.
func (q *WorkQueue) Bind(handler api.WorkHandler) api.WorkSubmitter {
	return q.NewWork(handler)
}

// submit schedules w, see SubmitResult for the outcomes.
func (q *WorkQueue) submit(w *Work) (SubmitResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return Queued, api.ErrClosed
	}
	q.submitted.Add(1)
	if w.queued {
		q.coalesced.Add(1)
		return AlreadyQueued, nil
	}
	w.queued = true
	if w.running {
		return Requeued, nil
	}
	q.outstanding++
	q.pending.Add(w)
	q.cond.Signal()
	return Queued, nil
}

// Drain blocks until nothing is queued or running, or ctx is done.
func (q *WorkQueue) Drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		if q.outstanding == 0 {
			q.mu.Unlock()
			return nil
		}
		if q.idle == nil {
			q.idle = make(chan struct{})
		}
		ch := q.idle
		q.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting submissions, runs what is already pending and waits for workers to exit.
func (q *WorkQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	q.wg.Wait()
	q.log.V(logging.VERBOSE).Info("work queue stopped")
}

// Stats returns basic queue metrics.
func (q *WorkQueue) Stats() map[string]int64 {
	q.mu.Lock()
	outstanding := q.outstanding
	q.mu.Unlock()
	return map[string]int64{
		"submitted":   q.submitted.Load(),
		"coalesced":   q.coalesced.Load(),
		"executed":    q.executed.Load(),
		"panics":      q.panics.Load(),
		"outstanding": int64(outstanding),
	}
}

// run is the main loop for a worker, optionally pinned to cpu.
func (q *WorkQueue) run(id, cpu int) {
	defer q.wg.Done()
	if cpu >= 0 {
		runtime.LockOSThread()
		if err := PinCurrentThread(cpu); err != nil {
			q.log.Error(err, "pinning worker failed", "worker", id, "cpu", cpu)
		}
	}
	for {
		q.mu.Lock()
		for q.pending.Length() == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.pending.Length() == 0 {
			q.mu.Unlock()
			return
		}
		w := q.pending.Remove().(*Work)
		w.queued = false
		w.running = true
		q.mu.Unlock()

		q.execute(w)

		q.mu.Lock()
		w.running = false
		if w.queued {
			// submitted during its own run
			q.pending.Add(w)
			q.cond.Signal()
		} else {
			q.outstanding--
			if q.outstanding == 0 && q.idle != nil {
				close(q.idle)
				q.idle = nil
			}
		}
		q.mu.Unlock()
	}
}

// execute runs the handler, recovering from panics to keep the worker alive.
func (q *WorkQueue) execute(w *Work) {
	defer func() {
		if r := recover(); r != nil {
			q.panics.Add(1)
			q.log.Error(fmt.Errorf("%v", r), "work handler panicked")
		}
		q.executed.Add(1)
	}()
	w.handler()
}

// Work is a unit of deferred work bound to one WorkQueue.
// queued and running are guarded by the owning queue's lock.
type Work struct {
	q       *WorkQueue
	handler api.WorkHandler
	queued  bool
	running bool
}

// Submit schedules the work on its queue.
func (w *Work) Submit() error {
	_, err := w.q.submit(w)
	return err
}

// Schedule submits the work and reports how the submission was absorbed.
func (w *Work) Schedule() (SubmitResult, error) {
	return w.q.submit(w)
}
