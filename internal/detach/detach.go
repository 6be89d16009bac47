// Package detach runs fire-and-forget work off the caller's goroutine.
//
// Tasks are routed to a worker by key, so two tasks for the same key run in
// submission order (a delete queued before a set lands first). Each worker
// owns a bounded queue; Submit never blocks and reports false when the
// queue is full or the runner is closed.
package detach

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

type Options struct {
	Workers int           // number of workers; <= 0 => 1
	Queue   int           // total queue capacity split across workers; <= 0 => 1024
	Timeout time.Duration // per-task deadline; 0 => none
}

type task struct {
	ctx context.Context
	fn  func(context.Context)
}

type Runner struct {
	queues  []chan task
	timeout time.Duration
	workers sync.WaitGroup

	mu     sync.RWMutex // guards closed against sends on closed queues
	closed bool

	pmu     sync.Mutex
	idle    *sync.Cond
	pending int
}

func New(opts Options) *Runner {
	n := opts.Workers
	if n <= 0 {
		n = 1
	}
	qlen := opts.Queue
	if qlen <= 0 {
		qlen = 1024
	}
	per := (qlen + n - 1) / n

	r := &Runner{queues: make([]chan task, n), timeout: opts.Timeout}
	r.idle = sync.NewCond(&r.pmu)
	r.workers.Add(n)
	for i := range r.queues {
		q := make(chan task, per)
		r.queues[i] = q
		go func() {
			defer r.workers.Done()
			for t := range q {
				r.run(t)
				r.done()
			}
		}()
	}
	return r
}

// Submit queues fn for key. fn receives a context that keeps parent's values
// but is never cancelled by it.
func (r *Runner) Submit(parent context.Context, key string, fn func(context.Context)) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}

	r.pmu.Lock()
	r.pending++
	r.pmu.Unlock()

	q := r.queues[xxhash.Sum64String(key)%uint64(len(r.queues))]
	select {
	case q <- task{ctx: context.WithoutCancel(parent), fn: fn}:
		return true
	default:
		r.done()
		return false
	}
}

func (r *Runner) run(t task) {
	ctx := t.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	t.fn(ctx)
}

func (r *Runner) done() {
	r.pmu.Lock()
	r.pending--
	if r.pending == 0 {
		r.idle.Broadcast()
	}
	r.pmu.Unlock()
}

// Pending reports tasks queued or running.
func (r *Runner) Pending() int {
	r.pmu.Lock()
	defer r.pmu.Unlock()
	return r.pending
}

// Wait blocks until every task submitted so far has finished.
func (r *Runner) Wait() {
	r.pmu.Lock()
	for r.pending > 0 {
		r.idle.Wait()
	}
	r.pmu.Unlock()
}

// Close stops accepting tasks and waits for queued ones to finish or ctx to
// expire. Safe to call more than once.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		for _, q := range r.queues {
			close(q)
		}
	}
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		r.workers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
