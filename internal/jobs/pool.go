// Package jobs runs bounded parallel work with synchronous join points. Every
// dispatch blocks the caller until the dispatched work has finished, so work
// issued by one caller never overlaps with its next step.
package jobs

import (
	"context"
	"runtime"
	"sync"
)

// DefaultBatch is the batch size used for per-element parallel loops.
const DefaultBatch = 32

// Pool manages worker goroutines that execute submitted tasks.
type Pool struct {
	tasks   chan func()
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool starts a pool. workers <= 0 uses one worker per CPU.
func NewPool(workers int, queueSize int) *Pool {
	if workers <= 0 {
		workers = max(runtime.NumCPU(), 1)
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		tasks:   make(chan func(), queueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}

	for range workers {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.tasks:
			task()
		case <-p.ctx.Done():
			return
		}
	}
}

// submit queues a task, blocking while the queue is full. It reports false
// once the pool has been shut down.
func (p *Pool) submit(task func()) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Run executes fn on a worker and waits for it to return. After Shutdown fn
// runs on the calling goroutine instead.
func (p *Pool) Run(fn func()) {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}
	if !p.submit(task) {
		task()
	}
	<-done
}

// ParallelFor splits [0, n) into batches of at most batch elements, runs
// fn(start, end) for each batch on the workers and returns once all batches
// are done. Batches never overlap, so fn may write to its own index range
// without locking. It must not be called from inside a pool task.
func (p *Pool) ParallelFor(n, batch int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if batch <= 0 {
		batch = DefaultBatch
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += batch {
		end := min(start+batch, n)
		wg.Add(1)
		task := func() {
			defer wg.Done()
			fn(start, end)
		}
		if !p.submit(task) {
			task()
		}
	}
	wg.Wait()
}

// Shutdown stops the workers. Tasks still queued and later submissions run on
// the caller. It must not race with Run or ParallelFor.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	for {
		select {
		case task := <-p.tasks:
			task()
		default:
			return
		}
	}
}

// QueueLength returns the number of tasks waiting for a worker.
func (p *Pool) QueueLength() int {
	return len(p.tasks)
}
