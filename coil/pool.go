package coil

import (
	"sync/atomic"

	"github.com/Noah018dev/coil/coil/internal/registry"
	"github.com/Noah018dev/coil/coil/runtime"
)

// Pool is a fixed-size worker set draining a shared task deque. While
// active, idle workers block on a task-added Notification; Shutdown
// drains the deque before clearing active. After shutting down, no new
// submissions are accepted.
type Pool struct {
	workers int

	mu            Lock // guards tasks and workers-current-task below
	tasks         []*Task
	taskCount     atomic.Int32 // len(tasks), kept outside mu for a lock-free empty check
	current       map[int]*Task
	taskAdded     *Notification
	taskProcessed *Notification

	shuttingDown atomic.Bool
	active       atomic.Bool

	metricsToken int
}

// NewPool starts a Pool with the given worker count (each worker spawned
// through runtime.Spawn, the external thread-spawn shim) and registers it
// with the ambient metrics aggregator.
func NewPool(workers int) *Pool {
	p := &Pool{
		workers:       workers,
		current:       make(map[int]*Task),
		taskAdded:     NewNotification(),
		taskProcessed: NewNotification(),
	}
	p.active.Store(true)
	p.metricsToken = registry.Metrics.Register(p)
	emitPoolLifecycle("coil.pool.started", workers)

	for i := 0; i < workers; i++ {
		id := i
		runtime.Spawn(func() { p.worker(id) })
	}

	return p
}

// NewPoolFromConfig starts a Pool sized by cfg.PoolWorkers, for callers
// that load their tunables from a Config file rather than hardcoding a
// worker count.
func NewPoolFromConfig(cfg *Config) *Pool {
	return NewPool(cfg.PoolWorkers)
}

// Scoped pushes p onto the ambient pool stack for the duration of fn,
// then pops it and shuts it down.
func (p *Pool) Scoped(fn func()) {
	registry.Pools.Push(p.AsSubmitter())
	defer func() {
		registry.Pools.Pop()
		p.Shutdown()
	}()
	fn()
}

func (p *Pool) worker(id int) {
	for p.active.Load() {
		p.mu.Acquire()
		delete(p.current, id)
		p.mu.Release()

		// Only wait when the deque is empty AND nobody is currently
		// mid-enqueue: checking p.mu.Locked() without holding it avoids
		// sleeping through a producer that is about to notify us.
		if p.taskCount.Load() == 0 && !p.mu.Locked() {
			p.taskAdded.Wait()
		}

		var task *Task
		p.mu.Acquire()
		if len(p.tasks) > 0 {
			task = p.tasks[0]
			p.tasks = p.tasks[1:]
			p.taskCount.Add(-1)
			p.current[id] = task
		}
		p.mu.Release()

		if task == nil {
			continue
		}

		p.runTask(task)
	}
}

func (p *Pool) runTask(task *Task) {
	task.promise.update(statusInfo{status: Running})

	value, err := p.safeCall(task.fn)

	task.promise.update(statusInfo{
		status: Finished,
		result: &Result{Value: value, Err: err, Crashed: err != nil},
	})
	p.taskProcessed.NotifyAll()
}

func (p *Pool) safeCall(fn func() (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicToErr(r)
		}
	}()
	return fn()
}

// Submit queues fn for execution by the next free worker and returns a
// Promise observing it. It returns ErrPoolShuttingDown once Shutdown has
// been called.
func (p *Pool) Submit(fn func() (any, error)) *Promise {
	promise := NewPromise()
	if p.shuttingDown.Load() {
		promise.update(statusInfo{
			status: Finished,
			result: &Result{Err: ErrPoolShuttingDown, Crashed: true},
		})
		return promise
	}

	p.mu.Acquire()
	p.tasks = append(p.tasks, &Task{fn: fn, promise: promise})
	p.taskCount.Add(1)
	p.mu.Release()

	p.taskAdded.NotifyOne()
	return promise
}

// Imap submits fn(item) for every item in xs and returns their Promises
// immediately, preserving input order.
func Imap[T any](p *Pool, fn func(T) (any, error), xs []T) []*Promise {
	promises := make([]*Promise, len(xs))
	for i, x := range xs {
		x := x
		promises[i] = p.Submit(func() (any, error) { return fn(x) })
	}
	return promises
}

// Map submits fn(item) for every item in xs and joins all of them,
// preserving input order. It returns the first error encountered, if
// any, alongside whatever values did resolve.
func Map[T any](p *Pool, fn func(T) (any, error), xs []T) ([]any, error) {
	promises := Imap(p, fn, xs)
	results := make([]any, len(promises))
	var firstErr error
	for i, promise := range promises {
		value, err := promise.Result()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		results[i] = value
	}
	return results, firstErr
}

// Shutdown stops accepting new submissions, drains the deque, then
// clears active so idle workers exit on their next loop iteration.
func (p *Pool) Shutdown() {
	p.shuttingDown.Store(true)

	for {
		p.mu.Acquire()
		empty := len(p.tasks) == 0
		p.mu.Release()
		if empty {
			break
		}
		p.taskProcessed.Wait()
	}

	p.active.Store(false)
	registry.Metrics.Unregister(p.metricsToken)
	emitPoolLifecycle("coil.pool.shutdown", p.workers)
}

// PoolMetrics implements registry.MetricsProvider.
func (p *Pool) PoolMetrics() runtime.Metrics {
	p.mu.Acquire()
	depth := len(p.tasks)
	alive := len(p.current)
	p.mu.Release()
	return runtime.Metrics{
		QueueGlobalDepth: depth,
		NumAliveTasks:    alive,
		NumWorkers:       p.workers,
	}
}

var _ registry.Submitter = (*poolSubmitterAdapter)(nil)

// poolSubmitterAdapter lets *Pool satisfy registry.Submitter, whose
// Submit signature returns the package-neutral registry.Handle instead of
// *Promise (avoiding an import cycle between coil and
// coil/internal/registry).
type poolSubmitterAdapter struct{ pool *Pool }

func (a *poolSubmitterAdapter) Submit(fn func() (any, error)) registry.Handle {
	return a.pool.Submit(fn)
}

// AsSubmitter exposes p through the registry.Submitter interface, for
// Scoped pools.
func (p *Pool) AsSubmitter() registry.Submitter {
	return &poolSubmitterAdapter{pool: p}
}
