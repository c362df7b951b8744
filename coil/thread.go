package coil

import (
	"context"

	"github.com/google/uuid"

	"github.com/Noah018dev/coil/coil/runtime"
)

// Status is the discriminated lifecycle state of a Thread or Task.
// Status may only ever advance forward: NotStarted -> Running ->
// Finished.
type Status int

const (
	NotStarted Status = iota
	Running
	Finished
)

// String implements fmt.Stringer for readable logging.
func (s Status) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case Running:
		return "RUNNING"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Result carries the outcome of a finished Thread or Task. Crashed is
// true iff Err is non-nil.
type Result struct {
	Value   any
	Err     error
	Crashed bool
}

// statusInfo pairs a Status with its terminal Result.
type statusInfo struct {
	status Status
	result *Result
}

// Thread is a single-shot task: a captured callable, its lifecycle
// status, and a completion latch. Created unstarted; Start spawns it
// exactly once.
type Thread struct {
	id       uuid.UUID
	fn       func() (any, error)
	info     statusInfo
	mu       Lock
	finished *Event
	started  bool
}

// NewThread wraps fn as an unstarted Thread.
func NewThread(fn func() (any, error)) *Thread {
	return &Thread{
		id:       uuid.New(),
		fn:       fn,
		info:     statusInfo{status: NotStarted},
		finished: NewEvent(),
	}
}

// ID returns the Thread's identity, used only for logging/telemetry
// correlation.
func (t *Thread) ID() uuid.UUID {
	return t.id
}

// Start spawns the Thread's worker exactly once and returns the Thread
// itself for chaining. Calling Start more than once has no additional
// effect.
func (t *Thread) Start() *Thread {
	t.mu.Acquire()
	if t.started {
		t.mu.Release()
		return t
	}
	t.started = true
	t.mu.Release()

	runtime.Spawn(t.runOnce)
	return t
}

func (t *Thread) runOnce() {
	t.setStatus(statusInfo{status: Running})

	value, err := t.safeCall()

	t.setStatus(statusInfo{
		status: Finished,
		result: &Result{Value: value, Err: err, Crashed: err != nil},
	})
	_ = t.finished.Set()
}

// safeCall invokes fn, converting a panic into a crashed Result so that
// an unhandled failure in user code never takes down the worker
// goroutine.
func (t *Thread) safeCall() (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicToErr(r)
		}
	}()
	return t.fn()
}

func (t *Thread) setStatus(info statusInfo) {
	t.mu.Acquire()
	t.info = info
	t.mu.Release()
}

func (t *Thread) snapshot() statusInfo {
	t.mu.Acquire()
	defer t.mu.Release()
	return t.info
}

// Running reports whether the Thread is currently executing.
func (t *Thread) Running() bool {
	return t.snapshot().status == Running
}

// IsFinished reports whether the Thread has completed (successfully or
// crashed).
func (t *Thread) IsFinished() bool {
	return t.snapshot().status == Finished
}

// Result returns the Thread's return value. It panics with
// ErrThreadNotFinished if called before completion; callers that need to
// block should call Join instead.
func (t *Thread) Result() any {
	info := t.snapshot()
	if info.status != Finished || info.result == nil {
		panic(ErrThreadNotFinished)
	}
	return info.result.Value
}

// Exception returns the error captured by a finished Thread, or nil.
func (t *Thread) Exception() error {
	info := t.snapshot()
	if info.status != Finished || info.result == nil {
		panic(ErrThreadNotFinished)
	}
	return info.result.Err
}

// Join blocks until the Thread finishes and returns its value, or
// re-raises its captured error. It returns ErrThreadNotStarted if Start
// was never called.
func (t *Thread) Join() (any, error) {
	t.mu.Acquire()
	started := t.started
	t.mu.Release()
	if !started {
		return nil, ErrThreadNotStarted
	}

	t.finished.Wait()

	info := t.snapshot()
	if info.result.Err != nil {
		return nil, info.result.Err
	}
	return info.result.Value, nil
}

// Task is a Pool submission record: a callable plus the Promise that
// observes it.
type Task struct {
	id      uuid.UUID
	fn      func() (any, error)
	promise *Promise
}

// Promise is a completion handle. It either delegates reads to a parent
// Thread, or owns its own status slot written directly by a Pool worker.
// Exactly one producer updates a Promise's state; any number of
// consumers may read or await it.
type Promise struct {
	parent   *Thread
	mu       Lock
	info     statusInfo
	finished *Event
}

// newBoundPromise returns a Promise that reads through to parent.
func newBoundPromise(parent *Thread) *Promise {
	return &Promise{parent: parent}
}

// NewPromise returns a free-standing Promise, owned by whoever calls
// update on it (a Pool worker).
func NewPromise() *Promise {
	return &Promise{
		info:     statusInfo{status: NotStarted},
		finished: NewEvent(),
	}
}

// NewResolvedPromise returns a Promise already Finished with value. Used
// by job composition when a crash manager's replacement result needs to
// be handed back without a real submission.
func NewResolvedPromise(value any) *Promise {
	p := NewPromise()
	p.update(statusInfo{status: Finished, result: &Result{Value: value}})
	return p
}

// NewFailedPromise returns a Promise already Finished with err. Used by
// Supervisor.Shutdown's replacement submitter, and by Job composition to
// surface a terminal error without a real submission.
func NewFailedPromise(err error) *Promise {
	p := NewPromise()
	p.update(statusInfo{status: Finished, result: &Result{Err: err, Crashed: true}})
	return p
}

// update is called by exactly one producer (the runner) to advance the
// Promise's state. It is a no-op on a parent-bound Promise, since those
// delegate reads to the Thread directly.
func (p *Promise) update(info statusInfo) {
	if p.parent != nil {
		return
	}
	p.mu.Acquire()
	p.info = info
	p.mu.Release()
	if info.status == Finished {
		_ = p.finished.Set()
	}
}

func (p *Promise) snapshot() statusInfo {
	if p.parent != nil {
		return p.parent.snapshot()
	}
	p.mu.Acquire()
	defer p.mu.Release()
	return p.info
}

// Started reports whether the underlying task has left NotStarted.
func (p *Promise) Started() bool {
	return p.snapshot().status != NotStarted
}

// IsFinished reports whether the underlying task has completed.
func (p *Promise) IsFinished() bool {
	return p.snapshot().status == Finished
}

// Result blocks until the task finishes, then returns its value or the
// captured error. It is idempotent: repeated calls return the same
// outcome.
func (p *Promise) Result() (any, error) {
	if p.parent != nil {
		return p.parent.Join()
	}
	p.finished.Wait()

	info := p.snapshot()
	if info.result.Err != nil {
		return nil, info.result.Err
	}
	return info.result.Value, nil
}

// Await offloads the blocking Result() wait onto a helper goroutine and
// returns a channel the caller can select on, so code on a goroutine that
// must stay responsive is never forced to block synchronously.
func (p *Promise) Await(ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	runtime.Spawn(func() {
		value, err := p.Result()
		select {
		case out <- Result{Value: value, Err: err, Crashed: err != nil}:
		case <-ctx.Done():
		}
	})
	return out
}

func panicToErr(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicError{value: r}
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return "coil: task panicked"
}

// Unwrap exposes the recovered panic value through errors.As-style
// inspection, since it may itself be an error wrapped with context.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
