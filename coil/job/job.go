// Package job provides the lifecycle-composition algebra (Once, Retry,
// Loop, and Schedule) and the Supervisor that drives Jobs onto a chosen
// submitter.
package job

import (
	"time"

	"github.com/Noah018dev/coil/coil"
	"github.com/Noah018dev/coil/coil/runtime"
)

// NewRetryFromConfig returns a Retry job bounded by cfg's
// RetryMaxConsecutiveFailures/RetryMaxTotalFailures, for callers that
// load their failure budgets from a Config file rather than hardcoding
// them.
func NewRetryFromConfig(fn func() (any, error), cfg *coil.Config, crashManager *CrashManager) *Retry {
	return NewRetry(fn, cfg.RetryMaxConsecutiveFailures, cfg.RetryMaxTotalFailures, crashManager)
}

// SubmitFunc is whatever coil.Submit/coil.SubmitGlobal/(*coil.Pool).Submit
// already are: submit a unit of work, get back a Promise observing it.
type SubmitFunc func(fn func() (any, error)) *coil.Promise

// Job is a reusable policy that, given a submitter, produces a Promise
// according to a lifecycle rule.
type Job interface {
	Promise(submit SubmitFunc) *coil.Promise
}

// CrashManager is what a Once/Retry/Schedule consults when its function
// fails: it is itself run through the submitter with the captured error,
// and may optionally chain to a further CrashManager for its own
// failures.
type CrashManager struct {
	fn     func(err error) (any, error)
	nested *CrashManager
}

// NewCrashManager wraps fn as a CrashManager with no further fallback.
func NewCrashManager(fn func(err error) (any, error)) *CrashManager {
	return &CrashManager{fn: fn}
}

// Chain returns a copy of c that, on its own failure, recovers through
// next instead of propagating directly.
func (c *CrashManager) Chain(next *CrashManager) *CrashManager {
	return &CrashManager{fn: c.fn, nested: next}
}

// Recover submits c's function with err and returns the resulting
// Promise. If c's function itself fails and there is no nested
// CrashManager, that failure is the Promise's final error.
func (c *CrashManager) Recover(submit SubmitFunc, err error) *coil.Promise {
	return submit(func() (any, error) {
		value, ferr := c.fn(err)
		if ferr == nil {
			return value, nil
		}
		if c.nested == nil {
			return nil, ferr
		}
		replacement, rerr := c.nested.Recover(submit, ferr).Result()
		if rerr != nil {
			return nil, rerr
		}
		if replacement == nil {
			return nil, ferr
		}
		return replacement, nil
	})
}

// Once runs Fn exactly once. If it fails and a CrashManager is set, the
// CrashManager is submitted with the captured error; a non-nil result
// from it replaces the failure, otherwise the original error is
// re-raised. With no CrashManager, failures propagate directly.
type Once struct {
	Fn           func() (any, error)
	CrashManager *CrashManager
}

// NewOnce returns a Once job running fn, recovering via crashManager if
// it is non-nil.
func NewOnce(fn func() (any, error), crashManager *CrashManager) *Once {
	return &Once{Fn: fn, CrashManager: crashManager}
}

// Promise implements Job.
func (o *Once) Promise(submit SubmitFunc) *coil.Promise {
	return submit(func() (any, error) {
		return o.attempt(submit)
	})
}

func (o *Once) attempt(submit SubmitFunc) (any, error) {
	value, err := o.Fn()
	if err == nil {
		return value, nil
	}
	if o.CrashManager == nil {
		return nil, err
	}
	replacement, rerr := o.CrashManager.Recover(submit, err).Result()
	if rerr != nil {
		return nil, rerr
	}
	if replacement == nil {
		return nil, err
	}
	return replacement, nil
}

// Retry re-runs Fn on failure up to two independent bounds:
// MaxConsecutiveFailures (reset to zero by any success) and
// MaxTotalFailures (never reset). Either bound reaching its limit raises
// ErrRetryBudgetExceeded, recoverable through CrashManager like Once.
// The two bounds are named explicitly and tracked independently
// everywhere in this package, never conflated into a single counter.
type Retry struct {
	Fn                     func() (any, error)
	MaxConsecutiveFailures int // 0 means unbounded
	MaxTotalFailures       int // 0 means unbounded
	CrashManager           *CrashManager
}

// NewRetry returns a Retry job. A zero bound means that bound is
// unbounded; both zero means Retry behaves as an unconditionally
// retrying Once.
func NewRetry(fn func() (any, error), maxConsecutiveFailures, maxTotalFailures int, crashManager *CrashManager) *Retry {
	return &Retry{
		Fn:                     fn,
		MaxConsecutiveFailures: maxConsecutiveFailures,
		MaxTotalFailures:       maxTotalFailures,
		CrashManager:           crashManager,
	}
}

// exceeds reports whether either bound has been reached.
func (r *Retry) exceeds(consecutive, total int) bool {
	if r.MaxConsecutiveFailures > 0 && consecutive >= r.MaxConsecutiveFailures {
		return true
	}
	if r.MaxTotalFailures > 0 && total >= r.MaxTotalFailures {
		return true
	}
	return false
}

// Promise implements Job: a single submission that loops Fn internally
// until it succeeds or a bound is exceeded.
func (r *Retry) Promise(submit SubmitFunc) *coil.Promise {
	return submit(func() (any, error) {
		var consecutive, total int
		for {
			value, err := r.Fn()
			if err == nil {
				return value, nil
			}

			consecutive++
			total++

			if !r.exceeds(consecutive, total) {
				continue
			}

			budgetErr := ErrRetryBudgetExceeded
			if r.CrashManager == nil {
				return nil, budgetErr
			}
			replacement, rerr := r.CrashManager.Recover(submit, budgetErr).Result()
			if rerr != nil {
				return nil, rerr
			}
			if replacement == nil {
				return nil, budgetErr
			}
			return replacement, nil
		}
	})
}

// LoopGenerator drives a Retry's attempts one at a time through an
// owning Loop, instead of Retry's own self-contained internal loop, so a
// Loop can interleave its own perpetual-iteration bookkeeping and
// genuinely observe each attempt's outcome.
type LoopGenerator struct {
	retry              *Retry
	consecutiveFailure int
	totalFailures      int
}

// NewLoopGenerator returns a LoopGenerator driving retry's bounds across
// repeated calls to Next.
func NewLoopGenerator(retry *Retry) *LoopGenerator {
	return &LoopGenerator{retry: retry}
}

// Next submits one attempt of the wrapped Retry's Fn, waits for it, and
// returns an already-finished Promise carrying its outcome alongside
// whether the generator may be asked for another attempt. ok is false
// once a bound has been reached and there was no CrashManager, the
// CrashManager itself failed, or it returned no replacement — at which
// point the returned Promise carries the terminal error.
func (g *LoopGenerator) Next(submit SubmitFunc) (promise *coil.Promise, ok bool) {
	promise = submit(func() (any, error) {
		return g.retry.Fn()
	})

	value, err := promise.Result()
	if err == nil {
		g.consecutiveFailure = 0
		return coil.NewResolvedPromise(value), true
	}

	g.consecutiveFailure++
	g.totalFailures++

	if !g.retry.exceeds(g.consecutiveFailure, g.totalFailures) {
		return coil.NewFailedPromise(err), true
	}

	budgetErr := ErrRetryBudgetExceeded
	if g.retry.CrashManager == nil {
		return coil.NewFailedPromise(budgetErr), false
	}

	replacement, rerr := g.retry.CrashManager.Recover(submit, budgetErr).Result()
	if rerr != nil {
		return coil.NewFailedPromise(rerr), false
	}
	if replacement == nil {
		return coil.NewFailedPromise(budgetErr), false
	}
	g.consecutiveFailure = 0
	return coil.NewResolvedPromise(replacement), true
}

// Loop runs a job perpetually: either a bare Fn resubmitted forever, or
// a wrapped Retry driven through a LoopGenerator so its failure bounds
// carry across iterations. StopSignal, polled between iterations, ends
// the loop cleanly. Otherwise a Retry-driven loop ends when its budget
// is exceeded unrecoverably, and a bare-Fn loop ends the first time Fn
// returns an error.
type Loop struct {
	Fn          func() (any, error)
	Retry       *Retry
	StopSignal  func() bool
	idleBetween time.Duration
}

// NewLoop returns a Loop perpetually resubmitting fn, with no wrapped
// Retry.
func NewLoop(fn func() (any, error), stopSignal func() bool) *Loop {
	return &Loop{Fn: fn, StopSignal: stopSignal}
}

// NewRetryLoop returns a Loop driving retry's bounded-failure attempts
// perpetually via a LoopGenerator.
func NewRetryLoop(retry *Retry, stopSignal func() bool) *Loop {
	return &Loop{Retry: retry, StopSignal: stopSignal}
}

// Promise implements Job: a single submission whose body loops until
// StopSignal fires, the wrapped Retry's budget is irrecoverably
// exceeded, or (with no wrapped Retry) Fn returns an error.
func (l *Loop) Promise(submit SubmitFunc) *coil.Promise {
	return submit(func() (any, error) {
		if l.Retry != nil {
			generator := NewLoopGenerator(l.Retry)
			for l.StopSignal == nil || !l.StopSignal() {
				promise, ok := generator.Next(submit)
				if !ok {
					_, err := promise.Result()
					return nil, err
				}
				if l.idleBetween > 0 {
					runtime.Sleep(l.idleBetween)
				}
			}
			return nil, nil
		}

		for l.StopSignal == nil || !l.StopSignal() {
			if _, err := submit(l.Fn).Result(); err != nil {
				return nil, err
			}
			if l.idleBetween > 0 {
				runtime.Sleep(l.idleBetween)
			}
		}
		return nil, nil
	})
}

// WithIdle sets the delay between successive iterations and returns l
// for chaining.
func (l *Loop) WithIdle(d time.Duration) *Loop {
	l.idleBetween = d
	return l
}

// Schedule runs Fn once at every firing of Trigger until StopSignal
// reports true, or until a run fails and CrashManager provides no
// replacement, which ends it with that error. It is the job-algebra counterpart of
// runtime.CronTrigger, for jobs that should run on a cron schedule
// rather than as fast as possible or after a fixed delay.
type Schedule struct {
	Fn           func() (any, error)
	Trigger      runtime.Trigger
	StopSignal   func() bool
	CrashManager *CrashManager
}

// NewSchedule returns a Schedule job running fn once per firing of
// trigger.
func NewSchedule(fn func() (any, error), trigger runtime.Trigger, stopSignal func() bool, crashManager *CrashManager) *Schedule {
	return &Schedule{Fn: fn, Trigger: trigger, StopSignal: stopSignal, CrashManager: crashManager}
}

// Promise implements Job.
func (s *Schedule) Promise(submit SubmitFunc) *coil.Promise {
	return submit(func() (any, error) {
		for s.StopSignal == nil || !s.StopSignal() {
			runtime.WaitForEvent(s.Trigger)

			once := &Once{Fn: s.Fn, CrashManager: s.CrashManager}
			if _, err := once.Promise(submit).Result(); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
}
