package job

import (
	"sync"

	"github.com/Noah018dev/coil/coil"
)

// Supervisor is a name -> Promise registry driving registered Jobs
// through a chosen submitter: either an owned Pool (via coil.NewPool)
// or the ambient pool stack (coil.Submit).
type Supervisor struct {
	mu       sync.Mutex
	services map[string]*coil.Promise

	pool    *coil.Pool // nil when routing through the ambient pool stack
	submit  SubmitFunc
	stopped bool
}

// NewSupervisor returns a Supervisor that owns a Pool of poolWorkers
// workers. A poolWorkers of zero instead routes every StartService
// submission through the ambient pool stack (coil.Submit), matching a
// Supervisor constructed with no explicit worker count.
func NewSupervisor(poolWorkers int) *Supervisor {
	s := &Supervisor{services: make(map[string]*coil.Promise)}
	if poolWorkers > 0 {
		s.pool = coil.NewPool(poolWorkers)
		s.submit = s.pool.Submit
	} else {
		s.submit = coil.Submit
	}
	return s
}

// StartService submits j under name and registers its Promise. Starting
// a second service under a name already in use replaces the prior
// registration; the earlier Promise is left running and is not joined
// by Shutdown.
func (s *Supervisor) StartService(name string, j Job) *coil.Promise {
	promise := j.Promise(s.submit)

	s.mu.Lock()
	s.services[name] = promise
	s.mu.Unlock()

	return promise
}

// NewSupervisorFromConfig returns a Supervisor owning a Pool sized by
// cfg.PoolWorkers (or routed through the ambient pool stack if that is
// zero), for callers that load their tunables from a Config file rather
// than hardcoding a worker count.
func NewSupervisorFromConfig(cfg *coil.Config) *Supervisor {
	return NewSupervisor(cfg.PoolWorkers)
}

// Service returns the Promise registered under name, if any.
func (s *Supervisor) Service(name string) (*coil.Promise, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	promise, ok := s.services[name]
	return promise, ok
}

// Shutdown installs a submitter that immediately fails every further
// submission made through the Supervisor with ErrShutdown, then joins
// every registered service. A service that is already running keeps the
// submitter it was started with, so it does not observe ErrShutdown, and
// Shutdown returns only once each such service has ended on its own (a
// Loop through its StopSignal, for example). Errors from a service's
// Result() during this join, ErrShutdown included, are suppressed rather
// than treated as Shutdown-aborting. Every registered service is joined regardless
// of an earlier one's outcome; one service's terminal error never aborts
// the join of the rest.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.submit = func(fn func() (any, error)) *coil.Promise {
		return coil.NewFailedPromise(ErrShutdown)
	}
	services := make([]*coil.Promise, 0, len(s.services))
	for _, promise := range s.services {
		services = append(services, promise)
	}
	s.mu.Unlock()

	for _, promise := range services {
		if _, err := promise.Result(); err != nil && err != ErrShutdown {
			// Swallowed: Shutdown's contract is "join everything", not
			// "propagate the first failure". Callers that need a
			// service's own terminal error still have its Promise via
			// Service.
			_ = err
		}
	}

	if s.pool != nil {
		s.pool.Shutdown()
	}
}

// Scoped runs fn, then shuts s down on return (joining every registered
// service and, if s owns a Pool, shutting that Pool down too). Mirrors
// Pool.Scoped's run-then-shutdown shape for a Supervisor.
func (s *Supervisor) Scoped(fn func()) {
	defer s.Shutdown()
	fn()
}
