package registry

import (
	"sync"

	"github.com/Noah018dev/coil/coil/runtime"
)

// Handle is the minimal completion surface the ambient layer needs from a
// submitted task, satisfied by *coil.Promise without this package
// importing coil (which would create an import cycle: coil already
// imports registry for the pool stack and metrics aggregator).
type Handle interface {
	Result() (any, error)
}

// Submitter accepts a task closure and returns a Handle for observing it.
// (*coil.Pool).AsSubmitter adapts a Pool to it.
type Submitter interface {
	Submit(fn func() (any, error)) Handle
}

// PoolStack is the ambient stack of scoped submitters: submit routes to
// the innermost entry, falling back to a global submitter when the
// stack is empty.
type PoolStack struct {
	mu    sync.Mutex
	stack []Submitter
}

// Pools is the process-wide ambient pool stack.
var Pools = &PoolStack{}

// Push scopes p as the new innermost submitter.
func (s *PoolStack) Push(p Submitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack = append(s.stack, p)
}

// Pop removes the innermost submitter. It is a no-op on an empty stack.
func (s *PoolStack) Pop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stack) == 0 {
		return
	}
	s.stack = s.stack[:len(s.stack)-1]
}

// Innermost returns the current innermost submitter, if any.
func (s *PoolStack) Innermost() (Submitter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stack) == 0 {
		return nil, false
	}
	return s.stack[len(s.stack)-1], true
}

// MetricsProvider is implemented by a live Pool so the ambient metrics
// aggregator can include it in a FetchMetrics snapshot.
type MetricsProvider interface {
	PoolMetrics() runtime.Metrics
}

// MetricsAggregator sums runtime.Metrics across every currently-live
// Pool. It implements runtime.MetricsSource and is installed as the
// process's metrics source in this package's init.
type MetricsAggregator struct {
	mu        sync.Mutex
	providers map[int]MetricsProvider
	nextID    int
}

// Metrics is the process-wide aggregator of live pools.
var Metrics = &MetricsAggregator{providers: make(map[int]MetricsProvider)}

// Register adds p to the aggregator and returns a token to Unregister it
// with later (typically on Pool.Shutdown).
func (a *MetricsAggregator) Register(p MetricsProvider) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.providers[id] = p
	return id
}

// Unregister removes the provider associated with token.
func (a *MetricsAggregator) Unregister(token int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.providers, token)
}

// FetchMetrics implements runtime.MetricsSource by summing every
// registered provider's snapshot.
func (a *MetricsAggregator) FetchMetrics() runtime.Metrics {
	a.mu.Lock()
	providers := make([]MetricsProvider, 0, len(a.providers))
	for _, p := range a.providers {
		providers = append(providers, p)
	}
	a.mu.Unlock()

	var total runtime.Metrics
	for _, p := range providers {
		m := p.PoolMetrics()
		total.QueueGlobalDepth += m.QueueGlobalDepth
		total.NumAliveTasks += m.NumAliveTasks
		total.NumWorkers += m.NumWorkers
	}
	return total
}

func init() {
	runtime.RegisterMetricsSource(Metrics)
}
