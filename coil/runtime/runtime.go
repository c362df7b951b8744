// Package runtime hosts the collaborators coil's core treats as
// swappable: starting a detached worker, reading pool depth counters,
// and waiting on an encoded trigger.
package runtime

import "sync/atomic"

// Spawner starts fn on a detached goroutine, fire-and-forget.
type Spawner func(fn func())

var spawner atomic.Value // Spawner

func init() {
	spawner.Store(Spawner(func(fn func()) { go fn() }))
}

// Spawn starts fn on a detached goroutine using the currently configured
// Spawner.
func Spawn(fn func()) {
	spawner.Load().(Spawner)(fn)
}

// SetSpawner overrides the Spawner, returning the previous one so callers
// (typically tests wanting deterministic scheduling) can restore it.
func SetSpawner(s Spawner) Spawner {
	prev := spawner.Load().(Spawner)
	spawner.Store(s)
	return prev
}

// Metrics is a read-only snapshot of pool activity.
type Metrics struct {
	QueueGlobalDepth int
	NumAliveTasks    int
	NumWorkers       int
}

// MetricsSource is implemented by anything that can produce a Metrics
// snapshot; the ambient pool registry implements it.
type MetricsSource interface {
	FetchMetrics() Metrics
}

var metricsSource atomic.Value // MetricsSource

// RegisterMetricsSource installs the source FetchMetrics reads from.
// Called once, by the ambient registry, during package init.
func RegisterMetricsSource(src MetricsSource) {
	metricsSource.Store(src)
}

// FetchMetrics returns the current Metrics snapshot, or the zero value if
// no source has been registered yet.
func FetchMetrics() Metrics {
	v := metricsSource.Load()
	if v == nil {
		return Metrics{}
	}
	return v.(MetricsSource).FetchMetrics()
}
