package job

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noah018dev/coil/coil"
)

// TestSupervisorShutdownResolvesRunningService starts Loop(worker) as
// "w" with a cooperative StopSignal (Shutdown is cooperative, not
// preemptive), calls Shutdown once the signal has been raised, and
// checks that the service's Promise resolves cleanly. That later
// submissions raise ErrShutdown is checked by
// TestSupervisorSubmissionsFailAfterShutdown.
func TestSupervisorShutdownResolvesRunningService(t *testing.T) {
	sup := NewSupervisor(0)

	var attempts int32
	var stopping atomic.Bool
	worker := func() (any, error) {
		atomic.AddInt32(&attempts, 1)
		return "ok", nil
	}

	loop := NewLoop(worker, stopping.Load)
	promise := sup.StartService("w", loop)

	for atomic.LoadInt32(&attempts) < 2 {
	}
	stopping.Store(true)

	sup.Shutdown()

	_, err := promise.Result()
	assert.NoError(t, err)
}

func TestSupervisorSubmissionsFailAfterShutdown(t *testing.T) {
	sup := NewSupervisor(0)
	sup.Shutdown()

	once := NewOnce(func() (any, error) { return "unreachable", nil }, nil)
	_, err := once.Promise(sup.submit).Result()
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestSupervisorShutdownIsIdempotent(t *testing.T) {
	sup := NewSupervisor(0)
	sup.Shutdown()
	assert.NotPanics(t, func() { sup.Shutdown() })
}

func TestSupervisorWithOwnedPoolShutsPoolDown(t *testing.T) {
	sup := NewSupervisor(2)

	promise := sup.StartService("job", NewOnce(func() (any, error) { return "ok", nil }, nil))
	value, err := promise.Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", value)

	sup.Shutdown()

	_, ok := sup.Service("job")
	assert.True(t, ok)

	_, err = sup.pool.Submit(func() (any, error) { return nil, nil }).Result()
	assert.ErrorIs(t, err, coil.ErrPoolShuttingDown)
}

func TestNewSupervisorFromConfig(t *testing.T) {
	cfg := coil.DefaultConfig()
	cfg.PoolWorkers = 2
	sup := NewSupervisorFromConfig(cfg)

	promise := sup.StartService("job", NewOnce(func() (any, error) { return "ok", nil }, nil))
	value, err := promise.Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", value)

	sup.Shutdown()
}
