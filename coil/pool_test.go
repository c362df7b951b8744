package coil

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSubmitRunsOnWorker(t *testing.T) {
	p := NewPool(2)
	promise := p.Submit(func() (any, error) { return 7, nil })
	value, err := promise.Result()
	require.NoError(t, err)
	assert.Equal(t, 7, value)
	p.Shutdown()
}

func TestPoolFanOutAllComplete(t *testing.T) {
	p := NewPool(4)
	var completed int32
	xs := make([]int, 20)
	for i := range xs {
		xs[i] = i
	}
	results, err := Map(p, func(i int) (any, error) {
		atomic.AddInt32(&completed, 1)
		return i * i, nil
	}, xs)
	require.NoError(t, err)
	assert.Len(t, results, 20)
	assert.EqualValues(t, 20, completed)
	p.Shutdown()
}

func TestPoolSubmitRejectedAfterShutdown(t *testing.T) {
	p := NewPool(1)
	p.Shutdown()
	promise := p.Submit(func() (any, error) { return nil, nil })
	_, err := promise.Result()
	assert.ErrorIs(t, err, ErrPoolShuttingDown)
}

func TestPoolTaskPanicIsCrashedResult(t *testing.T) {
	p := NewPool(1)
	promise := p.Submit(func() (any, error) {
		panic("worker panic")
	})
	_, err := promise.Result()
	require.Error(t, err)
	p.Shutdown()
}

func TestPoolMapReturnsFirstError(t *testing.T) {
	p := NewPool(2)
	sentinel := errors.New("task failed")
	xs := []int{1, 2, 3}
	_, err := Map(p, func(i int) (any, error) {
		if i == 2 {
			return nil, sentinel
		}
		return i, nil
	}, xs)
	assert.ErrorIs(t, err, sentinel)
	p.Shutdown()
}

func TestPoolScopedRoutesAmbientSubmit(t *testing.T) {
	p := NewPool(2)
	var promise *Promise
	p.Scoped(func() {
		promise = Submit(func() (any, error) { return "scoped", nil })
	})
	value, err := promise.Result()
	require.NoError(t, err)
	assert.Equal(t, "scoped", value)
}

// TestPoolShutdownDrainsOutstandingTasks checks the contract Shutdown
// actually makes (pool.go's doc comment, spec.md §4.6: "drains the
// deque" before clearing active) rather than the stronger "every
// in-flight task has finished running" property, which Shutdown does
// not provide: it waits for the task deque to empty, not for the
// handful of tasks workers may still be mid-execution on when that
// happens. So this asserts the deque is empty and every submission's
// own Promise still completes, joining each Promise rather than reading
// the shared counter racily right after Shutdown returns.
func TestPoolShutdownDrainsOutstandingTasks(t *testing.T) {
	p := NewPool(2)
	var done int32
	promises := make([]*Promise, 10)
	for i := range promises {
		promises[i] = p.Submit(func() (any, error) {
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&done, 1)
			return nil, nil
		})
	}
	p.Shutdown()
	assert.Equal(t, 0, p.PoolMetrics().QueueGlobalDepth)

	for _, promise := range promises {
		_, err := promise.Result()
		require.NoError(t, err)
	}
	assert.EqualValues(t, 10, done)
}

func TestPoolMetricsReflectLiveWorkers(t *testing.T) {
	p := NewPool(3)
	m := p.PoolMetrics()
	assert.Equal(t, 3, m.NumWorkers)
	p.Shutdown()
}
