package job

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noah018dev/coil/coil"
)

func TestNewRetryFromConfigUsesConfiguredBounds(t *testing.T) {
	cfg := coil.DefaultConfig()
	cfg.RetryMaxConsecutiveFailures = 3

	var attempts int32
	retry := NewRetryFromConfig(func() (any, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, errors.New("always fails")
	}, cfg, nil)

	_, err := retry.Promise(coil.SubmitGlobal).Result()
	assert.ErrorIs(t, err, ErrRetryBudgetExceeded)
	assert.EqualValues(t, 3, attempts)
}

func TestOnceSucceeds(t *testing.T) {
	once := NewOnce(func() (any, error) { return "ok", nil }, nil)
	value, err := once.Promise(coil.SubmitGlobal).Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
}

func TestOnceFailureWithNoCrashManagerPropagates(t *testing.T) {
	sentinel := errors.New("boom")
	once := NewOnce(func() (any, error) { return nil, sentinel }, nil)
	_, err := once.Promise(coil.SubmitGlobal).Result()
	assert.ErrorIs(t, err, sentinel)
}

func TestOnceCrashManagerRecovers(t *testing.T) {
	sentinel := errors.New("boom")
	crashManager := NewCrashManager(func(err error) (any, error) {
		assert.ErrorIs(t, err, sentinel)
		return "recovered", nil
	})
	once := NewOnce(func() (any, error) { return nil, sentinel }, crashManager)
	value, err := once.Promise(coil.SubmitGlobal).Result()
	require.NoError(t, err)
	assert.Equal(t, "recovered", value)
}

func TestRetrySucceedsWithinConsecutiveBound(t *testing.T) {
	var attempts int32
	retry := NewRetry(func() (any, error) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}, 5, 0, nil)

	value, err := retry.Promise(coil.SubmitGlobal).Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.EqualValues(t, 3, attempts)
}

func TestRetryExceedsConsecutiveBound(t *testing.T) {
	retry := NewRetry(func() (any, error) {
		return nil, errors.New("always fails")
	}, 3, 0, nil)

	_, err := retry.Promise(coil.SubmitGlobal).Result()
	assert.ErrorIs(t, err, ErrRetryBudgetExceeded)
}

func TestRetryCrashManagerRecoversAfterBudget(t *testing.T) {
	crashManager := NewCrashManager(func(err error) (any, error) {
		assert.ErrorIs(t, err, ErrRetryBudgetExceeded)
		return "fallback", nil
	})
	retry := NewRetry(func() (any, error) {
		return nil, errors.New("always fails")
	}, 2, 0, crashManager)

	value, err := retry.Promise(coil.SubmitGlobal).Result()
	require.NoError(t, err)
	assert.Equal(t, "fallback", value)
}

func TestLoopGeneratorResetsConsecutiveOnSuccess(t *testing.T) {
	// With MaxConsecutiveFailures of 2, a second failure not preceded by a
	// reset would end the generator (ok=false). Alternating succeed/fail
	// proves each success resets the consecutive counter: the generator
	// survives six iterations of that pattern.
	var attempts int32
	retry := NewRetry(func() (any, error) {
		n := atomic.AddInt32(&attempts, 1)
		if n%2 == 0 {
			return nil, errors.New("every other attempt fails")
		}
		return "ok", nil
	}, 2, 0, nil)

	gen := NewLoopGenerator(retry)
	for i := 0; i < 6; i++ {
		_, ok := gen.Next(coil.SubmitGlobal)
		require.True(t, ok, "iteration %d", i)
	}
}

func TestLoopStopSignalEndsCleanly(t *testing.T) {
	var iterations int32
	stop := func() bool { return atomic.LoadInt32(&iterations) >= 3 }

	loop := NewLoop(func() (any, error) {
		atomic.AddInt32(&iterations, 1)
		return nil, nil
	}, stop)

	_, err := loop.Promise(coil.SubmitGlobal).Result()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&iterations), int32(3))
}

func TestRetryLoopStopsOnUnrecoverableBudget(t *testing.T) {
	retry := NewRetry(func() (any, error) {
		return nil, errors.New("always fails")
	}, 2, 0, nil)

	loop := NewRetryLoop(retry, nil)
	_, err := loop.Promise(coil.SubmitGlobal).Result()
	assert.ErrorIs(t, err, ErrRetryBudgetExceeded)
}
