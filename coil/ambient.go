package coil

import (
	"github.com/Noah018dev/coil/coil/internal/registry"
	"github.com/Noah018dev/coil/coil/runtime"
)

// Submit routes fn to the innermost scoped Pool, falling back to
// SubmitGlobal when no Pool is currently scoped.
func Submit(fn func() (any, error)) *Promise {
	if submitter, ok := registry.Pools.Innermost(); ok {
		handle := submitter.Submit(fn)
		if promise, ok := handle.(*Promise); ok {
			return promise
		}
		// A foreign Submitter (e.g. a test double) returned a Handle that
		// isn't a *Promise: adapt it so callers still get a *Promise.
		return adaptHandle(handle)
	}
	return SubmitGlobal(fn)
}

// SubmitGlobal spawns a fresh Thread per call, bypassing any scoped Pool.
func SubmitGlobal(fn func() (any, error)) *Promise {
	thread := NewThread(fn)
	thread.Start()
	return newBoundPromise(thread)
}

// adaptHandle wraps a non-*Promise registry.Handle in a free-standing
// Promise that resolves once the handle does, via the await-bridge
// helper goroutine pattern.
func adaptHandle(handle registry.Handle) *Promise {
	promise := NewPromise()
	runtime.Spawn(func() {
		value, err := handle.Result()
		promise.update(statusInfo{
			status: Finished,
			result: &Result{Value: value, Err: err, Crashed: err != nil},
		})
	})
	return promise
}
