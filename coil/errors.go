package coil

import "errors"

// Sync primitive errors
var (
	ErrEventAlreadySet = errors.New("coil: event is already set")
	ErrEventNotSet     = errors.New("coil: event isn't set")
	ErrQueueFull       = errors.New("coil: queue is full")
)

// Thread / Promise errors
var (
	ErrThreadNotStarted  = errors.New("coil: thread has not started, cannot join it")
	ErrThreadNotFinished = errors.New("coil: thread has not finished, cannot access result")
)

// Pool errors
var (
	ErrPoolShuttingDown = errors.New("coil: pool is shutting down, cannot accept more tasks")
)

// Config errors
var (
	ErrConfigNil           = errors.New("coil: config is nil")
	ErrConfigUnknownFormat = errors.New("coil: unknown config format")
	ErrUnknownQueuePolicy  = errors.New("coil: unknown queue policy")
)
