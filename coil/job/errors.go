package job

import "errors"

// Job / Supervisor errors.
var (
	// ErrRetryBudgetExceeded is the terminal error raised by Retry (and any
	// Loop wrapping it) once either failure bound has been exceeded.
	ErrRetryBudgetExceeded = errors.New("job: retry budget exceeded")

	// ErrShutdown is raised by the submitter a Supervisor installs during
	// Shutdown. It is suppressed while the Supervisor joins registered
	// services; a job submitted through the Supervisor after Shutdown
	// receives it as its Promise's error.
	ErrShutdown = errors.New("job: supervisor is shutting down")
)
