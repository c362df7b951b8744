// Package coillog defines the structured-logging interface used
// throughout coil, plus a go.uber.org/zap-backed default implementation.
// Every package logs through this interface rather than calling zap
// directly, so an embedding application can swap in its own logger.
package coillog

// Logger is the structured logging interface every coil package accepts.
// Key-value pairs follow the same variadic convention as slog/zap's
// sugared loggers:
//
//	logger.Info("pool started", "workers", 4)
type Logger interface {
	// Info logs a normal lifecycle event: pool start/shutdown, service
	// registration, extension binding.
	Info(msg string, args ...any)

	// Error logs a task crash, retry-budget exhaustion, or other failure
	// that does not itself stop the caller.
	Error(msg string, args ...any)

	// Warn logs a recoverable or unusual condition, e.g. a Queue DROP
	// policy discarding an enqueue, or a telemetry emission failing.
	Warn(msg string, args ...any)

	// Debug logs per-task/per-message detail, typically disabled in
	// production.
	Debug(msg string, args ...any)
}

// noop discards everything. Used as the default Logger so that coil
// never requires a caller to configure logging before use.
type noop struct{}

// NewNoop returns a Logger that discards every call.
func NewNoop() Logger { return noop{} }

func (noop) Info(string, ...any)  {}
func (noop) Error(string, ...any) {}
func (noop) Warn(string, ...any)  {}
func (noop) Debug(string, ...any) {}
