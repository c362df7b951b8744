package coillog

import "go.uber.org/zap"

// zapLogger adapts *zap.SugaredLogger to Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZap wraps base as a Logger, via its sugared form so the
// variadic key-value convention matches the interface.
func NewZap(base *zap.Logger) Logger {
	return &zapLogger{sugar: base.Sugar()}
}

// NewZapProduction returns a Logger backed by zap.NewProduction, for
// applications that don't want to construct their own *zap.Logger.
func NewZapProduction() (Logger, error) {
	base, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZap(base), nil
}

func (l *zapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *zapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

func (l *zapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *zapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}
