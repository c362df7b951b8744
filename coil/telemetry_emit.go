package coil

import (
	"context"
	"sync/atomic"

	"github.com/Noah018dev/coil/coil/telemetry"
)

// poolEventSource names this package's cloudevents.Event source.
const poolEventSource = "coil/pool"

// poolEmitterHolder wraps telemetry.Emitter so it can live behind an
// atomic.Value: Value.Store panics if successive stores carry different
// concrete types, which a bare `telemetry.Emitter` interface variable
// would hit the moment two different Emitter implementations are
// installed across SetTelemetryEmitter calls.
type poolEmitterHolder struct{ emitter telemetry.Emitter }

// poolEmitterBox is the optional telemetry sink Pool start/shutdown
// report through. A nil-Emitter holder (the default) disables emission.
var poolEmitterBox atomic.Value // poolEmitterHolder

func init() {
	poolEmitterBox.Store(poolEmitterHolder{})
}

// SetTelemetryEmitter installs e as the process-wide sink for Pool
// lifecycle events. Passing nil disables emission. Safe to call
// concurrently with Pool activity.
func SetTelemetryEmitter(e telemetry.Emitter) {
	poolEmitterBox.Store(poolEmitterHolder{emitter: e})
}

// ConfigureTelemetry installs emitter as the Pool lifecycle sink iff
// cfg.BusTelemetryEnabled is set, otherwise it disables emission. Callers
// that also want bus.Send telemetry should pass the same emitter to
// bus.ConfigureTelemetry.
func ConfigureTelemetry(cfg *Config, emitter telemetry.Emitter) {
	if cfg.BusTelemetryEnabled {
		SetTelemetryEmitter(emitter)
		return
	}
	SetTelemetryEmitter(nil)
}

type poolLifecycleEvent struct {
	Workers int `json:"workers"`
}

func emitPoolLifecycle(eventType string, workers int) {
	emitter := poolEmitterBox.Load().(poolEmitterHolder).emitter
	if emitter == nil {
		return
	}
	event, err := telemetry.NewEvent(poolEventSource, eventType, poolLifecycleEvent{Workers: workers})
	if err != nil {
		return
	}
	_ = emitter.Emit(context.Background(), event)
}
