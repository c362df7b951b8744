package bus

import (
	"context"
	"sync/atomic"

	"github.com/Noah018dev/coil/coil"
	"github.com/Noah018dev/coil/coil/telemetry"
)

// sendEventType/sendEventSource name the cloudevents.Event this package
// emits on every Send.
const (
	sendEventType   = "coil.bus.send"
	sendEventSource = "coil/bus"
)

// emitterHolder wraps telemetry.Emitter so it can live behind an
// atomic.Value: Value.Store panics if successive stores carry different
// concrete types, which a bare `telemetry.Emitter` interface variable
// would hit the moment two different Emitter implementations are
// installed across SetEmitter calls.
type emitterHolder struct{ emitter telemetry.Emitter }

// emitterBox is the optional telemetry sink Send reports through. A
// nil-Emitter holder (the default) disables emission entirely, at zero
// cost beyond the nil check.
var emitterBox atomic.Value // emitterHolder

func init() {
	emitterBox.Store(emitterHolder{})
}

// SetEmitter installs e as the process-wide telemetry sink for every
// subsequent Send. Passing nil disables emission. Safe to call
// concurrently with Send traffic.
func SetEmitter(e telemetry.Emitter) {
	emitterBox.Store(emitterHolder{emitter: e})
}

// ConfigureTelemetry installs sink as the Send telemetry sink iff
// cfg.BusTelemetryEnabled is set, otherwise it disables emission. Pass
// the same sink to coil.ConfigureTelemetry to also cover Pool lifecycle
// events.
func ConfigureTelemetry(cfg *coil.Config, sink telemetry.Emitter) {
	if cfg.BusTelemetryEnabled {
		SetEmitter(sink)
		return
	}
	SetEmitter(nil)
}

// sendTelemetry describes a single Send for telemetry purposes.
type sendTelemetry struct {
	Group       string `json:"group"`
	Subscribers int    `json:"subscribers"`
	Cancelled   bool   `json:"cancelled"`
}

func emitSend(g *Group, subscriberCount int, cancelled bool) {
	emitter := emitterBox.Load().(emitterHolder).emitter
	if emitter == nil {
		return
	}
	event, err := telemetry.NewEvent(sendEventSource, sendEventType, sendTelemetry{
		Group:       g.Name(),
		Subscribers: subscriberCount,
		Cancelled:   cancelled,
	})
	if err != nil {
		return
	}
	_ = emitter.Emit(context.Background(), event)
}
