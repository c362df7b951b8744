// Package telemetry provides the optional cloudevents.Event emission
// coil/bus and coil/pool lifecycle transitions can report through, via
// a small subject/observer interface.
package telemetry

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Noah018dev/coil/coil/coillog"
)

// Emitter is the sink coil components send lifecycle/metrics events
// through. A nil Emitter (the zero value of any field typed Emitter) is
// never dereferenced by callers in this module — they check for nil and
// skip emission instead.
type Emitter interface {
	Emit(ctx context.Context, event cloudevents.Event) error
}

// LoggingEmitter wraps another Emitter and logs (never propagates) any
// emission failure: a telemetry sink must never be able to fail a send.
type LoggingEmitter struct {
	next   Emitter
	logger coillog.Logger
}

// NewLoggingEmitter wraps next, logging through logger.
func NewLoggingEmitter(next Emitter, logger coillog.Logger) *LoggingEmitter {
	if logger == nil {
		logger = coillog.NewNoop()
	}
	return &LoggingEmitter{next: next, logger: logger}
}

// Emit implements Emitter. It never returns an error: failures are
// logged and swallowed.
func (e *LoggingEmitter) Emit(ctx context.Context, event cloudevents.Event) error {
	if e.next == nil {
		return nil
	}
	if err := e.next.Emit(ctx, event); err != nil {
		e.logger.Warn("telemetry emission failed", "type", event.Type(), "error", err)
	}
	return nil
}

// ChannelEmitter publishes every event onto a buffered channel, for
// embedding applications (and this repo's own tests) that want to
// observe coil's lifecycle events in-process rather than forwarding them
// to a broker.
type ChannelEmitter struct {
	events chan cloudevents.Event
}

// NewChannelEmitter returns a ChannelEmitter buffering up to capacity
// events before Emit starts dropping the oldest to make room, so a slow
// or absent consumer can never block a send.
func NewChannelEmitter(capacity int) *ChannelEmitter {
	if capacity <= 0 {
		capacity = 1
	}
	return &ChannelEmitter{events: make(chan cloudevents.Event, capacity)}
}

// Events returns the channel new events are published on.
func (e *ChannelEmitter) Events() <-chan cloudevents.Event {
	return e.events
}

// Emit implements Emitter, dropping the oldest buffered event if the
// channel is full rather than blocking the caller.
func (e *ChannelEmitter) Emit(_ context.Context, event cloudevents.Event) error {
	select {
	case e.events <- event:
	default:
		select {
		case <-e.events:
		default:
		}
		select {
		case e.events <- event:
		default:
		}
	}
	return nil
}

// NewEvent builds a cloudevents.Event of eventType from source, with id
// derived from the current time. data is marshaled as JSON.
func NewEvent(source, eventType string, data any) (cloudevents.Event, error) {
	event := cloudevents.NewEvent()
	event.SetType(eventType)
	event.SetSource(source)
	event.SetTime(time.Now())
	event.SetID(fmt.Sprintf("%s-%d", eventType, time.Now().UnixNano()))

	if data != nil {
		if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
			return cloudevents.Event{}, fmt.Errorf("telemetry: set event data: %w", err)
		}
	}
	return event, nil
}
