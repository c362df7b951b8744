package runtime

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger encodes a wait condition as an integer tuple: a leading id
// byte followed by id-specific payload. New trigger kinds are authored
// by supplying a distinct id and an encoding.
type Trigger interface {
	// IntRepr returns the trigger's wire encoding.
	IntRepr() []int64
}

// TimeTrigger fires once, after the given duration. It encodes as
// [0x00, duration_in_nanoseconds].
type TimeTrigger struct {
	d time.Duration
}

// NewTimeTrigger returns a TimeTrigger that fires after d.
func NewTimeTrigger(d time.Duration) TimeTrigger {
	return TimeTrigger{d: d}
}

// IntRepr implements Trigger.
func (t TimeTrigger) IntRepr() []int64 {
	return []int64{0x00, t.d.Nanoseconds()}
}

// timeTriggerID is the leading tag byte for TimeTrigger's wire encoding.
const timeTriggerID = 0x00

// cronTriggerID is the leading tag byte for CronTrigger's wire encoding.
// See job.Schedule for the job-algebra counterpart that drives its
// attempts off this trigger.
const cronTriggerID = 0x01

// CronTrigger fires once, at the next time the cron expression is due.
// It encodes as [0x01, nanoseconds_until_next_fire].
type CronTrigger struct {
	schedule cron.Schedule
}

// NewCronTrigger parses expr with cron's standard 5-field parser.
func NewCronTrigger(expr string) (CronTrigger, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return CronTrigger{}, fmt.Errorf("runtime: parse cron expression %q: %w", expr, err)
	}
	return CronTrigger{schedule: sched}, nil
}

// IntRepr implements Trigger. The next-fire delay is computed relative to
// time.Now() at encode time.
func (t CronTrigger) IntRepr() []int64 {
	next := t.schedule.Next(time.Now())
	return []int64{cronTriggerID, int64(time.Until(next))}
}

// WaitForEvent suspends the caller until trigger fires. It dispatches on
// the leading tag of trigger.IntRepr(), so a Trigger implementation
// never needs to be a TimeTrigger/CronTrigger specifically — only to
// encode one of the known ids.
func WaitForEvent(trigger Trigger) {
	repr := trigger.IntRepr()
	switch repr[0] {
	case timeTriggerID, cronTriggerID:
		<-time.After(time.Duration(repr[1]))
	default:
		// Unknown trigger kinds degrade to their encoded delay, on the
		// assumption every future trigger kind encodes [id, nanoseconds]
		// as its second element, matching TimeTrigger/CronTrigger.
		if len(repr) > 1 {
			<-time.After(time.Duration(repr[1]))
		}
	}
}

// Sleep blocks the calling goroutine for d, via a TimeTrigger.
func Sleep(d time.Duration) {
	WaitForEvent(NewTimeTrigger(d))
}

// SleepIndefinitely blocks forever, an hour at a time, the way a
// perpetual background worker idles when it has no other wakeup source.
func SleepIndefinitely() {
	for {
		Sleep(time.Hour)
	}
}
