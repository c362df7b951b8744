package bus

import "time"

// extensionWorkerIdle is the pause Group.AddExtension's Loop(Retry(...))
// service takes between successive BackgroundWorker invocations, win or
// fail, so an Extension whose worker returns promptly (or fails
// immediately) does not busy-spin a core.
const extensionWorkerIdle = 250 * time.Millisecond

// extensionWorkerMaxConsecutiveFailures bounds how many times in a row
// BackgroundWorker may fail before its service's Promise escalates,
// per spec.md §7's direction to "supply explicit bounds rather than
// inherit the source's unbounded defaults" for this Loop(Retry(·)) path.
const extensionWorkerMaxConsecutiveFailures = 10

// Extension is a policy hook bound to at most one Group at a time
// (Group.AddExtension), consulted whenever a Send visits that Group or
// a Group whose implicit wildcard parent it is, unless that Group has an
// Extension of its own. Deeper descendants are not covered.
type Extension interface {
	// Config applies construction-time options and returns the
	// (possibly copied) configured Extension that gets bound and run.
	Config(opts ...any) Extension

	// MessageSentInGroup is called once for every Group a Send visits
	// for which this is the nearest Extension, with the content as it
	// reached that Group: it already carries any transform applied at
	// Groups visited earlier in the same Send.
	MessageSentInGroup(content any) SentInGroup

	// BackgroundWorker runs as a perpetually-retried Supervisor service
	// for as long as the Extension is bound, paced by extensionWorkerIdle
	// between iterations. A run of extensionWorkerMaxConsecutiveFailures
	// consecutive errors escalates the service's Promise.
	BackgroundWorker() error
}
