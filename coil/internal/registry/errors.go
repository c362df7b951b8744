// Package registry holds the process-wide, interned state that coil's
// ambient layers share: the submit-context pool stack, the live-pool
// metrics aggregator, and (used by coil/bus) the Group/Extension/
// Mailbox-subscription tables. Each table is guarded by its own lock
// rather than one coarse lock across unrelated maps.
package registry
