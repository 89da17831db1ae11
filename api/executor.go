// Package api
// Author: momentics
//
// Deferred-work contract used by the clock configuration engine.

package api

// WorkHandler is the body of a deferred-work unit.
type WorkHandler func()

// WorkSubmitter schedules a previously bound unit of deferred work.
// Submitting a unit that is already queued must be coalesced, and a unit must
// never run concurrently with itself.
type WorkSubmitter interface {
	Submit() error
}
