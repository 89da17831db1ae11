// Package onoff
// Author: momentics <momentics@gmail.com>
//
// Reference-counted on/off gate. A Manager turns a service on when its first
// client asks for it and off when the last client releases it, delegating the
// actual transitions to a Transitions implementation that reports completion
// asynchronously. Clients waiting for a start are notified once it completes.
//
// Transitions are always invoked without the manager lock held, so a
// transition may complete synchronously from inside Start or Stop.
package onoff
