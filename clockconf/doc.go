// Package clockconf
// Author: momentics <momentics@gmail.com>
//
// Coalescing update engine for a shared clock resource.
//
// A ClockConfig owns a set of mutually exclusive options, each fronted by an
// onoff gate. Starting or stopping a gate flips the option's bit in a single
// atomic flag word and asks for an update. Requests arriving while an update is
// scheduled or running are absorbed into that pass; a pass that finishes with
// new requests pending re-arms its own deferred work, so nothing is lost and at
// most one pass is in flight at a time.
//
// Flag word layout (64 bits):
//
//	bit 63       update in progress
//	bit 62       update needed
//	bits 0..61   option i requested active
//
// Only the highest-indexed active option is ever applied.
package clockconf
