// Package powerdomain
// Author: momentics <momentics@gmail.com>
//
// Reference-counted forcing of a hardware power domain. While at least one
// Sink holds a Domain, its mode field is programmed to AlwaysOn; when the last
// Sink releases it the field returns to Automatic (hardware-controlled).
//
// The holder list and the register write that reflects it change under one
// lock, so the register is AlwaysOn exactly when the list is non-empty.
package powerdomain
