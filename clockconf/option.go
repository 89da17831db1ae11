// File: clockconf/option.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package clockconf

import (
	"sync/atomic"

	"github.com/momentics/hioload-clk/onoff"
)

// OptionGate adapts an onoff gate to one bit of the owning ClockConfig.
type OptionGate struct {
	cfg   *ClockConfig
	index int
	mgr   onoff.Manager
	// notify is set between a start and the pass that reports it.
	notify atomic.Pointer[onoff.NotifyFunc]
}

// Index returns the option index.
func (g *OptionGate) Index() int { return g.index }

// Manager returns the gate's onoff manager.
func (g *OptionGate) Manager() *onoff.Manager { return &g.mgr }

// Request asks for the option to be active; cb runs once it has been applied or failed.
func (g *OptionGate) Request(cb onoff.ClientFunc) error { return g.mgr.Request(cb) }

// Release drops one reference on the option.
func (g *OptionGate) Release() error { return g.mgr.Release() }

// Start records notify, marks the option active and asks for an update.
// Completion is reported by the pass that applies it.
func (g *OptionGate) Start(_ *onoff.Manager, notify onoff.NotifyFunc) {
	g.notify.Store(&notify)
	g.cfg.flags.Or(bit(g.index))
	g.cfg.RequestUpdate()
}

// Stop clears the option and reports success immediately.
func (g *OptionGate) Stop(mgr *onoff.Manager, notify onoff.NotifyFunc) {
	g.cfg.flags.And(^bit(g.index))
	g.cfg.RequestUpdate()
	notify(mgr, nil)
}
