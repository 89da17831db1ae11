// File: clockconf/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package clockconf

import (
	"math/bits"
	"sync/atomic"

	"github.com/go-logr/logr"
	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-clk/api"
	"github.com/momentics/hioload-clk/control"
	"github.com/momentics/hioload-clk/internal/logging"
)

const (
	flagBits = 64

	flagUpdateInProgress uint64 = 1 << (flagBits - 1)
	flagUpdateNeeded     uint64 = 1 << (flagBits - 2)

	// MaxOptions is the number of option bits left in the flag word.
	MaxOptions = flagBits - 2

	optionMask uint64 = 1<<MaxOptions - 1
)

// UpdateHandler is run on the deferred-work queue for every update pass.
// It must call BeginUpdate and, once the hardware outcome is known, EndUpdate.
type UpdateHandler func(cfg *ClockConfig)

// Binder binds a handler to a unit of deferred work.
type Binder interface {
	Bind(handler api.WorkHandler) api.WorkSubmitter
}

// Option configures a ClockConfig.
type Option func(*ClockConfig)

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(c *ClockConfig) { c.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *control.Metrics) Option {
	return func(c *ClockConfig) { c.metrics = m }
}

// ClockConfig arbitrates between the options of one clock.
type ClockConfig struct {
	_     cpu.CacheLinePad
	flags atomic.Uint64
	_     cpu.CacheLinePad

	// snapshot is written once per pass by BeginUpdate and read by EndUpdate of the same pass.
	snapshot atomic.Uint64

	name    string
	options []OptionGate
	work    api.WorkSubmitter
	log     logr.Logger
	metrics *control.Metrics
}

// New builds a ClockConfig with optionCount gates whose updates run handler on q.
func New(name string, q Binder, optionCount int, handler UpdateHandler, opts ...Option) (*ClockConfig, error) {
	if optionCount < 0 || optionCount > MaxOptions {
		return nil, api.NewError(api.ErrCodeResourceExhausted, "clockconf: too many options").
			WithContext("config", name).
			WithContext("options", optionCount).
			WithContext("max", MaxOptions)
	}
	if q == nil || handler == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "clockconf: nil work binder or handler").
			WithContext("config", name)
	}
	c := &ClockConfig{
		name: name,
		log:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithValues("clock", name)

	c.options = make([]OptionGate, optionCount)
	for i := range c.options {
		g := &c.options[i]
		g.cfg = c
		g.index = i
		if err := g.mgr.Init(g); err != nil {
			return nil, err
		}
	}
	c.work = q.Bind(func() { handler(c) })
	return c, nil
}

// Name returns the configuration name.
func (c *ClockConfig) Name() string { return c.name }

// OptionCount returns the number of options.
func (c *ClockConfig) OptionCount() int { return len(c.options) }

// Option returns the gate for option i, or nil when i is out of range.
func (c *ClockConfig) Option(i int) *OptionGate {
	if i < 0 || i >= len(c.options) {
		return nil
	}
	return &c.options[i]
}

// RequestUpdate marks an update as needed and schedules a pass unless one is
// already scheduled or running; such a pass picks the change up.
func (c *ClockConfig) RequestUpdate() {
	prev := c.flags.Or(flagUpdateNeeded)
	if prev&(flagUpdateNeeded|flagUpdateInProgress) != 0 {
		c.metrics.UpdateRequested(c.name, true)
		return
	}
	c.metrics.UpdateRequested(c.name, false)
	c.submit()
}

func (c *ClockConfig) submit() {
	if err := c.work.Submit(); err != nil {
		c.log.Error(err, "submitting update work failed")
	}
}

// BeginUpdate opens an update pass and captures the snapshot of requested options.
// It returns the highest active option index, or ok=false when no option is active.
func (c *ClockConfig) BeginUpdate() (index int, ok bool) {
	c.flags.Or(flagUpdateInProgress)
	snap := c.flags.And(^flagUpdateNeeded)
	c.snapshot.Store(snap)

	active := snap & optionMask
	c.log.V(logging.TRACE).Info("update begin", "active", active)
	if active == 0 {
		return 0, false
	}
	return bits.Len64(active) - 1, true
}

// EndUpdate closes the pass opened by BeginUpdate. Every option of the
// snapshot waiting for a start is notified with status; on failure its bit is
// cleared first. A completion without a pass in progress is ignored.
func (c *ClockConfig) EndUpdate(status error) {
	// once in-progress is clear a new pass may overwrite snapshot
	snap := c.snapshot.Load()
	prev := c.flags.And(^flagUpdateInProgress)
	if prev&flagUpdateInProgress == 0 {
		c.log.V(logging.DEBUG).Info("stale update completion ignored")
		c.metrics.StaleCompletion(c.name)
		return
	}
	if status != nil {
		c.log.Error(status, "applying clock configuration failed")
	}
	c.metrics.UpdateCompleted(c.name, status != nil)

	for i := range c.options {
		if snap&bit(i) == 0 {
			continue
		}
		g := &c.options[i]
		notify := g.notify.Swap(nil)
		if notify == nil {
			continue
		}
		result := control.ResultOK
		if status != nil {
			// a failed start must not stay active
			c.flags.And(^bit(i))
			result = control.ResultFailed
		}
		c.metrics.Notified(c.name, result)
		(*notify)(&g.mgr, status)
	}
	c.log.V(logging.TRACE).Info("update end", "failed", status != nil, "rearm", prev&flagUpdateNeeded != 0)

	if prev&flagUpdateNeeded != 0 {
		c.submit()
	}
}

// State is a point-in-time view of a ClockConfig used by debug probes.
type State struct {
	Name       string `json:"name"`
	Active     []int  `json:"active"`
	InProgress bool   `json:"in_progress"`
	Needed     bool   `json:"needed"`
	Snapshot   uint64 `json:"snapshot"`
}

// State returns the current flag state.
func (c *ClockConfig) State() State {
	f := c.flags.Load()
	st := State{
		Name:       c.name,
		InProgress: f&flagUpdateInProgress != 0,
		Needed:     f&flagUpdateNeeded != 0,
		Snapshot:   c.snapshot.Load(),
	}
	for i := range c.options {
		if f&bit(i) != 0 {
			st.Active = append(st.Active, i)
		}
	}
	return st
}

func bit(i int) uint64 { return 1 << uint(i) }
