// File: clockdrv/driver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package clockdrv

import (
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/momentics/hioload-clk/api"
	"github.com/momentics/hioload-clk/clockconf"
	"github.com/momentics/hioload-clk/control"
	"github.com/momentics/hioload-clk/internal/logging"
	"github.com/momentics/hioload-clk/onoff"
	"github.com/momentics/hioload-clk/powerdomain"
)

// Hardware switches the clock to an option and reports the outcome, possibly
// from another goroutine and possibly much later.
type Hardware interface {
	Apply(index int, done func(error))
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithMetrics sets the metrics sink passed down to the clock configuration.
func WithMetrics(m *control.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithMainDomain lets options flagged ForceMainDomain hold domain while applied.
func WithMainDomain(domain *powerdomain.Domain) Option {
	return func(d *Driver) { d.domain = domain }
}

// Driver is one clock with its option set.
type Driver struct {
	name    string
	options []OptionDesc
	hw      Hardware
	cfg     *clockconf.ClockConfig
	domain  *powerdomain.Domain
	sink    *powerdomain.Sink
	log     logr.Logger
	metrics *control.Metrics

	// current is the applied option index, -1 before the first pass.
	current atomic.Int32
}

// New creates the driver and its clock configuration; updates run on q.
func New(name string, q clockconf.Binder, options []OptionDesc, hw Hardware, opts ...Option) (*Driver, error) {
	if len(options) == 0 || hw == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "clockdrv: options and hardware are required").
			WithContext("clock", name)
	}
	d := &Driver{
		name:    name,
		options: options,
		hw:      hw,
		sink:    powerdomain.NewSink(name),
		log:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.WithValues("clock", name)
	d.current.Store(-1)

	cfg, err := clockconf.New(name, q, len(options), d.update,
		clockconf.WithLogger(d.log), clockconf.WithMetrics(d.metrics))
	if err != nil {
		return nil, err
	}
	d.cfg = cfg
	return d, nil
}

// Name returns the clock name.
func (d *Driver) Name() string { return d.name }

// Config exposes the underlying clock configuration.
func (d *Driver) Config() *clockconf.ClockConfig { return d.cfg }

// Resolve returns the lowest option index satisfying spec.
func (d *Driver) Resolve(spec Spec) (int, error) {
	return resolve(d.options, spec)
}

// Request asks for a clock meeting spec; cb runs once it is applied or failed.
func (d *Driver) Request(spec Spec, cb onoff.ClientFunc) error {
	idx, err := d.Resolve(spec)
	if err != nil {
		return err
	}
	d.log.V(logging.VERBOSE).Info("request", "spec", spec.String(), "option", d.options[idx].Name)
	return d.cfg.Option(idx).Request(cb)
}

// Release drops a request previously made with the same spec.
func (d *Driver) Release(spec Spec) error {
	idx, err := d.Resolve(spec)
	if err != nil {
		return err
	}
	return d.cfg.Option(idx).Release()
}

// On is the unmanaged switch-on entry point; this clock is only managed through requests.
func (d *Driver) On() error { return api.ErrNotSupported }

// Off is the unmanaged switch-off entry point; this clock is only managed through requests.
func (d *Driver) Off() error { return api.ErrNotSupported }

// CurrentOption returns the applied option index, or ok=false before the first apply.
func (d *Driver) CurrentOption() (int, bool) {
	cur := d.current.Load()
	return int(cur), cur >= 0
}

// update is the deferred work of the clock configuration.
func (d *Driver) update(cfg *clockconf.ClockConfig) {
	idx, ok := cfg.BeginUpdate()
	// with nothing requested the clock falls back to its baseline option
	target := 0
	if ok {
		target = idx
	}
	if d.domain != nil && d.options[target].ForceMainDomain {
		d.domain.Acquire(d.sink)
	}
	d.log.V(logging.DEBUG).Info("applying option", "option", d.options[target].Name, "requested", ok)

	d.hw.Apply(target, func(err error) {
		if err == nil {
			d.current.Store(int32(target))
		}
		if d.domain != nil {
			cur := d.current.Load()
			if cur < 0 || !d.options[cur].ForceMainDomain {
				d.domain.Release(d.sink)
			}
		}
		cfg.EndUpdate(err)
	})
}

// State is a debug view of a Driver.
type State struct {
	Config  clockconf.State `json:"config"`
	Current string          `json:"current"`
}

// State returns the configuration state and applied option.
func (d *Driver) State() State {
	st := State{Config: d.cfg.State()}
	if cur, ok := d.CurrentOption(); ok {
		st.Current = d.options[cur].Name
	}
	return st
}
