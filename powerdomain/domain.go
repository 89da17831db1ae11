// File: powerdomain/domain.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package powerdomain

import (
	"slices"
	"sync"

	"github.com/go-logr/logr"

	"github.com/momentics/hioload-clk/api"
	"github.com/momentics/hioload-clk/control"
	"github.com/momentics/hioload-clk/internal/logging"
)

// Mode is the value of a domain's mode field.
type Mode uint32

const (
	Automatic Mode = 0
	AlwaysOn  Mode = 1
)

func (m Mode) String() string {
	switch m {
	case Automatic:
		return "automatic"
	case AlwaysOn:
		return "always-on"
	default:
		return "unknown"
	}
}

// Sink is one owner's claim on a Domain. Its identity is its address; a Sink
// is held at most once no matter how often it is acquired.
type Sink struct {
	name string
}

// NewSink returns a sink labelled name for logging.
func NewSink(name string) *Sink { return &Sink{name: name} }

// Name returns the sink label.
func (s *Sink) Name() string { return s.name }

// Option configures a Domain.
type Option func(*Domain)

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(d *Domain) { d.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *control.Metrics) Option {
	return func(d *Domain) { d.metrics = m }
}

// Domain is a power domain whose mode field can be forced always-on.
// One Domain must exist per physical field for the lifetime of the process;
// share it with every driver that needs the domain forced.
type Domain struct {
	name    string
	reg     api.Register
	field   api.Field
	log     logr.Logger
	metrics *control.Metrics

	mu    sync.Mutex
	sinks []*Sink
}

// NewDomain binds a domain to the mode field of reg. The field is left untouched
// until the first Acquire.
func NewDomain(name string, reg api.Register, field api.Field, opts ...Option) *Domain {
	d := &Domain{
		name:  name,
		reg:   reg,
		field: field,
		log:   logr.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.WithValues("domain", name)
	return d
}

// Name returns the domain name.
func (d *Domain) Name() string { return d.name }

// Acquire forces the domain on and makes s one of its holders.
// Acquiring a held sink again moves it to the tail without adding a reference.
func (d *Domain) Acquire(s *Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.sinks) == 0 {
		d.log.V(logging.DEBUG).Info("forced on", "sink", s.name)
		d.field.Set(d.reg, uint32(AlwaysOn))
	}
	d.remove(s)
	d.sinks = append(d.sinks, s)
	d.metrics.DomainState(d.name, true, len(d.sinks))
}

// Release drops s from the holders; the last holder returns the domain to
// automatic mode. Releasing a sink that is not held does nothing.
func (d *Domain) Release(s *Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.remove(s) {
		return
	}
	if len(d.sinks) > 0 {
		d.metrics.DomainState(d.name, true, len(d.sinks))
		return
	}
	d.log.V(logging.DEBUG).Info("automatic", "sink", s.name)
	d.field.Set(d.reg, uint32(Automatic))
	d.metrics.DomainState(d.name, false, 0)
}

// remove deletes s from the holder list and reports whether it was present.
func (d *Domain) remove(s *Sink) bool {
	i := slices.Index(d.sinks, s)
	if i < 0 {
		return false
	}
	d.sinks = slices.Delete(d.sinks, i, i+1)
	return true
}

// Holders returns the number of distinct sinks holding the domain.
func (d *Domain) Holders() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sinks)
}

// Held reports whether s currently holds the domain.
func (d *Domain) Held(s *Sink) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Contains(d.sinks, s)
}

// Mode reads the mode field back from the register.
func (d *Domain) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Mode(d.field.Get(d.reg))
}

// State is a debug view of a Domain.
type State struct {
	Name    string   `json:"name"`
	Mode    string   `json:"mode"`
	Holders []string `json:"holders"`
}

// State returns the holder list and current mode.
func (d *Domain) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := State{Name: d.name, Mode: Mode(d.field.Get(d.reg)).String()}
	for _, s := range d.sinks {
		st.Holders = append(st.Holders, s.name)
	}
	return st
}
