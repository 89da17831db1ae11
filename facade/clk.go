// File: facade/clk.go
// Unified facade layer for hioload-clk.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// System aggregates the components of a clock controller behind one value:
// the deferred-work queue, the register bank, the main power domain, one
// driver per configured clock, Prometheus metrics and debug probes.

package facade

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/momentics/hioload-clk/api"
	"github.com/momentics/hioload-clk/clockdrv"
	"github.com/momentics/hioload-clk/control"
	"github.com/momentics/hioload-clk/internal/concurrency"
	"github.com/momentics/hioload-clk/internal/regs"
	"github.com/momentics/hioload-clk/powerdomain"
)

// Register layout of the bank: LRCCONF first, then one control register per clock.
const (
	clockRegBase   = powerdomain.LRCConfSize
	clockRegStride = 4
	bankSize       = 2 * powerdomain.LRCConfSize
)

// Option configures a System.
type Option func(*options)

type options struct {
	log        logr.Logger
	registerer prometheus.Registerer
	device     string
	base       int64
	seed       int64
}

// WithLogger sets the logger for every component.
func WithLogger(l logr.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRegisterer registers metrics with r instead of a private registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithDevice maps registers from a device file at base instead of simulating them in memory.
func WithDevice(path string, base int64) Option {
	return func(o *options) { o.device, o.base = path, base }
}

// WithSeed seeds simulated apply failures.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// System is the main facade type.
type System struct {
	queue   *concurrency.WorkQueue
	bank    *regs.Bank
	domain  *powerdomain.Domain
	drivers map[string]*clockdrv.Driver
	metrics *control.Metrics
	probes  *control.DebugProbes
	reg     *prometheus.Registry
	log     logr.Logger
}

// New builds a System from cfg. A nil cfg uses control.DefaultConfig().
func New(cfg *control.Config, opts ...Option) (*System, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{log: logr.Discard(), seed: 1}
	for _, opt := range opts {
		opt(&o)
	}

	s := &System{
		drivers: make(map[string]*clockdrv.Driver, len(cfg.Clocks)),
		probes:  control.NewDebugProbes(),
		log:     o.log,
	}
	if o.registerer == nil {
		s.reg = prometheus.NewRegistry()
		o.registerer = s.reg
	}
	var err error
	if s.metrics, err = control.NewMetrics(o.registerer); err != nil {
		return nil, fmt.Errorf("facade: metrics: %w", err)
	}

	if o.device != "" {
		if s.bank, err = regs.MapBank(o.device, o.base, bankSize); err != nil {
			return nil, err
		}
	} else {
		s.bank = regs.NewBank(bankSize)
	}
	if clockRegBase+len(cfg.Clocks)*clockRegStride > bankSize {
		s.bank.Close()
		return nil, api.NewError(api.ErrCodeResourceExhausted, "facade: too many clocks for register bank").
			WithContext("clocks", len(cfg.Clocks))
	}

	s.domain = powerdomain.NewMainDomain(s.bank.MustReg(powerdomain.LRCConfPowerOnOffset),
		powerdomain.WithLogger(o.log), powerdomain.WithMetrics(s.metrics))

	var qopts []concurrency.Option
	qopts = append(qopts, concurrency.WithLogger(o.log))
	if len(cfg.WorkQueue.CPUs) > 0 {
		qopts = append(qopts, concurrency.WithCPUs(cfg.WorkQueue.CPUs...))
	}
	s.queue = concurrency.NewWorkQueue("clock", cfg.WorkQueue.Workers, qopts...)

	for i, clk := range cfg.Clocks {
		hw := clockdrv.NewSimHardware(s.bank.MustReg(clockRegBase+i*clockRegStride),
			clk.ApplyLatency, clk.FailureRate, o.seed+int64(i))
		drv, err := clockdrv.New(clk.Name, s.queue, clockdrv.OptionsFromConfig(clk.Options), hw,
			clockdrv.WithLogger(o.log), clockdrv.WithMetrics(s.metrics), clockdrv.WithMainDomain(s.domain))
		if err != nil {
			s.Close()
			return nil, err
		}
		s.drivers[clk.Name] = drv
		s.probes.RegisterDebugProbe("clock."+clk.Name, func() any { return drv.State() })
	}
	s.probes.RegisterDebugProbe("power."+s.domain.Name(), func() any { return s.domain.State() })
	s.probes.RegisterDebugProbe("workqueue", func() any { return s.queue.Stats() })
	control.RegisterPlatformProbes(s.probes)
	return s, nil
}

// Driver returns the named clock driver.
func (s *System) Driver(name string) (*clockdrv.Driver, error) {
	d, ok := s.drivers[name]
	if !ok {
		return nil, api.NewError(api.ErrCodeNotFound, "facade: unknown clock").WithContext("clock", name)
	}
	return d, nil
}

// Clocks returns the configured clock names in order.
func (s *System) Clocks() []string {
	names := make([]string, 0, len(s.drivers))
	for k := range s.drivers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MainDomain returns the shared main power domain.
func (s *System) MainDomain() *powerdomain.Domain { return s.domain }

// Queue returns the deferred-work queue.
func (s *System) Queue() *concurrency.WorkQueue { return s.queue }

// Control returns the debug probe registry.
func (s *System) Control() api.Control { return s.probes }

// Probes returns the probe registry for HTTP export.
func (s *System) Probes() *control.DebugProbes { return s.probes }

// Gatherer returns the private metrics registry, or nil when an external registerer was given.
func (s *System) Gatherer() prometheus.Gatherer {
	if s.reg == nil {
		return nil
	}
	return s.reg
}

// Close stops the work queue and releases the register bank.
func (s *System) Close() error {
	if s.queue != nil {
		s.queue.Close()
	}
	return s.bank.Close()
}
