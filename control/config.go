// control/config.go
// Author: momentics <momentics@gmail.com>
//
// YAML configuration for the clock simulator and the components it wires.

package control

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-clk/api"
)

// Config is the root configuration document.
type Config struct {
	Log         LogConfig       `yaml:"log"`
	WorkQueue   WorkQueueConfig `yaml:"workqueue"`
	MetricsAddr string          `yaml:"metrics_addr"`
	Clocks      []ClockSpec     `yaml:"clocks"`
}

// LogConfig selects logger flavour and verbosity.
type LogConfig struct {
	Level       int  `yaml:"level"`
	Development bool `yaml:"development"`
}

// WorkQueueConfig sizes the deferred-work queue.
type WorkQueueConfig struct {
	Workers int   `yaml:"workers"`
	CPUs    []int `yaml:"cpus"`
}

// ClockSpec describes one clock and its options in ascending capability order.
type ClockSpec struct {
	Name         string        `yaml:"name"`
	Options      []OptionSpec  `yaml:"options"`
	ApplyLatency time.Duration `yaml:"apply_latency"`
	FailureRate  float64       `yaml:"failure_rate"`
}

// OptionSpec describes one clock option.
type OptionSpec struct {
	Name            string `yaml:"name"`
	FrequencyHz     uint32 `yaml:"frequency_hz"`
	AccuracyPPM     uint16 `yaml:"accuracy_ppm"`
	Precision       uint8  `yaml:"precision"`
	ForceMainDomain bool   `yaml:"force_main_domain"`
}

// DefaultConfig returns a single 16 MHz FLL with open-loop, closed-loop and bypass options.
func DefaultConfig() *Config {
	return &Config{
		Log:         LogConfig{Level: 0},
		WorkQueue:   WorkQueueConfig{Workers: 1},
		MetricsAddr: ":9464",
		Clocks: []ClockSpec{{
			Name: "fll16m",
			Options: []OptionSpec{
				{Name: "open-loop", FrequencyHz: 16_000_000, AccuracyPPM: 20000},
				{Name: "closed-loop", FrequencyHz: 16_000_000, AccuracyPPM: 30, ForceMainDomain: true},
				{Name: "bypass", FrequencyHz: 16_000_000, AccuracyPPM: 30, Precision: 1, ForceMainDomain: true},
			},
			ApplyLatency: 2 * time.Millisecond,
		}},
	}
}

// LoadConfig reads path over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("control: read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("control: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no component can accept.
func (c *Config) Validate() error {
	var errs []error
	if c.WorkQueue.Workers < 0 {
		errs = append(errs, invalid("workqueue.workers", c.WorkQueue.Workers))
	}
	if len(c.Clocks) == 0 {
		errs = append(errs, invalid("clocks", "empty"))
	}
	seen := make(map[string]bool, len(c.Clocks))
	for i, clk := range c.Clocks {
		field := fmt.Sprintf("clocks[%d]", i)
		if clk.Name == "" || seen[clk.Name] {
			errs = append(errs, invalid(field+".name", clk.Name))
		}
		seen[clk.Name] = true
		if len(clk.Options) == 0 {
			errs = append(errs, invalid(field+".options", "empty"))
		}
		if clk.FailureRate < 0 || clk.FailureRate > 1 {
			errs = append(errs, invalid(field+".failure_rate", clk.FailureRate))
		}
		if clk.ApplyLatency < 0 {
			errs = append(errs, invalid(field+".apply_latency", clk.ApplyLatency))
		}
		for j, opt := range clk.Options {
			if opt.FrequencyHz == 0 {
				errs = append(errs, invalid(fmt.Sprintf("%s.options[%d].frequency_hz", field, j), 0))
			}
		}
	}
	return errors.Join(errs...)
}

func invalid(field string, value any) error {
	return api.NewError(api.ErrCodeInvalidArgument, "control: invalid "+field).WithContext("value", value)
}
