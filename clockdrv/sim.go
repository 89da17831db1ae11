// File: clockdrv/sim.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Register-level simulated hardware: the requested mode is written to a MODE
// field and the outcome is reported after a configurable latency.

package clockdrv

import (
	"math/rand"
	"sync"
	"time"

	"github.com/momentics/hioload-clk/api"
)

// ModeField is the MODE field of the simulated clock control register.
var ModeField = api.Field{Mask: 0x3f, Shift: 0}

// SimHardware programs a register and completes asynchronously.
type SimHardware struct {
	reg         api.Register
	latency     time.Duration
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimHardware returns hardware writing reg. failureRate is the probability
// in [0,1] that an apply fails; seed makes failures reproducible.
func NewSimHardware(reg api.Register, latency time.Duration, failureRate float64, seed int64) *SimHardware {
	return &SimHardware{
		reg:         reg,
		latency:     latency,
		failureRate: failureRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Apply writes index to the MODE field and calls done after the latency.
func (h *SimHardware) Apply(index int, done func(error)) {
	h.mu.Lock()
	fail := h.failureRate > 0 && h.rng.Float64() < h.failureRate
	if !fail {
		ModeField.Set(h.reg, uint32(index))
	}
	h.mu.Unlock()

	var err error
	if fail {
		err = api.NewError(api.ErrCodeApplyFailed, "clockdrv: mode switch timed out").
			WithContext("option", index)
	}
	if h.latency <= 0 {
		done(err)
		return
	}
	time.AfterFunc(h.latency, func() { done(err) })
}

// Mode reads the MODE field back.
func (h *SimHardware) Mode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int(ModeField.Get(h.reg))
}
