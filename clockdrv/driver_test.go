package clockdrv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-clk/api"
	"github.com/momentics/hioload-clk/control"
	"github.com/momentics/hioload-clk/internal/concurrency"
	"github.com/momentics/hioload-clk/internal/logging"
	"github.com/momentics/hioload-clk/internal/regs"
	"github.com/momentics/hioload-clk/onoff"
	"github.com/momentics/hioload-clk/powerdomain"
)

var (
	anySpec    = Spec{}
	closedLoop = Spec{AccuracyPPM: 50}
	bypass     = Spec{AccuracyPPM: 30, Precision: 1}
)

type fixture struct {
	q      *concurrency.WorkQueue
	hw     *SimHardware
	domain *powerdomain.Domain
	drv    *Driver
}

func newFixture(t *testing.T, latency time.Duration, failureRate float64) *fixture {
	t.Helper()
	log := logging.NewTestLogger()
	bank := regs.NewBank(powerdomain.LRCConfSize)
	f := &fixture{
		q:      concurrency.NewWorkQueue("clk", 1, concurrency.WithLogger(log)),
		hw:     NewSimHardware(bank.MustReg(0x400), latency, failureRate, 1),
		domain: powerdomain.NewMainDomain(bank.MustReg(powerdomain.LRCConfPowerOnOffset)),
	}
	t.Cleanup(f.q.Close)

	drv, err := New("fll16m", f.q, OptionsFromConfig(control.DefaultConfig().Clocks[0].Options), f.hw,
		WithLogger(log), WithMainDomain(f.domain))
	require.NoError(t, err)
	f.drv = drv
	return f
}

func (f *fixture) request(t *testing.T, spec Spec) error {
	t.Helper()
	done := make(chan error, 1)
	require.NoError(t, f.drv.Request(spec, func(_ *onoff.Manager, err error) { done <- err }))
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("request not completed")
		return nil
	}
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		st := f.drv.Config().State()
		return f.q.Drain(ctx) == nil && !st.InProgress && !st.Needed
	}, 5*time.Second, time.Millisecond)
}

func TestResolve(t *testing.T) {
	f := newFixture(t, 0, 0)
	for _, tc := range []struct {
		spec Spec
		want int
	}{
		{anySpec, 0},
		{Spec{FrequencyHz: 16_000_000}, 0},
		{closedLoop, 1},
		{Spec{AccuracyPPM: 30}, 1},
		{bypass, 2},
	} {
		got, err := f.drv.Resolve(tc.spec)
		require.NoError(t, err, tc.spec.String())
		assert.Equal(t, tc.want, got, tc.spec.String())
	}

	_, err := f.drv.Resolve(Spec{FrequencyHz: 32_000_000})
	assert.ErrorIs(t, err, ErrNoMatchingOption)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.ErrorIs(t, f.drv.Request(Spec{AccuracyPPM: 1}, nil), api.ErrNotFound)
}

func TestNewValidatesArguments(t *testing.T) {
	q := concurrency.NewWorkQueue("clk", 1)
	defer q.Close()
	_, err := New("empty", q, nil, NewSimHardware(regs.NewBank(4).MustReg(0), 0, 0, 1))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestRequestAppliesAndForcesDomain(t *testing.T) {
	f := newFixture(t, time.Millisecond, 0)

	require.NoError(t, f.request(t, closedLoop))
	cur, ok := f.drv.CurrentOption()
	require.True(t, ok)
	assert.Equal(t, 1, cur)
	assert.Equal(t, 1, f.hw.Mode())
	assert.Equal(t, powerdomain.AlwaysOn, f.domain.Mode())
	assert.Equal(t, "closed-loop", f.drv.State().Current)

	require.NoError(t, f.drv.Release(closedLoop))
	f.settle(t)
	cur, _ = f.drv.CurrentOption()
	assert.Equal(t, 0, cur, "falls back to baseline")
	assert.Equal(t, powerdomain.Automatic, f.domain.Mode())
}

func TestHighestRequestWinsUntilReleased(t *testing.T) {
	f := newFixture(t, 0, 0)

	require.NoError(t, f.request(t, anySpec))
	require.NoError(t, f.request(t, bypass))
	require.NoError(t, f.request(t, closedLoop))
	f.settle(t)
	assert.Equal(t, 2, f.hw.Mode())
	assert.Equal(t, []int{0, 1, 2}, f.drv.Config().State().Active)

	require.NoError(t, f.drv.Release(bypass))
	f.settle(t)
	assert.Equal(t, 1, f.hw.Mode())
	assert.Equal(t, powerdomain.AlwaysOn, f.domain.Mode())

	require.NoError(t, f.drv.Release(closedLoop))
	f.settle(t)
	assert.Equal(t, 0, f.hw.Mode())
	assert.Equal(t, powerdomain.Automatic, f.domain.Mode())
	assert.Zero(t, f.domain.Holders())
	assert.Equal(t, []int{0}, f.drv.Config().State().Active)
}

func TestFailedApplyNotifiesAndUnforces(t *testing.T) {
	f := newFixture(t, 0, 1)

	err := f.request(t, bypass)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrApplyFailed)
	f.settle(t)

	_, ok := f.drv.CurrentOption()
	assert.False(t, ok)
	assert.Empty(t, f.drv.Config().State().Active)
	assert.Equal(t, powerdomain.Automatic, f.domain.Mode())
}

// scriptedHardware fails the next n applies of an option, then defers to sim.
type scriptedHardware struct {
	*SimHardware
	latency time.Duration

	mu    sync.Mutex
	fails map[int]int
}

func (h *scriptedHardware) failNext(index, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fails[index] += n
}

func (h *scriptedHardware) Apply(index int, done func(error)) {
	h.mu.Lock()
	fail := h.fails[index] > 0
	if fail {
		h.fails[index]--
	}
	h.mu.Unlock()

	if !fail {
		h.SimHardware.Apply(index, done)
		return
	}
	err := api.NewError(api.ErrCodeApplyFailed, "clockdrv: scripted failure").WithContext("option", index)
	time.AfterFunc(h.latency, func() { done(err) })
}

func TestForcingOptionAfterFailedApplyOnWorkerPool(t *testing.T) {
	const latency = 2 * time.Millisecond
	log := logging.NewTestLogger()
	bank := regs.NewBank(powerdomain.LRCConfSize)
	hw := &scriptedHardware{
		SimHardware: NewSimHardware(bank.MustReg(0x400), latency, 0, 1),
		latency:     latency,
		fails:       map[int]int{},
	}
	f := &fixture{
		q:      concurrency.NewWorkQueue("clk", 4, concurrency.WithLogger(log)),
		hw:     hw.SimHardware,
		domain: powerdomain.NewMainDomain(bank.MustReg(powerdomain.LRCConfPowerOnOffset)),
	}
	t.Cleanup(f.q.Close)
	drv, err := New("fll16m", f.q, OptionsFromConfig(control.DefaultConfig().Clocks[0].Options), hw,
		WithLogger(log), WithMainDomain(f.domain))
	require.NoError(t, err)
	f.drv = drv

	hw.failNext(0, 1)
	err = f.request(t, anySpec)
	require.ErrorIs(t, err, api.ErrApplyFailed)
	f.settle(t)
	_, ok := drv.CurrentOption()
	assert.False(t, ok)
	assert.Equal(t, powerdomain.Automatic, f.domain.Mode())
	assert.Zero(t, f.domain.Holders())

	require.NoError(t, f.request(t, bypass))
	f.settle(t)
	cur, ok := drv.CurrentOption()
	require.True(t, ok)
	assert.Equal(t, 2, cur)
	assert.Equal(t, 2, hw.Mode())
	assert.Equal(t, powerdomain.AlwaysOn, f.domain.Mode())
	assert.Equal(t, 1, f.domain.Holders())

	// baseline fallback fails: the forcing option is still applied, so the
	// domain must stay held
	hw.failNext(0, 1)
	require.NoError(t, drv.Release(bypass))
	f.settle(t)
	cur, _ = drv.CurrentOption()
	assert.Equal(t, 2, cur)
	assert.Equal(t, powerdomain.AlwaysOn, f.domain.Mode())
	assert.Equal(t, 1, f.domain.Holders())

	drv.Config().RequestUpdate()
	f.settle(t)
	cur, _ = drv.CurrentOption()
	assert.Equal(t, 0, cur)
	assert.Equal(t, 0, hw.Mode())
	assert.Equal(t, powerdomain.Automatic, f.domain.Mode())
	assert.Zero(t, f.domain.Holders())
}

func TestUnmanagedSwitchNotSupported(t *testing.T) {
	f := newFixture(t, 0, 0)
	assert.ErrorIs(t, f.drv.On(), api.ErrNotSupported)
	assert.ErrorIs(t, f.drv.Off(), api.ErrNotSupported)
}
