package onoff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualTransitions records transitions and lets the test complete them.
type manualTransitions struct {
	starts, stops int
	pending       NotifyFunc
	syncStop      bool
}

func (tr *manualTransitions) Start(mgr *Manager, notify NotifyFunc) {
	tr.starts++
	tr.pending = notify
}

func (tr *manualTransitions) Stop(mgr *Manager, notify NotifyFunc) {
	tr.stops++
	if tr.syncStop {
		notify(mgr, nil)
		return
	}
	tr.pending = notify
}

func (tr *manualTransitions) complete(mgr *Manager, err error) {
	n := tr.pending
	tr.pending = nil
	n(mgr, err)
}

type result struct {
	called bool
	err    error
}

func (r *result) cb(_ *Manager, err error) {
	r.called = true
	r.err = err
}

func TestInitRequiresTransitions(t *testing.T) {
	var m Manager
	assert.ErrorIs(t, m.Init(nil), ErrNilTransitions)
}

func TestRequestStartsOnceAndNotifiesAll(t *testing.T) {
	tr := &manualTransitions{}
	var m Manager
	require.NoError(t, m.Init(tr))

	var a, b result
	require.NoError(t, m.Request(a.cb))
	require.NoError(t, m.Request(b.cb))
	assert.Equal(t, 1, tr.starts)
	assert.False(t, a.called)

	tr.complete(&m, nil)
	assert.True(t, a.called)
	assert.True(t, b.called)
	st, refs := m.State()
	assert.Equal(t, On, st)
	assert.Equal(t, 2, refs)

	var c result
	require.NoError(t, m.Request(c.cb))
	assert.True(t, c.called, "request on an active service completes immediately")
	assert.Equal(t, 1, tr.starts)
}

func TestLastReleaseStops(t *testing.T) {
	tr := &manualTransitions{syncStop: true}
	var m Manager
	require.NoError(t, m.Init(tr))

	require.NoError(t, m.Request(nil))
	require.NoError(t, m.Request(nil))
	tr.complete(&m, nil)

	require.NoError(t, m.Release())
	assert.Equal(t, 0, tr.stops)
	require.NoError(t, m.Release())
	assert.Equal(t, 1, tr.stops)

	st, _ := m.State()
	assert.Equal(t, Off, st)
	assert.ErrorIs(t, m.Release(), ErrNotActive)
}

func TestFailedStartIsNotSticky(t *testing.T) {
	tr := &manualTransitions{}
	var m Manager
	require.NoError(t, m.Init(tr))

	boom := errors.New("boom")
	var a result
	require.NoError(t, m.Request(a.cb))
	tr.complete(&m, boom)
	assert.ErrorIs(t, a.err, boom)
	st, refs := m.State()
	assert.Equal(t, Off, st)
	assert.Zero(t, refs)

	var b result
	require.NoError(t, m.Request(b.cb))
	assert.Equal(t, 2, tr.starts)
	tr.complete(&m, nil)
	assert.NoError(t, b.err)
}

func TestRequestDuringStopRestarts(t *testing.T) {
	tr := &manualTransitions{}
	var m Manager
	require.NoError(t, m.Init(tr))

	require.NoError(t, m.Request(nil))
	tr.complete(&m, nil)
	require.NoError(t, m.Release())
	st, _ := m.State()
	require.Equal(t, ToOff, st)

	var a result
	require.NoError(t, m.Request(a.cb))
	tr.complete(&m, nil) // stop done
	assert.Equal(t, 2, tr.starts)
	assert.False(t, a.called)

	tr.complete(&m, nil) // restart done
	assert.True(t, a.called)
	st, refs := m.State()
	assert.Equal(t, On, st)
	assert.Equal(t, 1, refs)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "to-off", ToOff.String())
	assert.Equal(t, "unknown", State(42).String())
}
