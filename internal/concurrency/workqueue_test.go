package concurrency

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-clk/api"
)

func drain(t *testing.T, q *WorkQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
}

func TestWorkQueue_RunsSubmittedWork(t *testing.T) {
	q := NewWorkQueue("test", 2)
	defer q.Close()

	var runs atomic.Int32
	w := q.NewWork(func() { runs.Add(1) })
	res, err := w.Schedule()
	require.NoError(t, err)
	assert.Equal(t, Queued, res)

	drain(t, q)
	assert.Equal(t, int32(1), runs.Load())
}

func TestWorkQueue_CoalesceAndRequeue(t *testing.T) {
	q := NewWorkQueue("test", 2)
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32
	w := q.NewWork(func() {
		if runs.Add(1) == 1 {
			close(started)
			<-release
		}
	})

	_, err := w.Schedule()
	require.NoError(t, err)
	<-started

	res, err := w.Schedule()
	require.NoError(t, err)
	assert.Equal(t, Requeued, res)

	res, err = w.Schedule()
	require.NoError(t, err)
	assert.Equal(t, AlreadyQueued, res)

	close(release)
	drain(t, q)
	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, int64(1), q.Stats()["coalesced"])
}

func TestWorkQueue_NeverReentrant(t *testing.T) {
	q := NewWorkQueue("test", 4)
	defer q.Close()

	var inFlight, maxInFlight atomic.Int32
	w := q.NewWork(func() {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(50 * time.Microsecond)
		inFlight.Add(-1)
	})

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			for j := 0; j < 200; j++ {
				if err := w.Submit(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	drain(t, q)
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestWorkQueue_IndependentWorksRunInParallel(t *testing.T) {
	q := NewWorkQueue("test", 2)
	defer q.Close()

	barrier := make(chan struct{})
	var arrived atomic.Int32
	handler := func() {
		if arrived.Add(1) == 2 {
			close(barrier)
		}
		select {
		case <-barrier:
		case <-time.After(5 * time.Second):
		}
	}
	require.NoError(t, q.NewWork(handler).Submit())
	require.NoError(t, q.NewWork(handler).Submit())

	select {
	case <-barrier:
	case <-time.After(5 * time.Second):
		t.Fatal("works did not run concurrently")
	}
	drain(t, q)
}

func TestWorkQueue_PanicKeepsWorkerAlive(t *testing.T) {
	q := NewWorkQueue("test", 1)
	defer q.Close()

	require.NoError(t, q.NewWork(func() { panic("boom") }).Submit())
	var ran atomic.Bool
	require.NoError(t, q.NewWork(func() { ran.Store(true) }).Submit())
	drain(t, q)
	assert.True(t, ran.Load())
	assert.Equal(t, int64(1), q.Stats()["panics"])
}

func TestWorkQueue_SubmitAfterClose(t *testing.T) {
	q := NewWorkQueue("test", 1)
	w := q.NewWork(func() {})
	q.Close()
	q.Close()
	assert.ErrorIs(t, w.Submit(), api.ErrClosed)
}

func TestWorkQueue_CloseRunsPending(t *testing.T) {
	q := NewWorkQueue("test", 1)
	var runs atomic.Int32
	for i := 0; i < 8; i++ {
		require.NoError(t, q.NewWork(func() { runs.Add(1) }).Submit())
	}
	q.Close()
	assert.Equal(t, int32(8), runs.Load())
}

func TestWorkQueue_DrainHonoursContext(t *testing.T) {
	q := NewWorkQueue("test", 1)
	release := make(chan struct{})
	defer func() {
		close(release)
		q.Close()
	}()
	require.NoError(t, q.NewWork(func() { <-release }).Submit())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Drain(ctx), context.DeadlineExceeded)
}
