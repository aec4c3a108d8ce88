package cooldown

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_RetriesAfterCountdown(t *testing.T) {
	c := NewWithInterval(5 * time.Millisecond)

	var mu sync.Mutex
	var ticks []int
	done := make(chan struct{})

	c.Schedule(20*time.Millisecond,
		func(remaining int) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		},
		func() { close(done) },
	)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, ticks)
	assert.Equal(t, 0, ticks[len(ticks)-1], "countdown reaches zero")
	for i := 1; i < len(ticks); i++ {
		assert.Equal(t, ticks[i-1]-1, ticks[i], "decrements by one per tick")
	}
	assert.False(t, c.Active(), "controller idle after retry")
}

func TestController_CancelPreventsRetry(t *testing.T) {
	c := NewWithInterval(5 * time.Millisecond)

	var fired atomic.Bool
	c.Schedule(50*time.Millisecond, nil, func() { fired.Store(true) })
	require.True(t, c.Active())

	c.Cancel()
	assert.False(t, c.Active())

	time.Sleep(100 * time.Millisecond)
	assert.False(t, fired.Load(), "cancelled countdown must not retry")
}

func TestController_NewScheduleSupersedes(t *testing.T) {
	c := NewWithInterval(5 * time.Millisecond)

	var first, second atomic.Bool
	done := make(chan struct{})

	c.Schedule(30*time.Millisecond, nil, func() { first.Store(true) })
	c.Schedule(15*time.Millisecond, nil, func() {
		second.Store(true)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("superseding retry never fired")
	}

	time.Sleep(60 * time.Millisecond)
	assert.False(t, first.Load(), "superseded countdown must not retry")
	assert.True(t, second.Load())
}

func TestController_ZeroWaitStillTicksOnce(t *testing.T) {
	c := NewWithInterval(5 * time.Millisecond)

	done := make(chan struct{})
	c.Schedule(0, nil, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry never fired for zero wait")
	}
}

func TestPulse_StopsCleanly(t *testing.T) {
	var count atomic.Int64
	p := NewPulse(5*time.Millisecond, func() { count.Add(1) })

	time.Sleep(30 * time.Millisecond)
	p.Stop()
	p.Stop() // idempotent

	// Let any in-flight tick land before snapshotting.
	time.Sleep(10 * time.Millisecond)
	settled := count.Load()
	assert.Greater(t, settled, int64(0))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, count.Load(), "no pulses after Stop")
}
