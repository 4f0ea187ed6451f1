package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualEveryFiresPerPeriod(t *testing.T) {
	m := NewManual(epoch)
	ticks := 0
	m.Every(2*time.Second, func() { ticks++ })

	m.Advance(1 * time.Second)
	assert.Equal(t, 0, ticks)

	m.Advance(1 * time.Second)
	assert.Equal(t, 1, ticks)

	m.Advance(10 * time.Second)
	assert.Equal(t, 6, ticks)
	assert.Equal(t, epoch.Add(12*time.Second), m.Now())
}

func TestManualAfterFiresOnce(t *testing.T) {
	m := NewManual(epoch)
	fired := 0
	m.After(500*time.Millisecond, func() { fired++ })
	require.Equal(t, 1, m.Pending())

	m.Advance(time.Second)
	m.Advance(time.Second)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManualStopPreventsFurtherCallbacks(t *testing.T) {
	m := NewManual(epoch)
	ticks := 0
	timer := m.Every(time.Second, func() { ticks++ })

	m.Advance(3 * time.Second)
	timer.Stop()
	m.Advance(10 * time.Second)

	assert.Equal(t, 3, ticks)
	assert.Equal(t, 0, m.Pending())
}

func TestManualFiresInDeadlineOrder(t *testing.T) {
	m := NewManual(epoch)
	var order []string
	m.Every(5*time.Second, func() { order = append(order, "slow") })
	m.Every(2*time.Second, func() { order = append(order, "fast") })

	m.Advance(6 * time.Second)
	assert.Equal(t, []string{"fast", "fast", "slow", "fast"}, order)
}

func TestManualCallbackMayStopItself(t *testing.T) {
	m := NewManual(epoch)
	ticks := 0
	var timer Timer
	timer = m.Every(time.Second, func() {
		ticks++
		if ticks == 2 {
			timer.Stop()
		}
	})

	m.Advance(5 * time.Second)
	assert.Equal(t, 2, ticks)
}

func TestRealStopWaitsAndSilences(t *testing.T) {
	var ticks atomic.Int32
	timer := NewReal().Every(5*time.Millisecond, func() { ticks.Add(1) })
	time.Sleep(30 * time.Millisecond)
	timer.Stop()

	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestRealAfterStoppedNeverFires(t *testing.T) {
	var fired atomic.Bool
	timer := NewReal().After(50*time.Millisecond, func() { fired.Store(true) })
	timer.Stop()
	time.Sleep(80 * time.Millisecond)
	assert.False(t, fired.Load())
}
