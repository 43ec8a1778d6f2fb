package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// 24 clock pulses per quarter note at 120 BPM
const pulse = 1.0 / 48.0

func TestClockTempoEstimate(t *testing.T) {
	clock := NewClock()

	clock.Tick(0.5)
	clock.Tick(0.5 + pulse)
	clock.Tick(0.5 + 2*pulse)

	stats := clock.Stats()
	assert.Equal(t, 3, stats.ClockCount)
	// exponential smoothing climbing from a cold start, two measured
	// intervals in
	assert.InDelta(t, 22.8, stats.CurrentBPM, 0.01)
	assert.InDelta(t, 80.0, stats.AverageBPM, 0.01)
	assert.InDelta(t, 0.02576, stats.Jitter, 0.0005)
}

func TestClockConvergesOnSteadyTempo(t *testing.T) {
	clock := NewClock()

	for i := 0; i < 100; i++ {
		clock.Tick(1.0 + float64(i)*pulse)
	}

	stats := clock.Stats()
	assert.Equal(t, 100, stats.ClockCount)
	assert.InDelta(t, 120.0, stats.CurrentBPM, 0.1)
	// the running mean carries the interval-less first pulse forever
	assert.InDelta(t, 118.8, stats.AverageBPM, 0.01)
	assert.InDelta(t, 0.0, stats.Jitter, 0.001)
}

func TestClockFirstPulseMeasuresNothing(t *testing.T) {
	clock := NewClock()

	clock.Tick(3.0)

	stats := clock.Stats()
	assert.Equal(t, 1, stats.ClockCount)
	assert.Equal(t, 0.0, stats.CurrentBPM)
	assert.Equal(t, 0.0, stats.AverageBPM)
	assert.Equal(t, 3.0, stats.LastClockTime)
}

func TestClockStartResetsPulseCount(t *testing.T) {
	clock := NewClock()

	for i := 0; i < 10; i++ {
		clock.Tick(2.0 + float64(i)*pulse)
	}
	before := clock.Stats()
	assert.Equal(t, 10, before.ClockCount)
	assert.Greater(t, before.CurrentBPM, 0.0)

	clock.Start(5.0)

	stats := clock.Stats()
	assert.Equal(t, 0, stats.ClockCount)
	assert.Equal(t, before.CurrentBPM, stats.CurrentBPM)
	assert.Equal(t, before.AverageBPM, stats.AverageBPM)
	assert.Equal(t, before.Jitter, stats.Jitter)

	// the next pulse measures against the start timestamp
	clock.Tick(5.0 + pulse)
	after := clock.Stats()
	assert.Equal(t, 1, after.ClockCount)
	assert.InDelta(t, 120.0, after.AverageBPM, 0.01)
}
