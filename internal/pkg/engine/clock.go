package engine

import "math"

// ClockStats is the tempo picture derived from realtime clock pulses,
// 24 of them per quarter note.
type ClockStats struct {
	CurrentBPM    float64 // EWMA smoothed
	AverageBPM    float64 // running mean over every pulse seen
	Jitter        float64 // EWMA of |interval - expected|, seconds
	ClockCount    int
	LastClockTime float64
}

// Clock estimates tempo and timing stability of the observed stream.
type Clock struct {
	stats ClockStats
}

func NewClock() *Clock {
	return &Clock{}
}

// Tick registers one 0xF8 pulse at timestamp t (seconds).
func (c *Clock) Tick(t float64) {
	c.stats.ClockCount++

	if c.stats.LastClockTime > 0 {
		interval := t - c.stats.LastClockTime

		instant := 60.0 / (interval * 24.0)

		c.stats.CurrentBPM = c.stats.CurrentBPM*0.9 + instant*0.1
		c.stats.AverageBPM = (c.stats.AverageBPM*(float64(c.stats.ClockCount)-1.0) + instant) /
			float64(c.stats.ClockCount)

		// the expected interval comes from the already smoothed tempo
		expected := 60.0 / (c.stats.CurrentBPM * 24.0)
		c.stats.Jitter = c.stats.Jitter*0.9 + math.Abs(interval-expected)*0.1
	}

	c.stats.LastClockTime = t
}

// Start handles a 0xFA message. Pulse counting starts over, the tempo
// and jitter estimates survive.
func (c *Clock) Start(t float64) {
	c.stats.ClockCount = 0
	c.stats.LastClockTime = t
}

func (c *Clock) Stats() ClockStats {
	return c.stats
}
