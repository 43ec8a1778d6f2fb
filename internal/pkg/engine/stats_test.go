package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsEmptyHistory(t *testing.T) {
	tracker := NewTracker()
	tracker.NoteOn(60, 0, 100, 1.0) // still sounding

	stats := tracker.Stats()
	assert.Equal(t, 0, stats.NoteCount)
	assert.Equal(t, 1, stats.ActiveNotes)
	assert.Equal(t, 1.0, stats.VelocityMin)
	assert.Equal(t, 0.0, stats.VelocityMax)
	assert.Equal(t, math.MaxFloat64, stats.ShortestNote)
	assert.Equal(t, "", stats.Scale)
	assert.Equal(t, "", stats.Key)
	assert.Equal(t, 0, stats.Polyphony)
}

func TestStatsVelocityAndDuration(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(60, 0, 127, 0.0)
	tracker.NoteOff(60, 0, 1.0)
	tracker.NoteOn(64, 0, 64, 1.0)
	tracker.NoteOff(64, 0, 1.5)

	stats := tracker.Stats()
	assert.Equal(t, 2, stats.NoteCount)
	assert.InDelta(t, (1.0+64.0/127.0)/2.0, stats.AverageVelocity, 1e-9)
	assert.InDelta(t, 64.0/127.0, stats.VelocityMin, 1e-9)
	assert.Equal(t, 1.0, stats.VelocityMax)
	assert.InDelta(t, 0.75, stats.AverageDuration, 1e-9)
	assert.Equal(t, 0.5, stats.ShortestNote)
	assert.Equal(t, 1.0, stats.LongestNote)
	assert.InDelta(t, 2.0/1.5, stats.NoteDensity, 1e-9)
	assert.Equal(t, 1, stats.VelocityHistogram[7])
	assert.Equal(t, 1, stats.VelocityHistogram[4])
}

func TestStatsPolyphonyCountsRetriggerOnce(t *testing.T) {
	tracker := NewTracker()

	// the same key struck again the instant it is released
	tracker.NoteOn(60, 0, 100, 1.0)
	tracker.NoteOff(60, 0, 2.0)
	tracker.NoteOn(60, 0, 100, 2.0)
	tracker.NoteOff(60, 0, 3.0)

	assert.Equal(t, 1, tracker.Stats().Polyphony)
}

func TestStatsPolyphonyOverlap(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(60, 0, 100, 1.0)
	tracker.NoteOn(64, 0, 100, 1.5)
	tracker.NoteOn(67, 0, 100, 1.6)
	tracker.NoteOff(60, 0, 2.0)
	tracker.NoteOff(64, 0, 2.1)
	tracker.NoteOff(67, 0, 2.2)

	assert.Equal(t, 3, tracker.Stats().Polyphony)
}

func TestStatsScaleDetection(t *testing.T) {
	tracker := NewTracker()

	// a plain C major line over one octave
	for i, note := range []uint8{60, 62, 64, 65, 67, 69, 71} {
		on := float64(i)
		tracker.NoteOn(note, 0, 100, on)
		tracker.NoteOff(note, 0, on+0.5)
	}

	stats := tracker.Stats()
	// the pattern matcher scores major and minor identically, so even
	// this reads as unknown
	assert.Equal(t, "Unknown", stats.Scale)
	assert.Equal(t, "C", stats.Key)
}

func TestStatsKeyFollowsDominantPitchClass(t *testing.T) {
	tracker := NewTracker()

	for i, note := range []uint8{57, 69, 81, 60} {
		on := float64(i)
		tracker.NoteOn(note, 0, 100, on)
		tracker.NoteOff(note, 0, on+0.5)
	}

	assert.Equal(t, "A", tracker.Stats().Key)
}

func TestStatsMaxPitchBend(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(60, 0, 100, 1.0)
	tracker.UpdatePitchBend(0, -0.75, 1.2)
	tracker.NoteOff(60, 0, 2.0)

	tracker.NoteOn(64, 0, 100, 3.0)
	tracker.UpdatePitchBend(0, 0.25, 3.2)
	tracker.NoteOff(64, 0, 4.0)

	// the bend magnitude counts, not its direction
	assert.InDelta(t, 0.75, tracker.Stats().MaxPitchBend, 1e-9)
}

func TestStatsZeroSpan(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(60, 0, 100, 1.0)
	tracker.NoteOff(60, 0, 1.0) // zero length note

	stats := tracker.Stats()
	assert.Equal(t, 0.0, stats.NoteDensity)
	assert.Equal(t, 0.0, stats.ShortestNote)
}
