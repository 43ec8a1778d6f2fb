package engine

import (
	"testing"

	"github.com/miditap/miditap/internal/pkg/midi"
	"github.com/stretchr/testify/assert"
)

func TestTrackerNoteLifecycle(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(60, 0, 100, 1.0)
	active := tracker.Active()
	assert.Len(t, active, 1)
	assert.Equal(t, uint8(60), active[0].Note)
	assert.InDelta(t, 100.0/127.0, active[0].Velocity, 1e-9)
	assert.Equal(t, 0.5, active[0].Timbre)
	assert.Equal(t, 0.0, active[0].PitchBend)
	assert.Equal(t, 0.0, active[0].Pressure)
	assert.Equal(t, 1.0, active[0].StartTime)

	tracker.NoteOff(60, 0, 2.5)
	assert.Empty(t, tracker.Active())

	history := tracker.History()
	assert.Len(t, history, 1)
	assert.Equal(t, 1.0, history[0].StartTime)
	assert.Equal(t, 2.5, history[0].LastUpdate)
}

func TestTrackerRetriggerOverwrites(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(60, 0, 100, 1.0)
	tracker.NoteOn(60, 0, 50, 2.0)

	active := tracker.Active()
	assert.Len(t, active, 1)
	assert.InDelta(t, 50.0/127.0, active[0].Velocity, 1e-9)
	assert.Equal(t, 2.0, active[0].StartTime)
	// the first press is simply gone, it never reaches the history
	assert.Empty(t, tracker.History())
}

func TestTrackerOutOfRangeDropped(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(128, 0, 100, 1.0)
	tracker.NoteOn(60, 16, 100, 1.0)
	tracker.NoteOn(60, 0, 128, 1.0)
	assert.Empty(t, tracker.Active())

	tracker.NoteOff(72, 3, 1.0) // never was on
	assert.Empty(t, tracker.History())
}

func TestTrackerChannelBroadcasts(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(60, 1, 100, 1.0)
	tracker.NoteOn(64, 1, 100, 1.0)
	tracker.NoteOn(67, 2, 100, 1.0)

	tracker.UpdatePitchBend(1, 0.25, 1.5)
	tracker.UpdateTimbre(1, 0.8, 1.6)
	tracker.UpdateChannelPressure(2, 0.9, 1.7)

	for _, note := range tracker.Active() {
		switch note.Channel {
		case 1:
			assert.Equal(t, 0.25, note.PitchBend)
			assert.Equal(t, 0.8, note.Timbre)
			assert.Equal(t, 0.0, note.Pressure)
		case 2:
			assert.Equal(t, 0.0, note.PitchBend)
			assert.Equal(t, 0.5, note.Timbre)
			assert.Equal(t, 0.9, note.Pressure)
		}
	}
}

func TestTrackerPolyphonicPressure(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(60, 0, 100, 1.0)
	tracker.NoteOn(64, 0, 100, 1.0)

	tracker.UpdatePressure(60, 0, 0.7, 1.5)

	active := tracker.Active()
	assert.Equal(t, 0.7, active[0].Pressure)
	assert.Equal(t, 0.0, active[1].Pressure)

	// pressure for a silent note goes nowhere
	tracker.UpdatePressure(72, 0, 0.7, 1.6)
	assert.Len(t, tracker.Active(), 2)
}

func TestTrackerExpressionArchived(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(60, 3, 100, 1.0)
	tracker.UpdatePitchBend(3, -0.5, 1.2)
	tracker.UpdatePressure(60, 3, 0.6, 1.3)
	tracker.NoteOff(60, 3, 2.0)

	history := tracker.History()
	assert.Len(t, history, 1)
	assert.Equal(t, -0.5, history[0].PitchBend)
	assert.Equal(t, 0.6, history[0].Pressure)
	assert.Equal(t, 2.0, history[0].LastUpdate)
}

func TestTrackerReleaseChannel(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(60, 1, 100, 1.0)
	tracker.NoteOn(64, 1, 100, 1.0)
	tracker.NoteOn(67, 2, 100, 1.0)

	tracker.ReleaseChannel(1, 3.0)

	active := tracker.Active()
	assert.Len(t, active, 1)
	assert.Equal(t, uint8(2), active[0].Channel)

	history := tracker.History()
	assert.Len(t, history, 2)
	for _, note := range history {
		assert.Equal(t, uint8(1), note.Channel)
		assert.Equal(t, 3.0, note.LastUpdate)
	}
}

func TestTrackerActiveOrder(t *testing.T) {
	tracker := NewTracker()

	tracker.NoteOn(72, 2, 100, 1.0)
	tracker.NoteOn(60, 1, 100, 1.1)
	tracker.NoteOn(48, 2, 100, 1.2)

	active := tracker.Active()
	assert.Equal(t, uint8(60), active[0].Note)
	assert.Equal(t, uint8(48), active[1].Note)
	assert.Equal(t, uint8(72), active[2].Note)
}

func TestTrackerControllerState(t *testing.T) {
	tracker := NewTracker()

	tracker.SetModulation(4, 0.5, 1.0)
	assert.Equal(t, 0.5, tracker.Controllers().Modulation[4])
	assert.Equal(t, 0.0, tracker.Controllers().Modulation[5])

	ctrl := tracker.Controllers()
	ctrl.SetParameterSelect(midi.RPNMSb, 0, 0x00)
	ctrl.SetParameterSelect(midi.RPNLSb, 0, 0x06)
	assert.Equal(t, uint16(6), ctrl.RPN(0))

	ctrl.SetParameterSelect(midi.NRPNMSb, 2, 0x01)
	ctrl.SetParameterSelect(midi.NRPNLSb, 2, 0x20)
	assert.Equal(t, uint16(0xa0), ctrl.NRPN(2))
}
