package engine

import (
	"testing"

	"github.com/miditap/miditap/internal/pkg/midi"
	"github.com/stretchr/testify/assert"
)

func TestProcessRejectsBadInput(t *testing.T) {
	e := New()

	assert.ErrorIs(t, e.Process(nil, 0.1), ErrInvalidData)
	assert.ErrorIs(t, e.Process([]byte{}, 0.1), ErrInvalidData)
	assert.ErrorIs(t, e.Process(make([]byte, 1025), 0.1), ErrInvalidData)
	assert.ErrorIs(t, e.Process([]byte{0x90, 0x3c, 0x64}, -1.0), ErrInvalidData)

	snap := e.Snapshot()
	assert.Equal(t, uint64(4), snap.Events)
	assert.Equal(t, uint64(4), snap.Errors)
}

func TestProcessRoutesEveryChannel(t *testing.T) {
	e := New()

	for ch := uint8(0); ch < 16; ch++ {
		assert.NoError(t, e.Process([]byte{0x90 | ch, 60 + ch, 100}, float64(ch)))
	}

	active := e.Active()
	assert.Len(t, active, 16)
	assert.Equal(t, uint8(0), active[0].Channel)
	assert.Equal(t, uint8(15), active[15].Channel)
}

func TestProcessClockMessages(t *testing.T) {
	e := New()

	assert.NoError(t, e.Process([]byte{0xf8}, 1.0))
	assert.NoError(t, e.Process([]byte{0xf8}, 1.0+1.0/48.0))
	assert.Equal(t, 2, e.Clock().ClockCount)
	assert.InDelta(t, 12.0, e.Clock().CurrentBPM, 0.01)

	assert.NoError(t, e.Process([]byte{0xfa}, 2.0))
	assert.Equal(t, 0, e.Clock().ClockCount)

	// stop is accepted and ignored
	assert.NoError(t, e.Process([]byte{0xfc}, 3.0))
}

func TestProcessVelocityZeroIsNoteOff(t *testing.T) {
	e := New()

	assert.NoError(t, e.Process([]byte{0x91, 60, 100}, 1.0))
	assert.Len(t, e.Active(), 1)

	assert.NoError(t, e.Process([]byte{0x91, 60, 0}, 2.0))
	assert.Empty(t, e.Active())
	assert.Equal(t, 1, e.Stats().NoteCount)
}

func TestProcessMalformedVoiceMessages(t *testing.T) {
	e := New()

	testCases := []struct {
		name string
		data []byte
	}{
		{name: "note on missing velocity", data: []byte{0x90, 60}},
		{name: "note off missing velocity", data: []byte{0x80, 60}},
		{name: "note out of range", data: []byte{0x90, 128, 100}},
		{name: "cc missing value", data: []byte{0xb0, 74}},
		{name: "pitch bend missing msb", data: []byte{0xe0, 0x00}},
		{name: "channel pressure missing value", data: []byte{0xd0}},
		{name: "aftertouch missing value", data: []byte{0xa0, 60}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, e.Process(tc.data, 0.1), ErrInvalidData)
		})
	}

	// the stream keeps flowing afterwards
	assert.NoError(t, e.Process([]byte{0x90, 60, 100}, 1.0))
	assert.Len(t, e.Active(), 1)
}

func TestProcessIgnoresUnhandledMessages(t *testing.T) {
	e := New()

	assert.NoError(t, e.Process([]byte{0x3c}, 0.1))             // stray data byte
	assert.NoError(t, e.Process([]byte{0xfe}, 0.2))             // active sensing
	assert.NoError(t, e.Process([]byte{0xf2, 0x00, 0x10}, 0.3)) // song position
	assert.NoError(t, e.Process([]byte{0xc0, 12}, 0.4))         // program change

	snap := e.Snapshot()
	assert.Equal(t, uint64(4), snap.Events)
	assert.Equal(t, uint64(0), snap.Errors)
}

func TestProcessExpressionRouting(t *testing.T) {
	e := New()

	assert.NoError(t, e.Process([]byte{0x90, 60, 100}, 1.0))
	assert.NoError(t, e.Process([]byte{0x90, 64, 100}, 1.1))

	// full up bend, max brightness, channel pressure
	assert.NoError(t, e.Process([]byte{0xe0, 0x7f, 0x7f}, 1.2))
	assert.NoError(t, e.Process([]byte{0xb0, 74, 127}, 1.3))
	assert.NoError(t, e.Process([]byte{0xd0, 64}, 1.4))

	for _, note := range e.Active() {
		assert.InDelta(t, (16383.0-8192.0)/8192.0, note.PitchBend, 1e-9)
		assert.InDelta(t, 1.0, note.Timbre, 1e-9)
		assert.InDelta(t, 64.0/127.0, note.Pressure, 1e-9)
	}

	// polyphonic aftertouch targets exactly one note
	assert.NoError(t, e.Process([]byte{0xa0, 60, 127}, 1.5))
	active := e.Active()
	assert.InDelta(t, 1.0, active[0].Pressure, 1e-9)
	assert.InDelta(t, 64.0/127.0, active[1].Pressure, 1e-9)
}

func TestProcessControllerRouting(t *testing.T) {
	e := New()

	assert.NoError(t, e.Process([]byte{0xb2, 1, 64}, 1.0))
	assert.InDelta(t, 64.0/127.0, e.Controllers().Modulation[2], 1e-9)

	assert.NoError(t, e.Process([]byte{0xb0, 0x65, 0x00}, 1.1))
	assert.NoError(t, e.Process([]byte{0xb0, 0x64, 0x06}, 1.2))
	assert.Equal(t, uint16(6), e.Controllers().RPN(0))

	// expression rides the pressure dimension
	assert.NoError(t, e.Process([]byte{0x93, 60, 100}, 1.3))
	assert.NoError(t, e.Process([]byte{0xb3, 11, 127}, 1.4))
	assert.InDelta(t, 1.0, e.Active()[0].Pressure, 1e-9)
}

func TestProcessAllNotesOff(t *testing.T) {
	e := New()

	assert.NoError(t, e.Process([]byte{0x90, 60, 100}, 1.0))
	assert.NoError(t, e.Process([]byte{0x91, 64, 100}, 1.1))

	assert.NoError(t, e.Process([]byte{0xb0, 0x7b, 0x00}, 2.0))

	active := e.Active()
	assert.Len(t, active, 1)
	assert.Equal(t, uint8(1), active[0].Channel)
	assert.Equal(t, 1, e.Stats().NoteCount)

	// it also doubles as the handshake opener
	assert.Equal(t, StateAllNotesOff, e.Init().State())
}

func TestEnginesAreIsolated(t *testing.T) {
	a := New()
	b := New()

	assert.NoError(t, a.Process([]byte{0xb0, 0x63, 0x01}, 1.0))
	assert.NoError(t, a.Process([]byte{0xb0, 0x62, 0x02}, 1.1))
	assert.NoError(t, b.Process([]byte{0xb0, 0x63, 0x7f}, 1.0))

	assert.Equal(t, uint16(0x82), a.Controllers().NRPN(0))
	assert.Equal(t, uint16(0x7f<<7), b.Controllers().NRPN(0))
	assert.Equal(t, uint64(2), a.Snapshot().Events)
	assert.Equal(t, uint64(1), b.Snapshot().Events)
}

func TestSnapshot(t *testing.T) {
	e := New()

	assert.NoError(t, e.Process([]byte{0x90, 60, 100}, 1.0))
	assert.NoError(t, e.Process([]byte{0xf8}, 1.1))
	assert.NoError(t, e.Process(midi.McmSetZoneEvent(true, 7), 1.2))
	assert.Error(t, e.Process([]byte{0x90, 60}, 1.3))

	snap := e.Snapshot()
	assert.Equal(t, uint64(4), snap.Events)
	assert.Equal(t, uint64(1), snap.Errors)
	assert.Len(t, snap.Active, 1)
	assert.Len(t, snap.Zones, 1)
	assert.Equal(t, 1, snap.Clock.ClockCount)
	assert.Equal(t, 1, snap.Expression.ActiveNotes)
	assert.Equal(t, StateNotInitialized, snap.InitState)

	// mutating a snapshot leaves the engine alone
	snap.Active[0].Note = 0
	snap.Zones[0].MemberChannels[0] = 0
	assert.Equal(t, uint8(60), e.Active()[0].Note)
	assert.Equal(t, uint8(2), e.Zones().Table()[0].MemberChannels[0])
}
