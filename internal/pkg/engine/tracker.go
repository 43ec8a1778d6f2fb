package engine

import (
	"sort"

	"github.com/miditap/miditap/internal/pkg/midi"
)

// NoteExpression is the live expression picture of one sounding note.
// Completed notes are archived with their final values.
type NoteExpression struct {
	Note    uint8
	Channel uint8

	Velocity  float64 // 0.0-1.0 from the initial note on
	PitchBend float64 // -1.0 to +1.0, 0.0 at center
	Pressure  float64 // 0.0-1.0
	Timbre    float64 // 0.0-1.0, 0.5 is neutral

	StartTime  float64
	LastUpdate float64
}

type noteKey struct {
	note    uint8
	channel uint8
}

// ControllerState keeps the per-channel controller registers of one
// engine instance, two instances never share these.
type ControllerState struct {
	Modulation [16]float64

	RPNMSb  [16]uint8
	RPNLSb  [16]uint8
	NRPNMSb [16]uint8
	NRPNLSb [16]uint8
}

// SetParameterSelect stores one of the RPN/NRPN address registers
// (CC 0x62-0x65).
func (c *ControllerState) SetParameterSelect(controller, channel, value uint8) {
	switch controller {
	case midi.NRPNLSb:
		c.NRPNLSb[channel] = value
	case midi.NRPNMSb:
		c.NRPNMSb[channel] = value
	case midi.RPNLSb:
		c.RPNLSb[channel] = value
	case midi.RPNMSb:
		c.RPNMSb[channel] = value
	}
}

// RPN returns the selected registered parameter number for a channel.
func (c *ControllerState) RPN(channel uint8) uint16 {
	return uint16(c.RPNMSb[channel])<<7 | uint16(c.RPNLSb[channel])
}

// NRPN returns the selected non-registered parameter number.
func (c *ControllerState) NRPN(channel uint8) uint16 {
	return uint16(c.NRPNMSb[channel])<<7 | uint16(c.NRPNLSb[channel])
}

// Tracker follows every sounding note together with its expression
// dimensions and archives completed notes for the statistics pass.
type Tracker struct {
	active      map[noteKey]*NoteExpression
	history     []NoteExpression
	controllers ControllerState
}

func NewTracker() *Tracker {
	return &Tracker{
		active: make(map[noteKey]*NoteExpression),
	}
}

// NoteOn starts tracking a note. Out-of-range values are dropped
// silently, malformed upstream data must not take the stream down. An
// already sounding (note, channel) pair is overwritten.
func (tr *Tracker) NoteOn(note, channel, velocity uint8, t float64) {
	if note > 127 || channel > 15 || velocity > 127 {
		return
	}

	tr.active[noteKey{note, channel}] = &NoteExpression{
		Note:       note,
		Channel:    channel,
		Velocity:   float64(velocity) / 127.0,
		Timbre:     0.5,
		StartTime:  t,
		LastUpdate: t,
	}
}

// NoteOff archives a sounding note. A note that was never on is a
// no-op.
func (tr *Tracker) NoteOff(note, channel uint8, t float64) {
	key := noteKey{note, channel}
	expr, ok := tr.active[key]
	if !ok {
		return
	}
	delete(tr.active, key)

	completed := *expr
	completed.LastUpdate = t
	tr.history = append(tr.history, completed)
}

// ReleaseChannel closes every active note on a channel, the effect of
// an All Notes Off message.
func (tr *Tracker) ReleaseChannel(channel uint8, t float64) {
	for key, expr := range tr.active {
		if key.channel != channel {
			continue
		}
		delete(tr.active, key)

		completed := *expr
		completed.LastUpdate = t
		tr.history = append(tr.history, completed)
	}
}

// UpdatePitchBend applies a bend to every note sounding on a channel.
// Per-note bends arrive on dedicated MPE member channels, so a channel
// broadcast is the per-note semantic.
func (tr *Tracker) UpdatePitchBend(channel uint8, value, t float64) {
	for _, expr := range tr.active {
		if expr.Channel == channel {
			expr.PitchBend = value
			expr.LastUpdate = t
		}
	}
}

// UpdateTimbre applies brightness (CC 74) to every note on a channel.
func (tr *Tracker) UpdateTimbre(channel uint8, value, t float64) {
	for _, expr := range tr.active {
		if expr.Channel == channel {
			expr.Timbre = value
			expr.LastUpdate = t
		}
	}
}

// UpdatePressure applies polyphonic aftertouch to exactly one note.
func (tr *Tracker) UpdatePressure(note, channel uint8, value, t float64) {
	if expr, ok := tr.active[noteKey{note, channel}]; ok {
		expr.Pressure = value
		expr.LastUpdate = t
	}
}

// UpdateChannelPressure applies channel aftertouch to every note on a
// channel.
func (tr *Tracker) UpdateChannelPressure(channel uint8, value, t float64) {
	for _, expr := range tr.active {
		if expr.Channel == channel {
			expr.Pressure = value
			expr.LastUpdate = t
		}
	}
}

// SetModulation records the channel modulation level. There is no
// per-note dimension for it, the value lives in the controller state.
func (tr *Tracker) SetModulation(channel uint8, value, t float64) {
	if channel > 15 {
		return
	}
	tr.controllers.Modulation[channel] = value
}

func (tr *Tracker) Controllers() *ControllerState {
	return &tr.controllers
}

// Active returns the sounding notes ordered by channel then note, a
// stable order for display.
func (tr *Tracker) Active() []NoteExpression {
	notes := make([]NoteExpression, 0, len(tr.active))
	for _, expr := range tr.active {
		notes = append(notes, *expr)
	}

	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Channel != notes[j].Channel {
			return notes[i].Channel < notes[j].Channel
		}
		return notes[i].Note < notes[j].Note
	})

	return notes
}

// History returns the archive of completed notes.
func (tr *Tracker) History() []NoteExpression {
	return tr.history
}
