package engine

import (
	"fmt"

	"github.com/miditap/miditap/internal/pkg/logger"
	"github.com/miditap/miditap/internal/pkg/midi"
)

var log = logger.GetLogger()

// MaxMessageSize bounds what Process accepts, matching the transport
// frame limit.
const MaxMessageSize = 1024

// Snapshot is the engine state publication handed from the processing
// goroutine to the presentation side. All of it is copied, the
// receiver may hold it as long as it likes.
type Snapshot struct {
	Clock      ClockStats
	Expression ExpressionStats
	Active     []NoteExpression
	Zones      []MpeZone
	InitState  InitState
	Events     uint64
	Errors     uint64
}

// Engine ties the decoder to the note tracker, zone table, init
// machine and clock estimator. It does no locking, exactly one
// goroutine owns an instance and serializes all calls on it.
type Engine struct {
	clock   *Clock
	tracker *Tracker
	zones   *Zones
	init    *InitTracker

	events uint64
	errors uint64
}

func New() *Engine {
	return &Engine{
		clock:   NewClock(),
		tracker: NewTracker(),
		zones:   NewZones(),
		init:    NewInitTracker(),
	}
}

// Process decodes one wire message stamped with t seconds and routes
// it to the interested components. It is the fault boundary of the
// pipeline: malformed input comes back wrapping ErrInvalidData, an
// internal fault is recovered and comes back wrapping ErrProcessing,
// and the engine stays usable for the next message either way.
func (e *Engine) Process(data []byte, t float64) (err error) {
	e.events++
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProcessing, r)
		}
		if err != nil {
			e.errors++
		}
	}()

	if len(data) == 0 {
		return fmt.Errorf("%w: empty message", ErrInvalidData)
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("%w: message of %d bytes exceeds limit", ErrInvalidData, len(data))
	}
	if t < 0 {
		return fmt.Errorf("%w: negative timestamp", ErrInvalidData)
	}

	status := data[0]

	switch status {
	case midi.TimingClock:
		e.clock.Tick(t)
		return nil
	case midi.Start:
		e.clock.Start(t)
		return nil
	case midi.Stop:
		return nil
	case midi.SysExStart:
		return e.processSysEx(data, t)
	}

	if status < 0x80 || status >= 0xf0 {
		return nil // stray data bytes and unhandled system messages pass through
	}

	channel := status & 0x0f

	switch status & 0xf0 {
	case midi.NoteOn:
		if len(data) < 3 {
			return fmt.Errorf("%w: incomplete note message", ErrInvalidData)
		}
		note, velocity := data[1], data[2]
		if note > 127 {
			return fmt.Errorf("%w: note %d out of range", ErrInvalidData, note)
		}
		if velocity == 0 {
			// a note on with velocity zero is a note off
			e.tracker.NoteOff(note, channel, t)
		} else {
			e.tracker.NoteOn(note, channel, velocity, t)
		}

	case midi.NoteOff:
		if len(data) < 3 {
			return fmt.Errorf("%w: incomplete note message", ErrInvalidData)
		}
		if data[1] > 127 {
			return fmt.Errorf("%w: note %d out of range", ErrInvalidData, data[1])
		}
		e.tracker.NoteOff(data[1], channel, t)

	case midi.PolyphonicKeyPressure:
		if len(data) < 3 {
			return fmt.Errorf("%w: incomplete aftertouch message", ErrInvalidData)
		}
		e.tracker.UpdatePressure(data[1], channel, float64(data[2])/127.0, t)

	case midi.ControlChange:
		if len(data) < 3 {
			return fmt.Errorf("%w: incomplete control change message", ErrInvalidData)
		}
		return e.processControlChange(channel, data[1], data[2], t)

	case midi.ChannelPressure:
		if len(data) < 2 {
			return fmt.Errorf("%w: incomplete channel pressure message", ErrInvalidData)
		}
		e.tracker.UpdateChannelPressure(channel, float64(data[1])/127.0, t)

	case midi.PitchWheelChange:
		if len(data) < 3 {
			return fmt.Errorf("%w: incomplete pitch bend message", ErrInvalidData)
		}
		combined := uint16(data[2])<<7 | uint16(data[1])
		e.tracker.UpdatePitchBend(channel, (float64(combined)-8192.0)/8192.0, t)
	}

	return nil
}

func (e *Engine) processControlChange(channel, controller, value uint8, t float64) error {
	switch controller {
	case midi.ModulationCC:
		e.tracker.SetModulation(channel, float64(value)/127.0, t)
	case midi.ExpressionCC:
		// expression rides the pressure dimension
		e.tracker.UpdateChannelPressure(channel, float64(value)/127.0, t)
	case midi.BrightnessCC:
		e.tracker.UpdateTimbre(channel, float64(value)/127.0, t)
	case midi.NRPNLSb, midi.NRPNMSb, midi.RPNLSb, midi.RPNMSb:
		e.tracker.Controllers().SetParameterSelect(controller, channel, value)
	case midi.AllNotesOff:
		e.tracker.ReleaseChannel(channel, t)
		return e.init.Process(midi.AllNotesOff, t)
	case midi.ResetAllControllers:
		return e.init.Process(midi.ResetAllControllers, t)
	}
	return nil
}

func (e *Engine) Clock() ClockStats {
	return e.clock.Stats()
}

func (e *Engine) Stats() ExpressionStats {
	return e.tracker.Stats()
}

func (e *Engine) Active() []NoteExpression {
	return e.tracker.Active()
}

func (e *Engine) Zones() *Zones {
	return e.zones
}

func (e *Engine) Init() *InitTracker {
	return e.init
}

func (e *Engine) Controllers() *ControllerState {
	return e.tracker.Controllers()
}

// Snapshot assembles the periodic state publication. Only the owning
// goroutine may call it.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Clock:      e.clock.Stats(),
		Expression: e.tracker.Stats(),
		Active:     e.tracker.Active(),
		Zones:      e.zones.Table(),
		InitState:  e.init.State(),
		Events:     e.events,
		Errors:     e.errors,
	}
}
