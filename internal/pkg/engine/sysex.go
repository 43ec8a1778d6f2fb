package engine

import (
	"fmt"

	"github.com/miditap/miditap/internal/pkg/logger"
	"github.com/miditap/miditap/internal/pkg/midi"
)

// InitState is the position in the MPE initialization handshake.
type InitState int

const (
	StateNotInitialized InitState = iota
	StateAllNotesOff
	StateControllersReset
	StateZoneConfigured
	StateReady
)

func (s InitState) String() string {
	switch s {
	case StateNotInitialized:
		return "not initialized"
	case StateAllNotesOff:
		return "notes off"
	case StateControllersReset:
		return "controllers reset"
	case StateZoneConfigured:
		return "zone configured"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// initTimeout is how much event time may pass between handshake
// messages before the sequence is abandoned, in seconds.
const initTimeout = 1.0

// InitTracker follows the MPE initialization handshake: All Notes Off,
// Reset All Controllers, Set-Zone, Set-Bend-Range, strictly in that
// order. Timeouts run on event timestamps, not wall clock.
type InitTracker struct {
	state           InitState
	lastMessageTime float64
	timeout         float64
}

func NewInitTracker() *InitTracker {
	return &InitTracker{timeout: initTimeout}
}

// Process feeds one handshake-relevant message type, a CC number or an
// MCM command. Idle and completed machines ignore anything that does
// not open a handshake. Mid-handshake, a too-large event-time gap
// abandons the sequence with a timing error, and an out-of-order
// message is a processing error that leaves the state alone.
func (t *InitTracker) Process(messageType uint8, timestamp float64) error {
	if timestamp-t.lastMessageTime > t.timeout &&
		t.state != StateNotInitialized && t.state != StateReady {
		t.state = StateNotInitialized
		return fmt.Errorf("%w: mpe initialization timeout", ErrTiming)
	}

	t.lastMessageTime = timestamp

	switch {
	case t.state == StateNotInitialized && messageType == midi.AllNotesOff:
		t.state = StateAllNotesOff
	case t.state == StateAllNotesOff && messageType == midi.ResetAllControllers:
		t.state = StateControllersReset
	case t.state == StateControllersReset && messageType == midi.McmSetZone:
		t.state = StateZoneConfigured
	case t.state == StateZoneConfigured && messageType == midi.McmSetBendRange:
		t.state = StateReady
		log.Info("mpe initialization complete", logger.Info)
	case t.state == StateNotInitialized || t.state == StateReady:
		// nothing to do, only an opening All Notes Off matters here
	default:
		return fmt.Errorf("%w: unexpected mpe initialization message 0x%02x in state %q",
			ErrProcessing, messageType, t.state)
	}

	return nil
}

func (t *InitTracker) State() InitState {
	return t.state
}

// Initialized reports whether the handshake has completed.
func (t *InitTracker) Initialized() bool {
	return t.state == StateReady
}

// Reset puts the machine back to idle so a new handshake can be
// observed.
func (t *InitTracker) Reset() {
	t.state = StateNotInitialized
	t.lastMessageTime = 0
}

// processSysEx handles a complete 0xF0..0xF7 frame. Universal
// non-realtime frames carrying an MPE Configuration Message update the
// zone table and drive the init handshake, any other SysEx passes
// through untouched.
func (e *Engine) processSysEx(data []byte, t float64) error {
	if len(data) < 3 || data[0] != midi.SysExStart || data[len(data)-1] != midi.SysExEnd {
		return fmt.Errorf("%w: invalid sysex framing", ErrInvalidData)
	}

	if data[1] != midi.SysExNonRealtime {
		return nil // manufacturer specific, not ours to interpret
	}

	return e.processMcm(data[2:], t)
}

func (e *Engine) processMcm(data []byte, t float64) error {
	if len(data) < 3 {
		return fmt.Errorf("%w: mcm message too short", ErrInvalidData)
	}

	if data[0] != midi.SysExAllCall || data[1] != midi.SysExGeneralInfo {
		return nil // not an mpe configuration message
	}

	switch data[2] {
	case midi.McmSetZone:
		if len(data) < 4 {
			return fmt.Errorf("%w: zone configuration message too short", ErrInvalidData)
		}
		cfg := data[3]
		lower := cfg&0x10 == 0
		members := int(cfg & 0x0f)

		// 48 semitones until an explicit Set-Bend-Range arrives
		e.zones.Configure(lower, members, 48.0)

		name := "upper"
		if lower {
			name = "lower"
		}
		log.Info(fmt.Sprintf("mpe %s zone configured with %d member channels", name, members), logger.Info)

		return e.init.Process(midi.McmSetZone, t)

	case midi.McmSetBendRange:
		if len(data) < 5 {
			return fmt.Errorf("%w: bend range message too short", ErrInvalidData)
		}
		semitones := float64(uint16(data[3])<<7 | uint16(data[4]))
		e.zones.setLastBendRange(semitones)

		log.Info(fmt.Sprintf("mpe pitch bend range set to %.0f semitones", semitones), logger.Info)

		return e.init.Process(midi.McmSetBendRange, t)
	}

	log.Info(fmt.Sprintf("unhandled mcm message type 0x%02x", data[2]), logger.Debug)
	return nil
}
