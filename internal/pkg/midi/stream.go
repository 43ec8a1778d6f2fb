package midi

// messageLen returns the full byte length of a message for a given
// status byte, 0 when the length is unknown (undefined status bytes).
func messageLen(status uint8) int {
	if status < 0xf0 {
		switch status & 0b11110000 {
		case NoteOff, NoteOn, PolyphonicKeyPressure, ControlChange, PitchWheelChange:
			return 3
		case ProgramChange, ChannelPressure:
			return 2
		}
		return 0
	}

	switch status {
	case MTCQuarterFrame, SongSelect:
		return 2
	case SongPosition:
		return 3
	case TuneRequest:
		return 1
	}
	return 0
}

// StreamParser reassembles complete messages from a raw byte stream as
// read from /dev/snd/midiC*D* character devices. Read chunks do not
// align with message boundaries, so partial state survives between
// Feed calls. Running status is honored for channel voice messages.
type StreamParser struct {
	pending []byte
	inSysEx bool
}

func NewStreamParser() *StreamParser {
	return &StreamParser{pending: make([]byte, 0, 8)}
}

// Feed consumes one chunk and returns every complete message found.
// Realtime bytes (0xf8 and above) may legally interleave with the bytes
// of another message and are emitted immediately on their own.
func (p *StreamParser) Feed(chunk []byte) []Event {
	var events []Event

	for _, b := range chunk {
		if b >= 0xf8 {
			events = append(events, Event{b})
			continue
		}

		if p.inSysEx {
			p.pending = append(p.pending, b)
			if b == SysExEnd {
				events = append(events, Event(p.pending))
				p.pending = make([]byte, 0, 8)
				p.inSysEx = false
			}
			continue
		}

		switch {
		case b == SysExStart:
			p.pending = append(p.pending[:0], b)
			p.inSysEx = true
			continue
		case b >= 0x80:
			p.pending = append(p.pending[:0], b)
		default:
			if len(p.pending) == 0 {
				continue // data byte without status context, nothing to attach it to
			}
			p.pending = append(p.pending, b)
		}

		if n := messageLen(p.pending[0]); n > 0 && len(p.pending) == n {
			event := make(Event, n)
			copy(event, p.pending)
			events = append(events, event)
			if p.pending[0] >= 0xf0 {
				p.pending = p.pending[:0]
			} else {
				p.pending = p.pending[:1] // keep status for running status
			}
		}
	}

	return events
}
