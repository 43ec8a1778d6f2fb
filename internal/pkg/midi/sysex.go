package midi

// MPE Configuration Messages are universal non-realtime SysEx frames
// addressed to every receiver: F0 7E 7F 06 <command> <payload...> F7.
const (
	SysExNonRealtime uint8 = 0x7e // universal non-realtime id
	SysExAllCall     uint8 = 0x7f // device id addressing every receiver
	SysExGeneralInfo uint8 = 0x06 // general information sub-id

	McmSetZone      uint8 = 0x02
	McmSetBendRange uint8 = 0x03
)

// McmSetZoneEvent builds a zone configuration message. The member count
// lands in the low nibble of the payload byte, bit 4 selects the upper
// zone.
func McmSetZoneEvent(lowerZone bool, memberCount uint8) Event {
	cfg := memberCount & 0x0f
	if !lowerZone {
		cfg |= 0x10
	}
	return Event{SysExStart, SysExNonRealtime, SysExAllCall, SysExGeneralInfo, McmSetZone, cfg, SysExEnd}
}

// McmSetBendRangeEvent builds a pitch bend range message, the semitone
// count split over two 7-bit bytes, MSB first.
func McmSetBendRangeEvent(semitones uint16) Event {
	msb := uint8(semitones >> 7 & 0x7f)
	lsb := uint8(semitones & 0x7f)
	return Event{SysExStart, SysExNonRealtime, SysExAllCall, SysExGeneralInfo, McmSetBendRange, msb, lsb, SysExEnd}
}
