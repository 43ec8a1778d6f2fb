package engine

import "fmt"

// MpeZone is one of the two zones an MPE stream can carry. The master
// channel takes zone-wide messages, each member channel carries a
// single note. Channels are numbered 1-16 as in the MPE spec, one
// above the wire nibble.
type MpeZone struct {
	MasterChannel  uint8
	MemberChannels []uint8
	PitchBendRange float64 // semitones
	Active         bool
}

// Zones tracks the zone configuration announced on the observed
// stream.
type Zones struct {
	lower *MpeZone
	upper *MpeZone

	// the zone the last Set-Zone configured, an MCM Set-Bend-Range
	// carries no zone address and applies there
	lastLower bool
}

func NewZones() *Zones {
	return &Zones{}
}

// Configure activates a zone. Lower zone: master 1, members 2..N+1.
// Upper zone: master 16, members 16-N..15. Reconfiguring a zone
// overwrites it silently.
func (z *Zones) Configure(lower bool, memberCount int, bendRange float64) {
	zone := &MpeZone{
		PitchBendRange: bendRange,
		Active:         true,
	}

	if lower {
		zone.MasterChannel = 1
		for ch := 2; ch <= memberCount+1; ch++ {
			zone.MemberChannels = append(zone.MemberChannels, uint8(ch))
		}
		z.lower = zone
	} else {
		zone.MasterChannel = 16
		for ch := 16 - memberCount; ch <= 15; ch++ {
			zone.MemberChannels = append(zone.MemberChannels, uint8(ch))
		}
		z.upper = zone
	}
	z.lastLower = lower
}

// IsMpeChannel reports whether ch is a member channel of an active
// zone.
func (z *Zones) IsMpeChannel(ch uint8) bool {
	for _, zone := range []*MpeZone{z.lower, z.upper} {
		if zone == nil || !zone.Active {
			continue
		}
		for _, member := range zone.MemberChannels {
			if member == ch {
				return true
			}
		}
	}
	return false
}

func (z *Zones) IsMasterChannel(ch uint8) bool {
	for _, zone := range []*MpeZone{z.lower, z.upper} {
		if zone != nil && zone.Active && zone.MasterChannel == ch {
			return true
		}
	}
	return false
}

// BendRange returns the pitch bend range that applies to a channel,
// 2.0 semitones when the channel sits in neither zone.
func (z *Zones) BendRange(ch uint8) float64 {
	for _, zone := range []*MpeZone{z.lower, z.upper} {
		if zone == nil || !zone.Active {
			continue
		}
		if zone.MasterChannel == ch {
			return zone.PitchBendRange
		}
		for _, member := range zone.MemberChannels {
			if member == ch {
				return zone.PitchBendRange
			}
		}
	}
	return 2.0
}

// SetBendRange updates an already configured zone. Nothing happens for
// a zone that was never set up.
func (z *Zones) SetBendRange(lower bool, semitones float64) {
	if lower {
		if z.lower != nil {
			z.lower.PitchBendRange = semitones
		}
		return
	}
	if z.upper != nil {
		z.upper.PitchBendRange = semitones
	}
}

// setLastBendRange applies a bend range to the zone the most recent
// Set-Zone addressed.
func (z *Zones) setLastBendRange(semitones float64) {
	z.SetBendRange(z.lastLower, semitones)
}

// Validate checks that the two member sets do not overlap, naming the
// first overlapping channel. It never mutates anything.
func (z *Zones) Validate() error {
	if z.lower == nil || z.upper == nil {
		return nil
	}
	for _, l := range z.lower.MemberChannels {
		for _, u := range z.upper.MemberChannels {
			if l == u {
				return fmt.Errorf("%w: channel %d is in both zones", ErrInvalidData, l)
			}
		}
	}
	return nil
}

// Table returns copies of the configured zones for publication.
func (z *Zones) Table() []MpeZone {
	var zones []MpeZone
	for _, zone := range []*MpeZone{z.lower, z.upper} {
		if zone == nil {
			continue
		}
		copied := *zone
		copied.MemberChannels = append([]uint8(nil), zone.MemberChannels...)
		zones = append(zones, copied)
	}
	return zones
}
