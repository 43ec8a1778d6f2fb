package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZonesConfigureLower(t *testing.T) {
	zones := NewZones()
	zones.Configure(true, 5, 48.0)

	table := zones.Table()
	assert.Len(t, table, 1)
	assert.Equal(t, uint8(1), table[0].MasterChannel)
	assert.Equal(t, []uint8{2, 3, 4, 5, 6}, table[0].MemberChannels)
	assert.Equal(t, 48.0, table[0].PitchBendRange)
	assert.True(t, table[0].Active)

	assert.True(t, zones.IsMasterChannel(1))
	assert.False(t, zones.IsMpeChannel(1))
	assert.True(t, zones.IsMpeChannel(2))
	assert.True(t, zones.IsMpeChannel(6))
	assert.False(t, zones.IsMpeChannel(7))
}

func TestZonesConfigureUpper(t *testing.T) {
	zones := NewZones()
	zones.Configure(false, 3, 48.0)

	table := zones.Table()
	assert.Len(t, table, 1)
	assert.Equal(t, uint8(16), table[0].MasterChannel)
	assert.Equal(t, []uint8{13, 14, 15}, table[0].MemberChannels)

	assert.True(t, zones.IsMasterChannel(16))
	assert.True(t, zones.IsMpeChannel(13))
	assert.False(t, zones.IsMpeChannel(12))
}

func TestZonesZeroMembers(t *testing.T) {
	zones := NewZones()
	zones.Configure(true, 0, 48.0)

	table := zones.Table()
	assert.Len(t, table, 1)
	assert.Empty(t, table[0].MemberChannels)
	assert.True(t, zones.IsMasterChannel(1))
	assert.False(t, zones.IsMpeChannel(2))
}

func TestZonesBendRange(t *testing.T) {
	zones := NewZones()
	assert.Equal(t, 2.0, zones.BendRange(5))

	zones.Configure(true, 5, 48.0)
	assert.Equal(t, 48.0, zones.BendRange(1))
	assert.Equal(t, 48.0, zones.BendRange(4))
	assert.Equal(t, 2.0, zones.BendRange(10))

	zones.SetBendRange(true, 12.0)
	assert.Equal(t, 12.0, zones.BendRange(4))

	// updating a zone that was never configured changes nothing
	zones.SetBendRange(false, 96.0)
	assert.Equal(t, 2.0, zones.BendRange(16))
}

func TestZonesValidateOverlap(t *testing.T) {
	zones := NewZones()
	zones.Configure(true, 10, 48.0) // members 2-11
	zones.Configure(false, 8, 48.0) // members 8-15

	err := zones.Validate()
	assert.ErrorIs(t, err, ErrInvalidData)
	assert.Contains(t, err.Error(), "channel 8")

	zones.Configure(false, 4, 48.0) // members 12-15
	assert.NoError(t, zones.Validate())
}

func TestZonesTableIsACopy(t *testing.T) {
	zones := NewZones()
	zones.Configure(true, 2, 48.0)

	table := zones.Table()
	table[0].MemberChannels[0] = 9
	table[0].PitchBendRange = 1.0

	assert.Equal(t, []uint8{2, 3}, zones.Table()[0].MemberChannels)
	assert.Equal(t, 48.0, zones.BendRange(2))
}
