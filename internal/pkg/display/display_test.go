package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceCharsForDisplay(t *testing.T) {
	assert.Equal(t, string([]byte{0, 3, 7}), replaceCharsForDisplay("▁▄█"))
	assert.Equal(t, "bpm: 120.0", replaceCharsForDisplay("bpm: 120.0"))
	assert.Equal(t, " "+string([]byte{0}), replaceCharsForDisplay(" ❤"))
}

func TestHaveExitMessage(t *testing.T) {
	cfg := ScreenConfig{}
	assert.False(t, cfg.HaveExitMessage())

	cfg.ExitMessage[2] = "bye"
	assert.True(t, cfg.HaveExitMessage())
}
