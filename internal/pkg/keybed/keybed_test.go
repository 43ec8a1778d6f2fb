package keybed

import (
	"testing"

	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
)

const procDevices = `I: Bus=0011 Vendor=0001 Product=0001 Version=ab41
N: Name="AT Translated Set 2 keyboard"
P: Phys=isa0060/serio0/input0
S: Sysfs=/devices/platform/i8042/serio0/input/input1
U: Uniq=
H: Handlers=sysrq kbd event1 leds
B: PROP=0

I: Bus=0003 Vendor=046d Product=c077 Version=0111
N: Name="Logitech USB Optical Mouse"
P: Phys=usb-0000:00:14.0-2/input0
S: Sysfs=/devices/pci0000:00/usb1/input/input5
U: Uniq=
H: Handlers=mouse0 event3
B: PROP=0
`

func TestParseDevices(t *testing.T) {
	devices := parseDevices([]byte(procDevices))
	assert.Len(t, devices, 2)

	assert.Equal(t, "AT Translated Set 2 keyboard", devices[0].Name)
	assert.True(t, devices[0].IsKeyboard())
	assert.Equal(t, "/dev/input/event1", devices[0].EventPath())

	assert.Equal(t, "Logitech USB Optical Mouse", devices[1].Name)
	assert.False(t, devices[1].IsKeyboard())
	assert.Equal(t, "/dev/input/event3", devices[1].EventPath())
}

func TestParseDevicesEmpty(t *testing.T) {
	assert.Empty(t, parseDevices(nil))
	assert.Empty(t, parseDevices([]byte("\n\n")))
}

func TestKeyLayout(t *testing.T) {
	// the Z row starts at middle C, the Q row one octave above
	assert.Equal(t, byte(60), keyToNote[evdev.KEY_Z])
	assert.Equal(t, byte(72), keyToNote[evdev.KEY_Q])
	assert.Equal(t, byte(72), keyToNote[evdev.KEY_COMMA])
	assert.Equal(t, byte(84), keyToNote[evdev.KEY_I])
}

func TestInitSequence(t *testing.T) {
	sequence := InitSequence()
	assert.Len(t, sequence, 4)

	assert.Equal(t, []byte{0xb0, 0x7b, 0x00}, sequence[0])
	assert.Equal(t, []byte{0xb0, 0x79, 0x00}, sequence[1])
	assert.Equal(t, []byte{0xf0, 0x7e, 0x7f, 0x06, 0x02, 0x07, 0xf7}, sequence[2])
	assert.Equal(t, []byte{0xf0, 0x7e, 0x7f, 0x06, 0x03, 0x00, 0x30, 0xf7}, sequence[3])
}
