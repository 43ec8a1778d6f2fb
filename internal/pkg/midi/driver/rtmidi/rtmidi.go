package rtmidi

import (
	"fmt"

	"github.com/miditap/miditap/internal/pkg/midi/driver"
	gomidi "gitlab.com/gomidi/midi/v2"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
)

type TapFromDriver struct {
	c        chan []byte
	port     drivers.In
	stopFunc func()
}

func (t *TapFromDriver) Name() string {
	return t.port.String()
}

func (t *TapFromDriver) Open() error {
	err := t.port.Open()
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}

	stopFn, err := t.port.Listen(func(msg []byte, milliseconds int32) {
		t.c <- msg
	}, drivers.ListenConfig{
		TimeCode:        true,
		ActiveSense:     true,
		SysEx:           true,
		SysExBufferSize: 0,
		OnErr:           func(err error) {},
	})

	if err != nil {
		return fmt.Errorf("failed to listen on port: %w", err)
	}
	t.stopFunc = stopFn
	return nil
}

func (t *TapFromDriver) Close() error {
	t.stopFunc()
	close(t.c)
	return t.port.Close()
}

func (t *TapFromDriver) ReceiveChannel() <-chan []byte {
	return t.c
}

func NewTapFromDriver(in drivers.In) driver.Tap {
	return &TapFromDriver{
		c:    make(chan []byte, 16),
		port: in,
	}
}

// CreateVirtualTap opens a virtual input port that other software can
// route into, for observing a DAW or a soft synth with no hardware
// in between.
func CreateVirtualTap(name string) (driver.Tap, error) {
	d := drivers.Get()
	if d == nil {
		return nil, fmt.Errorf("failed to get driver")
	}

	rtmidid, ok := d.(*rtmididrv.Driver)
	if !ok {
		return nil, fmt.Errorf("failed to convert driver")
	}

	in, err := rtmidid.OpenVirtualIn(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open virtual input: %v", err)
	}

	return NewTapFromDriver(in), nil
}

func GetTaps() []driver.Tap {
	inPorts := gomidi.GetInPorts()

	var taps = make([]driver.Tap, 0, len(inPorts))
	for _, port := range inPorts {
		taps = append(taps, NewTapFromDriver(port))
	}

	return taps
}

// PickTap returns a tap for the n-th (idx) input port in system order.
func PickTap(idx int) (driver.Tap, error) {
	taps := GetTaps()

	if idx < 0 || idx+1 > len(taps) {
		return nil, fmt.Errorf("midi port ID %d doesn't exist", idx)
	}

	return taps[idx], nil
}
