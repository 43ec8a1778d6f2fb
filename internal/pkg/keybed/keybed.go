package keybed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/holoplot/go-evdev"

	"github.com/miditap/miditap/internal/pkg/logger"
	"github.com/miditap/miditap/internal/pkg/midi"
)

var log = logger.GetLogger()

// deviceInfo is one block of /proc/bus/input/devices.
type deviceInfo struct {
	Name     string
	Handlers []string
}

// EventPath picks the /dev/input/eventX handler of the device, empty
// when it has none.
func (d *deviceInfo) EventPath() string {
	for _, h := range d.Handlers {
		if strings.HasPrefix(h, "event") {
			return "/dev/input/" + h
		}
	}
	return ""
}

// IsKeyboard reports whether the kernel attached its keyboard handler.
func (d *deviceInfo) IsKeyboard() bool {
	for _, h := range d.Handlers {
		if h == "kbd" {
			return true
		}
	}
	return false
}

// parseDevices reads the /proc/bus/input/devices format, blocks of
// labeled lines separated by blank lines.
func parseDevices(data []byte) []deviceInfo {
	var devices []deviceInfo
	var device deviceInfo
	var seen bool

	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			if seen {
				devices = append(devices, device)
				device = deviceInfo{}
				seen = false
			}
			continue
		}
		if len(line) < 3 {
			continue
		}
		seen = true

		info := line[3:]
		switch line[:1] {
		case "N":
			device.Name = strings.Trim(strings.TrimPrefix(info, "Name="), "\"")
		case "H":
			device.Handlers = strings.Fields(strings.TrimPrefix(info, "Handlers="))
		}
	}
	if seen {
		devices = append(devices, device)
	}

	return devices
}

// FindKeyboard returns the event device path of the first keyboard the
// kernel reports.
func FindKeyboard() (string, error) {
	data, err := os.ReadFile("/proc/bus/input/devices")
	if err != nil {
		return "", fmt.Errorf("listing input devices failed: %w", err)
	}

	for _, device := range parseDevices(data) {
		if !device.IsKeyboard() {
			continue
		}
		path := device.EventPath()
		if path == "" {
			continue
		}
		log.Info(fmt.Sprintf("keybed using %s (%s)", path, device.Name), logger.Info)
		return path, nil
	}

	return "", fmt.Errorf("no keyboard device found")
}

// the classic tracker layout, the Z row is the lower octave and the Q
// row the one above, starting at middle C
var keyToNote = map[evdev.EvCode]byte{
	evdev.KEY_Z:     midi.StringToNoteUnsafe("c3"),
	evdev.KEY_S:     midi.StringToNoteUnsafe("c#3"),
	evdev.KEY_X:     midi.StringToNoteUnsafe("d3"),
	evdev.KEY_D:     midi.StringToNoteUnsafe("d#3"),
	evdev.KEY_C:     midi.StringToNoteUnsafe("e3"),
	evdev.KEY_V:     midi.StringToNoteUnsafe("f3"),
	evdev.KEY_G:     midi.StringToNoteUnsafe("f#3"),
	evdev.KEY_B:     midi.StringToNoteUnsafe("g3"),
	evdev.KEY_H:     midi.StringToNoteUnsafe("g#3"),
	evdev.KEY_N:     midi.StringToNoteUnsafe("a3"),
	evdev.KEY_J:     midi.StringToNoteUnsafe("a#3"),
	evdev.KEY_M:     midi.StringToNoteUnsafe("b3"),
	evdev.KEY_COMMA: midi.StringToNoteUnsafe("c4"),

	evdev.KEY_Q: midi.StringToNoteUnsafe("c4"),
	evdev.KEY_2: midi.StringToNoteUnsafe("c#4"),
	evdev.KEY_W: midi.StringToNoteUnsafe("d4"),
	evdev.KEY_3: midi.StringToNoteUnsafe("d#4"),
	evdev.KEY_E: midi.StringToNoteUnsafe("e4"),
	evdev.KEY_R: midi.StringToNoteUnsafe("f4"),
	evdev.KEY_5: midi.StringToNoteUnsafe("f#4"),
	evdev.KEY_T: midi.StringToNoteUnsafe("g4"),
	evdev.KEY_6: midi.StringToNoteUnsafe("g#4"),
	evdev.KEY_Y: midi.StringToNoteUnsafe("a4"),
	evdev.KEY_7: midi.StringToNoteUnsafe("a#4"),
	evdev.KEY_U: midi.StringToNoteUnsafe("b4"),
	evdev.KEY_I: midi.StringToNoteUnsafe("c5"),
}

// memberChannels is how many member channels the announced demo zone
// carries.
const memberChannels = 7

const velocity = 100

// InitSequence is the MPE initialization handshake the keybed plays
// before its first note: All Notes Off, Reset All Controllers,
// Set-Zone, Set-Bend-Range.
func InitSequence() [][]byte {
	return [][]byte{
		midi.ControlChangeEvent(0, midi.AllNotesOff, 0),
		midi.ControlChangeEvent(0, midi.ResetAllControllers, 0),
		midi.McmSetZoneEvent(true, memberChannels),
		midi.McmSetBendRangeEvent(48),
	}
}

// Keybed turns the computer keyboard into a demo MIDI source speaking
// MPE, each held key sounding on its own member channel. It satisfies
// the same tap interface as the real drivers.
type Keybed struct {
	path string
	dev  *evdev.InputDevice
	c    chan []byte

	nextChannel uint8
	held        map[evdev.EvCode]uint8

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New() (*Keybed, error) {
	path, err := FindKeyboard()
	if err != nil {
		return nil, err
	}

	return &Keybed{
		path: path,
		c:    make(chan []byte, 16),
		held: make(map[evdev.EvCode]uint8),
	}, nil
}

func (k *Keybed) Name() string {
	return fmt.Sprintf("keybed (%s)", k.path)
}

func (k *Keybed) ReceiveChannel() <-chan []byte {
	return k.c
}

func (k *Keybed) Open() error {
	dev, err := evdev.Open(k.path)
	if err != nil {
		return fmt.Errorf("opening keyboard failed: %w", err)
	}
	k.dev = dev

	ctx, cancel := context.WithCancel(context.Background())
	k.cancel = cancel

	// closing the device is what unblocks ReadOne
	go func() {
		<-ctx.Done()
		err := dev.Close()
		if err != nil {
			log.Info(fmt.Sprintf("keyboard close failed: %v", err), logger.Debug)
		}
	}()

	k.wg.Add(1)
	go k.run()

	return nil
}

func (k *Keybed) run() {
	defer k.wg.Done()
	defer close(k.c)

	for _, message := range InitSequence() {
		k.c <- message
	}

	for {
		event, err := k.dev.ReadOne()
		if err != nil {
			break
		}

		if event.Type != evdev.EV_KEY || event.Value == 2 { // repeat
			continue
		}

		note, ok := keyToNote[event.Code]
		if !ok {
			continue
		}

		if event.Value == 1 {
			channel := 1 + k.nextChannel%memberChannels
			k.nextChannel++
			k.held[event.Code] = channel
			k.c <- midi.NoteEvent(midi.NoteOn, channel, note, velocity)
		} else {
			channel, ok := k.held[event.Code]
			if !ok {
				continue
			}
			delete(k.held, event.Code)
			k.c <- midi.NoteEvent(midi.NoteOff, channel, note, 0)
		}
	}
}

func (k *Keybed) Close() error {
	k.cancel()
	k.wg.Wait()
	return nil
}
