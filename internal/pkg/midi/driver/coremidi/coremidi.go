//go:build darwin

package coremidi

import (
	"fmt"

	"github.com/miditap/miditap/internal/pkg/midi/driver"
	applemidi "github.com/youpy/go-coremidi"
)

// SourceTap observes a single CoreMIDI source through a dedicated
// input port.
type SourceTap struct {
	c      chan []byte
	client applemidi.Client
	source applemidi.Source
	conn   applemidi.PortConnection
	open   bool
}

func (t *SourceTap) Name() string {
	entity := t.source.Entity()
	return fmt.Sprintf("%s (%s)", t.source.Name(), entity.Manufacturer())
}

func (t *SourceTap) Open() error {
	port, err := applemidi.NewInputPort(t.client, "miditap", func(source applemidi.Source, packet applemidi.Packet) {
		if !t.open {
			return
		}
		data := make([]byte, len(packet.Data))
		copy(data, packet.Data)
		t.c <- data
	})
	if err != nil {
		return fmt.Errorf("failed to create input port: %w", err)
	}

	conn, err := port.Connect(t.source)
	if err != nil {
		return fmt.Errorf("failed to connect source: %w", err)
	}
	t.conn = conn
	t.open = true
	return nil
}

func (t *SourceTap) Close() error {
	t.open = false
	t.conn.Disconnect()
	close(t.c)
	return nil
}

func (t *SourceTap) ReceiveChannel() <-chan []byte {
	return t.c
}

// GetTaps returns a tap for every CoreMIDI source currently present.
func GetTaps() ([]driver.Tap, error) {
	client, err := applemidi.NewClient("miditap")
	if err != nil {
		return nil, fmt.Errorf("failed to create coremidi client: %w", err)
	}

	sources, err := applemidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("failed to list coremidi sources: %w", err)
	}

	var taps = make([]driver.Tap, 0, len(sources))
	for _, source := range sources {
		taps = append(taps, &SourceTap{
			c:      make(chan []byte, 16),
			client: client,
			source: source,
		})
	}

	return taps, nil
}

// PickTap returns a tap for the n-th (idx) source in system order.
func PickTap(idx int) (driver.Tap, error) {
	taps, err := GetTaps()
	if err != nil {
		return nil, err
	}

	if idx < 0 || idx+1 > len(taps) {
		return nil, fmt.Errorf("midi source ID %d doesn't exist", idx)
	}

	return taps[idx], nil
}
