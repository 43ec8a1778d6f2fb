package rawmidi

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/miditap/miditap/internal/pkg/logger"
	"github.com/miditap/miditap/internal/pkg/midi"
	"github.com/miditap/miditap/internal/pkg/midi/driver"
)

var log = logger.GetLogger()

// PortTap observes one raw kernel MIDI character device. Read chunks
// come straight off the wire with no framing, a stream parser
// reassembles complete messages before they go out.
type PortTap struct {
	c    chan []byte
	port midi.RawPort

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (t *PortTap) Name() string {
	return t.port.Path()
}

func (t *PortTap) Open() error {
	fd, err := t.port.Open()
	if err != nil {
		return fmt.Errorf("failed to open raw port: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	// closing the descriptor is what unblocks Read
	go func() {
		<-ctx.Done()
		err := fd.Close()
		if err != nil {
			log.Info(fmt.Sprintf("raw port close failed: %v", err), logger.Debug)
		}
	}()

	t.wg.Add(1)
	go t.run(fd)

	return nil
}

func (t *PortTap) run(fd *os.File) {
	defer t.wg.Done()
	defer close(t.c)

	parser := midi.NewStreamParser()
	var chunk = make([]byte, 256)

	for {
		n, err := fd.Read(chunk)
		if err != nil {
			return
		}
		for _, event := range parser.Feed(chunk[:n]) {
			t.c <- event
		}
	}
}

func (t *PortTap) Close() error {
	t.cancel()
	t.wg.Wait()
	return nil
}

func (t *PortTap) ReceiveChannel() <-chan []byte {
	return t.c
}

func NewPortTap(port midi.RawPort) driver.Tap {
	return &PortTap{
		c:    make(chan []byte, 16),
		port: port,
	}
}

// GetTaps returns a tap for every /dev/snd/midi* device present right
// now.
func GetTaps() ([]driver.Tap, error) {
	ports, err := midi.DetectRawPorts()
	if err != nil {
		return nil, err
	}

	var taps = make([]driver.Tap, 0, len(ports))
	for _, port := range ports {
		taps = append(taps, NewPortTap(port))
	}

	return taps, nil
}

// MonitorPorts delivers a tap for every raw port, the ones present at
// start and every one that appears later. Ports are rescanned at the
// given rate until ctx is done. A port that vanishes and comes back is
// delivered again as a fresh tap.
func MonitorPorts(ctx context.Context, rate time.Duration) <-chan driver.Tap {
	var taps = make(chan driver.Tap)

	go func() {
		defer close(taps)

		var tracked = make(map[string]bool)

	root:
		for {
			ports, err := midi.DetectRawPorts()
			if err != nil {
				log.Info(fmt.Sprintf("raw port scan failed: %v", err), logger.Warning)
			}

			var current = make(map[string]bool, len(ports))
			for _, port := range ports {
				current[port.Path()] = true
			}

			for path := range tracked {
				if !current[path] {
					log.Info(fmt.Sprintf("raw port gone: %s", path), logger.Info)
					delete(tracked, path)
				}
			}

			for _, port := range ports {
				if tracked[port.Path()] {
					continue
				}
				tracked[port.Path()] = true
				log.Info(fmt.Sprintf("raw port found: %s", port.Path()), logger.Info)

				select {
				case taps <- NewPortTap(port):
				case <-ctx.Done():
					break root
				}
			}

			select {
			case <-ctx.Done():
				break root
			case <-time.After(rate):
			}
		}
	}()

	return taps
}
