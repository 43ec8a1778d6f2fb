package midi

import (
	"fmt"
	"os"
	"strings"
)

// DetectRawPorts lists raw kernel MIDI character devices under /dev/snd.
// The directory does not exist on every platform, the caller decides
// whether that is fatal.
func DetectRawPorts() ([]RawPort, error) {
	fd, err := os.Open("/dev/snd")
	if err != nil {
		return nil, fmt.Errorf("cannot open sound device directory: %w", err)
	}
	defer fd.Close()

	entries, err := fd.ReadDir(0)
	if err != nil {
		return nil, fmt.Errorf("cannot list sound devices: %w", err)
	}

	var ports = make([]RawPort, 0)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if strings.HasPrefix(entry.Name(), "midi") {
			ports = append(ports, RawPort{path: fmt.Sprintf("/dev/snd/%s", entry.Name())})
		}
	}

	return ports, nil
}

type RawPort struct {
	path string
}

func (p *RawPort) Path() string {
	return p.path
}

// Open opens the device read-only, a tap never writes back.
func (p *RawPort) Open() (*os.File, error) {
	return os.OpenFile(p.path, os.O_RDONLY, 0)
}
