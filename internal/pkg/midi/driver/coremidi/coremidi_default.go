//go:build !darwin

package coremidi

import (
	"errors"

	"github.com/miditap/miditap/internal/pkg/midi/driver"
)

func GetTaps() ([]driver.Tap, error) {
	return nil, errors.New("coremidi not supported on this platform")
}

func PickTap(idx int) (driver.Tap, error) {
	return nil, errors.New("coremidi not supported on this platform")
}
