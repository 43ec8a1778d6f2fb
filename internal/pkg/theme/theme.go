package theme

import (
	"bytes"
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/miditap/miditap/internal/pkg/midi"
)

type TOMLProfile struct {
	Name   string `toml:"name"`
	Colors struct {
		NoteOn        string `toml:"note_on"`
		NoteOff       string `toml:"note_off"`
		ControlChange string `toml:"control_change"`
		PitchBend     string `toml:"pitch_bend"`
		Pressure      string `toml:"pressure"`
		Clock         string `toml:"clock"`
		SysEx         string `toml:"sysex"`
		Other         string `toml:"other"`
	} `toml:"colors"`
	VelocityGradient struct {
		Low  string `toml:"low"`
		High string `toml:"high"`
	} `toml:"velocity_gradient"`
}

// YAMLProfile is the legacy profile format, kept readable so old theme
// collections survive.
type YAMLProfile struct {
	Name   string `yaml:"name"`
	Colors struct {
		NoteOn        string `yaml:"note_on"`
		NoteOff       string `yaml:"note_off"`
		ControlChange string `yaml:"control_change"`
		PitchBend     string `yaml:"pitch_bend"`
		Pressure      string `yaml:"pressure"`
		Clock         string `yaml:"clock"`
		SysEx         string `yaml:"sysex"`
		Other         string `yaml:"other"`
	} `yaml:"colors"`
	VelocityGradient struct {
		Low  string `yaml:"low"`
		High string `yaml:"high"`
	} `yaml:"velocity_gradient"`
}

// Profile is a ready to use color scheme for event rendering.
type Profile struct {
	Name string

	NoteOn        colorful.Color
	NoteOff       colorful.Color
	ControlChange colorful.Color
	PitchBend     colorful.Color
	Pressure      colorful.Color
	Clock         colorful.Color
	SysEx         colorful.Color
	Other         colorful.Color

	gradientLow  colorful.Color
	gradientHigh colorful.Color
}

// VelocityColor blends the gradient endpoints by velocity (0.0-1.0).
func (p *Profile) VelocityColor(velocity float64) colorful.Color {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 1 {
		velocity = 1
	}
	return p.gradientLow.BlendLuv(p.gradientHigh, velocity)
}

// ColorFor picks the profile color for a raw status byte.
func (p *Profile) ColorFor(status uint8) colorful.Color {
	switch status {
	case midi.TimingClock, midi.Start, midi.Continue, midi.Stop:
		return p.Clock
	case midi.SysExStart:
		return p.SysEx
	}
	if status >= 0xf0 {
		return p.Other
	}

	switch status & 0xf0 {
	case midi.NoteOn:
		return p.NoteOn
	case midi.NoteOff:
		return p.NoteOff
	case midi.ControlChange:
		return p.ControlChange
	case midi.PitchWheelChange:
		return p.PitchBend
	case midi.PolyphonicKeyPressure, midi.ChannelPressure:
		return p.Pressure
	}
	return p.Other
}

// ParseTOML reads one profile, rejecting unknown keys so typos in
// hand-edited themes surface instead of silently doing nothing.
func ParseTOML(data []byte) (Profile, error) {
	cfg := TOMLProfile{}

	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()

	if err := d.Decode(&cfg); err != nil {
		return Profile{}, fmt.Errorf("parsing toml failed: %w", err)
	}

	return buildProfile(cfg)
}

// ParseYAML reads the legacy yaml profile format.
func ParseYAML(data []byte) (Profile, error) {
	cfg := YAMLProfile{}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Profile{}, fmt.Errorf("parsing yaml failed: %w", err)
	}

	return buildProfile(TOMLProfile(cfg))
}

func buildProfile(cfg TOMLProfile) (Profile, error) {
	p := Profile{Name: cfg.Name}

	for _, field := range []struct {
		section string
		name    string
		value   string
		dst     *colorful.Color
	}{
		{"colors", "note_on", cfg.Colors.NoteOn, &p.NoteOn},
		{"colors", "note_off", cfg.Colors.NoteOff, &p.NoteOff},
		{"colors", "control_change", cfg.Colors.ControlChange, &p.ControlChange},
		{"colors", "pitch_bend", cfg.Colors.PitchBend, &p.PitchBend},
		{"colors", "pressure", cfg.Colors.Pressure, &p.Pressure},
		{"colors", "clock", cfg.Colors.Clock, &p.Clock},
		{"colors", "sysex", cfg.Colors.SysEx, &p.SysEx},
		{"colors", "other", cfg.Colors.Other, &p.Other},
		{"velocity_gradient", "low", cfg.VelocityGradient.Low, &p.gradientLow},
		{"velocity_gradient", "high", cfg.VelocityGradient.High, &p.gradientHigh},
	} {
		if field.value == "" {
			return Profile{}, fmt.Errorf("[%s] %s: color value missing", field.section, field.name)
		}
		color, err := colorful.Hex(field.value)
		if err != nil {
			return Profile{}, fmt.Errorf("[%s] %s: %v", field.section, field.name, err)
		}
		*field.dst = color
	}

	return p, nil
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Default is the scheme used when no profile is configured or loading
// fails.
func Default() Profile {
	return Profile{
		Name:          "default",
		NoteOn:        mustHex("#5bce5b"),
		NoteOff:       mustHex("#3d6e3d"),
		ControlChange: mustHex("#d7a65b"),
		PitchBend:     mustHex("#5ba8d7"),
		Pressure:      mustHex("#c75bd7"),
		Clock:         mustHex("#7a7a7a"),
		SysEx:         mustHex("#d7d75b"),
		Other:         mustHex("#9e9e9e"),
		gradientLow:   mustHex("#3d6e8e"),
		gradientHigh:  mustHex("#e05b5b"),
	}
}
