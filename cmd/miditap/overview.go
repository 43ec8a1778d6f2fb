package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/awesome-gocui/gocui"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/logrusorgru/aurora"

	"github.com/miditap/miditap/internal/pkg/display"
	"github.com/miditap/miditap/internal/pkg/engine"
	"github.com/miditap/miditap/internal/pkg/logger"
	"github.com/miditap/miditap/internal/pkg/midi"
	"github.com/miditap/miditap/internal/pkg/theme"
)

// auroraIndex maps a profile color onto the 6x6x6 cell of the
// 256-color terminal cube.
func auroraIndex(c colorful.Color) uint8 {
	r := uint8(c.R*5 + 0.5)
	g := uint8(c.G*5 + 0.5)
	b := uint8(c.B*5 + 0.5)
	return 16 + 36*r + 6*g + b
}

func themed(au aurora.Aurora, c colorful.Color, v interface{}) aurora.Value {
	return au.Index(auroraIndex(c), v)
}

func renderTelemetry(au aurora.Aurora, profile theme.Profile, snap engine.Snapshot, width int) []string {
	var lines []string

	lines = append(lines, fmt.Sprintf(
		"tempo: %s bpm (avg %6.1f)  jitter: %5.2f ms  pulses: %d",
		themed(au, profile.Clock, fmt.Sprintf("%6.1f", snap.Clock.CurrentBPM)).String(),
		snap.Clock.AverageBPM,
		snap.Clock.Jitter*1000,
		snap.Clock.ClockCount,
	))

	held := fmt.Sprintf("notes: %2d held", len(snap.Active))
	if len(snap.Active) > 0 {
		var notes []string
		for _, n := range snap.Active {
			label := fmt.Sprintf("%s%d", midi.NoteToPitch(n.Note), midi.NoteToOctave(n.Note))
			notes = append(notes, themed(au, profile.VelocityColor(n.Velocity), label).String())
		}
		held += "  " + strings.Join(notes, " ")
	}
	if len(snap.Active) == 2 {
		held += fmt.Sprintf("  (%s)", midi.IntervalName(snap.Active[0].Note, snap.Active[1].Note))
	}
	lines = append(lines, held)

	expr := snap.Expression
	lines = append(lines, fmt.Sprintf(
		"played: %d notes  density: %4.1f/s  polyphony peak: %d  avg velocity: %.2f",
		expr.NoteCount, expr.NoteDensity, expr.Polyphony, expr.AverageVelocity,
	))

	if expr.Key != "" {
		lines = append(lines, fmt.Sprintf("key: %s  scale: %s", expr.Key, expr.Scale))
	}

	for _, zone := range snap.Zones {
		name := "upper"
		if zone.MasterChannel == 1 {
			name = "lower"
		}
		members := "no members"
		if len(zone.MemberChannels) > 0 {
			members = fmt.Sprintf(
				"members %d-%d",
				zone.MemberChannels[0], zone.MemberChannels[len(zone.MemberChannels)-1],
			)
		}
		lines = append(lines, fmt.Sprintf(
			"mpe %s zone: master %d, %s, bend range %.0f semitones",
			name, zone.MasterChannel, members, zone.PitchBendRange,
		))
	}
	lines = append(lines, fmt.Sprintf("mpe init: %s", snap.InitState))

	lines = append(lines, fmt.Sprintf("events: %d  rejected: %d", snap.Events, snap.Errors))

	for i, line := range lines {
		free := width - rawStringLen(line)
		if free < 0 {
			free = 0
		}
		lines[i] = line + strings.Repeat(" ", free)
	}
	return lines
}

func telemetryView(g *gocui.Gui, colors bool, themes *themeStore, snapshots <-chan engine.Snapshot) {
	view, err := g.View(ViewTelemetry)
	if err != nil {
		panic(err)
	}

	au := aurora.NewAurora(colors)

	for snap := range snapshots {
		x, y := view.Size()

		viewData := renderTelemetry(au, themes.Get(), snap, x)

		view.Rewind()
		for i := 0; i < y; i++ {
			if i > len(viewData)-1 {
				data := strings.Repeat(" ", x)
				view.Write([]byte(data))
				view.Write([]byte{'\n'})
				continue
			}

			view.Write([]byte(viewData[i]))
			view.Write([]byte{'\n'})
		}
	}
}

func logView(g *gocui.Gui, color bool, logLevel, bufSize int) {
	feeder, err := NewFeeder(g, ViewLogs, logLevel, aurora.NewAurora(color))
	if err != nil {
		panic(err)
	}

	buf := newLogBuffer(bufSize)

	var closed bool
	var newMessage = make(chan bool, 1)
	var sizeChange = make(chan bool, 1)

	go func() {
		// resizes need a full redraw too
		var lastX, lastY int
		for {
			if closed {
				close(sizeChange)
				return
			}
			x, y := feeder.view.Size()
			if x != lastX || y != lastY {
				newMessage <- true
				lastX = x
				lastY = y
			}
			time.Sleep(time.Millisecond * 100)
		}

	}()

	go func() {
		for msg := range logger.Messages {
			buf.WriteMessage(msg)
			select {
			case newMessage <- true:
			case <-time.After(time.Millisecond * 1):
				continue
			}

		}
		close(newMessage)
		closed = true
	}()

	for {
		select {
		case <-sizeChange:
		case <-newMessage:
		}
		if closed {
			break
		}
		feeder.view.Rewind()
		_, y := feeder.view.Size()
		lastMessages := buf.ReadLastMessages(y)
		for _, msg := range lastMessages {
			feeder.Write(msg)
		}
	}
}

func lcdView(g *gocui.Gui, dd <-chan display.DisplayData) {
	view, err := g.View(ViewLCD)
	if err != nil {
		panic(err)
	}

	for data := range dd {
		view.Rewind()
		for _, s := range data.Lines {
			view.Write([]byte(s))
			view.Write([]byte{'\n'})
		}
	}
}
