package main

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/miditap/miditap/internal/pkg/engine"
	"github.com/miditap/miditap/internal/pkg/insight"
	"github.com/miditap/miditap/internal/pkg/keybed"
	"github.com/miditap/miditap/internal/pkg/logger"
	"github.com/miditap/miditap/internal/pkg/midi"
	"github.com/miditap/miditap/internal/pkg/midi/driver"
	"github.com/miditap/miditap/internal/pkg/midi/driver/coremidi"
	"github.com/miditap/miditap/internal/pkg/midi/driver/rawmidi"
	"github.com/miditap/miditap/internal/pkg/midi/driver/rtmidi"
	"github.com/miditap/miditap/internal/pkg/ring"
	"github.com/miditap/miditap/internal/pkg/theme"
)

// ringCapacity leaves room for a few thousand frames between a burst
// on the wire and the engine catching up.
const ringCapacity = 64 * 1024

// idlePoll paces the consumer when the ring runs dry.
const idlePoll = time.Millisecond

// themeStore hands the active color profile between the reload
// watcher and the views.
type themeStore struct {
	mutex   sync.Mutex
	profile theme.Profile
}

func newThemeStore(p theme.Profile) *themeStore {
	return &themeStore{profile: p}
}

func (s *themeStore) Set(p theme.Profile) {
	s.mutex.Lock()
	s.profile = p
	s.mutex.Unlock()
}

func (s *themeStore) Get() theme.Profile {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.profile
}

func loadThemes(name string) theme.Profile {
	profiles, err := theme.LoadDirectory(themesDir)
	if err != nil {
		log.Info(fmt.Sprintf("theme load failed: %v", err), logger.Warning)
		return theme.Default()
	}

	p, ok := profiles[name]
	if !ok {
		log.Info(fmt.Sprintf("theme \"%s\" not found, using the built-in default", name), logger.Warning)
		return theme.Default()
	}
	return p
}

// watchThemes keeps the active profile current while its file is
// edited.
func watchThemes(ctx context.Context, wg *sync.WaitGroup, name string, themes *themeStore) {
	defer wg.Done()

	for range theme.DetectChanges(ctx, themesDir) {
		profiles, err := theme.LoadDirectory(themesDir)
		if err != nil {
			log.Info(fmt.Sprintf("theme reload failed: %v", err), logger.Warning)
			continue
		}
		p, ok := profiles[name]
		if !ok {
			log.Info(fmt.Sprintf("theme \"%s\" vanished, keeping the previous colors", name), logger.Warning)
			continue
		}
		themes.Set(p)
		log.Info("theme reloaded", zap.String("theme", name), logger.Info)
	}
}

// openTaps assembles the observed sources from the flags. Tap handles
// come back unopened, the merge loop opens them.
func openTaps() ([]driver.Tap, error) {
	var taps []driver.Tap

	if *keysInput {
		k, err := keybed.New()
		if err != nil {
			return nil, fmt.Errorf("keybed source: %w", err)
		}
		taps = append(taps, k)
	}

	if *virtual {
		tap, err := rtmidi.CreateVirtualTap("miditap")
		if err != nil {
			return nil, fmt.Errorf("virtual source: %w", err)
		}
		taps = append(taps, tap)
	}

	if *playFile != "" {
		player, err := NewPlayer(*playFile, *playBPM)
		if err != nil {
			return nil, fmt.Errorf("player source: %w", err)
		}
		taps = append(taps, player)
	}

	if len(taps) > 0 || *rawPorts {
		return taps, nil
	}

	// nothing picked explicitly, observe a system input port
	if runtime.GOOS == "darwin" {
		tap, err := coremidi.PickTap(*midiDevice)
		if err != nil {
			return nil, err
		}
		return []driver.Tap{tap}, nil
	}

	tap, err := rtmidi.PickTap(*midiDevice)
	if err != nil {
		return nil, err
	}
	return []driver.Tap{tap}, nil
}

// feedRawPorts forwards hot-plugged raw ports into the tap feed and
// owns closing it.
func feedRawPorts(ctx context.Context, wg *sync.WaitGroup, rate time.Duration, taps chan<- driver.Tap) {
	defer wg.Done()
	defer close(taps)

	for tap := range rawmidi.MonitorPorts(ctx, rate) {
		select {
		case taps <- tap:
		case <-ctx.Done():
		}
	}
}

// mergeTaps opens every tap that arrives and pumps all of them into
// one record stream, stamping capture time and source name on the way
// in. The stream closes once ctx is done and every source has been
// shut down.
func mergeTaps(ctx context.Context, taps <-chan driver.Tap) <-chan ring.Record {
	var merged = make(chan ring.Record, 64)

	go func() {
		defer close(merged)

		var wg sync.WaitGroup
		var opened []driver.Tap

	root:
		for {
			select {
			case <-ctx.Done():
				break root
			case tap, ok := <-taps:
				if !ok {
					// no more sources will arrive, keep the open ones running
					<-ctx.Done()
					break root
				}

				err := tap.Open()
				if err != nil {
					log.Info(fmt.Sprintf("cannot open source: %v", err), logger.Warning)
					continue
				}
				opened = append(opened, tap)
				log.Info("source opened", zap.String("device_name", tap.Name()), logger.Info)

				wg.Add(1)
				go func(t driver.Tap) {
					defer wg.Done()
					name := t.Name()
					for data := range t.ReceiveChannel() {
						merged <- ring.Record{Data: data, Timestamp: ring.Now(), Device: name}
					}
					log.Info("source drained", zap.String("device_name", name), logger.Debug)
				}(tap)
			}
		}

		for _, tap := range opened {
			err := tap.Close()
			if err != nil {
				log.Info(fmt.Sprintf("source close failed: %v", err), zap.String("device_name", tap.Name()), logger.Warning)
			}
		}
		wg.Wait()
	}()

	return merged
}

// produce is the writing side of the ring. A full ring means the
// consumer fell behind a sustained burst, records are dropped rather
// than stalling the sources.
func produce(wg *sync.WaitGroup, produced chan<- struct{}, buf *ring.Buffer, records <-chan ring.Record) {
	defer wg.Done()
	defer close(produced)

	var dropped uint64
	for rec := range records {
		if buf.Write(rec) {
			continue
		}
		dropped++
		if dropped == 1 || dropped%1000 == 0 {
			log.Info(fmt.Sprintf("transport full, %d records dropped so far", dropped), logger.Warning)
		}
	}
}

func processRecord(e *engine.Engine, rec ring.Record) {
	err := e.Process(rec.Data, float64(rec.Timestamp)/1e6)
	if err != nil {
		log.Info(fmt.Sprintf("engine rejected message: %v", err), zap.String("device_name", rec.Device), logger.Warning)
		return
	}

	level := logger.Event
	if rec.Data[0] >= 0xf8 {
		level = logger.Clock
	}
	log.Info(midi.Event(rec.Data).String(), zap.String("device_name", rec.Device), level)
}

// consume is the reading side of the ring and the only goroutine
// touching the engine. It publishes snapshots at the given rate and,
// after the producer finishes and the ring drains, hands the final
// state over and closes the snapshot stream.
func consume(
	wg *sync.WaitGroup, buf *ring.Buffer, e *engine.Engine, rate time.Duration,
	snapshots chan<- engine.Snapshot, produced <-chan struct{}, final chan<- engine.Snapshot,
) {
	defer wg.Done()
	defer close(snapshots)

	publish := time.NewTicker(rate)
	defer publish.Stop()

	for {
		rec, ok := buf.Read()
		if !ok {
			select {
			case <-produced:
				// take what squeezed in between the empty read and now
				for {
					rec, ok := buf.Read()
					if !ok {
						break
					}
					processRecord(e, rec)
				}
				last := e.Snapshot()
				snapshots <- last
				final <- last
				return
			case <-publish.C:
				snapshots <- e.Snapshot()
			case <-time.After(idlePoll):
			}
			continue
		}

		processRecord(e, rec)

		select {
		case <-publish.C:
			snapshots <- e.Snapshot()
		default:
		}
	}
}

// runInsight owns the statistical models, reporting findings to the
// log as they firm up. The final set comes back on the returned
// channel once the stream ends.
func runInsight(ictx *insight.Context, records <-chan ring.Record) <-chan []insight.Insight {
	var final = make(chan []insight.Insight, 1)

	go func() {
		defer close(final)

		report := time.NewTicker(time.Second * 10)
		defer report.Stop()

		var reported = make(map[string]bool)

		for {
			select {
			case rec, ok := <-records:
				if !ok {
					final <- ictx.GenerateInsights()
					return
				}
				ictx.ProcessEvent(rec.Data, float64(rec.Timestamp)/1e6)
			case <-report.C:
				for _, ins := range ictx.GenerateInsights() {
					if reported[ins.Description] {
						continue
					}
					reported[ins.Description] = true
					log.Info(fmt.Sprintf("%s: %s (significance %.1f)", ins.Kind, ins.Description, ins.Score), logger.Analysis)
				}
			}
		}
	}()

	return final
}

func printSummary(snap engine.Snapshot, insights []insight.Insight) {
	expr := snap.Expression

	fmt.Printf("\nsession summary\n")
	fmt.Printf("  events:    %d observed, %d rejected\n", snap.Events, snap.Errors)
	fmt.Printf("  notes:     %d played, polyphony peak %d\n", expr.NoteCount, expr.Polyphony)
	if expr.NoteCount > 0 {
		fmt.Printf("  velocity:  %.2f average (%.2f-%.2f)\n", expr.AverageVelocity, expr.VelocityMin, expr.VelocityMax)
		fmt.Printf("  duration:  %.2fs average, %.1f notes/s\n", expr.AverageDuration, expr.NoteDensity)
	}
	if expr.Key != "" {
		line := fmt.Sprintf("  key:       %s", expr.Key)
		if expr.Scale != "" && expr.Scale != "Unknown" {
			line += " " + strings.ToLower(expr.Scale)
		}
		fmt.Printf("%s\n", line)
	}
	if snap.Clock.ClockCount > 0 {
		fmt.Printf("  tempo:     %.1f bpm average, %.2f ms jitter\n", snap.Clock.AverageBPM, snap.Clock.Jitter*1000)
	}
	for _, ins := range insights {
		fmt.Printf("  insight:   %s (significance %.1f)\n", ins.Description, ins.Score)
	}
}
