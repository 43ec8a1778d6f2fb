package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/miditap/miditap/internal/pkg/display"
	"github.com/miditap/miditap/internal/pkg/engine"
)

var blocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
var noteChar, heartChar = '♪', '❤'

// GenerateDisplayData renders hardware screen frames at the configured
// rate from whatever snapshot arrived last. It keeps consuming until
// the snapshot stream ends, then closes with a goodbye frame.
func GenerateDisplayData(
	wg *sync.WaitGroup, cfg display.ScreenConfig,
	snapshots <-chan engine.Snapshot,
) <-chan display.DisplayData {
	data := make(chan display.DisplayData)

	go func() {
		defer wg.Done()
		defer close(data)

		var snap engine.Snapshot
		var lastEvents uint64

		var graph [20]uint64
		var graphPointer int

		var buffer [4]string

		refresh := time.NewTicker(time.Duration(cfg.UpdateRate) * time.Second)
		defer refresh.Stop()

	root:
		for {
			select {
			case s, ok := <-snapshots:
				if !ok {
					break root
				}
				snap = s
				continue
			case <-refresh.C:
			}

			eventsPerFrame := snap.Events - lastEvents
			lastEvents = snap.Events

			graph[graphPointer] = eventsPerFrame
			if graphPointer < 19 {
				graphPointer++
			} else {
				graphPointer = 0
			}

			buffer[0] = fmt.Sprintf("tempo: %7.1f bpm", snap.Clock.CurrentBPM)
			buffer[1] = fmt.Sprintf("notes held: %8d", len(snap.Active))
			buffer[2] = fmt.Sprintf("events: %12d", eventsPerFrame)

			var maxGraph uint64
			for _, graphVal := range graph {
				if graphVal > maxGraph {
					maxGraph = graphVal
				}
			}
			if maxGraph < 8 {
				maxGraph = 8
			}

			buffer[3] = ""
			for i := 0; i < 20; i++ {
				index := (graphPointer + i) % 20
				graphVal := graph[index]
				if graphVal == 0 {
					buffer[3] += " "
					continue
				}
				realVal := float64(graphVal) / (float64(maxGraph) + 1) * 7
				buffer[3] += string(blocks[int(realVal)])
			}

			data <- display.DisplayData{
				Lines:   buffer,
				LastMsg: false,
			}
		}

		if !cfg.HaveExitMessage() {
			buffer[0] = "                    "
			buffer[1] = " thanks for playing "
			buffer[2] = fmt.Sprintf("   %s miditap %s     ", string(noteChar), string(heartChar))
			msg := fmt.Sprintf("(events: %d)", snap.Events)
			msgCenter := fmt.Sprintf("%*s", -20, fmt.Sprintf("%*s", (20+len(msg))/2, msg))
			buffer[3] = msgCenter
		} else {
			for i, msg := range cfg.ExitMessage {
				buffer[i] = fmt.Sprintf("%-20.20s", msg)
			}
		}

		data <- display.DisplayData{
			Lines:   buffer,
			LastMsg: true,
		}
	}()

	return data
}
