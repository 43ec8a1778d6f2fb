package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	mmidi "github.com/moutend/go-midi"
	mmidiev "github.com/moutend/go-midi/event"

	"github.com/miditap/miditap/internal/pkg/logger"
	"github.com/miditap/miditap/internal/pkg/midi"
)

// Player replays a standard MIDI file into the observed stream, the
// source of choice when no live device is around.
type Player struct {
	name string
	data []byte
	bpm  int

	enabledNotes map[uint8]uint8

	c      chan []byte
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPlayer(path string, bpm int) (*Player, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read midi file: %w", err)
	}

	// surface unreadable files before playback starts
	if _, err := mmidi.NewParser(data).Parse(); err != nil {
		return nil, fmt.Errorf("cannot parse midi file: %w", err)
	}

	return &Player{
		name:         fmt.Sprintf("player (%s)", path),
		data:         data,
		bpm:          bpm,
		enabledNotes: make(map[uint8]uint8),
		c:            make(chan []byte, 16),
	}, nil
}

func (p *Player) Name() string {
	return p.name
}

func (p *Player) ReceiveChannel() <-chan []byte {
	return p.c
}

func (p *Player) Open() error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(ctx)

	return nil
}

func (p *Player) run(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.c)

	parser := mmidi.NewParser(p.data)
	parsed, err := parser.Parse()
	if err != nil {
		panic(err)
	}

root:
	for _, track := range parsed.Tracks {
		for _, event := range track.Events {
			dt := time.Duration(event.DeltaTime().Quantity().Uint32()) * time.Second / time.Duration(p.bpm) / 2
			select {
			case <-time.After(dt):
				break
			case <-ctx.Done():
				break root
			}

			switch v := event.(type) {
			case *mmidiev.NoteOnEvent:
				p.enabledNotes[uint8(v.Note())] = v.Channel()
				p.c <- v.Serialize()
			case *mmidiev.NoteOffEvent:
				delete(p.enabledNotes, uint8(v.Note()))
				p.c <- v.Serialize()
			}
		}
	}

	// leave no note hanging when the file ends or playback is cut short
	for n, ch := range p.enabledNotes {
		p.c <- midi.NoteEvent(midi.NoteOff, ch, n, 0)
	}

	log.Info("playback finished", logger.Info)
}

func (p *Player) Close() error {
	p.cancel()
	p.wg.Wait()
	return nil
}
