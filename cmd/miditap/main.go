package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/awesome-gocui/gocui"
	"github.com/logrusorgru/aurora"

	"github.com/miditap/miditap/internal/pkg/display"
	"github.com/miditap/miditap/internal/pkg/engine"
	"github.com/miditap/miditap/internal/pkg/insight"
	"github.com/miditap/miditap/internal/pkg/logger"
	"github.com/miditap/miditap/internal/pkg/midi/driver"
	"github.com/miditap/miditap/internal/pkg/ring"
	"github.com/miditap/miditap/internal/pkg/utils"
)

var log = logger.GetLogger()

func handleSigs(wg *sync.WaitGroup, sigs <-chan os.Signal, cancel func(), server *http.Server, g *gocui.Gui) {
	defer wg.Done()
	var counter int
	for sig := range sigs {
		if counter > 0 {
			fmt.Println("Dirty exit")
			os.Exit(1)
		}
		log.Info(fmt.Sprintf("signal received: %v", sig), logger.Debug)
		cancel()
		if server != nil {
			err := server.Close()
			if err != nil {
				log.Info(fmt.Sprintf("failed to close server: %v", err), logger.Warning)
			}
		}
		if g != nil {
			g.Close()
		}
		counter++
	}
}

func runUI(cfg MiditapConfig, ui bool, sigs chan os.Signal) *gocui.Gui {
	var g *gocui.Gui
	if ui {
		var err error
		g, err = GetCli()
		if err != nil {
			panic(err)
		}

		go func() {
			if err := g.MainLoop(); err != nil {
				if err != gocui.ErrQuit {
					panic(err)
				}
				g.Close()
				sigs <- syscall.SIGINT // pretend that we received signal when exited from gui
			}
			g.Close()
		}()

		go func() {
			for {
				g.Update(Layout) // repaints are costly, pace them
				time.Sleep(cfg.Miditap.LogViewRate)
			}
		}()

		time.Sleep(time.Millisecond * 500) // waiting for view init
	}
	return g
}

func runProfileServer(wg *sync.WaitGroup) *http.Server {
	var server *http.Server
	if *profile {
		addr := "0.0.0.0:8080"
		log.Info(fmt.Sprintf("profiling enabled and hosted on %s", addr), logger.Info)
		server = &http.Server{Addr: addr, Handler: nil}
		wg.Add(1)
		go func() {
			log.Info(fmt.Sprintf("profiling server exited: %v", server.ListenAndServe()), logger.Info)
			wg.Done()
		}()
	}
	return server
}

var (
	profile  = flag.Bool("profile", false, "runs web server for performance profiling (go tool pprof)")
	ui       = flag.Bool("ui", false, "engage telemetry ui")
	force256 = flag.Bool("256", false, "force 256 color mode")
	nocolor  = flag.Bool("nocolor", false, "disable color")
	logLevel = flag.Int("loglevel", 3,
		"logging level, each level enables additional information class (0-3, default: 3)\n"+
			"more verbose levels may slightly impact overall performance, clock pulses in particular are spammy\n"+
			"\navailable options:\n"+
			"0: general info (source and port appearance status)\n"+
			"1: note, controller and expression events\n"+
			"2: clock pulses (24 per quarter note)\n"+
			"3: analysis findings",
	)
	midiDevice = flag.Int("mididevice", 0, "select N-th midi input port, default: 0 (first)")
	virtual    = flag.Bool("virtual", false, "expose a virtual midi input port and observe it")
	rawPorts   = flag.Bool("raw", false, "observe raw midi ports as they come and go")
	playFile   = flag.String("play", "", "observe playback of a standard midi file")
	playBPM    = flag.Int("bpm", 120, "playback tempo for -play")
	keysInput  = flag.Bool("keys", false, "observe the computer keyboard as a two-octave keybed")
	analyze    = flag.Bool("insight", false, "run statistical models over the stream")
	noSummary  = flag.Bool("nosummary", false, "skip the end-of-session summary")
	silent     = flag.Bool("silent", false, "no output logging, best performance")
)

func init() {
	flag.Parse()
	*logLevel += 2
}

func main() {
	if *force256 == true {
		os.Setenv("TERM", "xterm-256color")
	}
	err := createConfigDirectoryIfNeeded()
	if err != nil {
		panic(err)
	}

	var cfg = LoadMiditapConfig("./miditap-config/miditap.config")
	log.Info(fmt.Sprintf("miditap config: %+v", cfg), logger.Debug)

	var sigs = make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())

	g := runUI(cfg, *ui && !*silent, sigs)

	// this wait-group has to be propagated everywhere where usual logging appear
	wg := sync.WaitGroup{}

	server := runProfileServer(&wg)

	wg.Add(1)
	go handleSigs(&wg, sigs, cancel, server, g)

	themes := newThemeStore(loadThemes(cfg.Miditap.Theme))
	wg.Add(1)
	go watchThemes(ctx, &wg, cfg.Miditap.Theme, themes)

	taps, err := openTaps()
	if err != nil {
		log.Info(fmt.Sprintf("cannot prepare sources: %v", err), logger.Error)
		os.Exit(1)
	}
	if len(taps) == 0 && !*rawPorts {
		log.Info("no midi input ports available", logger.Error)
		os.Exit(1)
	}

	var tapFeed = make(chan driver.Tap, 8)
	merged := mergeTaps(ctx, tapFeed)

	// every reader has to be spawned before the first tap starts feeding
	spawner := utils.NewDynamicFanOut(merged)
	_, engineIn, err := spawner.SpawnOutput()
	if err != nil {
		panic(err)
	}

	var finalInsights <-chan []insight.Insight
	if *analyze {
		ictx, err := insight.NewContext(insight.PatternRecognition)
		if err != nil {
			panic(err)
		}
		_, insightIn, err := spawner.SpawnOutput()
		if err != nil {
			panic(err)
		}
		finalInsights = runInsight(ictx, insightIn)
	}

	for _, tap := range taps {
		tapFeed <- tap
	}
	if *rawPorts {
		wg.Add(1)
		go feedRawPorts(ctx, &wg, cfg.Miditap.DiscoveryRate, tapFeed)
	} else {
		close(tapFeed)
	}

	buf := ring.New(ringCapacity)

	var produced = make(chan struct{})
	wg.Add(1)
	go produce(&wg, produced, buf, engineIn)

	var snapshots = make(chan engine.Snapshot, 8)
	var final = make(chan engine.Snapshot, 1)
	wg.Add(1)
	go consume(&wg, buf, engine.New(), cfg.Miditap.SnapshotRate, snapshots, produced, final)

	snapTelemetry, snapDisplay := utils.FanOut(snapshots)

	wg.Add(1)
	dd := GenerateDisplayData(&wg, cfg.Screen, snapDisplay)
	dd1, dd2 := utils.FanOut(dd)

	if cfg.Screen.Enabled {
		wg.Add(1)
		go display.HandleDisplay(&wg, cfg.Screen, dd1)
	} else {
		go func() {
			for range dd1 {
			}
		}()
	}

	if *ui && !*silent {
		go logView(g, !*nocolor, *logLevel, cfg.Miditap.LogBufferSize)
		go telemetryView(g, !*nocolor, themes, snapTelemetry)
		go lcdView(g, dd2)
	} else {
		go func() {
			for range snapTelemetry {
			}
		}()
		go func() {
			for range dd2 {
			}
		}()
		go func() {
			if *silent {
				for range logger.Messages {
				}
			} else {
				fmt.Printf("for nicer output use -ui flag\n")
				au := aurora.NewAurora(!*nocolor)
				for data := range logger.Messages {
					msg, err := unpack(data)
					if err != nil {
						fmt.Printf("%s\n", string(data))
						continue
					}
					m := prepareString(msg, au, -1, *logLevel)
					if m != "" {
						fmt.Printf("%s\n", m)
					}
				}
			}
		}()
	}

	lastSnapshot := <-final

	log.Info("waiting...", logger.Debug)
	buf.Close()
	close(sigs)

	// closing logger can be safely invoked only when all internally running goroutines (that may emit logs) are done
	wg.Wait()
	close(logger.Messages)

	if !*noSummary {
		var results []insight.Insight
		if finalInsights != nil {
			results = <-finalInsights
		}
		printSummary(lastSnapshot, results)
	}
}
