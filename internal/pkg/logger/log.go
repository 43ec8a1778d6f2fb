package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Messages carries rendered log entries to whatever frontend is active,
// either plain stdout or the terminal UI.
var Messages = make(chan []byte, 128)

const (
	ErrorLvl    = 0
	WarningLvl  = 1
	InfoLvl     = 2
	EventLvl    = 3
	ClockLvl    = 4
	AnalysisLvl = 5

	DebugLvl = 378
)

var (
	Error    = zap.Int("level", ErrorLvl)
	Warning  = zap.Int("level", WarningLvl)
	Info     = zap.Int("level", InfoLvl)
	Event    = zap.Int("level", EventLvl)
	Clock    = zap.Int("level", ClockLvl)
	Analysis = zap.Int("level", AnalysisLvl)

	Debug = zap.Int("level", DebugLvl)
)

type chanWriter struct {
	sync.Mutex
	ws zapcore.WriteSyncer
}

func (w *chanWriter) Write(p []byte) (n int, err error) {
	w.Lock()
	var newSlice = make([]byte, len(p))
	copy(newSlice, p)
	Messages <- newSlice
	w.Unlock()
	return len(p), nil
}

func (w *chanWriter) Sync() error {
	w.Lock()
	err := w.ws.Sync()
	w.Unlock()
	return err
}

func GetLogger() *zap.Logger {
	writer := &chanWriter{}
	cfg := zap.NewProductionEncoderConfig()
	cfg.SkipLineEnding = true
	cfg.EncodeTime = zapcore.EpochNanosTimeEncoder
	cfg.LevelKey = ""
	encoder := zapcore.NewJSONEncoder(cfg)
	noSync := zapcore.Lock(writer)

	logger := zap.New(
		zapcore.NewCore(encoder, noSync, zap.DebugLevel),
		zap.AddCaller(),
	)

	return logger
}
