package insight

import (
	"errors"
	"fmt"
)

// Capability identifies one analysis a model can provide.
type Capability int

const (
	PatternRecognition Capability = iota
	StyleClassification
	PerformanceAnalysis
)

func (c Capability) String() string {
	switch c {
	case PatternRecognition:
		return "pattern recognition"
	case StyleClassification:
		return "style classification"
	case PerformanceAnalysis:
		return "performance analysis"
	default:
		return "unknown"
	}
}

// ErrNotImplemented marks capabilities that have no model behind them
// yet.
var ErrNotImplemented = errors.New("not implemented")

// Insight is one finding a model extracted from the stream.
type Insight struct {
	Kind        Capability
	Description string
	Score       float64 // 0.0-1.0
}

// Model consumes raw MIDI messages and produces insights on demand.
// Models are not safe for concurrent use, the processing goroutine
// owns them.
type Model interface {
	ProcessEvent(data []byte, t float64)
	GenerateInsights() []Insight
}

// Load returns the model implementing a capability.
func Load(capability Capability) (Model, error) {
	switch capability {
	case PatternRecognition:
		return NewPatternModel(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, capability)
	}
}

// contextWindow is how many raw events are kept for replay into models
// that join mid-session.
const contextWindow = 1000

type rawEvent struct {
	data []byte
	t    float64
}

// Context owns the enabled models and a rolling window of raw events.
type Context struct {
	models []Model
	window []rawEvent
}

func NewContext(capabilities ...Capability) (*Context, error) {
	c := &Context{}
	for _, capability := range capabilities {
		model, err := Load(capability)
		if err != nil {
			return nil, err
		}
		c.models = append(c.models, model)
	}
	return c, nil
}

// ProcessEvent hands one message to every model and keeps a copy in
// the replay window.
func (c *Context) ProcessEvent(data []byte, t float64) {
	copied := append([]byte(nil), data...)

	c.window = append(c.window, rawEvent{copied, t})
	if len(c.window) > contextWindow {
		c.window = c.window[1:]
	}

	for _, model := range c.models {
		model.ProcessEvent(copied, t)
	}
}

// Attach adds a model mid-session, replaying the window into it first
// so it does not start blind.
func (c *Context) Attach(model Model) {
	for _, ev := range c.window {
		model.ProcessEvent(ev.data, ev.t)
	}
	c.models = append(c.models, model)
}

// GenerateInsights merges the findings of every model.
func (c *Context) GenerateInsights() []Insight {
	var insights []Insight
	for _, model := range c.models {
		insights = append(insights, model.GenerateInsights()...)
	}
	return insights
}
