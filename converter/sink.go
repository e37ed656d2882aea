package converter

import (
	"sync"

	"webpconv/logger"
	"webpconv/models"
)

// Sink receives progress events. Implementations may be called from a
// goroutine other than the one that started the run.
type Sink interface {
	Accept(models.ConversionProgress)
}

// SinkFunc adapts a plain function to Sink
type SinkFunc func(models.ConversionProgress)

func (f SinkFunc) Accept(p models.ConversionProgress) { f(p) }

type nopSink struct{}

func (nopSink) Accept(models.ConversionProgress) {}

// NopSink discards every event
var NopSink Sink = nopSink{}

// MultiSink fans each event out to every sink in order. A panicking sink
// does not stop the others from receiving the event.
type MultiSink []Sink

func (m MultiSink) Accept(p models.ConversionProgress) {
	for _, s := range m {
		if s != nil {
			deliver(s, p)
		}
	}
}

// Collector records events in arrival order and is safe for concurrent use
type Collector struct {
	mu     sync.Mutex
	events []models.ConversionProgress
}

func (c *Collector) Accept(p models.ConversionProgress) {
	c.mu.Lock()
	c.events = append(c.events, p)
	c.mu.Unlock()
}

// Events returns a copy of everything received so far
func (c *Collector) Events() []models.ConversionProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ConversionProgress, len(c.events))
	copy(out, c.events)
	return out
}

// ForFile returns the events reported for one input file
func (c *Collector) ForFile(inputName string) []models.ConversionProgress {
	var out []models.ConversionProgress
	for _, e := range c.Events() {
		if e.InputFileName == inputName {
			out = append(out, e)
		}
	}
	return out
}

// LogSink writes every event to the application log
var LogSink Sink = SinkFunc(func(p models.ConversionProgress) {
	switch p.State {
	case models.StateFailed:
		logger.Warnf("%s -> %s: %s - %s", p.InputFileName, p.OutputFileName, p.State, p.Message)
	default:
		logger.Debugf("%s -> %s: %s - %s", p.InputFileName, p.OutputFileName, p.State, p.Message)
	}
})

// deliver hands p to s, containing any panic so a broken sink cannot end the run
func deliver(s Sink, p models.ConversionProgress) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("progress sink panicked on %s (%s): %v", p.InputFileName, p.State, r)
		}
	}()
	s.Accept(p)
}
