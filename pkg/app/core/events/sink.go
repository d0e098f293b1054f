package events

import (
	"sync"

	"go.uber.org/zap"
)

// Nop drops every event.
type Nop struct{}

func (Nop) Emit(Event) {}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of what has been recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans an event out to several sinks in order.
type Multi []Sink

func (m Multi) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// LogSink writes every event to the logger at debug level.
type LogSink struct {
	log *zap.SugaredLogger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("events").Sugar()}
}

func (s *LogSink) Emit(ev Event) {
	s.log.Debugw(ev.Type().String(), "event", ev)
}
