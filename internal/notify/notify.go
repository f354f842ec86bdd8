// Package notify delivers classified observations to output sinks.
package notify

import (
	"sync"

	"github.com/rs/zerolog"

	"quote-tracker/internal/logging"
	"quote-tracker/internal/models"
)

//go:generate mockgen -package=poller_test -destination=../poller/mock_sink_test.go -source=notify.go Sink

// Sink receives one call per classified observation.
// Implementations must be safe for concurrent use.
type Sink interface {
	Emit(obs models.Observation)
}

// MultiSink fans out observations to several sinks.
type MultiSink struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewMultiSink creates a MultiSink over sinks; nil entries are ignored.
func NewMultiSink(sinks ...Sink) *MultiSink {
	ms := &MultiSink{}
	for _, s := range sinks {
		ms.Add(s)
	}
	return ms
}

// Add registers another sink.
func (ms *MultiSink) Add(s Sink) {
	if s == nil {
		return
	}
	ms.mu.Lock()
	ms.sinks = append(ms.sinks, s)
	ms.mu.Unlock()
}

// Emit forwards obs to every registered sink in registration order.
func (ms *MultiSink) Emit(obs models.Observation) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	for _, s := range ms.sinks {
		s.Emit(obs)
	}
}

// LogSink writes observations as structured log events.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logging.WithComponent(logger, "sink")}
}

// Emit logs obs.
func (s *LogSink) Emit(obs models.Observation) {
	logging.LogObservation(s.logger, obs)
}

// NoOpSink discards observations.
type NoOpSink struct{}

// Emit does nothing.
func (NoOpSink) Emit(models.Observation) {}
