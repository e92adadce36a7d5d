// Package diagnostics provides the fire-and-forget event sink the synthesis
// pipeline reports state transitions to. Sink failures never reach the reply
// path.
package diagnostics

import (
	"go.uber.org/zap"
)

// Sink receives pipeline events. Record must never block for long and must
// never panic into the caller.
type Sink interface {
	Record(event string, fields map[string]any)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Record(string, map[string]any) {}

// ZapSink writes events to a structured logger.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Record(event string, fields map[string]any) {
	s.logger.Info("pipeline event",
		zap.String("event", event),
		zap.Any("payload", fields))
}
