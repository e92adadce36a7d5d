package diagnostics

import (
	"go.uber.org/zap"
)

type event struct {
	name   string
	fields map[string]any
}

// AsyncSink decouples the reply path from the underlying sink with a bounded
// buffer. When the buffer is full events are dropped, never queued against
// the caller.
type AsyncSink struct {
	inner  Sink
	events chan event
	done   chan struct{}
	logger *zap.Logger
}

// NewAsync starts the drain goroutine for an async sink wrapping inner.
func NewAsync(inner Sink, buffer int, logger *zap.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = 256
	}
	s := &AsyncSink{
		inner:  inner,
		events: make(chan event, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.drain()
	return s
}

// Record enqueues an event without blocking. A full buffer drops the event.
func (s *AsyncSink) Record(name string, fields map[string]any) {
	select {
	case s.events <- event{name: name, fields: fields}:
	default:
		s.logger.Debug("Diagnostics buffer full, event dropped", zap.String("event", name))
	}
}

// Close stops the drain goroutine after the queue empties.
func (s *AsyncSink) Close() {
	close(s.events)
	<-s.done
}

func (s *AsyncSink) drain() {
	defer close(s.done)
	for ev := range s.events {
		s.dispatch(ev)
	}
}

// dispatch shields the drain loop from a misbehaving inner sink.
func (s *AsyncSink) dispatch(ev event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Diagnostics sink panicked", zap.Any("panic", r))
		}
	}()
	s.inner.Record(ev.name, ev.fields)
}
