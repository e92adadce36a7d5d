package synthesis

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"replygate/diagnostics"
	apperrors "replygate/errors"
	"replygate/gateway"
	"replygate/web/types"
)

// DegradedReply is the fixed degradation sentence sent when the deadline
// fires before the pipeline finishes, or when the pipeline faults.
const DegradedReply = "service is currently slow, please try again"

// ResponseGate is the single-assignment flag guarding the one and only reply
// emission for a request. First writer wins; later writers observe the gate
// already set and no-op.
type ResponseGate struct {
	set atomic.Bool
}

// TrySet claims the gate. It returns true for exactly one caller per request.
func (g *ResponseGate) TrySet() bool {
	return g.set.CompareAndSwap(false, true)
}

// Set reports whether the gate has been claimed.
func (g *ResponseGate) Set() bool {
	return g.set.Load()
}

// Reply is the emitted result of one guarded request.
type Reply struct {
	Text     string
	Strategy string
	Status   string
}

// Racer resolves a request into a race result. *Coordinator is the production
// implementation.
type Racer interface {
	Race(ctx context.Context, req Request) RaceResult
}

// Guard races the coordinator-plus-finalizer pipeline against a wall-clock
// deadline measured from request arrival, and owns the single-emission
// guarantee for the outbound reply.
type Guard struct {
	coord     Racer
	finalizer *Finalizer
	sender    gateway.Sender
	diag      diagnostics.Sink
	deadline  time.Duration
	logger    *zap.Logger
}

// NewGuard creates a deadline guard around the given pipeline.
func NewGuard(coord Racer, finalizer *Finalizer, sender gateway.Sender, diag diagnostics.Sink, deadline time.Duration, logger *zap.Logger) *Guard {
	return &Guard{
		coord:     coord,
		finalizer: finalizer,
		sender:    sender,
		diag:      diag,
		deadline:  deadline,
		logger:    logger,
	}
}

// remaining is how much of the deadline window is left for this request. A
// request with no arrival stamp gets the full window.
func (g *Guard) remaining(req Request) time.Duration {
	if req.ArrivedAt.IsZero() {
		return g.deadline
	}
	left := g.deadline - time.Since(req.ArrivedAt)
	if left < 0 {
		return 0
	}
	return left
}

type pipelineResult struct {
	answer   FinalAnswer
	panicked bool
}

// Answer runs the full pipeline for one request and emits exactly one reply:
// the finalized answer if the pipeline beats the deadline, the fixed
// degradation sentence otherwise. A pipeline finishing after the deadline is
// still computed for diagnostics but never emitted.
func (g *Guard) Answer(ctx context.Context, req Request) Reply {
	gate := &ResponseGate{}
	results := make(chan pipelineResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.logger.Error("Synthesis pipeline panicked",
					zap.String("request_id", req.ID),
					zap.Any("panic", r))
				results <- pipelineResult{panicked: true}
			}
		}()
		race := g.coord.Race(ctx, req)
		results <- pipelineResult{answer: g.finalizer.Finalize(race)}
	}()

	// The deadline is anchored at request arrival, not at this call: any
	// pre-work upstream (body parsing, memory lookup) has already spent part
	// of the window, so only the remainder is granted here.
	timer := time.NewTimer(g.remaining(req))
	defer timer.Stop()

	select {
	case res := <-results:
		reply := replyFor(res)
		if gate.TrySet() {
			g.diag.Record("final_text_computed", map[string]any{
				"request_id": req.ID,
				"strategy":   reply.Strategy,
				"status":     reply.Status,
				"chars":      len(reply.Text),
			})
			g.deliver(req, reply)
		}
		return reply
	case <-timer.C:
		reply := Reply{Text: DegradedReply, Status: types.StatusDegraded}
		if gate.TrySet() {
			g.logger.Warn("Pipeline missed the reply deadline, degrading",
				zap.String("request_id", req.ID),
				zap.Error(apperrors.ErrDeadlineExceeded))
			g.diag.Record("deadline_fired", map[string]any{
				"request_id":  req.ID,
				"deadline_ms": g.deadline.Milliseconds(),
			})
			g.deliver(req, reply)
		}
		// Drain the late result so its goroutine can finish; the gate is
		// already set, so it is logged and discarded.
		go func() {
			res := <-results
			g.logger.Info("Pipeline finished after deadline, result discarded",
				zap.String("request_id", req.ID),
				zap.String("strategy", res.answer.Strategy))
		}()
		return reply
	}
}

// replyFor maps a pipeline result to the emitted reply. A pipeline fault
// degrades rather than failing the request.
func replyFor(res pipelineResult) Reply {
	if res.panicked {
		return Reply{Text: DegradedReply, Status: types.StatusDegraded}
	}
	status := types.StatusAnswered
	if res.answer.Strategy == "" {
		status = types.StatusExhausted
	}
	return Reply{Text: res.answer.Text, Strategy: res.answer.Strategy, Status: status}
}

// deliver performs the single gateway send. Delivery errors are logged, never
// propagated: the reply decision is already final when we get here.
func (g *Guard) deliver(req Request, reply Reply) {
	// Fresh context: a caller cancellation must not turn a claimed gate into
	// a silent no-reply. The sender carries its own short timeout.
	if err := g.sender.Deliver(context.Background(), req.Channel, req.Sender, reply.Text); err != nil {
		g.logger.Error("Gateway delivery failed",
			zap.String("request_id", req.ID),
			zap.String("channel", req.Channel),
			zap.Error(err))
	}
}
