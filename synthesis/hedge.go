package synthesis

import (
	"context"

	"go.uber.org/zap"

	"replygate/diagnostics"
	apperrors "replygate/errors"
)

// Runner executes one strategy attempt. *Executor is the production
// implementation.
type Runner interface {
	Run(ctx context.Context, st Strategy, req Request) Outcome
}

// Coordinator runs every configured strategy concurrently and resolves with
// the first Success by completion time. If all concurrent attempts fail it
// issues exactly one escalation attempt with a larger budget.
type Coordinator struct {
	exec       Runner
	strategies []Strategy
	escalation Strategy
	diag       diagnostics.Sink
	logger     *zap.Logger
}

// NewCoordinator creates a hedge coordinator over the given strategy set.
func NewCoordinator(exec Runner, strategies []Strategy, escalation Strategy, diag diagnostics.Sink, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		exec:       exec,
		strategies: strategies,
		escalation: escalation,
		diag:       diag,
		logger:     logger,
	}
}

// Race fans out one executor per strategy with no launch ordering and returns
// as soon as the first Success arrives. Losing attempts are abandoned, never
// retried; the buffered channel lets their goroutines finish without leaking.
func (c *Coordinator) Race(ctx context.Context, req Request) RaceResult {
	n := len(c.strategies)
	outcomes := make(chan Outcome, n)
	for _, st := range c.strategies {
		go func(st Strategy) {
			outcomes <- c.exec.Run(ctx, st, req)
		}(st)
	}

	for i := 0; i < n; i++ {
		outcome := <-outcomes
		if outcome.Kind == OutcomeSuccess {
			c.diag.Record("race_winner", map[string]any{
				"request_id": req.ID,
				"strategy":   outcome.Strategy,
				"elapsed_ms": outcome.Elapsed.Milliseconds(),
			})
			return RaceResult{Text: outcome.Text, Strategy: outcome.Strategy}
		}
		c.logger.Debug("Strategy attempt failed",
			zap.String("request_id", req.ID),
			zap.String("strategy", outcome.Strategy),
			zap.String("kind", outcome.Kind.String()))
	}

	// Every concurrent attempt failed: one escalation tier, never a loop.
	c.logger.Info("All strategies failed, escalating",
		zap.String("request_id", req.ID),
		zap.String("escalation", c.escalation.Name))
	outcome := c.exec.Run(ctx, c.escalation, req)
	if outcome.Kind == OutcomeSuccess {
		c.diag.Record("race_winner", map[string]any{
			"request_id": req.ID,
			"strategy":   outcome.Strategy,
			"elapsed_ms": outcome.Elapsed.Milliseconds(),
			"escalated":  true,
		})
		return RaceResult{Text: outcome.Text, Strategy: outcome.Strategy}
	}

	c.logger.Warn("Escalation attempt failed, no answer available",
		zap.String("request_id", req.ID),
		zap.String("kind", outcome.Kind.String()),
		zap.Error(apperrors.ErrAllStrategiesExhausted))
	return RaceResult{NoneAvailable: true}
}
