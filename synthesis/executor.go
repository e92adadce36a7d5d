package synthesis

import (
	"context"
	"strings"
	"time"

	apperrors "replygate/errors"
	"replygate/llmclient"
	"replygate/web/types"

	"go.uber.org/zap"

	"replygate/diagnostics"
)

// Completer is the slice of the completion client the executor needs. It must
// be safe for concurrent use and must simply return whenever the network call
// settles; the executor owns the timeout race.
type Completer interface {
	Complete(ctx context.Context, req llmclient.CompletionRequest) (string, error)
}

// Executor invokes one strategy against the completion service, enforces the
// strategy's timeout, and normalizes whatever comes back into an Outcome.
type Executor struct {
	client Completer
	diag   diagnostics.Sink
	logger *zap.Logger
}

// NewExecutor creates a new strategy executor instance.
func NewExecutor(client Completer, diag diagnostics.Sink, logger *zap.Logger) *Executor {
	return &Executor{
		client: client,
		diag:   diag,
		logger: logger,
	}
}

type callResult struct {
	text string
	err  error
}

// Run executes one strategy attempt. It never blocks past the strategy's own
// timeout: if the completion service has not answered by then, Run resolves
// with a Timeout outcome and the underlying call is abandoned in the
// background. The buffered result channel means a phantom completion arriving
// after the race has resolved is simply discarded.
func (e *Executor) Run(ctx context.Context, st Strategy, req Request) Outcome {
	start := time.Now()
	e.diag.Record("strategy_issued", map[string]any{
		"request_id": req.ID,
		"strategy":   st.Name,
	})

	done := make(chan callResult, 1)
	// The upstream service offers no cancellation, so the call keeps the
	// request's values but is detached from its cancellation.
	callCtx := context.WithoutCancel(ctx)
	go func() {
		text, err := e.client.Complete(callCtx, llmclient.CompletionRequest{
			Host:      st.Host,
			Model:     st.Model,
			MaxTokens: st.MaxTokens,
			Messages:  buildMessages(st, req),
		})
		done <- callResult{text: text, err: err}
	}()

	timer := time.NewTimer(st.Timeout)
	defer timer.Stop()

	var outcome Outcome
	select {
	case res := <-done:
		outcome = e.classify(st, res, time.Since(start))
	case <-timer.C:
		outcome = Outcome{
			Kind:     OutcomeTimeout,
			Strategy: st.Name,
			Err:      apperrors.ErrStrategyTimeout,
			Elapsed:  time.Since(start),
		}
	}

	e.diag.Record("outcome_received", map[string]any{
		"request_id": req.ID,
		"strategy":   st.Name,
		"kind":       outcome.Kind.String(),
		"elapsed_ms": outcome.Elapsed.Milliseconds(),
	})
	return outcome
}

// classify maps a settled completion call to the outcome taxonomy. A Success
// requires non-empty text after delimiter extraction and whitespace trimming.
func (e *Executor) classify(st Strategy, res callResult, elapsed time.Duration) Outcome {
	if res.err != nil {
		e.logger.Warn("Completion call failed",
			zap.String("strategy", st.Name),
			zap.Error(res.err))
		return Outcome{
			Kind:     OutcomeTransportError,
			Strategy: st.Name,
			Err:      apperrors.WrapErrorf(apperrors.ErrStrategyTransport, "strategy %s: %v", st.Name, res.err),
			Elapsed:  elapsed,
		}
	}

	text := strings.TrimSpace(ExtractFinal(res.text))
	if text == "" {
		return Outcome{
			Kind:     OutcomeEmpty,
			Strategy: st.Name,
			Err:      apperrors.ErrStrategyEmpty,
			Elapsed:  elapsed,
		}
	}
	return Outcome{
		Kind:     OutcomeSuccess,
		Strategy: st.Name,
		Text:     text,
		Elapsed:  elapsed,
	}
}

// buildMessages assembles the completion request: the strategy's shaping
// instruction, any conversational memory, then the user's text.
func buildMessages(st Strategy, req Request) []types.AgentMessage {
	var messages []types.AgentMessage
	if st.Instruction != "" {
		messages = append(messages, types.AgentMessage{Role: "system", Content: st.Instruction})
	}
	if req.Memory != "" {
		messages = append(messages, types.AgentMessage{Role: "system", Content: req.Memory})
	}
	messages = append(messages, types.AgentMessage{Role: "user", Content: req.Text})
	return messages
}
