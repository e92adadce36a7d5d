package synthesis

import (
	"time"

	"replygate/config"
)

// Strategy is one configured way of asking the completion service for an
// answer: an endpoint/model choice, a token budget, an output-shaping
// instruction, and a per-call timeout. Strategies are immutable after load.
type Strategy struct {
	Name        string
	Host        string
	Model       string
	MaxTokens   int
	Timeout     time.Duration
	Instruction string
}

// FromConfig converts a loaded strategy block into an immutable Strategy.
func FromConfig(sc config.StrategyConfig) Strategy {
	return Strategy{
		Name:        sc.Name,
		Host:        sc.Host,
		Model:       sc.Model,
		MaxTokens:   sc.MaxTokens,
		Timeout:     time.Duration(sc.TimeoutSeconds) * time.Second,
		Instruction: sc.Instruction,
	}
}

// StrategiesFromConfig converts the configured strategy set.
func StrategiesFromConfig(scs []config.StrategyConfig) []Strategy {
	strategies := make([]Strategy, 0, len(scs))
	for _, sc := range scs {
		strategies = append(strategies, FromConfig(sc))
	}
	return strategies
}

// Request is one inbound question flowing through the synthesis pipeline.
type Request struct {
	ID        string
	Channel   string
	Sender    string
	Text      string
	Memory    string    // optional conversational context, prepended as a system message
	ArrivedAt time.Time // when the gateway delivered the message; anchors the reply deadline
}

// OutcomeKind tags the result of a single strategy attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeEmpty
	OutcomeTimeout
	OutcomeTransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Outcome is the uniform result of one strategy executor run. Produced once
// per invocation, never mutated.
type Outcome struct {
	Kind     OutcomeKind
	Strategy string
	Text     string
	Err      error
	Elapsed  time.Duration
}

// RaceResult is the hedge coordinator's decision: either the winning text and
// the strategy that produced it, or NoneAvailable when every attempt
// (escalation included) failed to produce a Success.
type RaceResult struct {
	Text          string
	Strategy      string
	NoneAvailable bool
}
