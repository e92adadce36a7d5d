package synthesis

import (
	"context"
	"errors"
	"testing"
	"time"

	"replygate/diagnostics"
	apperrors "replygate/errors"
	"replygate/llmclient"

	"go.uber.org/zap"
)

type fakeCompleter struct {
	text  string
	err   error
	delay time.Duration
}

func (f *fakeCompleter) Complete(ctx context.Context, req llmclient.CompletionRequest) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.text, f.err
}

func testStrategy(timeout time.Duration) Strategy {
	return Strategy{
		Name:        "test",
		Host:        "http://localhost:8080",
		Model:       "default",
		MaxTokens:   100,
		Timeout:     timeout,
		Instruction: "Answer briefly.",
	}
}

func TestExecutorOutcomes(t *testing.T) {
	logger := zap.NewNop()
	req := Request{ID: "r1", Channel: "sms", Sender: "u1", Text: "what is up"}

	tests := []struct {
		name     string
		client   *fakeCompleter
		wantKind OutcomeKind
		wantText string
		wantErr  func(error) bool
	}{
		{
			name:     "success_plain_text",
			client:   &fakeCompleter{text: "All good."},
			wantKind: OutcomeSuccess,
			wantText: "All good.",
		},
		{
			name:     "success_extracts_delimited_segment",
			client:   &fakeCompleter{text: "thinking <final> All good. </final> noise"},
			wantKind: OutcomeSuccess,
			wantText: "All good.",
		},
		{
			name:     "empty_after_normalization",
			client:   &fakeCompleter{text: "   \n  "},
			wantKind: OutcomeEmpty,
		},
		{
			name:     "empty_delimited_segment",
			client:   &fakeCompleter{text: "<final>  </final>"},
			wantKind: OutcomeEmpty,
		},
		{
			name:     "transport_error",
			client:   &fakeCompleter{err: errors.New("connection refused")},
			wantKind: OutcomeTransportError,
			wantErr:  apperrors.IsStrategyTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewExecutor(tt.client, diagnostics.NopSink{}, logger)
			got := exec.Run(context.Background(), testStrategy(time.Second), req)
			if got.Kind != tt.wantKind {
				t.Errorf("Run() kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if tt.wantText != "" && got.Text != tt.wantText {
				t.Errorf("Run() text = %q, want %q", got.Text, tt.wantText)
			}
			if got.Strategy != "test" {
				t.Errorf("Run() strategy = %q, want %q", got.Strategy, "test")
			}
			if tt.wantErr != nil && !tt.wantErr(got.Err) {
				t.Errorf("Run() err = %v, wrong category", got.Err)
			}
		})
	}
}

func TestExecutorTimeoutResolvesPromptly(t *testing.T) {
	logger := zap.NewNop()
	exec := NewExecutor(&fakeCompleter{text: "too late", delay: 300 * time.Millisecond}, diagnostics.NopSink{}, logger)

	start := time.Now()
	got := exec.Run(context.Background(), testStrategy(25*time.Millisecond), Request{ID: "r1", Text: "q"})
	elapsed := time.Since(start)

	if got.Kind != OutcomeTimeout {
		t.Fatalf("Run() kind = %v, want %v", got.Kind, OutcomeTimeout)
	}
	if !apperrors.IsStrategyTimeout(got.Err) {
		t.Errorf("Run() err = %v, want a strategy timeout", got.Err)
	}
	if elapsed >= 200*time.Millisecond {
		t.Errorf("Run() blocked %v past the strategy timeout", elapsed)
	}
	// The phantom completion lands in the buffered channel after the race
	// resolved; give it time to prove nothing blocks or panics.
	time.Sleep(350 * time.Millisecond)
}
