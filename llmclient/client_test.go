package llmclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"replygate/config"
	"replygate/web/types"

	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxRetries:            3,
		RetryDelaySeconds:     10 * time.Millisecond,
		LLMBackoffMaxSeconds:  20 * time.Millisecond,
		LLMBackoffJitterRatio: 0.1,
	}
}

func completionRequest(host string) CompletionRequest {
	return CompletionRequest{
		Host:      host,
		Model:     "default",
		MaxTokens: 100,
		Messages:  []types.AgentMessage{{Role: "user", Content: "capital of france?"}},
	}
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"chat.completion","choices":[{"message":{"content":"Paris."}}]}`))
	}))
	defer srv.Close()

	client := New(testConfig(), zap.NewNop())
	got, err := client.Complete(context.Background(), completionRequest(srv.URL))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Paris." {
		t.Errorf("Complete() = %q, want %q", got, "Paris.")
	}
}

func TestCompleteRetriesOnServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"Paris."}}]}`))
	}))
	defer srv.Close()

	client := New(testConfig(), zap.NewNop())
	got, err := client.Complete(context.Background(), completionRequest(srv.URL))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Paris." {
		t.Errorf("Complete() = %q, want %q", got, "Paris.")
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls (one retry), got %d", calls.Load())
	}
}

func TestCompleteNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model blew up", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(testConfig(), zap.NewNop())
	if _, err := client.Complete(context.Background(), completionRequest(srv.URL)); err == nil {
		t.Fatal("Complete() expected error on 500 response")
	}
}
