package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"replygate/config"
	apperrors "replygate/errors"

	"go.uber.org/zap"
)

func TestDeliverPostsReply(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode send request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewHTTPSender(&config.Config{GatewayURL: srv.URL, GatewayTimeout: time.Second}, zap.NewNop())
	if err := sender.Deliver(context.Background(), "sms", "+15550001111", "Paris."); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	if got.Channel != "sms" || got.Destination != "+15550001111" || got.Text != "Paris." {
		t.Errorf("Deliver() sent %+v", got)
	}
}

func TestDeliverRejectionIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown destination", http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := NewHTTPSender(&config.Config{GatewayURL: srv.URL, GatewayTimeout: time.Second}, zap.NewNop())
	err := sender.Deliver(context.Background(), "sms", "nobody", "hello")
	if err == nil {
		t.Fatal("Deliver() expected error on 400 response")
	}
	if !errors.Is(err, apperrors.ErrGatewayDelivery) {
		t.Errorf("Deliver() error = %v, want ErrGatewayDelivery", err)
	}
}

func TestDeliverTimesOutOnStalledGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	sender := NewHTTPSender(&config.Config{GatewayURL: srv.URL, GatewayTimeout: 30 * time.Millisecond}, zap.NewNop())
	start := time.Now()
	err := sender.Deliver(context.Background(), "sms", "+15550001111", "hello")
	if err == nil {
		t.Fatal("Deliver() expected timeout error")
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Errorf("Deliver() blocked %v past its timeout", time.Since(start))
	}
}
