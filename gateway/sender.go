// Package gateway talks to the messaging gateway that delivers outbound
// replies to the originating channel.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"replygate/config"
	apperrors "replygate/errors"

	"go.uber.org/zap"
)

// Sender delivers one reply to a destination on a channel. The deadline guard
// calls it at most once per request.
type Sender interface {
	Deliver(ctx context.Context, channel, destination, text string) error
}

type sendRequest struct {
	Channel     string `json:"channel"`
	Destination string `json:"destination"`
	Text        string `json:"text"`
}

// HTTPSender posts outbound replies to the gateway's send endpoint. Its
// http.Client carries the configured gateway timeout so a stalled gateway can
// never hold a request open.
type HTTPSender struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPSender(cfg *config.Config, logger *zap.Logger) *HTTPSender {
	return &HTTPSender{
		url:        cfg.GatewayURL,
		httpClient: &http.Client{Timeout: cfg.GatewayTimeout},
		logger:     logger,
	}
}

func (s *HTTPSender) Deliver(ctx context.Context, channel, destination, text string) error {
	jsonBody, err := json.Marshal(sendRequest{
		Channel:     channel,
		Destination: destination,
		Text:        text,
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperrors.WrapErrorf(apperrors.ErrGatewayDelivery, "send to %s: %v", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Warn("Gateway rejected delivery",
			zap.String("status", resp.Status),
			zap.String("channel", channel))
		return apperrors.WrapErrorf(apperrors.ErrGatewayDelivery, "gateway status %s: %s", resp.Status, string(body))
	}
	return nil
}
