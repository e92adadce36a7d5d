package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"replygate/synthesis"
	"replygate/utils"
	"replygate/web/middleware"
	"replygate/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Answerer resolves one request into exactly one emitted reply.
// *synthesis.Guard is the production implementation.
type Answerer interface {
	Answer(ctx context.Context, req synthesis.Request) synthesis.Reply
}

// MemoryStore is the narrow slice of persistence the webhook needs.
type MemoryStore interface {
	RecentExchanges(ctx context.Context, channel, sender string, limit int) ([]types.Exchange, error)
	SaveExchange(ctx context.Context, ex types.Exchange) error
}

type WebhookHandler struct {
	answerer     Answerer
	memory       MemoryStore
	memoryWindow int
	logger       *zap.Logger
}

func NewWebhookHandler(answerer Answerer, memory MemoryStore, memoryWindow int, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		answerer:     answerer,
		memory:       memory,
		memoryWindow: memoryWindow,
		logger:       logger,
	}
}

// Receive acks an inbound message immediately and answers it in the
// background. The deadline guard, not the webhook response, carries the
// user-visible reply. Binding and validation already happened upstream.
func (h *WebhookHandler) Receive(c *gin.Context) {
	msg := c.MustGet(middleware.InboundKey).(types.InboundMessage)

	arrivedAt := time.Now()
	if v, ok := c.Get(middleware.ArrivedAtKey); ok {
		if stamp, ok := v.(time.Time); ok {
			arrivedAt = stamp
		}
	}

	req := synthesis.Request{
		ID:        utils.GenerateRequestID(),
		Channel:   msg.Channel,
		Sender:    msg.Sender,
		Text:      msg.Text,
		ArrivedAt: arrivedAt,
	}

	h.logger.Info("Inbound message accepted",
		zap.String("request_id", req.ID),
		zap.String("channel", req.Channel),
		zap.String("sender", req.Sender))

	// The deadline clock is already running from arrival; the webhook ack
	// goes out while the pipeline answers in the background.
	go h.answer(req)

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "request_id": req.ID})
}

func (h *WebhookHandler) answer(req synthesis.Request) {
	ctx := context.Background()
	req.Memory = h.loadMemory(ctx, req)

	reply := h.answerer.Answer(ctx, req)

	h.saveExchangeAsync(req, reply)
}

// loadMemory renders the sender's recent exchanges into a context block. Any
// failure means answering without memory, never failing the request.
func (h *WebhookHandler) loadMemory(ctx context.Context, req synthesis.Request) string {
	if h.memory == nil || h.memoryWindow <= 0 {
		return ""
	}
	memCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	exchanges, err := h.memory.RecentExchanges(memCtx, req.Channel, req.Sender, h.memoryWindow)
	if err != nil {
		h.logger.Warn("Failed to load conversational memory",
			zap.String("request_id", req.ID),
			zap.Error(err))
		return ""
	}
	if len(exchanges) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Previous conversation with this user:\n")
	for _, ex := range exchanges {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", ex.Inbound, ex.Reply)
	}
	return b.String()
}

// saveExchangeAsync persists the exchange with retries, off the reply path.
func (h *WebhookHandler) saveExchangeAsync(req synthesis.Request, reply synthesis.Reply) {
	if h.memory == nil {
		return
	}
	go func() {
		const maxAttempts = 3
		ex := types.Exchange{
			Channel:  req.Channel,
			Sender:   req.Sender,
			Inbound:  req.Text,
			Reply:    reply.Text,
			Strategy: reply.Strategy,
			Status:   reply.Status,
		}
		for attempt := range maxAttempts {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := h.memory.SaveExchange(ctx, ex)
			cancel()

			if err == nil {
				return
			}
			if attempt < maxAttempts-1 {
				time.Sleep(time.Second * time.Duration(attempt+1))
				continue
			}
			h.logger.Error("Exchange persistence failed after retries",
				zap.String("request_id", req.ID),
				zap.Error(err))
		}
	}()
}
