package types

import (
	"time"

	"github.com/google/uuid"
)

// AgentMessage represents a message in the format expected by the completion service.
type AgentMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// InboundMessage is one user message received from the messaging gateway webhook.
type InboundMessage struct {
	MessageID string `json:"message_id" form:"message_id"`
	Channel   string `json:"channel" form:"channel"`
	Sender    string `json:"sender" form:"sender"`
	Text      string `json:"text" form:"text"`
}

// Exchange is one answered request, stored in the DB as conversational memory.
type Exchange struct {
	ID        uuid.UUID
	Channel   string
	Sender    string
	Inbound   string
	Reply     string
	Strategy  string
	Status    string
	CreatedAt time.Time
}

// Exchange status values.
const (
	StatusAnswered  = "answered"
	StatusExhausted = "exhausted"
	StatusDegraded  = "degraded"
)
