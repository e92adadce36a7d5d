package middleware

import (
	"net/http"
	"time"

	apperrors "replygate/errors"
	"replygate/utils"
	"replygate/web/types"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// Context keys for the validated inbound message and its arrival stamp,
// shared by the downstream middleware and the webhook handler.
const (
	InboundKey   = "inbound"
	ArrivedAtKey = "arrived_at"
)

// ValidateInboundMiddleware binds and sanitizes the webhook body once so
// later stages never re-read it, and stamps the arrival time the reply
// deadline is measured from. Rejections happen here, before the message ID
// can enter the dedupe cache: a corrected retry carrying the same ID must
// still be answered.
func ValidateInboundMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		arrivedAt := time.Now()

		var msg types.InboundMessage
		if err := c.ShouldBindBodyWith(&msg, binding.JSON); err != nil {
			rejectInbound(c, logger, "malformed message")
			return
		}

		msg.Sender = utils.SanitizeIdentifier(msg.Sender)
		msg.Channel = utils.SanitizeIdentifier(msg.Channel)
		msg.Text = utils.SanitizeMessageText(msg.Text)

		switch {
		case msg.Sender == "":
			rejectInbound(c, logger, "missing sender")
		case msg.Channel == "":
			rejectInbound(c, logger, "missing channel")
		case msg.Text == "":
			rejectInbound(c, logger, "empty message text")
		default:
			c.Set(InboundKey, msg)
			c.Set(ArrivedAtKey, arrivedAt)
			c.Next()
		}
	}
}

func rejectInbound(c *gin.Context, logger *zap.Logger, reason string) {
	logger.Warn("Rejected inbound message",
		zap.String("path", c.FullPath()),
		zap.Error(apperrors.WrapError(apperrors.ErrInvalidInput, reason)))
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": reason})
}
