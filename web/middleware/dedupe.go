package middleware

import (
	"net/http"

	"replygate/web/types"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// DedupeCache remembers recently seen gateway message IDs so webhook retries
// and double-taps never answer the same message twice.
type DedupeCache struct {
	cache  *lru.Cache
	logger *zap.Logger
}

// NewDedupeCache creates a dedupe cache holding up to size message IDs.
func NewDedupeCache(size int, logger *zap.Logger) (*DedupeCache, error) {
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &DedupeCache{cache: cache, logger: logger}, nil
}

// Seen records the message ID and reports whether it was already present.
// Messages without an ID are never deduplicated.
func (d *DedupeCache) Seen(messageID string) bool {
	if messageID == "" {
		return false
	}
	seen, _ := d.cache.ContainsOrAdd(messageID, struct{}{})
	return seen
}

// DedupeMiddleware acks duplicate webhook deliveries without re-answering
// them. It must run after validation: only messages that will actually be
// answered may enter the cache, so a rejected message retried with the same
// ID is not mistaken for a duplicate.
func DedupeMiddleware(cache *DedupeCache, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		msg := c.MustGet(InboundKey).(types.InboundMessage)
		if cache.Seen(msg.MessageID) {
			logger.Info("Duplicate message ignored",
				zap.String("message_id", msg.MessageID),
				zap.String("sender", msg.Sender))
			c.AbortWithStatusJSON(http.StatusAccepted, gin.H{"status": "duplicate"})
			return
		}
		c.Next()
	}
}
