package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"replygate/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	MessagesPerMinute int           // Max messages per sender per minute
	BurstSize         int           // Allow burst of N requests
	CleanupInterval   time.Duration // How often to clean up old entries
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request can proceed and consumes a token if so
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	// Refill tokens based on elapsed time
	tb.tokens = min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate))
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Remaining returns the number of tokens remaining
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tokens := min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate))
	return int(tokens)
}

// SenderRateLimiter manages rate limits per message sender
type SenderRateLimiter struct {
	config      RateLimiterConfig
	limits      map[string]*TokenBucket
	mu          sync.RWMutex
	logger      *zap.Logger
	stopCleanup chan struct{}
}

// NewSenderRateLimiter creates a new sender-based rate limiter
func NewSenderRateLimiter(config RateLimiterConfig, logger *zap.Logger) *SenderRateLimiter {
	limiter := &SenderRateLimiter{
		config:      config,
		limits:      make(map[string]*TokenBucket),
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}

	// Start cleanup goroutine
	go limiter.cleanupRoutine()

	return limiter
}

// cleanupRoutine periodically removes stale entries
func (srl *SenderRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(srl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			srl.cleanup()
		case <-srl.stopCleanup:
			return
		}
	}
}

// cleanup resets the bucket map when it grows past the threshold. Senders are
// identified by opaque gateway handles, so there is nothing to expire against.
func (srl *SenderRateLimiter) cleanup() {
	srl.mu.Lock()
	defer srl.mu.Unlock()

	if len(srl.limits) > 10000 {
		srl.logger.Info("Cleaning up rate limiter cache", zap.Int("buckets", len(srl.limits)))
		srl.limits = make(map[string]*TokenBucket)
	}
}

// Stop stops the cleanup routine
func (srl *SenderRateLimiter) Stop() {
	close(srl.stopCleanup)
}

// Allow checks if a message from the given sender can proceed.
func (srl *SenderRateLimiter) Allow(sender string) bool {
	srl.mu.Lock()
	bucket, exists := srl.limits[sender]
	if !exists {
		// New bucket: BurstSize tokens, refill at MessagesPerMinute/60 per second
		refillRate := float64(srl.config.MessagesPerMinute) / 60.0
		bucket = NewTokenBucket(float64(srl.config.BurstSize), refillRate)
		srl.limits[sender] = bucket
	}
	srl.mu.Unlock()

	return bucket.Allow()
}

// Remaining reports the sender's remaining token count and the burst ceiling,
// for the rate-limit response headers.
func (srl *SenderRateLimiter) Remaining(sender string) (remaining, limit int) {
	srl.mu.RLock()
	bucket, exists := srl.limits[sender]
	srl.mu.RUnlock()

	if !exists {
		return srl.config.BurstSize, srl.config.BurstSize
	}
	return bucket.Remaining(), srl.config.BurstSize
}

// RateLimitMiddleware creates a Gin middleware applying per-sender limits to
// the inbound webhook. It expects the validated message already stored under
// InboundKey.
func RateLimitMiddleware(limiter *SenderRateLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		msg := c.MustGet(InboundKey).(types.InboundMessage)

		allowed := limiter.Allow(msg.Sender)
		remaining, limit := limiter.Remaining(msg.Sender)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			logger.Warn("Sender rate limited", zap.String("sender", msg.Sender))
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}
