package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"replygate/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestTokenBucketAllowsBurstThenDenies(t *testing.T) {
	// 3 tokens, refilling far too slowly to matter inside the test.
	bucket := NewTokenBucket(3, 0.001)

	for i := 0; i < 3; i++ {
		if !bucket.Allow() {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if bucket.Allow() {
		t.Error("request past the burst size should be denied")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	// 1 token, refilling 50 tokens/second.
	bucket := NewTokenBucket(1, 50)

	if !bucket.Allow() {
		t.Fatal("first request should be allowed")
	}
	if bucket.Allow() {
		t.Fatal("bucket should be empty immediately after")
	}

	time.Sleep(50 * time.Millisecond)
	if !bucket.Allow() {
		t.Error("bucket should have refilled after waiting")
	}
}

func TestRateLimitMiddlewareSetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	limiter := NewSenderRateLimiter(RateLimiterConfig{
		MessagesPerMinute: 1,
		BurstSize:         1,
		CleanupInterval:   time.Hour,
	}, logger)
	defer limiter.Stop()

	router := gin.New()
	router.POST("/m",
		func(c *gin.Context) {
			c.Set(InboundKey, types.InboundMessage{Sender: "alice"})
		},
		RateLimitMiddleware(limiter, logger),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/m", nil))
		return rec
	}

	first := post()
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", first.Code, http.StatusOK)
	}
	if got := first.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Errorf("X-RateLimit-Limit = %q, want %q", got, "1")
	}
	if got := first.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want %q", got, "0")
	}

	second := post()
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
	if got := second.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}
}

func TestSenderRateLimiterIsolatesSenders(t *testing.T) {
	limiter := NewSenderRateLimiter(RateLimiterConfig{
		MessagesPerMinute: 60,
		BurstSize:         1,
		CleanupInterval:   time.Hour,
	}, zap.NewNop())
	defer limiter.Stop()

	if !limiter.Allow("alice") {
		t.Fatal("alice's first message should be allowed")
	}
	if limiter.Allow("alice") {
		t.Error("alice's second message should be limited")
	}
	if !limiter.Allow("bob") {
		t.Error("bob must not be affected by alice's limit")
	}
}
