package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"replygate/config"
	"replygate/web/handlers"
	"replygate/web/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router  *gin.Engine
	handler *handlers.WebhookHandler
	limiter *middleware.SenderRateLimiter
	dedupe  *middleware.DedupeCache
	logger  *zap.Logger
	config  *config.Config
}

func NewServer(handler *handlers.WebhookHandler, logger *zap.Logger, cfg *config.Config) (*Server, error) {
	// Set Gin mode based on environment
	if strings.EqualFold(cfg.Environment, "production") {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		// Add logger to context
		c.Set("logger", logger)
		c.Next()
	})

	limiter := middleware.NewSenderRateLimiter(middleware.RateLimiterConfig{
		MessagesPerMinute: cfg.RateLimitPerMinute,
		BurstSize:         cfg.RateLimitBurstSize,
		CleanupInterval:   time.Hour,
	}, logger)

	dedupe, err := middleware.NewDedupeCache(cfg.DedupeCacheSize, logger)
	if err != nil {
		return nil, err
	}

	server := &Server{
		router:  router,
		handler: handler,
		limiter: limiter,
		dedupe:  dedupe,
		logger:  logger,
		config:  cfg,
	}

	server.setupRoutes()
	return server, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Validation runs first so rejected messages never enter the dedupe
	// cache; dedupe runs last so only answerable messages are remembered.
	s.router.POST("/webhook/message",
		middleware.ValidateInboundMiddleware(s.logger),
		middleware.RateLimitMiddleware(s.limiter, s.logger),
		middleware.DedupeMiddleware(s.dedupe, s.logger),
		s.handler.Receive)
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting webhook server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Webhook server failed to start", zap.Error(err))
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	s.logger.Info("Shutting down webhook server")
	s.limiter.Stop()
	return srv.Shutdown(context.Background())
}
