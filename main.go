package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"replygate/config"
	"replygate/database"
	"replygate/diagnostics"
	"replygate/gateway"
	"replygate/llmclient"
	"replygate/synthesis"
	"replygate/web"
	"replygate/web/handlers"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx := context.Background()

	// Bootstrap logger just for config loading
	tempLogger, err := config.NewLogger("info", "development")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level and environment settings)
	cfg := config.Load(tempLogger)

	// Rebuild the logger with the configured level and environment
	logger, err := config.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := database.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure database schema", zap.Error(err))
	}

	// Diagnostics never touch the reply path: async buffer over a zap emitter.
	diag := diagnostics.NewAsync(diagnostics.NewZapSink(logger), cfg.DiagnosticsBuffer, logger)
	defer diag.Close()

	// Synthesis pipeline: executor fan-out behind the hedge coordinator,
	// wrapped by the deadline guard that owns the single reply emission.
	client := llmclient.New(cfg, logger)
	executor := synthesis.NewExecutor(client, diag, logger)
	coordinator := synthesis.NewCoordinator(
		executor,
		synthesis.StrategiesFromConfig(cfg.Strategies),
		synthesis.FromConfig(cfg.Escalation),
		diag,
		logger,
	)
	finalizer := synthesis.NewFinalizer(cfg.MaxReplySentences, cfg.MaxReplyChars)
	sender := gateway.NewHTTPSender(cfg, logger)
	guard := synthesis.NewGuard(coordinator, finalizer, sender, diag, cfg.ReplyDeadline, logger)

	webhookHandler := handlers.NewWebhookHandler(guard, store, cfg.MemoryWindow, logger)
	webServer, err := web.NewServer(webhookHandler, logger, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize web server", zap.Error(err))
	}

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	retention := web.NewRetentionService(store, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		web.StartRetentionSweep(gctx, cfg, retention, logger)
		return nil
	})
	g.Go(func() error {
		port := fmt.Sprintf(":%d", cfg.WebPort)
		logger.Info("Starting replygate webhook server", zap.String("port", port))
		return webServer.Start(gctx, port)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", zap.Error(err))
		os.Exit(1)
	}
}
