package web

import (
	"context"
	"time"

	"replygate/config"
	"replygate/database"

	"go.uber.org/zap"
)

// RetentionService prunes old conversational memory
type RetentionService struct {
	store  *database.PostgresStore
	logger *zap.Logger
}

// NewRetentionService creates a new retention service instance
func NewRetentionService(store *database.PostgresStore, logger *zap.Logger) *RetentionService {
	return &RetentionService{
		store:  store,
		logger: logger,
	}
}

// PruneOldExchanges deletes exchanges older than maxAge and returns the
// number of rows removed.
func (rs *RetentionService) PruneOldExchanges(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)

	rs.logger.Info("Starting exchange retention sweep",
		zap.Time("cutoff_time", cutoff),
		zap.Duration("max_age", maxAge))

	deleted, err := rs.store.DeleteExchangesBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		rs.logger.Info("Pruned old exchanges", zap.Int64("deleted", deleted))
	} else {
		rs.logger.Debug("No exchanges past retention age")
	}
	return deleted, nil
}

// StartRetentionSweep runs the retention service on the configured interval
// until the context is cancelled.
func StartRetentionSweep(ctx context.Context, cfg *config.Config, service *RetentionService, logger *zap.Logger) {
	if !cfg.RetentionEnabled {
		logger.Info("Exchange retention disabled")
		return
	}

	logger.Info("Starting retention sweep routine",
		zap.Duration("interval", cfg.RetentionInterval),
		zap.Duration("retention_age", cfg.RetentionAge))

	ticker := time.NewTicker(cfg.RetentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if _, err := service.PruneOldExchanges(sweepCtx, cfg.RetentionAge); err != nil {
				logger.Error("Retention sweep failed", zap.Error(err))
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}
}
