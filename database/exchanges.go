package database

import (
	"context"
	"fmt"
	"time"

	apperrors "replygate/errors"
	"replygate/web/types"

	"github.com/google/uuid"
)

// SaveExchange persists one answered request as conversational memory.
func (s *PostgresStore) SaveExchange(ctx context.Context, ex types.Exchange) error {
	if ex.ID == uuid.Nil {
		ex.ID = uuid.New()
	}
	query := `INSERT INTO exchanges (id, channel, sender, inbound, reply, strategy, status)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.DB.ExecContext(ctx, query,
		ex.ID, ex.Channel, ex.Sender, ex.Inbound, ex.Reply, ex.Strategy, ex.Status); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "insert exchange: %v", err)
	}
	return nil
}

// RecentExchanges returns the newest answered exchanges for a sender on a
// channel, oldest first, so they can be rendered into a context block.
func (s *PostgresStore) RecentExchanges(ctx context.Context, channel, sender string, limit int) ([]types.Exchange, error) {
	query := `SELECT id, channel, sender, inbound, reply, strategy, status, created_at
              FROM exchanges
              WHERE channel = $1 AND sender = $2 AND status = $3
              ORDER BY created_at DESC
              LIMIT $4`
	rows, err := s.DB.QueryContext(ctx, query, channel, sender, types.StatusAnswered, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []types.Exchange
	for rows.Next() {
		var ex types.Exchange
		if err := rows.Scan(&ex.ID, &ex.Channel, &ex.Sender, &ex.Inbound, &ex.Reply,
			&ex.Strategy, &ex.Status, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}
	return exchanges, nil
}

// DeleteExchangesBefore removes exchanges older than cutoff and returns the
// number deleted.
func (s *PostgresStore) DeleteExchangesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM exchanges WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "delete old exchanges: %v", err)
	}
	return res.RowsAffected()
}
