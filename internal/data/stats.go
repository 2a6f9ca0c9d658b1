package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
)

// statsRepo implements the append-only server stats store
type statsRepo struct {
	db *sql.DB
}

// NewStatsRepo creates a new stats repository
func NewStatsRepo(db *sql.DB) repo.StatsRepo {
	return &statsRepo{db: db}
}

// Append stores a new stats record; prior records are never modified
func (r *statsRepo) Append(ctx context.Context, s *domain.ServerStats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO server_stats (id, server_id, total_messages, active_users, active_channels,
			pct_messages, pct_users, pct_channels, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID,
		s.ServerID,
		s.TotalMessages,
		s.ActiveUsers,
		s.ActiveChannels,
		s.PercentChange.Messages,
		s.PercentChange.Users,
		s.PercentChange.Channels,
		s.GeneratedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append stats: %w", err)
	}
	return nil
}

// Latest returns the most recent stats of a server, nil if none
func (r *statsRepo) Latest(ctx context.Context, serverID string) (*domain.ServerStats, error) {
	history, err := r.History(ctx, serverID, 1)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	return history[0], nil
}

// History returns up to limit stats records, newest first
func (r *statsRepo) History(ctx context.Context, serverID string, limit int) ([]*domain.ServerStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, server_id, total_messages, active_users, active_channels,
			pct_messages, pct_users, pct_channels, generated_at
		FROM server_stats
		WHERE server_id = ?
		ORDER BY generated_at DESC, rowid DESC
		LIMIT ?
	`, serverID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var result []*domain.ServerStats
	for rows.Next() {
		var s domain.ServerStats
		var generatedAt int64
		if err := rows.Scan(
			&s.ID, &s.ServerID, &s.TotalMessages, &s.ActiveUsers, &s.ActiveChannels,
			&s.PercentChange.Messages, &s.PercentChange.Users, &s.PercentChange.Channels,
			&generatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		s.GeneratedAt = time.UnixMilli(generatedAt)
		result = append(result, &s)
	}
	return result, rows.Err()
}
