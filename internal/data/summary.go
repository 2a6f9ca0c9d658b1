package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
)

// summaryRepo implements the append-only channel summary store
type summaryRepo struct {
	db *sql.DB
}

// NewSummaryRepo creates a new summary repository
func NewSummaryRepo(db *sql.DB) repo.SummaryRepo {
	return &summaryRepo{db: db}
}

// Append stores a new summary
func (r *summaryRepo) Append(ctx context.Context, s *domain.ChannelSummary) error {
	topics := s.KeyTopics
	if topics == nil {
		topics = []string{}
	}
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return fmt.Errorf("failed to encode key topics: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO channel_summaries (id, channel_id, kind, summary, message_count, active_users, key_topics, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.ChannelID, s.Kind.String(), s.Summary, s.MessageCount, s.ActiveUsers, string(topicsJSON), s.GeneratedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append summary: %w", err)
	}
	return nil
}

// Latest returns the most recent summary of a channel, nil if none
func (r *summaryRepo) Latest(ctx context.Context, channelID string) (*domain.ChannelSummary, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, channel_id, kind, summary, message_count, active_users, key_topics, generated_at
		FROM channel_summaries
		WHERE channel_id = ?
		ORDER BY generated_at DESC, rowid DESC
		LIMIT 1
	`, channelID)

	var s domain.ChannelSummary
	var kind, topics string
	var generatedAt int64
	err := row.Scan(&s.ID, &s.ChannelID, &kind, &s.Summary, &s.MessageCount, &s.ActiveUsers, &topics, &generatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	if kind == domain.SummaryPlaceholder.String() {
		s.Kind = domain.SummaryPlaceholder
	}
	if err := json.Unmarshal([]byte(topics), &s.KeyTopics); err != nil {
		return nil, fmt.Errorf("failed to decode key topics: %w", err)
	}
	s.GeneratedAt = time.UnixMilli(generatedAt)
	return &s, nil
}
