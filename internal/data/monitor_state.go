package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
)

// monitorStateRepo implements the per-channel monitor state store
type monitorStateRepo struct {
	db *sql.DB
}

// NewMonitorStateRepo creates a new monitor state repository
func NewMonitorStateRepo(db *sql.DB) repo.MonitorStateRepo {
	return &monitorStateRepo{db: db}
}

// Get gets the state of a channel, nil if never observed
func (r *monitorStateRepo) Get(ctx context.Context, channelID string) (*domain.ChannelMonitorState, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT channel_id, last_observed_count, last_analysis_at
		FROM monitor_states
		WHERE channel_id = ?
	`, channelID)

	var state domain.ChannelMonitorState
	var lastAnalysisAt int64
	err := row.Scan(&state.ChannelID, &state.LastObservedMessageCount, &lastAnalysisAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query monitor state: %w", err)
	}
	state.LastAnalysisAt = timeOrNil(lastAnalysisAt)
	return &state, nil
}

// Save saves a state
func (r *monitorStateRepo) Save(ctx context.Context, state *domain.ChannelMonitorState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO monitor_states (channel_id, last_observed_count, last_analysis_at)
		VALUES (?, ?, ?)
	`, state.ChannelID, state.LastObservedMessageCount, unixOrZero(state.LastAnalysisAt))
	if err != nil {
		return fmt.Errorf("failed to save monitor state: %w", err)
	}
	return nil
}

// ListAll lists all states
func (r *monitorStateRepo) ListAll(ctx context.Context) ([]*domain.ChannelMonitorState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT channel_id, last_observed_count, last_analysis_at
		FROM monitor_states
		ORDER BY channel_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitor states: %w", err)
	}
	defer rows.Close()

	var states []*domain.ChannelMonitorState
	for rows.Next() {
		var state domain.ChannelMonitorState
		var lastAnalysisAt int64
		if err := rows.Scan(&state.ChannelID, &state.LastObservedMessageCount, &lastAnalysisAt); err != nil {
			return nil, fmt.Errorf("failed to scan monitor state: %w", err)
		}
		state.LastAnalysisAt = timeOrNil(lastAnalysisAt)
		states = append(states, &state)
	}
	return states, rows.Err()
}
