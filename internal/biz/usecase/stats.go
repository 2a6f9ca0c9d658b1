package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
)

// StatsUsecase aggregates per-channel sync results into server stats
type StatsUsecase struct {
	statsRepo repo.StatsRepo
	now       func() time.Time
	logger    zerolog.Logger
}

// NewStatsUsecase creates a new stats usecase
func NewStatsUsecase(statsRepo repo.StatsRepo) *StatsUsecase {
	return &StatsUsecase{
		statsRepo: statsRepo,
		now:       time.Now,
		logger:    log.With().Str("component", "stats").Logger(),
	}
}

// Aggregate computes and appends a new ServerStats record
func (uc *StatsUsecase) Aggregate(ctx context.Context, serverID string, results []*SyncResult) (*domain.ServerStats, error) {
	stats := &domain.ServerStats{
		ID:          uuid.NewString(),
		ServerID:    serverID,
		GeneratedAt: uc.now(),
	}

	authors := make(map[string]struct{})
	for _, r := range results {
		if r == nil {
			continue
		}
		stats.TotalMessages += len(r.Messages)
		for id := range r.Authors {
			authors[id] = struct{}{}
		}
		if r.IsActive() {
			stats.ActiveChannels++
		}
	}
	stats.ActiveUsers = len(authors)

	prev, err := uc.statsRepo.Latest(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("load previous stats: %w", err)
	}
	stats.CompareTo(prev)

	if err := uc.statsRepo.Append(ctx, stats); err != nil {
		return nil, fmt.Errorf("append stats: %w", err)
	}

	uc.logger.Info().
		Str("server_id", serverID).
		Int("messages", stats.TotalMessages).
		Int("users", stats.ActiveUsers).
		Int("channels", stats.ActiveChannels).
		Float64("messages_change", stats.PercentChange.Messages).
		Msg("Server stats aggregated")

	return stats, nil
}

// Latest gets the latest stats of a server
func (uc *StatsUsecase) Latest(ctx context.Context, serverID string) (*domain.ServerStats, error) {
	return uc.statsRepo.Latest(ctx, serverID)
}

// History gets recent stats of a server, newest first
func (uc *StatsUsecase) History(ctx context.Context, serverID string, limit int) ([]*domain.ServerStats, error) {
	if limit <= 0 {
		limit = 30
	}
	return uc.statsRepo.History(ctx, serverID, limit)
}
