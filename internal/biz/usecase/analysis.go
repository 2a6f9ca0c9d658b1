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

// AnalysisUsecase orchestrates channel summaries and server stats
type AnalysisUsecase struct {
	serverRepo   repo.ServerRepo
	summaryRepo  repo.SummaryRepo
	analyzerRepo repo.AnalyzerRepo
	syncUC       *SyncUsecase
	statsUC      *StatsUsecase
	classifier   *domain.ChannelClassifier

	now    func() time.Time
	logger zerolog.Logger
}

// NewAnalysisUsecase creates a new analysis usecase
func NewAnalysisUsecase(
	serverRepo repo.ServerRepo,
	summaryRepo repo.SummaryRepo,
	analyzerRepo repo.AnalyzerRepo,
	syncUC *SyncUsecase,
	statsUC *StatsUsecase,
	classifier *domain.ChannelClassifier,
) *AnalysisUsecase {
	return &AnalysisUsecase{
		serverRepo:   serverRepo,
		summaryRepo:  summaryRepo,
		analyzerRepo: analyzerRepo,
		syncUC:       syncUC,
		statsUC:      statsUC,
		classifier:   classifier,
		now:          time.Now,
		logger:       log.With().Str("component", "analysis").Logger(),
	}
}

// RunServerAnalysis syncs and summarizes every monitored channel of a server,
// then aggregates and stores the server stats. Per-channel failures are logged
// and skipped; a missing server or channel list fails the call.
func (uc *AnalysisUsecase) RunServerAnalysis(ctx context.Context, serverID string) (*domain.ServerStats, error) {
	server, err := uc.serverRepo.GetServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("load server %s: %w", serverID, err)
	}
	if server == nil {
		return nil, fmt.Errorf("load server %s: %w", serverID, domain.ErrServerNotFound)
	}

	channels, err := uc.serverRepo.ListChannels(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("list channels of server %s: %w", serverID, err)
	}

	uc.logger.Info().Str("server_id", serverID).Int("channels", len(channels)).Msg("Running server analysis")

	var results []*SyncResult
	for _, ch := range channels {
		if !uc.classifier.IsMonitored(ch) {
			continue
		}
		result, _, err := uc.analyzeChannel(ctx, ch)
		if err != nil {
			uc.logger.Error().Err(err).
				Str("server_id", serverID).
				Str("channel_id", ch.ID).
				Msg("Channel analysis failed, skipping")
			continue
		}
		if result != nil {
			results = append(results, result)
		}
	}

	stats, err := uc.statsUC.Aggregate(ctx, serverID, results)
	if err != nil {
		return nil, err
	}

	if err := uc.serverRepo.UpdateLastSynced(ctx, serverID, uc.now()); err != nil {
		return nil, fmt.Errorf("update last synced: %w", err)
	}

	return stats, nil
}

// GenerateChannelSummary syncs and summarizes a single channel. It returns nil
// without error for a regular channel with no messages in the window.
func (uc *AnalysisUsecase) GenerateChannelSummary(ctx context.Context, channelID string) (*domain.ChannelSummary, error) {
	ch, err := uc.serverRepo.GetChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load channel %s: %w", channelID, err)
	}
	if ch == nil {
		return nil, fmt.Errorf("load channel %s: %w", channelID, domain.ErrChannelNotFound)
	}

	_, summary, err := uc.analyzeChannel(ctx, *ch)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// LatestSummary returns the latest stored summary, or an unpersisted placeholder
func (uc *AnalysisUsecase) LatestSummary(ctx context.Context, channelID string) (*domain.ChannelSummary, error) {
	summary, err := uc.summaryRepo.Latest(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load latest summary: %w", err)
	}
	if summary == nil {
		return domain.PlaceholderSummary(channelID, uc.now()), nil
	}
	return summary, nil
}

// analyzeChannel runs the routine-window sync and stores a summary.
// Returns a nil result for regular channels without messages.
func (uc *AnalysisUsecase) analyzeChannel(ctx context.Context, ch domain.Channel) (*SyncResult, *domain.ChannelSummary, error) {
	result, err := uc.syncUC.Sync(ctx, ch, uc.syncUC.Config().RoutineWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("sync channel %s: %w", ch.ID, err)
	}

	if len(result.Messages) == 0 {
		if result.Class != domain.ChannelAlwaysVisible {
			uc.logger.Debug().Str("channel_id", ch.ID).Msg("No messages in window, skipping")
			return nil, nil, nil
		}
		placeholder := domain.PlaceholderSummary(ch.ID, uc.now())
		placeholder.ID = uuid.NewString()
		if err := uc.summaryRepo.Append(ctx, placeholder); err != nil {
			return nil, nil, fmt.Errorf("store placeholder summary: %w", err)
		}
		return result, placeholder, nil
	}

	draft, err := uc.analyzerRepo.Summarize(ctx, ch.Name, domain.Transcript(result.Messages))
	if err != nil {
		uc.logger.Warn().Err(err).Str("channel_id", ch.ID).Msg("Summarization failed, using fallback summary")
		draft = &domain.SummaryDraft{
			Summary:   fmt.Sprintf("Unable to generate summary for #%s: %v", ch.Name, err),
			KeyTopics: []string{},
		}
	}

	summary := &domain.ChannelSummary{
		ID:           uuid.NewString(),
		ChannelID:    ch.ID,
		Kind:         domain.SummaryReal,
		Summary:      draft.Summary,
		MessageCount: len(result.Messages),
		ActiveUsers:  result.ActiveUserCount(),
		KeyTopics:    draft.KeyTopics,
		GeneratedAt:  uc.now(),
	}
	if err := uc.summaryRepo.Append(ctx, summary); err != nil {
		return nil, nil, fmt.Errorf("store summary: %w", err)
	}

	uc.logger.Info().
		Str("channel_id", ch.ID).
		Str("channel", ch.Name).
		Int("messages", summary.MessageCount).
		Int("topics", len(summary.KeyTopics)).
		Msg("Channel summary stored")

	return result, summary, nil
}
