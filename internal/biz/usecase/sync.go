package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
)

// SyncConfig contains channel sync configuration
type SyncConfig struct {
	PageSize      int           // Messages requested per upstream page
	MaxMessages   int           // Hard cap on messages fetched per sync call
	RoutineWindow time.Duration // Window used by routine analysis runs
	DailyWindow   time.Duration // Window used by ingestion
}

// DefaultSyncConfig returns default sync configuration
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		PageSize:      30,
		MaxMessages:   50,
		RoutineWindow: time.Hour,
		DailyWindow:   24 * time.Hour,
	}
}

// SyncResult is the outcome of syncing one channel
type SyncResult struct {
	ChannelID string
	Class     domain.ChannelClass
	Messages  []domain.Message // In-window messages, oldest first
	Authors   map[string]struct{}
	Inserted  int  // Messages that were new to the store
	Partial   bool // Upstream failed mid-pagination
}

// ActiveUserCount returns the number of distinct authors in the window
func (r *SyncResult) ActiveUserCount() int {
	return len(r.Authors)
}

// IsActive reports whether the channel counts as active for stats
func (r *SyncResult) IsActive() bool {
	return len(r.Messages) > 0 || r.Class == domain.ChannelAlwaysVisible
}

// SyncUsecase pulls windowed message history from the upstream platform
type SyncUsecase struct {
	chatRepo    repo.ChatRepo
	messageRepo repo.MessageRepo
	classifier  *domain.ChannelClassifier
	config      SyncConfig
	now         func() time.Time
	logger      zerolog.Logger
}

// NewSyncUsecase creates a new sync usecase
func NewSyncUsecase(
	chatRepo repo.ChatRepo,
	messageRepo repo.MessageRepo,
	classifier *domain.ChannelClassifier,
	config SyncConfig,
) *SyncUsecase {
	if config.PageSize <= 0 {
		config.PageSize = DefaultSyncConfig().PageSize
	}
	if config.MaxMessages <= 0 {
		config.MaxMessages = DefaultSyncConfig().MaxMessages
	}
	return &SyncUsecase{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		classifier:  classifier,
		config:      config,
		now:         time.Now,
		logger:      log.With().Str("component", "sync").Logger(),
	}
}

// Config returns the sync configuration
func (uc *SyncUsecase) Config() SyncConfig {
	return uc.config
}

// WindowStart returns the cutoff of a sliding window, with seconds and
// sub-seconds zeroed so repeated calls within a minute compare equal
func WindowStart(now time.Time, window time.Duration) time.Time {
	return now.Add(-window).Truncate(time.Minute)
}

// Sync fetches the channel's messages inside the window and stores them.
// An upstream failure after the first page returns what was collected with
// Partial set; callers must not assume completeness.
func (uc *SyncUsecase) Sync(ctx context.Context, ch domain.Channel, window time.Duration) (*SyncResult, error) {
	cutoff := WindowStart(uc.now(), window)
	result := &SyncResult{
		ChannelID: ch.ID,
		Class:     uc.classifier.Classify(ch),
		Authors:   make(map[string]struct{}),
	}

	seen := make(map[string]struct{})
	var collected []domain.Message
	cursor := ""
	pages := 0

	for len(collected) < uc.config.MaxMessages {
		limit := uc.config.PageSize
		if remaining := uc.config.MaxMessages - len(collected); remaining < limit {
			limit = remaining
		}

		page, err := uc.chatRepo.ListMessages(ctx, ch.ID, limit, cursor)
		if err != nil {
			if pages == 0 {
				return nil, fmt.Errorf("fetch messages for channel %s: %w", ch.ID, err)
			}
			uc.logger.Warn().Err(err).
				Str("channel_id", ch.ID).
				Int("collected", len(collected)).
				Msg("Upstream failed mid-pagination, returning partial result")
			result.Partial = true
			break
		}
		pages++

		if page == nil || len(page.Messages) == 0 {
			break
		}

		oldest := page.Messages[0].CreatedAt
		for _, msg := range page.Messages {
			if msg.CreatedAt.Before(oldest) {
				oldest = msg.CreatedAt
			}
			if msg.IsBefore(cutoff) {
				continue
			}
			if _, dup := seen[msg.ID]; dup {
				continue
			}
			if len(collected) >= uc.config.MaxMessages {
				break
			}
			if msg.ChannelID == "" {
				msg.ChannelID = ch.ID
			}
			seen[msg.ID] = struct{}{}
			collected = append(collected, msg)
		}

		if oldest.Before(cutoff) || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if len(collected) > 0 {
		inserted, err := uc.messageRepo.Append(ctx, collected...)
		if err != nil {
			return nil, fmt.Errorf("store messages for channel %s: %w", ch.ID, err)
		}
		result.Inserted = inserted
	}

	domain.SortChronological(collected)
	for _, msg := range collected {
		result.Authors[msg.AuthorID] = struct{}{}
	}
	result.Messages = collected

	uc.logger.Debug().
		Str("channel_id", ch.ID).
		Int("pages", pages).
		Int("messages", len(collected)).
		Int("inserted", result.Inserted).
		Int("active_users", result.ActiveUserCount()).
		Bool("partial", result.Partial).
		Msg("Channel synced")

	return result, nil
}
