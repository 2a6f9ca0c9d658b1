package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
)

// TickReport summarizes one monitor tick
type TickReport struct {
	Skipped   bool // Auto-analysis disabled or no recipient
	Evaluated int
	Triggered int
	Completed int
	Failed    int
}

// MonitorUsecase tracks per-channel activity and triggers analyses
type MonitorUsecase struct {
	stateRepo    repo.MonitorStateRepo
	messageRepo  repo.MessageRepo
	analyzerRepo repo.AnalyzerRepo
	notifierRepo repo.NotifierRepo
	classifier   *domain.ChannelClassifier

	locks  *channelLocks
	logger zerolog.Logger
}

// NewMonitorUsecase creates a new monitor usecase
func NewMonitorUsecase(
	stateRepo repo.MonitorStateRepo,
	messageRepo repo.MessageRepo,
	analyzerRepo repo.AnalyzerRepo,
	notifierRepo repo.NotifierRepo,
	classifier *domain.ChannelClassifier,
) *MonitorUsecase {
	return &MonitorUsecase{
		stateRepo:    stateRepo,
		messageRepo:  messageRepo,
		analyzerRepo: analyzerRepo,
		notifierRepo: notifierRepo,
		classifier:   classifier,
		locks:        newChannelLocks(),
		logger:       log.With().Str("component", "monitor").Logger(),
	}
}

// InitializeBaselines seeds every monitored channel's baseline from its current
// full message count, so historical backlog is not read as a sudden delta. A
// channel that fails to seed is logged and skipped. It returns the ids of the
// channels that were seeded.
func (uc *MonitorUsecase) InitializeBaselines(ctx context.Context, servers []domain.ServerChannels) []string {
	var seeded []string
	for _, sc := range servers {
		for _, ch := range sc.Channels {
			if ctx.Err() != nil {
				return seeded
			}
			if !uc.classifier.IsMonitored(ch) {
				continue
			}
			if err := uc.seedBaseline(ctx, ch.ID); err != nil {
				uc.logger.Warn().Err(err).
					Str("server_id", sc.Server.ID).
					Str("channel_id", ch.ID).
					Msg("Failed to seed baseline, skipping channel")
				continue
			}
			seeded = append(seeded, ch.ID)
		}
	}
	uc.logger.Info().Int("channels", len(seeded)).Msg("Baselines initialized")
	return seeded
}

func (uc *MonitorUsecase) seedBaseline(ctx context.Context, channelID string) error {
	unlock := uc.locks.lock(channelID)
	defer unlock()

	count, err := uc.messageRepo.Count(ctx, channelID)
	if err != nil {
		return fmt.Errorf("count messages of channel %s: %w", channelID, err)
	}
	state, err := uc.loadState(ctx, channelID)
	if err != nil {
		return err
	}
	state.Observe(count)
	if err := uc.stateRepo.Save(ctx, state); err != nil {
		return fmt.Errorf("save monitor state: %w", err)
	}
	return nil
}

// Tick evaluates every monitored channel once, sequentially
func (uc *MonitorUsecase) Tick(ctx context.Context, settings domain.UserSettings, servers []domain.ServerChannels, now time.Time) *TickReport {
	report := &TickReport{}
	settings = settings.Normalize()
	if !settings.CanAutoAnalyze() {
		report.Skipped = true
		return report
	}

	for _, sc := range servers {
		for _, ch := range sc.Channels {
			if ctx.Err() != nil {
				return report
			}
			if !uc.classifier.IsMonitored(ch) {
				continue
			}
			report.Evaluated++
			triggered, err := uc.evaluateChannel(ctx, sc.Server, ch, settings, now)
			if triggered {
				report.Triggered++
				if err != nil {
					report.Failed++
				} else {
					report.Completed++
				}
			}
			if err != nil {
				uc.logger.Error().Err(err).
					Str("server_id", sc.Server.ID).
					Str("channel_id", ch.ID).
					Msg("Channel evaluation failed, will retry next tick")
			}
		}
	}
	return report
}

// evaluateChannel updates the baseline and runs the pipeline when triggered
func (uc *MonitorUsecase) evaluateChannel(ctx context.Context, server domain.Server, ch domain.Channel, settings domain.UserSettings, now time.Time) (bool, error) {
	unlock := uc.locks.lock(ch.ID)
	defer unlock()

	count, err := uc.messageRepo.Count(ctx, ch.ID)
	if err != nil {
		return false, fmt.Errorf("count messages: %w", err)
	}

	state, err := uc.loadState(ctx, ch.ID)
	if err != nil {
		return false, err
	}

	delta := state.Observe(count)
	if !state.ShouldTrigger(delta, settings, now) {
		if err := uc.stateRepo.Save(ctx, state); err != nil {
			return false, fmt.Errorf("save monitor state: %w", err)
		}
		if delta > 0 {
			uc.logger.Info().
				Str("channel_id", ch.ID).
				Int("delta", delta).
				Int("threshold", settings.MessageThreshold).
				Bool("cooldown_elapsed", state.CooldownElapsed(settings.Cooldown(), now)).
				Msg("New messages below trigger")
		}
		return false, nil
	}

	uc.logger.Info().
		Str("channel_id", ch.ID).
		Str("channel", ch.Name).
		Int("delta", delta).
		Msg("Threshold reached, running analysis")

	// The raised baseline is only stored with a completed pipeline, so a failed
	// run sees the same delta again on the next tick
	if err := uc.runPipeline(ctx, server, ch, state, settings, delta, now); err != nil {
		return true, err
	}

	state.MarkAnalyzed(now)
	if err := uc.stateRepo.Save(ctx, state); err != nil {
		return true, fmt.Errorf("save monitor state: %w", err)
	}
	return true, nil
}

// runPipeline runs sentiment, then JTBD with the sentiment as context, then the email
func (uc *MonitorUsecase) runPipeline(
	ctx context.Context,
	server domain.Server,
	ch domain.Channel,
	state *domain.ChannelMonitorState,
	settings domain.UserSettings,
	delta int,
	now time.Time,
) error {
	msgs, err := uc.messageRepo.List(ctx, ch.ID, time.Time{})
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	transcript := domain.Transcript(msgs)

	sentiment, err := uc.analyzerRepo.Sentiment(ctx, ch.Name, transcript)
	if err != nil {
		return fmt.Errorf("sentiment analysis: %w", err)
	}

	jtbd, err := uc.analyzerRepo.JTBD(ctx, ch.Name, transcript, sentiment)
	if err != nil {
		return fmt.Errorf("jtbd analysis: %w", err)
	}

	results := []domain.AnalysisResult{
		{ChannelID: ch.ID, Kind: domain.AnalysisSentiment, Text: sentiment, MessagesAnalyzed: len(msgs), GeneratedAt: now},
		{ChannelID: ch.ID, Kind: domain.AnalysisJTBD, Text: jtbd, MessagesAnalyzed: len(msgs), GeneratedAt: now},
	}

	n := BuildNotification(settings.DefaultEmailRecipient, server, ch, delta, state.LastAnalysisAt, results, now)
	if err := uc.notifierRepo.Send(ctx, n); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	uc.logger.Info().Str("channel_id", ch.ID).Str("to", n.To).Msg("Analysis sent")
	return nil
}

func (uc *MonitorUsecase) loadState(ctx context.Context, channelID string) (*domain.ChannelMonitorState, error) {
	state, err := uc.stateRepo.Get(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load monitor state: %w", err)
	}
	if state == nil {
		state = domain.NewChannelMonitorState(channelID)
	}
	return state, nil
}

// States lists all monitor states
func (uc *MonitorUsecase) States(ctx context.Context) ([]*domain.ChannelMonitorState, error) {
	return uc.stateRepo.ListAll(ctx)
}

// channelLocks hands out one mutex per channel
type channelLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newChannelLocks() *channelLocks {
	return &channelLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *channelLocks) lock(channelID string) func() {
	l.mu.Lock()
	m, ok := l.locks[channelID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[channelID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
