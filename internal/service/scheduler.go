package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
	"github.com/channelpulse/channel-pulse/internal/biz/usecase"
)

// SchedulerConfig contains scheduler intervals
type SchedulerConfig struct {
	PollInterval     time.Duration // Monitor tick and ingest
	SettingsInterval time.Duration
	ServersInterval  time.Duration
}

// DefaultSchedulerConfig returns default scheduler intervals
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PollInterval:     15 * time.Second,
		SettingsInterval: 60 * time.Second,
		ServersInterval:  5 * time.Minute,
	}
}

// ActivityScheduler drives ingestion and the activity monitor on timers
type ActivityScheduler struct {
	settingsRepo repo.SettingsRepo
	catalogUC    *usecase.CatalogUsecase
	syncUC       *usecase.SyncUsecase
	monitorUC    *usecase.MonitorUsecase
	classifier   *domain.ChannelClassifier

	config SchedulerConfig
	now    func() time.Time

	mu       sync.RWMutex
	settings domain.UserSettings
	servers  []domain.ServerChannels

	// admitted holds the monitored channels whose baseline has been seeded
	refreshMu sync.Mutex
	admitted  map[string]struct{}

	ticking   atomic.Bool
	ingesting atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewActivityScheduler creates a new activity scheduler
func NewActivityScheduler(
	settingsRepo repo.SettingsRepo,
	catalogUC *usecase.CatalogUsecase,
	syncUC *usecase.SyncUsecase,
	monitorUC *usecase.MonitorUsecase,
	classifier *domain.ChannelClassifier,
	config SchedulerConfig,
) *ActivityScheduler {
	defaults := DefaultSchedulerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.SettingsInterval <= 0 {
		config.SettingsInterval = defaults.SettingsInterval
	}
	if config.ServersInterval <= 0 {
		config.ServersInterval = defaults.ServersInterval
	}
	return &ActivityScheduler{
		settingsRepo: settingsRepo,
		catalogUC:    catalogUC,
		syncUC:       syncUC,
		monitorUC:    monitorUC,
		classifier:   classifier,
		config:       config,
		now:          time.Now,
		settings:     domain.DefaultUserSettings(),
		logger:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Start loads settings and servers, seeds the monitor baselines and starts the loops
func (s *ActivityScheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.refreshSettings(s.ctx)
	// Every monitored channel is new here, so this ingests and seeds them all
	s.refreshServers(s.ctx)

	s.wg.Add(4)
	go s.loop(s.config.SettingsInterval, s.refreshSettings)
	go s.loop(s.config.ServersInterval, s.refreshServers)
	go s.loop(s.config.PollInterval, func(ctx context.Context) { s.RunIngest(ctx) })
	go s.loop(s.config.PollInterval, func(ctx context.Context) { s.RunTick(ctx) })

	s.logger.Info().
		Dur("poll", s.config.PollInterval).
		Dur("settings", s.config.SettingsInterval).
		Dur("servers", s.config.ServersInterval).
		Msg("Started")
	return nil
}

// Stop stops the loops and waits for in-flight work
func (s *ActivityScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info().Msg("Stopped")
}

func (s *ActivityScheduler) loop(interval time.Duration, fn func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			fn(s.ctx)
		}
	}
}

// Settings returns the cached settings
func (s *ActivityScheduler) Settings() domain.UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Servers returns the cached servers and channels. Monitored channels appear
// only once their baseline has been seeded.
func (s *ActivityScheduler) Servers() []domain.ServerChannels {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.servers
}

// RunTick runs one monitor tick. It returns false without running when the
// previous tick is still in progress.
func (s *ActivityScheduler) RunTick(ctx context.Context) (*usecase.TickReport, bool) {
	if !s.ticking.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("Previous monitor tick still running, skipping")
		return nil, false
	}
	defer s.ticking.Store(false)

	report := s.monitorUC.Tick(ctx, s.Settings(), s.Servers(), s.now())
	if report.Triggered > 0 {
		s.logger.Info().
			Int("evaluated", report.Evaluated).
			Int("triggered", report.Triggered).
			Int("completed", report.Completed).
			Int("failed", report.Failed).
			Msg("Monitor tick")
	}
	return report, true
}

// RunIngest syncs every monitored channel over the daily window. It returns
// false without running when the previous ingest is still in progress.
func (s *ActivityScheduler) RunIngest(ctx context.Context) bool {
	if !s.ingesting.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("Previous ingest still running, skipping")
		return false
	}
	defer s.ingesting.Store(false)

	window := s.syncUC.Config().DailyWindow
	inserted := 0
	for _, sc := range s.Servers() {
		for _, ch := range sc.Channels {
			if ctx.Err() != nil {
				return true
			}
			if !s.classifier.IsMonitored(ch) {
				continue
			}
			result, err := s.syncUC.Sync(ctx, ch, window)
			if err != nil {
				s.logger.Warn().Err(err).
					Str("server_id", sc.Server.ID).
					Str("channel_id", ch.ID).
					Msg("Ingest failed, skipping channel")
				continue
			}
			inserted += result.Inserted
		}
	}
	if inserted > 0 {
		s.logger.Debug().Int("inserted", inserted).Msg("Ingest complete")
	}
	return true
}

func (s *ActivityScheduler) refreshSettings(ctx context.Context) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load settings, keeping previous")
		return
	}

	s.mu.Lock()
	changed := settings != s.settings
	s.settings = settings
	s.mu.Unlock()

	if changed {
		s.logger.Info().
			Bool("auto_analysis", settings.AutoAnalysisEnabled).
			Bool("has_recipient", settings.DefaultEmailRecipient != "").
			Int("message_threshold", settings.MessageThreshold).
			Int("time_threshold_min", settings.TimeThreshold).
			Msg("Settings loaded")
	}
}

// refreshServers pulls servers and channels from the upstream into the store,
// then reloads the cache from the store. Upstream failures keep stored data.
//
// A channel that became monitored since the last refresh, because it is new or
// was re-activated, is ingested and has its baseline seeded before it enters the
// cache, so its backlog is never evaluated as a delta. A channel that fails
// either step stays out of the cache and is retried on the next refresh.
func (s *ActivityScheduler) refreshServers(ctx context.Context) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if err := s.catalogUC.Pull(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Upstream server refresh failed, using stored channels")
	}

	servers, err := s.catalogUC.Load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load stored servers, keeping previous")
		return
	}

	var pending []domain.ServerChannels
	for _, sc := range servers {
		var fresh []domain.Channel
		for _, ch := range sc.Channels {
			if _, ok := s.admitted[ch.ID]; !ok && s.classifier.IsMonitored(ch) {
				fresh = append(fresh, ch)
			}
		}
		if len(fresh) > 0 {
			pending = append(pending, domain.ServerChannels{Server: sc.Server, Channels: fresh})
		}
	}

	seeded := make(map[string]struct{})
	if len(pending) > 0 {
		for _, id := range s.monitorUC.InitializeBaselines(ctx, s.ingest(ctx, pending)) {
			seeded[id] = struct{}{}
		}
	}

	admitted := make(map[string]struct{})
	ready := make([]domain.ServerChannels, 0, len(servers))
	for _, sc := range servers {
		channels := make([]domain.Channel, 0, len(sc.Channels))
		for _, ch := range sc.Channels {
			if s.classifier.IsMonitored(ch) {
				_, known := s.admitted[ch.ID]
				_, ok := seeded[ch.ID]
				if !known && !ok {
					continue
				}
				admitted[ch.ID] = struct{}{}
			}
			channels = append(channels, ch)
		}
		sc.Channels = channels
		ready = append(ready, sc)
	}
	// Channels that stopped being monitored drop out and are re-seeded on return
	s.admitted = admitted

	s.mu.Lock()
	s.servers = ready
	s.mu.Unlock()
}

// ingest syncs the given channels over the daily window and returns the ones
// that synced
func (s *ActivityScheduler) ingest(ctx context.Context, servers []domain.ServerChannels) []domain.ServerChannels {
	window := s.syncUC.Config().DailyWindow
	var synced []domain.ServerChannels
	for _, sc := range servers {
		var channels []domain.Channel
		for _, ch := range sc.Channels {
			if ctx.Err() != nil {
				return synced
			}
			if _, err := s.syncUC.Sync(ctx, ch, window); err != nil {
				s.logger.Warn().Err(err).
					Str("server_id", sc.Server.ID).
					Str("channel_id", ch.ID).
					Msg("Initial ingest failed, channel not monitored yet")
				continue
			}
			channels = append(channels, ch)
		}
		if len(channels) > 0 {
			synced = append(synced, domain.ServerChannels{Server: sc.Server, Channels: channels})
		}
	}
	return synced
}
