package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
)

// DefaultRetryAfter is the retry hint returned with pending outcomes
const DefaultRetryAfter = 10 * time.Second

// Analyzer runs the analyses behind the "generate now" operations
type Analyzer interface {
	RunServerAnalysis(ctx context.Context, serverID string) (*domain.ServerStats, error)
	GenerateChannelSummary(ctx context.Context, channelID string) (*domain.ChannelSummary, error)
}

// Outcome is the result of a bounded wait. When Pending is set the job is
// still running in the background and will commit its results when done.
type Outcome[T any] struct {
	Value      T
	Pending    bool
	RetryAfter time.Duration
	Err        error
}

// AnalysisConfig contains bounded wait configuration
type AnalysisConfig struct {
	SummaryWait time.Duration
	RefreshWait time.Duration
	RetryAfter  time.Duration
}

// DefaultAnalysisConfig returns default bounded wait configuration
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		SummaryWait: 10 * time.Second,
		RefreshWait: 120 * time.Second,
		RetryAfter:  DefaultRetryAfter,
	}
}

// AnalysisService runs analyses with a bounded wait. Jobs are never cancelled
// by the caller; concurrent requests for the same target join one job.
type AnalysisService struct {
	analyzer Analyzer
	config   AnalysisConfig
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(analyzer Analyzer, config AnalysisConfig) *AnalysisService {
	defaults := DefaultAnalysisConfig()
	if config.SummaryWait <= 0 {
		config.SummaryWait = defaults.SummaryWait
	}
	if config.RefreshWait <= 0 {
		config.RefreshWait = defaults.RefreshWait
	}
	if config.RetryAfter <= 0 {
		config.RetryAfter = defaults.RetryAfter
	}
	return &AnalysisService{
		analyzer: analyzer,
		config:   config,
		logger:   log.With().Str("component", "analysis-service").Logger(),
	}
}

// RefreshServer runs a full server analysis, waiting at most RefreshWait
func (s *AnalysisService) RefreshServer(ctx context.Context, serverID string) Outcome[*domain.ServerStats] {
	return boundedWait(ctx, s, "refresh:"+serverID, s.config.RefreshWait,
		func(jobCtx context.Context) (*domain.ServerStats, error) {
			return s.analyzer.RunServerAnalysis(jobCtx, serverID)
		})
}

// GenerateSummary summarizes one channel, waiting at most SummaryWait
func (s *AnalysisService) GenerateSummary(ctx context.Context, channelID string) Outcome[*domain.ChannelSummary] {
	return boundedWait(ctx, s, "summary:"+channelID, s.config.SummaryWait,
		func(jobCtx context.Context) (*domain.ChannelSummary, error) {
			return s.analyzer.GenerateChannelSummary(jobCtx, channelID)
		})
}

// boundedWait starts or joins the job for key and races it against the wait
// and the caller's context.
func boundedWait[T any](ctx context.Context, s *AnalysisService, key string, wait time.Duration, job func(context.Context) (T, error)) Outcome[T] {
	// Detached so a caller abort never cancels upstream or provider calls
	jobCtx := context.WithoutCancel(ctx)

	ch := s.group.DoChan(key, func() (interface{}, error) {
		start := time.Now()
		v, err := job(jobCtx)
		logEvent := s.logger.Info()
		if err != nil {
			logEvent = s.logger.Error().Err(err)
		}
		logEvent.Str("job", key).Dur("elapsed", time.Since(start)).Msg("Analysis job finished")
		return v, err
	})

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return Outcome[T]{Err: res.Err}
		}
		v, ok := res.Val.(T)
		if !ok {
			return Outcome[T]{Err: fmt.Errorf("unexpected result type %T for %s", res.Val, key)}
		}
		return Outcome[T]{Value: v}
	case <-timer.C:
		s.logger.Info().Str("job", key).Dur("wait", wait).Msg("Analysis still running, continuing in background")
		return Outcome[T]{Pending: true, RetryAfter: s.config.RetryAfter}
	case <-ctx.Done():
		s.logger.Info().Str("job", key).Msg("Caller gone, analysis continues in background")
		return Outcome[T]{Pending: true, RetryAfter: s.config.RetryAfter}
	}
}
