package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blockingAnalyzer holds every job until release is closed
type blockingAnalyzer struct {
	release chan struct{}
	calls   atomic.Int32
	err     error
}

func newBlockingAnalyzer() *blockingAnalyzer {
	return &blockingAnalyzer{release: make(chan struct{})}
}

func (a *blockingAnalyzer) RunServerAnalysis(ctx context.Context, serverID string) (*domain.ServerStats, error) {
	a.calls.Add(1)
	<-a.release
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if a.err != nil {
		return nil, a.err
	}
	return &domain.ServerStats{ID: "st-1", ServerID: serverID, TotalMessages: 42}, nil
}

func (a *blockingAnalyzer) GenerateChannelSummary(ctx context.Context, channelID string) (*domain.ChannelSummary, error) {
	a.calls.Add(1)
	<-a.release
	if a.err != nil {
		return nil, a.err
	}
	return &domain.ChannelSummary{ID: "s-1", ChannelID: channelID, Summary: "done"}, nil
}

func testAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		SummaryWait: 50 * time.Millisecond,
		RefreshWait: 50 * time.Millisecond,
		RetryAfter:  3 * time.Second,
	}
}

func TestNewAnalysisService_Defaults(t *testing.T) {
	s := NewAnalysisService(newBlockingAnalyzer(), AnalysisConfig{})
	assert.Equal(t, DefaultAnalysisConfig(), s.config)
}

func TestRefreshServer_CompletesWithinWait(t *testing.T) {
	a := newBlockingAnalyzer()
	close(a.release)
	s := NewAnalysisService(a, testAnalysisConfig())

	out := s.RefreshServer(context.Background(), "g1")
	require.NoError(t, out.Err)
	assert.False(t, out.Pending)
	require.NotNil(t, out.Value)
	assert.Equal(t, 42, out.Value.TotalMessages)
}

func TestRefreshServer_PendingThenJoined(t *testing.T) {
	a := newBlockingAnalyzer()
	s := NewAnalysisService(a, testAnalysisConfig())

	out := s.RefreshServer(context.Background(), "g1")
	assert.True(t, out.Pending)
	assert.Equal(t, 3*time.Second, out.RetryAfter)
	assert.Nil(t, out.Value)

	// A second request while the job runs joins it
	s.config.RefreshWait = time.Second
	done := make(chan Outcome[*domain.ServerStats])
	go func() {
		done <- s.RefreshServer(context.Background(), "g1")
	}()

	time.Sleep(20 * time.Millisecond)
	close(a.release)

	joined := <-done
	require.NoError(t, joined.Err)
	require.NotNil(t, joined.Value)
	assert.Equal(t, "g1", joined.Value.ServerID)
	assert.Equal(t, int32(1), a.calls.Load())
}

func TestGenerateSummary_DistinctChannelsRunSeparately(t *testing.T) {
	a := newBlockingAnalyzer()
	close(a.release)
	s := NewAnalysisService(a, testAnalysisConfig())

	var wg sync.WaitGroup
	for _, id := range []string{"c1", "c2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			out := s.GenerateSummary(context.Background(), id)
			assert.NoError(t, out.Err)
			assert.Equal(t, id, out.Value.ChannelID)
		}(id)
	}
	wg.Wait()
	assert.Equal(t, int32(2), a.calls.Load())
}

func TestGenerateSummary_Error(t *testing.T) {
	a := newBlockingAnalyzer()
	a.err = domain.ErrChannelNotFound
	close(a.release)
	s := NewAnalysisService(a, testAnalysisConfig())

	out := s.GenerateSummary(context.Background(), "missing")
	assert.False(t, out.Pending)
	assert.ErrorIs(t, out.Err, domain.ErrChannelNotFound)
}

func TestRefreshServer_CallerCancelDoesNotCancelJob(t *testing.T) {
	a := newBlockingAnalyzer()
	s := NewAnalysisService(a, AnalysisConfig{RefreshWait: time.Minute, RetryAfter: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	out := s.RefreshServer(ctx, "g1")
	assert.True(t, out.Pending)

	close(a.release)

	// The detached job finishes and its result is shared with the next caller
	s.config.RefreshWait = time.Second
	require.Eventually(t, func() bool {
		next := s.RefreshServer(context.Background(), "g1")
		return next.Err == nil && next.Value != nil
	}, time.Second, 10*time.Millisecond)
}

func TestRefreshServer_ErrorIsNotPending(t *testing.T) {
	a := newBlockingAnalyzer()
	a.err = errors.New("upstream unavailable")
	close(a.release)
	s := NewAnalysisService(a, testAnalysisConfig())

	out := s.RefreshServer(context.Background(), "g1")
	assert.False(t, out.Pending)
	assert.EqualError(t, out.Err, "upstream unavailable")
}
