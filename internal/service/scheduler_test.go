package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
	"github.com/channelpulse/channel-pulse/internal/biz/usecase"
)

// stubChat is a single-server upstream whose messages are served in one page
type stubChat struct {
	mu       sync.Mutex
	channels []domain.Channel
	messages map[string][]domain.Message // oldest first
	ready    bool
}

func (c *stubChat) Platform() string { return "stub" }
func (c *stubChat) Connect(context.Context) error { c.ready = true; return nil }
func (c *stubChat) Ready() bool { return c.ready }
func (c *stubChat) HealthCheck(context.Context) error { return nil }
func (c *stubChat) Close() error { return nil }

func (c *stubChat) ListServers(context.Context) ([]domain.Server, error) {
	return []domain.Server{{ID: "g1", Name: "Guild", Platform: "stub"}}, nil
}

func (c *stubChat) GetServer(ctx context.Context, serverID string) (*domain.Server, error) {
	return &domain.Server{ID: serverID, Name: "Guild", Platform: "stub"}, nil
}

func (c *stubChat) ListChannels(context.Context, string) ([]domain.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Channel(nil), c.channels...), nil
}

func (c *stubChat) addChannel(ch domain.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = append(c.channels, ch)
}

func (c *stubChat) ListMessages(ctx context.Context, channelID string, limit int, before string) (*repo.MessagePage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.messages[channelID]
	page := &repo.MessagePage{}
	for i := len(all) - 1; i >= 0 && len(page.Messages) < limit; i-- {
		page.Messages = append(page.Messages, all[i])
	}
	return page, nil
}

// post adds n fresh messages to a channel
func (c *stubChat) post(channelID string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	offset := len(c.messages[channelID])
	for i := 0; i < n; i++ {
		c.messages[channelID] = append(c.messages[channelID], domain.Message{
			ID:        fmt.Sprintf("%s-%d", channelID, offset+i),
			ChannelID: channelID,
			AuthorID:  fmt.Sprintf("u%d", i%3),
			Content:   "hello",
			CreatedAt: now.Add(-time.Duration(n-i) * time.Second),
		})
	}
}

type stubAnalyzer struct{}

func (stubAnalyzer) Summarize(context.Context, string, string) (*domain.SummaryDraft, error) {
	return &domain.SummaryDraft{Summary: "ok", KeyTopics: []string{}}, nil
}

func (stubAnalyzer) Sentiment(context.Context, string, string) (string, error) {
	return "positive", nil
}

func (stubAnalyzer) JTBD(context.Context, string, string, string) (string, error) {
	return "- ship faster", nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Send(ctx context.Context, msg domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type schedulerFixture struct {
	chat      *stubChat
	notifier  *recordingNotifier
	messages  repo.MessageRepo
	states    repo.MonitorStateRepo
	settings  repo.SettingsRepo
	scheduler *ActivityScheduler
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	store := newMemStore()
	f := &schedulerFixture{
		chat: &stubChat{
			channels: []domain.Channel{
				{ID: "c1", ServerID: "g1", Name: "general", Active: true},
				{ID: "c2", ServerID: "g1", Name: "random", Active: true},
			},
			messages: make(map[string][]domain.Message),
		},
		notifier: &recordingNotifier{},
		messages: memMessages{store},
		states:   memStates{store},
		settings: memSettings{store},
	}
	servers := memServers{store}
	classifier := domain.NewChannelClassifier(nil, nil)

	catalogUC := usecase.NewCatalogUsecase(f.chat, servers)
	syncUC := usecase.NewSyncUsecase(f.chat, f.messages, classifier, usecase.DefaultSyncConfig())
	monitorUC := usecase.NewMonitorUsecase(f.states, f.messages, stubAnalyzer{}, f.notifier, classifier)

	f.scheduler = NewActivityScheduler(f.settings, catalogUC, syncUC, monitorUC, classifier, SchedulerConfig{
		PollInterval:     time.Hour,
		SettingsInterval: time.Hour,
		ServersInterval:  time.Hour,
	})
	return f
}

func TestScheduler_StartSeedsBaselinesAfterIngest(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	f.chat.post("c1", 30)

	require.NoError(t, f.scheduler.Start(ctx))
	defer f.scheduler.Stop()

	servers := f.scheduler.Servers()
	require.Len(t, servers, 1)
	assert.Len(t, servers[0].Channels, 2)

	count, err := f.messages.Count(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 30, count)

	state, err := f.states.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 30, state.LastObservedMessageCount, "history is not a delta")
	assert.Nil(t, state.LastAnalysisAt)
}

func TestScheduler_IngestThenTickNotifies(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	f.chat.post("c1", 10)

	require.NoError(t, f.settings.Save(ctx, domain.UserSettings{
		AutoAnalysisEnabled:   true,
		DefaultEmailRecipient: "ops@example.com",
		MessageThreshold:      20,
		TimeThreshold:         30,
	}))
	require.NoError(t, f.scheduler.Start(ctx))
	defer f.scheduler.Stop()
	assert.True(t, f.scheduler.Settings().AutoAnalysisEnabled)

	report, ran := f.scheduler.RunTick(ctx)
	require.True(t, ran)
	assert.Zero(t, report.Triggered)

	f.chat.post("c1", 25)
	require.True(t, f.scheduler.RunIngest(ctx))

	report, ran = f.scheduler.RunTick(ctx)
	require.True(t, ran)
	assert.Equal(t, 1, report.Triggered)
	assert.Equal(t, 1, report.Completed)
	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, "ops@example.com", f.notifier.sent[0].To)

	state, err := f.states.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 35, state.LastObservedMessageCount)
	assert.NotNil(t, state.LastAnalysisAt)
}

func TestScheduler_OverlappingRunsAreSkipped(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	f.scheduler.ticking.Store(true)
	report, ran := f.scheduler.RunTick(ctx)
	assert.False(t, ran)
	assert.Nil(t, report)
	f.scheduler.ticking.Store(false)

	f.scheduler.ingesting.Store(true)
	assert.False(t, f.scheduler.RunIngest(ctx))
	f.scheduler.ingesting.Store(false)

	_, ran = f.scheduler.RunTick(ctx)
	assert.True(t, ran)
	assert.True(t, f.scheduler.RunIngest(ctx))
}

func TestScheduler_InactiveChannelsAreNotIngested(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	f.chat.post("c2", 5)

	require.NoError(t, f.scheduler.Start(ctx))
	f.scheduler.Stop()

	require.NoError(t, f.scheduler.catalogUC.SetChannelActive(ctx, "c2", false))
	f.scheduler.refreshServers(ctx)
	f.chat.post("c2", 5)
	require.True(t, f.scheduler.RunIngest(ctx))

	count, err := f.messages.Count(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 5, count, "only the ingest before deactivation stored c2")
}

func enableAutoAnalysis(t *testing.T, f *schedulerFixture) {
	t.Helper()
	require.NoError(t, f.settings.Save(context.Background(), domain.UserSettings{
		AutoAnalysisEnabled:   true,
		DefaultEmailRecipient: "ops@example.com",
		MessageThreshold:      20,
		TimeThreshold:         30,
	}))
}

func TestScheduler_ChannelAddedAfterStartIsSeeded(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	enableAutoAnalysis(t, f)

	require.NoError(t, f.scheduler.Start(ctx))
	f.scheduler.Stop()

	f.chat.addChannel(domain.Channel{ID: "c3", ServerID: "g1", Name: "dev", Active: true})
	f.chat.post("c3", 40)
	f.scheduler.refreshServers(ctx)

	state, err := f.states.Get(ctx, "c3")
	require.NoError(t, err)
	require.NotNil(t, state)
	count, err := f.messages.Count(ctx, "c3")
	require.NoError(t, err)
	assert.Positive(t, count)
	assert.Equal(t, count, state.LastObservedMessageCount, "backlog is part of the baseline")

	require.True(t, f.scheduler.RunIngest(ctx))
	report, ran := f.scheduler.RunTick(ctx)
	require.True(t, ran)
	assert.Equal(t, 3, report.Evaluated)
	assert.Zero(t, report.Triggered)
	assert.Zero(t, f.notifier.count())

	// Activity after admission still triggers
	f.chat.post("c3", 25)
	require.True(t, f.scheduler.RunIngest(ctx))
	report, _ = f.scheduler.RunTick(ctx)
	assert.Equal(t, 1, report.Triggered)
	assert.Equal(t, 1, f.notifier.count())
}

func TestScheduler_ReactivatedChannelIsReseeded(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	enableAutoAnalysis(t, f)

	require.NoError(t, f.scheduler.Start(ctx))
	f.scheduler.Stop()

	require.NoError(t, f.scheduler.catalogUC.SetChannelActive(ctx, "c2", false))
	f.scheduler.refreshServers(ctx)

	f.chat.post("c2", 40)
	require.NoError(t, f.scheduler.catalogUC.SetChannelActive(ctx, "c2", true))
	f.scheduler.refreshServers(ctx)

	count, err := f.messages.Count(ctx, "c2")
	require.NoError(t, err)
	assert.Positive(t, count)
	state, err := f.states.Get(ctx, "c2")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, count, state.LastObservedMessageCount)

	report, ran := f.scheduler.RunTick(ctx)
	require.True(t, ran)
	assert.Zero(t, report.Triggered)
	assert.Zero(t, f.notifier.count())
}

// failingChat fails message listing for one channel
type failingChat struct {
	*stubChat
	failing string
}

func (c *failingChat) ListMessages(ctx context.Context, channelID string, limit int, before string) (*repo.MessagePage, error) {
	if channelID == c.failing {
		return nil, errors.New("rate limited")
	}
	return c.stubChat.ListMessages(ctx, channelID, limit, before)
}

func TestScheduler_ChannelWithFailedIngestIsHeldBack(t *testing.T) {
	store := newMemStore()
	chat := &failingChat{
		stubChat: &stubChat{
			channels: []domain.Channel{
				{ID: "c1", ServerID: "g1", Name: "general", Active: true},
				{ID: "c2", ServerID: "g1", Name: "random", Active: true},
			},
			messages: make(map[string][]domain.Message),
		},
		failing: "c2",
	}
	states := memStates{store}
	classifier := domain.NewChannelClassifier(nil, nil)
	s := NewActivityScheduler(memSettings{store},
		usecase.NewCatalogUsecase(chat, memServers{store}),
		usecase.NewSyncUsecase(chat, memMessages{store}, classifier, usecase.DefaultSyncConfig()),
		usecase.NewMonitorUsecase(states, memMessages{store}, stubAnalyzer{}, &recordingNotifier{}, classifier),
		classifier, SchedulerConfig{})

	ctx := context.Background()
	s.refreshServers(ctx)

	servers := s.Servers()
	require.Len(t, servers, 1)
	require.Len(t, servers[0].Channels, 1)
	assert.Equal(t, "c1", servers[0].Channels[0].ID)
	state, err := states.Get(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, state)

	chat.failing = ""
	s.refreshServers(ctx)
	assert.Len(t, s.Servers()[0].Channels, 2)
}
