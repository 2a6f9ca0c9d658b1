package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
)

// fakeChatRepo serves pages of in-memory messages, newest first
type fakeChatRepo struct {
	mu       sync.Mutex
	servers  []domain.Server
	channels map[string][]domain.Channel
	messages map[string][]domain.Message // oldest first
	failAt   map[string]int              // channel -> call number (1-based) that fails
	calls    map[string]int
	ready    bool
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		channels: make(map[string][]domain.Channel),
		messages: make(map[string][]domain.Message),
		failAt:   make(map[string]int),
		calls:    make(map[string]int),
	}
}

// seed adds n messages spaced one minute apart, ending at end
func (r *fakeChatRepo) seed(channelID string, n int, end time.Time, authors int) {
	for i := 0; i < n; i++ {
		r.messages[channelID] = append(r.messages[channelID], domain.Message{
			ID:        fmt.Sprintf("%s-%04d", channelID, i),
			ChannelID: channelID,
			AuthorID:  "u" + strconv.Itoa(i%authors),
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: end.Add(-time.Duration(n-1-i) * time.Minute),
		})
	}
}

func (r *fakeChatRepo) Platform() string { return "fake" }
func (r *fakeChatRepo) Connect(ctx context.Context) error { r.ready = true; return nil }
func (r *fakeChatRepo) Ready() bool { return r.ready }
func (r *fakeChatRepo) HealthCheck(context.Context) error { return nil }
func (r *fakeChatRepo) Close() error { return nil }
func (r *fakeChatRepo) ListServers(context.Context) ([]domain.Server, error) {
	return r.servers, nil
}

func (r *fakeChatRepo) GetServer(ctx context.Context, serverID string) (*domain.Server, error) {
	for _, s := range r.servers {
		if s.ID == serverID {
			return &s, nil
		}
	}
	return nil, domain.ErrServerNotFound
}

func (r *fakeChatRepo) ListChannels(ctx context.Context, serverID string) ([]domain.Channel, error) {
	return r.channels[serverID], nil
}

func (r *fakeChatRepo) ListMessages(ctx context.Context, channelID string, limit int, before string) (*repo.MessagePage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls[channelID]++
	if n, ok := r.failAt[channelID]; ok && r.calls[channelID] >= n {
		return nil, errors.New("upstream unavailable")
	}

	all := r.messages[channelID]
	end := len(all)
	if before != "" {
		idx, err := strconv.Atoi(before)
		if err != nil {
			return nil, err
		}
		end = idx
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	page := &repo.MessagePage{}
	for i := end - 1; i >= start; i-- {
		page.Messages = append(page.Messages, all[i])
	}
	if start > 0 {
		page.NextCursor = strconv.Itoa(start)
	}
	return page, nil
}

// fakeMessageRepo is an in-memory append-only message log
type fakeMessageRepo struct {
	mu        sync.Mutex
	msgs      map[string]map[string]domain.Message
	countErrs map[string]error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{msgs: make(map[string]map[string]domain.Message)}
}

func (r *fakeMessageRepo) Append(ctx context.Context, msgs ...domain.Message) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, m := range msgs {
		ch, ok := r.msgs[m.ChannelID]
		if !ok {
			ch = make(map[string]domain.Message)
			r.msgs[m.ChannelID] = ch
		}
		if _, dup := ch[m.ID]; dup {
			continue
		}
		ch[m.ID] = m
		inserted++
	}
	return inserted, nil
}

func (r *fakeMessageRepo) List(ctx context.Context, channelID string, since time.Time) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.msgs[channelID] {
		if !since.IsZero() && m.CreatedAt.Before(since) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, channelID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.countErrs[channelID]; err != nil {
		return 0, err
	}
	return len(r.msgs[channelID]), nil
}

// add appends n synthetic messages to a channel
func (r *fakeMessageRepo) add(channelID string, n int, at time.Time) {
	r.mu.Lock()
	start := len(r.msgs[channelID])
	r.mu.Unlock()
	var msgs []domain.Message
	for i := 0; i < n; i++ {
		msgs = append(msgs, domain.Message{
			ID:        fmt.Sprintf("%s-%d", channelID, start+i),
			ChannelID: channelID,
			AuthorID:  "u1",
			Content:   "hello",
			CreatedAt: at,
		})
	}
	r.Append(context.Background(), msgs...)
}

// fakeStatsRepo keeps stats in memory
type fakeStatsRepo struct {
	records []*domain.ServerStats
}

func (r *fakeStatsRepo) Append(ctx context.Context, s *domain.ServerStats) error {
	r.records = append(r.records, s)
	return nil
}

func (r *fakeStatsRepo) Latest(ctx context.Context, serverID string) (*domain.ServerStats, error) {
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].ServerID == serverID {
			return r.records[i], nil
		}
	}
	return nil, nil
}

func (r *fakeStatsRepo) History(ctx context.Context, serverID string, limit int) ([]*domain.ServerStats, error) {
	var out []*domain.ServerStats
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].ServerID == serverID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

// fakeSummaryRepo keeps summaries in memory
type fakeSummaryRepo struct {
	records []*domain.ChannelSummary
}

func (r *fakeSummaryRepo) Append(ctx context.Context, s *domain.ChannelSummary) error {
	r.records = append(r.records, s)
	return nil
}

func (r *fakeSummaryRepo) Latest(ctx context.Context, channelID string) (*domain.ChannelSummary, error) {
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].ChannelID == channelID {
			return r.records[i], nil
		}
	}
	return nil, nil
}

// fakeServerRepo keeps servers and channels in memory
type fakeServerRepo struct {
	servers  map[string]*domain.Server
	channels map[string]domain.Channel
	order    []string
}

func newFakeServerRepo() *fakeServerRepo {
	return &fakeServerRepo{servers: make(map[string]*domain.Server), channels: make(map[string]domain.Channel)}
}

func (r *fakeServerRepo) UpsertServer(ctx context.Context, s *domain.Server) error {
	if existing, ok := r.servers[s.ID]; ok {
		existing.Name = s.Name
		return nil
	}
	cp := *s
	r.servers[s.ID] = &cp
	return nil
}

func (r *fakeServerRepo) UpsertChannel(ctx context.Context, ch *domain.Channel) error {
	if existing, ok := r.channels[ch.ID]; ok {
		existing.Name = ch.Name
		r.channels[ch.ID] = existing
		return nil
	}
	r.channels[ch.ID] = *ch
	r.order = append(r.order, ch.ID)
	return nil
}

func (r *fakeServerRepo) GetServer(ctx context.Context, id string) (*domain.Server, error) {
	return r.servers[id], nil
}

func (r *fakeServerRepo) GetChannel(ctx context.Context, id string) (*domain.Channel, error) {
	ch, ok := r.channels[id]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (r *fakeServerRepo) ListServers(ctx context.Context) ([]*domain.Server, error) {
	var out []*domain.Server
	for _, s := range r.servers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeServerRepo) ListChannels(ctx context.Context, serverID string) ([]domain.Channel, error) {
	var out []domain.Channel
	for _, id := range r.order {
		if ch := r.channels[id]; ch.ServerID == serverID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *fakeServerRepo) UpdateLastSynced(ctx context.Context, serverID string, t time.Time) error {
	if s, ok := r.servers[serverID]; ok {
		s.LastSynced = &t
	}
	return nil
}

func (r *fakeServerRepo) SetChannelActive(ctx context.Context, channelID string, active bool) error {
	ch, ok := r.channels[channelID]
	if !ok {
		return domain.ErrChannelNotFound
	}
	ch.Active = active
	r.channels[channelID] = ch
	return nil
}

// fakeStateRepo keeps monitor states in memory
type fakeStateRepo struct {
	mu     sync.Mutex
	states map[string]domain.ChannelMonitorState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: make(map[string]domain.ChannelMonitorState)}
}

func (r *fakeStateRepo) Get(ctx context.Context, channelID string) (*domain.ChannelMonitorState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[channelID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *fakeStateRepo) Save(ctx context.Context, s *domain.ChannelMonitorState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[s.ChannelID] = *s
	return nil
}

func (r *fakeStateRepo) ListAll(ctx context.Context) ([]*domain.ChannelMonitorState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ChannelMonitorState
	for _, s := range r.states {
		s := s
		out = append(out, &s)
	}
	return out, nil
}

// fakeAnalyzer records calls and returns canned answers
type fakeAnalyzer struct {
	mu             sync.Mutex
	summarizeErr   error
	sentimentErr   error
	summarizeCalls int
	sentimentCalls int
	jtbdCalls      int
	jtbdSentiment  string
}

func (a *fakeAnalyzer) Summarize(ctx context.Context, channelName, transcript string) (*domain.SummaryDraft, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summarizeCalls++
	if a.summarizeErr != nil {
		return nil, a.summarizeErr
	}
	return &domain.SummaryDraft{Summary: "Talk in #" + channelName, KeyTopics: []string{"release"}}, nil
}

func (a *fakeAnalyzer) Sentiment(ctx context.Context, channelName, transcript string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sentimentCalls++
	if a.sentimentErr != nil {
		return "", a.sentimentErr
	}
	return "mostly positive", nil
}

func (a *fakeAnalyzer) JTBD(ctx context.Context, channelName, transcript, sentiment string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.jtbdCalls++
	a.jtbdSentiment = sentiment
	return "ship the release", nil
}

// fakeNotifier records sent notifications and can fail
type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (n *fakeNotifier) Send(ctx context.Context, msg domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}
