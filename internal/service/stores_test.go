package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
)

// memStore implements the message, monitor state, server and settings repos in memory
type memStore struct {
	mu       sync.Mutex
	messages map[string]map[string]domain.Message
	states   map[string]domain.ChannelMonitorState
	servers  map[string]domain.Server
	channels map[string]domain.Channel
	settings *domain.UserSettings
}

func newMemStore() *memStore {
	return &memStore{
		messages: make(map[string]map[string]domain.Message),
		states:   make(map[string]domain.ChannelMonitorState),
		servers:  make(map[string]domain.Server),
		channels: make(map[string]domain.Channel),
	}
}

// messageRepo

type memMessages struct{ *memStore }

func (s memMessages) Append(ctx context.Context, msgs ...domain.Message) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, m := range msgs {
		ch, ok := s.messages[m.ChannelID]
		if !ok {
			ch = make(map[string]domain.Message)
			s.messages[m.ChannelID] = ch
		}
		if _, dup := ch[m.ID]; dup {
			continue
		}
		ch[m.ID] = m
		inserted++
	}
	return inserted, nil
}

func (s memMessages) List(ctx context.Context, channelID string, since time.Time) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages[channelID] {
		if since.IsZero() || !m.CreatedAt.Before(since) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s memMessages) Count(ctx context.Context, channelID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[channelID]), nil
}

// monitorStateRepo

type memStates struct{ *memStore }

func (s memStates) Get(ctx context.Context, channelID string) (*domain.ChannelMonitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[channelID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s memStates) Save(ctx context.Context, state *domain.ChannelMonitorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ChannelID] = *state
	return nil
}

func (s memStates) ListAll(ctx context.Context) ([]*domain.ChannelMonitorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.ChannelMonitorState, 0, len(s.states))
	for _, st := range s.states {
		st := st
		out = append(out, &st)
	}
	return out, nil
}

// serverRepo

type memServers struct{ *memStore }

func (s memServers) UpsertServer(ctx context.Context, server *domain.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.servers[server.ID]; ok {
		existing.Name = server.Name
		existing.Platform = server.Platform
		s.servers[server.ID] = existing
		return nil
	}
	s.servers[server.ID] = *server
	return nil
}

func (s memServers) UpsertChannel(ctx context.Context, channel *domain.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.channels[channel.ID]; ok {
		existing.Name = channel.Name
		existing.ServerID = channel.ServerID
		s.channels[channel.ID] = existing
		return nil
	}
	s.channels[channel.ID] = *channel
	return nil
}

func (s memServers) GetServer(ctx context.Context, serverID string) (*domain.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[serverID]
	if !ok {
		return nil, nil
	}
	return &srv, nil
}

func (s memServers) GetChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelID]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (s memServers) ListServers(ctx context.Context) ([]*domain.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Server
	for _, srv := range s.servers {
		srv := srv
		out = append(out, &srv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memServers) ListChannels(ctx context.Context, serverID string) ([]domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Channel
	for _, ch := range s.channels {
		if ch.ServerID == serverID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s memServers) UpdateLastSynced(ctx context.Context, serverID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[serverID]
	if !ok {
		return domain.ErrServerNotFound
	}
	srv.LastSynced = &t
	s.servers[serverID] = srv
	return nil
}

func (s memServers) SetChannelActive(ctx context.Context, channelID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelID]
	if !ok {
		return domain.ErrChannelNotFound
	}
	ch.Active = active
	s.channels[channelID] = ch
	return nil
}

// settingsRepo

type memSettings struct{ *memStore }

func (s memSettings) Get(ctx context.Context) (domain.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return domain.DefaultUserSettings(), nil
	}
	return *s.settings, nil
}

func (s memSettings) Save(ctx context.Context, settings domain.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings = settings.Normalize()
	s.settings = &settings
	return nil
}
