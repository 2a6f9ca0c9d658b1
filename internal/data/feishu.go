package data

import (
	"context"
	"sync"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
	"github.com/channelpulse/channel-pulse/internal/infra/feishu"
)

// feishuRepo implements ChatRepo for the chats of one Feishu app.
// The app's tenant is modeled as the single server.
type feishuRepo struct {
	client     *feishu.Client
	serverID   string
	serverName string

	mu      sync.Mutex
	members map[string]map[string]string // chat id -> open_id -> name
}

// NewFeishuRepo creates a new Feishu repository; serverID names the tenant
func NewFeishuRepo(client *feishu.Client, serverID, serverName string) repo.ChatRepo {
	if serverName == "" {
		serverName = "Feishu"
	}
	return &feishuRepo{
		client:     client,
		serverID:   serverID,
		serverName: serverName,
		members:    make(map[string]map[string]string),
	}
}

func (r *feishuRepo) Platform() string { return "feishu" }

func (r *feishuRepo) Connect(ctx context.Context) error { return r.client.Connect(ctx) }

func (r *feishuRepo) Ready() bool { return r.client.Ready() }

func (r *feishuRepo) HealthCheck(ctx context.Context) error {
	_, _, err := r.client.ListChats(ctx, 1, "")
	return err
}

func (r *feishuRepo) Close() error {
	r.client.Close()
	return nil
}

// ListServers returns the tenant as the only server
func (r *feishuRepo) ListServers(ctx context.Context) ([]domain.Server, error) {
	s, err := r.GetServer(ctx, r.serverID)
	if err != nil {
		return nil, err
	}
	return []domain.Server{*s}, nil
}

// GetServer gets the tenant; other ids are not found
func (r *feishuRepo) GetServer(ctx context.Context, serverID string) (*domain.Server, error) {
	if serverID != r.serverID {
		return nil, domain.ErrServerNotFound
	}
	return &domain.Server{ID: r.serverID, Name: r.serverName, Platform: r.Platform()}, nil
}

// ListChannels lists the group chats the app belongs to
func (r *feishuRepo) ListChannels(ctx context.Context, serverID string) ([]domain.Channel, error) {
	chats, err := r.client.ListAllChats(ctx)
	if err != nil {
		return nil, err
	}
	channels := make([]domain.Channel, 0, len(chats))
	for _, c := range chats {
		channels = append(channels, domain.Channel{
			ID:       c.ChatID,
			ServerID: serverID,
			Name:     c.Name,
			Active:   true,
		})
	}
	return channels, nil
}

// ListMessages pages with Feishu page tokens as cursor
func (r *feishuRepo) ListMessages(ctx context.Context, channelID string, limit int, before string) (*repo.MessagePage, error) {
	hp, err := r.client.GetChatHistory(ctx, channelID, limit, before)
	if err != nil {
		return nil, err
	}

	names := r.memberNames(ctx, channelID, before == "")

	page := &repo.MessagePage{}
	for _, m := range hp.Messages {
		if m.Deleted || m.CreateTime.IsZero() {
			continue
		}
		page.Messages = append(page.Messages, domain.Message{
			ID:         m.MsgID,
			ChannelID:  channelID,
			AuthorID:   m.SenderID,
			AuthorName: names[m.SenderID],
			Content:    m.Content,
			CreatedAt:  m.CreateTime,
		})
	}
	if hp.HasMore {
		page.NextCursor = hp.PageToken
	}
	return page, nil
}

// memberNames returns cached member names, reloading them on the first page of a sync.
// Lookup failures leave names empty.
func (r *feishuRepo) memberNames(ctx context.Context, chatID string, reload bool) map[string]string {
	r.mu.Lock()
	names, ok := r.members[chatID]
	r.mu.Unlock()
	if ok && !reload {
		return names
	}

	fresh, err := r.client.GetChatMembers(ctx, chatID)
	if err != nil {
		return names
	}

	r.mu.Lock()
	r.members[chatID] = fresh
	r.mu.Unlock()
	return fresh
}
