package data

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
	"github.com/channelpulse/channel-pulse/internal/infra/discord"
)

// discordRepo implements ChatRepo for Discord guilds
type discordRepo struct {
	client   *discord.Client
	guildIDs []string
}

// NewDiscordRepo creates a Discord chat repository for the given guilds
func NewDiscordRepo(client *discord.Client, guildIDs []string) repo.ChatRepo {
	return &discordRepo{client: client, guildIDs: guildIDs}
}

func (r *discordRepo) Platform() string { return "discord" }

func (r *discordRepo) Connect(ctx context.Context) error { return r.client.Connect(ctx) }

func (r *discordRepo) Ready() bool { return r.client.Ready() }

func (r *discordRepo) HealthCheck(ctx context.Context) error { return r.client.Ping(ctx) }

func (r *discordRepo) Close() error { return r.client.Close() }

// ListServers lists the configured guilds
func (r *discordRepo) ListServers(ctx context.Context) ([]domain.Server, error) {
	servers := make([]domain.Server, 0, len(r.guildIDs))
	for _, id := range r.guildIDs {
		s, err := r.GetServer(ctx, id)
		if err != nil {
			return nil, err
		}
		servers = append(servers, *s)
	}
	return servers, nil
}

// GetServer gets a guild
func (r *discordRepo) GetServer(ctx context.Context, serverID string) (*domain.Server, error) {
	g, err := r.client.Guild(ctx, serverID)
	if err != nil {
		return nil, err
	}
	return &domain.Server{ID: g.ID, Name: g.Name, Platform: r.Platform()}, nil
}

// ListChannels lists the guild's text channels; new channels start active
func (r *discordRepo) ListChannels(ctx context.Context, serverID string) ([]domain.Channel, error) {
	chs, err := r.client.TextChannels(ctx, serverID)
	if err != nil {
		return nil, err
	}
	channels := make([]domain.Channel, 0, len(chs))
	for _, ch := range chs {
		channels = append(channels, domain.Channel{
			ID:       ch.ID,
			ServerID: serverID,
			Name:     ch.Name,
			Active:   true,
		})
	}
	return channels, nil
}

// ListMessages pages with the oldest message id of the previous page as cursor
func (r *discordRepo) ListMessages(ctx context.Context, channelID string, limit int, before string) (*repo.MessagePage, error) {
	msgs, err := r.client.Messages(ctx, channelID, limit, before)
	if err != nil {
		return nil, err
	}

	page := &repo.MessagePage{}
	for _, m := range msgs {
		if msg, ok := convertDiscordMessage(m); ok {
			page.Messages = append(page.Messages, msg)
		}
	}

	// A short page means the start of the channel was reached
	if len(msgs) > 0 && len(msgs) >= limit {
		page.NextCursor = msgs[len(msgs)-1].ID
	}
	return page, nil
}

func convertDiscordMessage(m *discordgo.Message) (domain.Message, bool) {
	if m == nil || m.Author == nil {
		return domain.Message{}, false
	}
	name := m.Author.GlobalName
	if name == "" {
		name = m.Author.Username
	}
	return domain.Message{
		ID:         m.ID,
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: name,
		Content:    m.Content,
		CreatedAt:  m.Timestamp,
	}, true
}

