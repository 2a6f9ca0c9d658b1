package data

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
	slackinfra "github.com/channelpulse/channel-pulse/internal/infra/slack"
)

// skippedSlackSubtypes are membership and system events, not conversation
var skippedSlackSubtypes = map[string]struct{}{
	"channel_join":    {},
	"channel_leave":   {},
	"channel_topic":   {},
	"channel_purpose": {},
	"channel_name":    {},
	"channel_archive": {},
}

// slackRepo implements ChatRepo for one Slack workspace
type slackRepo struct {
	client *slackinfra.Client
}

// NewSlackRepo creates a Slack chat repository
func NewSlackRepo(client *slackinfra.Client) repo.ChatRepo {
	return &slackRepo{client: client}
}

func (r *slackRepo) Platform() string { return "slack" }

func (r *slackRepo) Connect(ctx context.Context) error { return r.client.Connect(ctx) }

func (r *slackRepo) Ready() bool { return r.client.Ready() }

func (r *slackRepo) HealthCheck(ctx context.Context) error { return r.client.Ping(ctx) }

func (r *slackRepo) Close() error {
	r.client.Close()
	return nil
}

// ListServers returns the workspace as the only server
func (r *slackRepo) ListServers(ctx context.Context) ([]domain.Server, error) {
	s, err := r.GetServer(ctx, r.client.TeamID())
	if err != nil {
		return nil, err
	}
	return []domain.Server{*s}, nil
}

// GetServer gets the workspace; other ids are not found
func (r *slackRepo) GetServer(ctx context.Context, serverID string) (*domain.Server, error) {
	info, err := r.client.TeamInfo(ctx)
	if err != nil {
		return nil, err
	}
	if serverID != "" && serverID != info.ID {
		return nil, domain.ErrServerNotFound
	}
	return &domain.Server{ID: info.ID, Name: info.Name, Platform: r.Platform()}, nil
}

// ListChannels lists channels the bot is a member of
func (r *slackRepo) ListChannels(ctx context.Context, serverID string) ([]domain.Channel, error) {
	chs, err := r.client.Channels(ctx)
	if err != nil {
		return nil, err
	}
	var channels []domain.Channel
	for _, ch := range chs {
		if !ch.IsMember {
			continue
		}
		channels = append(channels, domain.Channel{
			ID:       ch.ID,
			ServerID: serverID,
			Name:     ch.Name,
			Active:   true,
		})
	}
	return channels, nil
}

// ListMessages pages with the oldest ts of the previous page as cursor
func (r *slackRepo) ListMessages(ctx context.Context, channelID string, limit int, before string) (*repo.MessagePage, error) {
	history, err := r.client.History(ctx, channelID, limit, before)
	if err != nil {
		return nil, err
	}

	page := &repo.MessagePage{}
	oldest := ""
	for _, m := range history.Messages {
		oldest = m.Timestamp
		msg, ok := r.convertMessage(ctx, channelID, m)
		if ok {
			page.Messages = append(page.Messages, msg)
		}
	}

	if history.HasMore && oldest != "" {
		page.NextCursor = oldest
	}
	return page, nil
}

func (r *slackRepo) convertMessage(ctx context.Context, channelID string, m slack.Message) (domain.Message, bool) {
	if _, skip := skippedSlackSubtypes[m.SubType]; skip {
		return domain.Message{}, false
	}
	created, ok := parseSlackTimestamp(m.Timestamp)
	if !ok {
		return domain.Message{}, false
	}

	authorID := m.User
	name := ""
	if authorID == "" {
		authorID = m.BotID
		name = m.Username
	} else {
		name = r.client.UserName(ctx, authorID)
	}

	return domain.Message{
		ID:         slackMessageID(channelID, m.Timestamp),
		ChannelID:  channelID,
		AuthorID:   authorID,
		AuthorName: name,
		Content:    m.Text,
		CreatedAt:  created,
	}, true
}

// slackMessageID qualifies a ts with its channel; a ts is only unique per channel
func slackMessageID(channelID, ts string) string {
	return channelID + ":" + ts
}

// parseSlackTimestamp parses "1700000000.000100" into a time
func parseSlackTimestamp(ts string) (time.Time, bool) {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	var usec int64
	if fracPart != "" {
		if len(fracPart) > 6 {
			fracPart = fracPart[:6]
		}
		fracPart += strings.Repeat("0", 6-len(fracPart))
		usec, _ = strconv.ParseInt(fracPart, 10, 64)
	}
	return time.Unix(sec, usec*int64(time.Microsecond)), true
}
