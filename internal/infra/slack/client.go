package slack

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

// slackLogAdapter adapts zerolog to slack-go's log interface
type slackLogAdapter struct {
	logger zerolog.Logger
}

func (a *slackLogAdapter) Output(calldepth int, s string) error {
	a.logger.Debug().Msg(s)
	return nil
}

// Client wraps the Slack Web API
type Client struct {
	api    *slack.Client
	ready  atomic.Bool
	teamID string
	logger zerolog.Logger

	mu    sync.Mutex
	users map[string]string // user id -> display name
}

// NewClient creates a new Slack client for a bot token
func NewClient(token string) *Client {
	return NewClientWithOptions(token)
}

// NewClientWithOptions creates a Slack client with extra slack-go options, such as slack.OptionAPIURL
func NewClientWithOptions(token string, opts ...slack.Option) *Client {
	slackLogger := &slackLogAdapter{
		logger: log.With().Str("component", "slack-api").Logger(),
	}
	opts = append([]slack.Option{slack.OptionLog(slackLogger)}, opts...)

	return &Client{
		api:    slack.New(token, opts...),
		logger: log.With().Str("component", "slack").Logger(),
		users:  make(map[string]string),
	}
}

// Connect verifies the token with auth.test
func (c *Client) Connect(ctx context.Context) error {
	auth, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("auth test failed: %w", err)
	}
	c.teamID = auth.TeamID
	c.ready.Store(true)

	c.logger.Info().
		Str("user", auth.User).
		Str("team", auth.Team).
		Str("team_id", auth.TeamID).
		Msg("Connected to Slack")
	return nil
}

// Ready reports whether Connect succeeded
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// TeamID returns the workspace id learned at Connect
func (c *Client) TeamID() string {
	return c.teamID
}

// Ping re-runs auth.test
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.AuthTestContext(ctx); err != nil {
		return fmt.Errorf("slack ping: %w", err)
	}
	return nil
}

// TeamInfo gets the workspace info
func (c *Client) TeamInfo(ctx context.Context) (*slack.TeamInfo, error) {
	info, err := c.api.GetTeamInfoContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get team info: %w", err)
	}
	return info, nil
}

// Channels lists every non-archived channel visible to the bot
func (c *Client) Channels(ctx context.Context) ([]slack.Channel, error) {
	var all []slack.Channel
	cursor := ""
	for {
		channels, next, err := c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Cursor:          cursor,
			ExcludeArchived: true,
			Limit:           200,
			Types:           []string{"public_channel", "private_channel"},
		})
		if err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		all = append(all, channels...)
		if next == "" {
			break
		}
		cursor = next
	}
	return all, nil
}

// History fetches up to limit messages older than latest (a message ts), newest first.
// An empty latest starts from the newest message.
func (c *Client) History(ctx context.Context, channelID string, limit int, latest string) (*slack.GetConversationHistoryResponse, error) {
	params := &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Latest:    latest,
		Limit:     limit,
	}

	c.logger.Trace().Str("channel_id", channelID).Str("latest", latest).Int("limit", limit).Msg("Fetching conversation history")

	history, err := c.api.GetConversationHistoryContext(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("get history of channel %s: %w", channelID, err)
	}
	return history, nil
}

// UserName resolves a user id to a display name, caching results.
// Lookup failures fall back to the id.
func (c *Client) UserName(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}

	c.mu.Lock()
	name, ok := c.users[userID]
	c.mu.Unlock()
	if ok {
		return name
	}

	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		c.logger.Debug().Err(err).Str("user_id", userID).Msg("User lookup failed")
		return userID
	}

	name = user.Profile.DisplayName
	if name == "" {
		name = user.RealName
	}
	if name == "" {
		name = user.Name
	}

	c.mu.Lock()
	c.users[userID] = name
	c.mu.Unlock()
	return name
}

// Close marks the client unusable
func (c *Client) Close() {
	c.ready.Store(false)
}
