package discord

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxPageSize is the largest page the message history endpoint returns
const MaxPageSize = 100

// Client wraps a REST-only discordgo session. No gateway connection is opened;
// history is pulled, not streamed.
type Client struct {
	token   string
	session *discordgo.Session
	ready   atomic.Bool
	logger  zerolog.Logger
}

// NewClient creates a new Discord client for a bot token
func NewClient(token string) *Client {
	return &Client{
		token:  token,
		logger: log.With().Str("component", "discord").Logger(),
	}
}

// Connect creates the session and verifies the token
func (c *Client) Connect(ctx context.Context) error {
	session, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	me, err := session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord auth: %w", err)
	}

	c.session = session
	c.ready.Store(true)
	c.logger.Info().Str("user", me.Username).Msg("Connected")
	return nil
}

// Ready reports whether Connect succeeded
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// Ping checks that the API still accepts the token
func (c *Client) Ping(ctx context.Context) error {
	if !c.Ready() {
		return fmt.Errorf("discord client not connected")
	}
	if _, err := c.session.User("@me", discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord ping: %w", err)
	}
	return nil
}

// Guild gets a guild by id
func (c *Client) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if !c.Ready() {
		return nil, fmt.Errorf("discord client not connected")
	}
	g, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get guild %s: %w", guildID, err)
	}
	return g, nil
}

// TextChannels lists the text channels of a guild
func (c *Client) TextChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	if !c.Ready() {
		return nil, fmt.Errorf("discord client not connected")
	}
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list channels of guild %s: %w", guildID, err)
	}

	var text []*discordgo.Channel
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews {
			text = append(text, ch)
		}
	}
	return text, nil
}

// Messages fetches up to limit messages older than beforeID, newest first.
// An empty beforeID starts from the latest message.
func (c *Client) Messages(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	if !c.Ready() {
		return nil, fmt.Errorf("discord client not connected")
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	msgs, err := c.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list messages of channel %s: %w", channelID, err)
	}
	return msgs, nil
}

// Close releases the session
func (c *Client) Close() error {
	c.ready.Store(false)
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}
