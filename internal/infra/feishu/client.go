package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HistoryMessage represents a message from chat history
type HistoryMessage struct {
	MsgID      string
	ChatID     string
	MsgType    string
	Content    string // Plain text with mention placeholders resolved
	CreateTime time.Time
	SenderID   string
	SenderType string // user, app
	Deleted    bool
}

// HistoryPage is one page of chat history, newest first
type HistoryPage struct {
	Messages  []*HistoryMessage
	PageToken string
	HasMore   bool
}

// ChatInfo represents a chat the app is a member of
type ChatInfo struct {
	ChatID      string
	Name        string
	Description string
	TenantKey   string
}

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	ready     atomic.Bool
	logger    zerolog.Logger
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		logger:    log.With().Str("component", "feishu").Logger(),
	}
}

// Connect creates the API client and verifies the credentials
func (c *Client) Connect(ctx context.Context) error {
	c.larkCli = lark.NewClient(c.appID, c.appSecret, lark.WithReqTimeout(30*time.Second))

	// One cheap list call proves the tenant token can be obtained
	if _, _, err := c.ListChats(ctx, 1, ""); err != nil {
		return fmt.Errorf("feishu connect: %w", err)
	}
	c.ready.Store(true)
	c.logger.Info().Str("app_id", c.appID).Msg("Connected")
	return nil
}

// Ready reports whether Connect succeeded
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// Close releases the client
func (c *Client) Close() {
	c.ready.Store(false)
}

// ListChats lists one page of chats the app belongs to
func (c *Client) ListChats(ctx context.Context, pageSize int, pageToken string) ([]*ChatInfo, string, error) {
	if c.larkCli == nil {
		return nil, "", fmt.Errorf("feishu client not connected")
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	b := larkim.NewListChatReqBuilder().PageSize(pageSize)
	if pageToken != "" {
		b = b.PageToken(pageToken)
	}

	resp, err := c.larkCli.Im.Chat.List(ctx, b.Build())
	if err != nil {
		return nil, "", fmt.Errorf("list chats failed: %w", err)
	}
	if !resp.Success() {
		return nil, "", fmt.Errorf("list chats error: %s", resp.Msg)
	}

	var chats []*ChatInfo
	for _, item := range resp.Data.Items {
		chats = append(chats, &ChatInfo{
			ChatID:      deref(item.ChatId),
			Name:        deref(item.Name),
			Description: deref(item.Description),
			TenantKey:   deref(item.TenantKey),
		})
	}

	next := ""
	if resp.Data.HasMore != nil && *resp.Data.HasMore {
		next = deref(resp.Data.PageToken)
	}
	return chats, next, nil
}

// ListAllChats follows page tokens until every chat is listed
func (c *Client) ListAllChats(ctx context.Context) ([]*ChatInfo, error) {
	var all []*ChatInfo
	token := ""
	for {
		chats, next, err := c.ListChats(ctx, 100, token)
		if err != nil {
			return nil, err
		}
		all = append(all, chats...)
		if next == "" {
			break
		}
		token = next
	}
	return all, nil
}

// GetChatHistory retrieves one page of messages, newest first.
// pageSize is capped at 50 by the API.
func (c *Client) GetChatHistory(ctx context.Context, chatID string, pageSize int, pageToken string) (*HistoryPage, error) {
	if c.larkCli == nil {
		return nil, fmt.Errorf("feishu client not connected")
	}
	if pageSize > 50 {
		pageSize = 50
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	// Feishu defaults to ascending order; descending returns the latest messages first
	b := larkim.NewListMessageReqBuilder().
		ContainerIdType("chat").
		ContainerId(chatID).
		SortType("ByCreateTimeDesc").
		PageSize(pageSize)
	if pageToken != "" {
		b = b.PageToken(pageToken)
	}

	resp, err := c.larkCli.Im.Message.List(ctx, b.Build())
	if err != nil {
		return nil, fmt.Errorf("get chat history failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat history error: %s", resp.Msg)
	}

	page := &HistoryPage{}
	for _, item := range resp.Data.Items {
		msg := &HistoryMessage{
			MsgID:   deref(item.MessageId),
			ChatID:  chatID,
			MsgType: deref(item.MsgType),
		}
		if ms, err := strconv.ParseInt(deref(item.CreateTime), 10, 64); err == nil {
			msg.CreateTime = time.UnixMilli(ms)
		}
		if item.Deleted != nil {
			msg.Deleted = *item.Deleted
		}

		mentionMap := make(map[string]string)
		for _, mention := range item.Mentions {
			if mention.Key != nil && mention.Name != nil {
				mentionMap[*mention.Key] = *mention.Name
			}
		}

		if item.Body != nil && item.Body.Content != nil {
			raw := *item.Body.Content
			switch msg.MsgType {
			case "text":
				msg.Content = parseTextContent(raw, mentionMap)
			case "post":
				msg.Content = parsePostContent(raw, mentionMap)
			default:
				msg.Content = ""
			}
		}

		if item.Sender != nil {
			msg.SenderID = deref(item.Sender.Id)
			msg.SenderType = deref(item.Sender.SenderType)
		}

		page.Messages = append(page.Messages, msg)
	}

	if resp.Data.HasMore != nil && *resp.Data.HasMore {
		page.HasMore = true
		page.PageToken = deref(resp.Data.PageToken)
	}

	c.logger.Debug().Str("chat_id", chatID).Int("messages", len(page.Messages)).Bool("has_more", page.HasMore).Msg("Retrieved history page")
	return page, nil
}

// GetChatMembers retrieves the display names of a chat's members, keyed by open_id
func (c *Client) GetChatMembers(ctx context.Context, chatID string) (map[string]string, error) {
	if c.larkCli == nil {
		return nil, fmt.Errorf("feishu client not connected")
	}

	members := make(map[string]string)
	var pageToken string
	for {
		b := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)
		if pageToken != "" {
			b = b.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, b.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("get chat members error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			if item.MemberId != nil && item.Name != nil {
				members[*item.MemberId] = *item.Name
			}
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}
	return members, nil
}

// parseTextContent extracts text from a text message and resolves mentions
func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parsePostContent flattens a rich text message into plain text
func parsePostContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, line := range parsed.Content {
		var parts []string
		for _, elem := range line {
			switch elem.Tag {
			case "text", "a":
				if elem.Text != "" {
					parts = append(parts, elem.Text)
				}
			case "at":
				if name, ok := mentionMap[elem.UserID]; ok {
					parts = append(parts, "@"+name)
				} else if elem.UserID != "" {
					parts = append(parts, "@"+elem.UserID)
				}
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, ""))
		}
	}
	return replaceMentions(strings.Join(lines, "\n"), mentionMap)
}

// replaceMentions replaces @_user_N placeholders with real names
func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
