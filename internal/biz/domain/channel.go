package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrServerNotFound is returned when a server is missing from storage
	ErrServerNotFound = errors.New("server not found")
	// ErrChannelNotFound is returned when a channel is missing from storage
	ErrChannelNotFound = errors.New("channel not found")
)

// Server is a collection of channels (guild, workspace or tenant)
type Server struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Platform   string     `json:"platform"`
	LastSynced *time.Time `json:"last_synced,omitempty"`
}

// Channel is a conversation stream within a server
type Channel struct {
	ID       string `json:"id"`
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
}

// ServerChannels is a server together with its channels
type ServerChannels struct {
	Server   Server
	Channels []Channel
}

// ChannelClass tells consumers how a channel must be treated when it has no activity
type ChannelClass int

const (
	// ChannelRegular channels are skipped when they have no messages
	ChannelRegular ChannelClass = iota
	// ChannelAlwaysVisible channels stay visible (placeholder summary, counted active)
	ChannelAlwaysVisible
)

func (c ChannelClass) String() string {
	switch c {
	case ChannelAlwaysVisible:
		return "always_visible"
	default:
		return "regular"
	}
}

// ChannelClassifier decides the ChannelClass of a channel by id or name
type ChannelClassifier struct {
	ids   map[string]struct{}
	names map[string]struct{}
}

// NewChannelClassifier creates a classifier from configured ids and names.
// Names are matched case-insensitively, with or without a leading '#'.
func NewChannelClassifier(ids, names []string) *ChannelClassifier {
	c := &ChannelClassifier{
		ids:   make(map[string]struct{}),
		names: make(map[string]struct{}),
	}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			c.ids[id] = struct{}{}
		}
	}
	for _, name := range names {
		if name = normalizeChannelName(name); name != "" {
			c.names[name] = struct{}{}
		}
	}
	return c
}

// Classify returns the class of a channel. A nil classifier treats every channel as regular.
func (c *ChannelClassifier) Classify(ch Channel) ChannelClass {
	if c == nil {
		return ChannelRegular
	}
	if _, ok := c.ids[ch.ID]; ok {
		return ChannelAlwaysVisible
	}
	if _, ok := c.names[normalizeChannelName(ch.Name)]; ok {
		return ChannelAlwaysVisible
	}
	return ChannelRegular
}

// IsMonitored reports whether a channel takes part in sync and monitoring
func (c *ChannelClassifier) IsMonitored(ch Channel) bool {
	return ch.Active || c.Classify(ch) == ChannelAlwaysVisible
}

func normalizeChannelName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}
