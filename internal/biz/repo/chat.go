package repo

import (
	"context"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
)

// MessagePage is one page of upstream messages, newest first
type MessagePage struct {
	Messages []domain.Message
	// NextCursor fetches the page before this one; empty when there is none
	NextCursor string
}

// ChatRepo is the upstream chat platform
type ChatRepo interface {
	// Platform returns the platform name (discord, slack, feishu)
	Platform() string

	// Connect authenticates against the platform; the repo is Ready afterwards
	Connect(ctx context.Context) error

	// Ready reports whether Connect succeeded
	Ready() bool

	// HealthCheck verifies the platform is reachable with the current credentials
	HealthCheck(ctx context.Context) error

	// ListServers lists the servers the credentials can read
	ListServers(ctx context.Context) ([]domain.Server, error)

	// GetServer gets server information
	GetServer(ctx context.Context, serverID string) (*domain.Server, error)

	// ListChannels lists the text channels of a server
	ListChannels(ctx context.Context, serverID string) ([]domain.Channel, error)

	// ListMessages fetches up to limit messages before the cursor (empty = latest)
	ListMessages(ctx context.Context, channelID string, limit int, before string) (*MessagePage, error)

	Close() error
}
