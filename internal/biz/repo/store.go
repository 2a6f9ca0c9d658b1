package repo

import (
	"context"
	"time"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
)

// SummaryRepo is the append-only channel summary log
type SummaryRepo interface {
	Append(ctx context.Context, summary *domain.ChannelSummary) error

	// Latest returns the newest summary of a channel, or nil when none exists
	Latest(ctx context.Context, channelID string) (*domain.ChannelSummary, error)
}

// StatsRepo is the append-only server stats log
type StatsRepo interface {
	Append(ctx context.Context, stats *domain.ServerStats) error

	// Latest returns the newest stats of a server, or nil when none exists
	Latest(ctx context.Context, serverID string) (*domain.ServerStats, error)

	// History returns up to limit records, newest first
	History(ctx context.Context, serverID string, limit int) ([]*domain.ServerStats, error)
}

// MonitorStateRepo persists per-channel monitor state
type MonitorStateRepo interface {
	// Get returns the state of a channel, or nil when it was never observed
	Get(ctx context.Context, channelID string) (*domain.ChannelMonitorState, error)

	// Save creates or updates a state
	Save(ctx context.Context, state *domain.ChannelMonitorState) error

	ListAll(ctx context.Context) ([]*domain.ChannelMonitorState, error)
}

// ServerRepo stores servers and their channels
type ServerRepo interface {
	UpsertServer(ctx context.Context, server *domain.Server) error
	UpsertChannel(ctx context.Context, channel *domain.Channel) error

	// GetServer returns a server, or nil when it does not exist
	GetServer(ctx context.Context, serverID string) (*domain.Server, error)

	// GetChannel returns a channel, or nil when it does not exist
	GetChannel(ctx context.Context, channelID string) (*domain.Channel, error)

	ListServers(ctx context.Context) ([]*domain.Server, error)
	ListChannels(ctx context.Context, serverID string) ([]domain.Channel, error)
	UpdateLastSynced(ctx context.Context, serverID string, t time.Time) error

	// SetChannelActive enables or disables monitoring; ErrChannelNotFound if unknown
	SetChannelActive(ctx context.Context, channelID string, active bool) error
}
