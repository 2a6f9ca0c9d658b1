package repo

import (
	"context"
	"time"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
)

// MessageRepo is the append-only per-channel message log
type MessageRepo interface {
	// Append stores messages, ignoring ids that already exist.
	// Returns how many messages were newly inserted.
	Append(ctx context.Context, msgs ...domain.Message) (int, error)

	// List returns a channel's messages ordered by creation time (oldest first).
	// A zero since returns the full history.
	List(ctx context.Context, channelID string, since time.Time) ([]domain.Message, error)

	// Count returns the full message-log length of a channel
	Count(ctx context.Context, channelID string) (int, error)
}
