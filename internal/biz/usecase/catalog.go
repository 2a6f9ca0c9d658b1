package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
)

// CatalogUsecase keeps the stored servers and channels in step with the upstream platform
type CatalogUsecase struct {
	chatRepo   repo.ChatRepo
	serverRepo repo.ServerRepo
	logger     zerolog.Logger
}

// NewCatalogUsecase creates a new catalog usecase
func NewCatalogUsecase(chatRepo repo.ChatRepo, serverRepo repo.ServerRepo) *CatalogUsecase {
	return &CatalogUsecase{
		chatRepo:   chatRepo,
		serverRepo: serverRepo,
		logger:     log.With().Str("component", "catalog").Logger(),
	}
}

// Pull connects if needed, then upserts every upstream server and its channels.
// Stored active flags are kept; a server whose channels cannot be listed is skipped.
func (uc *CatalogUsecase) Pull(ctx context.Context) error {
	if !uc.chatRepo.Ready() {
		if err := uc.chatRepo.Connect(ctx); err != nil {
			return fmt.Errorf("connect %s: %w", uc.chatRepo.Platform(), err)
		}
	}

	servers, err := uc.chatRepo.ListServers(ctx)
	if err != nil {
		return fmt.Errorf("list upstream servers: %w", err)
	}

	channelCount := 0
	for i := range servers {
		srv := servers[i]
		if err := uc.serverRepo.UpsertServer(ctx, &srv); err != nil {
			return fmt.Errorf("store server %s: %w", srv.ID, err)
		}
		channels, err := uc.chatRepo.ListChannels(ctx, srv.ID)
		if err != nil {
			uc.logger.Warn().Err(err).Str("server_id", srv.ID).Msg("Failed to list upstream channels")
			continue
		}
		for j := range channels {
			if err := uc.serverRepo.UpsertChannel(ctx, &channels[j]); err != nil {
				return fmt.Errorf("store channel %s: %w", channels[j].ID, err)
			}
		}
		channelCount += len(channels)
	}

	uc.logger.Debug().Int("servers", len(servers)).Int("channels", channelCount).Msg("Catalog pulled")
	return nil
}

// Load reads the stored servers with their channels
func (uc *CatalogUsecase) Load(ctx context.Context) ([]domain.ServerChannels, error) {
	stored, err := uc.serverRepo.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored servers: %w", err)
	}

	servers := make([]domain.ServerChannels, 0, len(stored))
	for _, srv := range stored {
		channels, err := uc.serverRepo.ListChannels(ctx, srv.ID)
		if err != nil {
			return nil, fmt.Errorf("list stored channels of %s: %w", srv.ID, err)
		}
		servers = append(servers, domain.ServerChannels{Server: *srv, Channels: channels})
	}
	return servers, nil
}

// SetChannelActive enables or disables monitoring of a stored channel
func (uc *CatalogUsecase) SetChannelActive(ctx context.Context, channelID string, active bool) error {
	if err := uc.serverRepo.SetChannelActive(ctx, channelID, active); err != nil {
		return fmt.Errorf("set channel %s active=%t: %w", channelID, active, err)
	}
	uc.logger.Info().Str("channel_id", channelID).Bool("active", active).Msg("Channel monitoring updated")
	return nil
}
