package data

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
	"github.com/channelpulse/channel-pulse/internal/infra/mail"
)

// mailNotifier delivers notifications over SMTP
type mailNotifier struct {
	client *mail.Client
	logger zerolog.Logger
}

// NewMailNotifier creates an SMTP notifier
func NewMailNotifier(client *mail.Client) repo.NotifierRepo {
	return &mailNotifier{
		client: client,
		logger: log.With().Str("component", "mail").Logger(),
	}
}

func (n *mailNotifier) Send(ctx context.Context, msg domain.Notification) error {
	if err := n.client.Send(ctx, msg.To, msg.Subject, msg.Content); err != nil {
		return err
	}
	n.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("Email sent")
	return nil
}

// logNotifier writes notifications to the log instead of sending them
type logNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier for setups without SMTP
func NewLogNotifier() repo.NotifierRepo {
	return &logNotifier{logger: log.With().Str("component", "notifier").Logger()}
}

func (n *logNotifier) Send(ctx context.Context, msg domain.Notification) error {
	n.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("content", msg.Content).
		Msg("SMTP not configured, notification logged")
	return nil
}
