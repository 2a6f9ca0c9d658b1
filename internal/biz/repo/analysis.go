package repo

import (
	"context"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
)

// AnalyzerRepo is the AI analysis provider
type AnalyzerRepo interface {
	// Summarize summarizes a channel transcript into a summary and key topics
	Summarize(ctx context.Context, channelName, transcript string) (*domain.SummaryDraft, error)

	// Sentiment analyzes the sentiment of a channel transcript
	Sentiment(ctx context.Context, channelName, transcript string) (string, error)

	// JTBD extracts jobs-to-be-done, using a previous sentiment analysis as context
	JTBD(ctx context.Context, channelName, transcript, sentiment string) (string, error)
}

// NotifierRepo dispatches notifications
type NotifierRepo interface {
	Send(ctx context.Context, n domain.Notification) error
}

// SettingsRepo provides user settings
type SettingsRepo interface {
	Get(ctx context.Context) (domain.UserSettings, error)
	Save(ctx context.Context, settings domain.UserSettings) error
}
