package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/channelpulse/channel-pulse/internal/biz/repo"
	"github.com/channelpulse/channel-pulse/internal/conf"
	"github.com/channelpulse/channel-pulse/internal/infra/discord"
	"github.com/channelpulse/channel-pulse/internal/infra/feishu"
	"github.com/channelpulse/channel-pulse/internal/infra/gemini"
	"github.com/channelpulse/channel-pulse/internal/infra/mail"
	"github.com/channelpulse/channel-pulse/internal/infra/openai"
	slackinfra "github.com/channelpulse/channel-pulse/internal/infra/slack"
)

// Stores contains the sqlite-backed repositories
type Stores struct {
	DB           *sql.DB
	Message      repo.MessageRepo
	Summary      repo.SummaryRepo
	Stats        repo.StatsRepo
	MonitorState repo.MonitorStateRepo
	Server       repo.ServerRepo
	Settings     repo.SettingsRepo
}

// Repositories contains all repositories
type Repositories struct {
	*Stores
	Chat     repo.ChatRepo
	Analyzer repo.AnalyzerRepo
	Notifier repo.NotifierRepo
}

// NewStores opens the database and creates the store repositories
func NewStores(cfg *conf.Config) (*Stores, error) {
	db, err := OpenDB(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	return &Stores{
		DB:           db,
		Message:      NewMessageRepo(db),
		Summary:      NewSummaryRepo(db),
		Stats:        NewStatsRepo(db),
		MonitorState: NewMonitorStateRepo(db),
		Server:       NewServerRepo(db),
		Settings:     NewSettingsRepo(db, cfg.Defaults.ToUserSettings()),
	}, nil
}

// Close closes the database
func (s *Stores) Close() error {
	return s.DB.Close()
}

// NewRepositories creates all repositories. The chat repo is not connected yet.
func NewRepositories(ctx context.Context, cfg *conf.Config) (*Repositories, error) {
	chat, err := NewChatRepo(cfg)
	if err != nil {
		return nil, err
	}

	analyzer, err := NewAnalyzerRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}

	stores, err := NewStores(cfg)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Stores:   stores,
		Chat:     chat,
		Analyzer: analyzer,
		Notifier: NewNotifierRepo(cfg),
	}, nil
}

// Close closes the chat client and the database
func (r *Repositories) Close() error {
	chatErr := r.Chat.Close()
	if err := r.Stores.Close(); err != nil {
		return err
	}
	return chatErr
}

// NewChatRepo creates the chat repository for the configured platform
func NewChatRepo(cfg *conf.Config) (repo.ChatRepo, error) {
	switch cfg.Chat.Platform {
	case "discord":
		return NewDiscordRepo(discord.NewClient(cfg.Chat.DiscordToken), cfg.Chat.DiscordGuildIDs), nil
	case "slack":
		return NewSlackRepo(slackinfra.NewClient(cfg.Chat.SlackToken)), nil
	case "feishu":
		return NewFeishuRepo(feishu.NewClient(cfg.Chat.FeishuAppID, cfg.Chat.FeishuAppSecret), cfg.Chat.FeishuAppID, ""), nil
	default:
		return nil, &conf.ConfigError{Field: "CHAT_PLATFORM", Message: fmt.Sprintf("unsupported platform %q", cfg.Chat.Platform)}
	}
}

// NewAnalyzerRepo creates the analyzer for the configured AI provider
func NewAnalyzerRepo(ctx context.Context, cfg *conf.Config) (repo.AnalyzerRepo, error) {
	switch cfg.AI.Provider {
	case "openai", "moonshot":
		return NewOpenAIAnalyzer(openai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model), cfg.Prompts), nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			return nil, err
		}
		return NewGeminiAnalyzer(client, cfg.Prompts), nil
	default:
		return nil, &conf.ConfigError{Field: "AI_PROVIDER", Message: fmt.Sprintf("unsupported provider %q", cfg.AI.Provider)}
	}
}

// NewNotifierRepo creates an SMTP notifier, or a log-only one without SMTP settings
func NewNotifierRepo(cfg *conf.Config) repo.NotifierRepo {
	if !cfg.Mail.Enabled() {
		return NewLogNotifier()
	}
	return NewMailNotifier(mail.NewClient(cfg.Mail.ToMailConfig()))
}
