package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/usecase"
	"github.com/channelpulse/channel-pulse/internal/infra/mail"
	"github.com/channelpulse/channel-pulse/internal/service"
)

// Config represents application configuration
type Config struct {
	// Upstream chat platform
	Chat ChatConfig

	// AI provider
	AI AIConfig

	// SMTP (optional; notifications are logged when unset)
	Mail MailConfig

	// Storage configuration
	Storage StorageConfig

	// Monitor timers
	Monitor MonitorConfig

	// Sync pagination
	Sync SyncConfig

	// HTTP API
	API APIConfig

	// Channel classification
	Channels ChannelsConfig

	// Settings used until the user saves their own
	Defaults DefaultsConfig

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	// Debug mode
	Debug    bool
	LogLevel string
}

// ChatConfig contains chat platform configuration
type ChatConfig struct {
	Platform        string // discord, slack, feishu
	DiscordToken    string
	DiscordGuildIDs []string
	SlackToken      string
	FeishuAppID     string
	FeishuAppSecret string
}

// AIConfig contains AI provider configuration
type AIConfig struct {
	Provider string // openai, moonshot, gemini
	APIKey   string
	BaseURL  string
	Model    string
}

// MailConfig contains SMTP configuration
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
}

// StorageConfig contains storage configuration
type StorageConfig struct {
	DBPath string
}

// MonitorConfig contains scheduler intervals
type MonitorConfig struct {
	PollInterval     time.Duration
	SettingsInterval time.Duration
	ServersInterval  time.Duration
}

// SyncConfig contains sync pagination configuration
type SyncConfig struct {
	PageSize    int
	MaxMessages int
}

// APIConfig contains HTTP API configuration
type APIConfig struct {
	Addr        string
	URL         string // Base URL used by the MCP server to reach the API
	SummaryWait time.Duration
	RefreshWait time.Duration
}

// ChannelsConfig contains always-visible channel configuration
type ChannelsConfig struct {
	AlwaysVisibleIDs   []string
	AlwaysVisibleNames []string
}

// DefaultsConfig contains default user settings
type DefaultsConfig struct {
	AutoAnalysisEnabled   bool
	DefaultEmailRecipient string
	MessageThreshold      int
	TimeThreshold         int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".channel-pulse", "pulse.db")
	}

	platform := strings.ToLower(os.Getenv("CHAT_PLATFORM"))
	if platform == "" {
		platform = "discord"
	}

	provider := strings.ToLower(os.Getenv("AI_PROVIDER"))
	if provider == "" {
		provider = "openai"
	}
	ai := AIConfig{Provider: provider}
	switch provider {
	case "moonshot":
		ai.APIKey = os.Getenv("MOONSHOT_API_KEY")
		ai.Model = os.Getenv("MOONSHOT_MODEL")
		ai.BaseURL = envString("MOONSHOT_BASE_URL", "https://api.moonshot.cn/v1")
		if ai.Model == "" {
			ai.Model = "moonshot-v1-32k"
		}
	case "gemini":
		ai.APIKey = os.Getenv("GEMINI_API_KEY")
		ai.Model = os.Getenv("GEMINI_MODEL")
	default:
		ai.APIKey = os.Getenv("OPENAI_API_KEY")
		ai.BaseURL = os.Getenv("OPENAI_BASE_URL")
		ai.Model = os.Getenv("OPENAI_MODEL")
	}

	apiAddr := envString("API_ADDR", "127.0.0.1:8080")
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://" + apiAddr
	}

	// Load prompts from YAML
	promptsConfig, _ := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))

	defaults := domain.DefaultUserSettings()

	return &Config{
		Chat: ChatConfig{
			Platform:        platform,
			DiscordToken:    os.Getenv("DISCORD_BOT_TOKEN"),
			DiscordGuildIDs: envList("DISCORD_GUILD_IDS"),
			SlackToken:      os.Getenv("SLACK_BOT_TOKEN"),
			FeishuAppID:     os.Getenv("FEISHU_APP_ID"),
			FeishuAppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		AI: ai,
		Mail: MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			TLS:      envBool("SMTP_TLS", true),
		},
		Storage: StorageConfig{
			DBPath: dbPath,
		},
		Monitor: MonitorConfig{
			PollInterval:     envDuration("MONITOR_POLL_INTERVAL", 15*time.Second),
			SettingsInterval: envDuration("MONITOR_SETTINGS_INTERVAL", 60*time.Second),
			ServersInterval:  envDuration("MONITOR_SERVERS_INTERVAL", 5*time.Minute),
		},
		Sync: SyncConfig{
			PageSize:    envInt("SYNC_PAGE_SIZE", 30),
			MaxMessages: envInt("SYNC_MAX_MESSAGES", 50),
		},
		API: APIConfig{
			Addr:        apiAddr,
			URL:         strings.TrimRight(apiURL, "/"),
			SummaryWait: envDuration("API_SUMMARY_WAIT", 10*time.Second),
			RefreshWait: envDuration("API_REFRESH_WAIT", 120*time.Second),
		},
		Channels: ChannelsConfig{
			AlwaysVisibleIDs:   envList("ALWAYS_VISIBLE_CHANNEL_IDS"),
			AlwaysVisibleNames: envList("ALWAYS_VISIBLE_CHANNEL_NAMES"),
		},
		Defaults: DefaultsConfig{
			AutoAnalysisEnabled:   envBool("AUTO_ANALYSIS_ENABLED", defaults.AutoAnalysisEnabled),
			DefaultEmailRecipient: os.Getenv("DEFAULT_EMAIL_RECIPIENT"),
			MessageThreshold:      envInt("MESSAGE_THRESHOLD", defaults.MessageThreshold),
			TimeThreshold:         envInt("TIME_THRESHOLD", defaults.TimeThreshold),
		},
		Prompts:  promptsConfig,
		Debug:    os.Getenv("DEBUG") == "true",
		LogLevel: os.Getenv("LOG_LEVEL"),
	}
}

// ToSyncConfig converts to sync usecase configuration
func (c *Config) ToSyncConfig() usecase.SyncConfig {
	cfg := usecase.DefaultSyncConfig()
	if c.Sync.PageSize > 0 {
		cfg.PageSize = c.Sync.PageSize
	}
	if c.Sync.MaxMessages > 0 {
		cfg.MaxMessages = c.Sync.MaxMessages
	}
	return cfg
}

// ToSchedulerConfig converts to scheduler configuration
func (c *MonitorConfig) ToSchedulerConfig() service.SchedulerConfig {
	return service.SchedulerConfig{
		PollInterval:     c.PollInterval,
		SettingsInterval: c.SettingsInterval,
		ServersInterval:  c.ServersInterval,
	}
}

// ToAnalysisConfig converts to bounded wait configuration
func (c *APIConfig) ToAnalysisConfig() service.AnalysisConfig {
	return service.AnalysisConfig{
		SummaryWait: c.SummaryWait,
		RefreshWait: c.RefreshWait,
		RetryAfter:  service.DefaultRetryAfter,
	}
}

// ToUserSettings converts the defaults to domain settings
func (c *DefaultsConfig) ToUserSettings() domain.UserSettings {
	return domain.UserSettings{
		AutoAnalysisEnabled:   c.AutoAnalysisEnabled,
		DefaultEmailRecipient: c.DefaultEmailRecipient,
		MessageThreshold:      c.MessageThreshold,
		TimeThreshold:         c.TimeThreshold,
	}.Normalize()
}

// ToClassifier builds the channel classifier
func (c *ChannelsConfig) ToClassifier() *domain.ChannelClassifier {
	return domain.NewChannelClassifier(c.AlwaysVisibleIDs, c.AlwaysVisibleNames)
}

// ToMailConfig converts to SMTP client configuration
func (c *MailConfig) ToMailConfig() mail.Config {
	return mail.Config{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
		TLS:      c.TLS,
	}
}

// Enabled reports whether SMTP is configured
func (c *MailConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Chat.Platform {
	case "discord":
		if c.Chat.DiscordToken == "" {
			return &ConfigError{Field: "DISCORD_BOT_TOKEN", Message: "required"}
		}
		if len(c.Chat.DiscordGuildIDs) == 0 {
			return &ConfigError{Field: "DISCORD_GUILD_IDS", Message: "at least one guild id is required"}
		}
	case "slack":
		if c.Chat.SlackToken == "" {
			return &ConfigError{Field: "SLACK_BOT_TOKEN", Message: "required"}
		}
	case "feishu":
		if c.Chat.FeishuAppID == "" || c.Chat.FeishuAppSecret == "" {
			return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
		}
	default:
		return &ConfigError{Field: "CHAT_PLATFORM", Message: "must be one of discord, slack, feishu"}
	}

	switch c.AI.Provider {
	case "openai", "moonshot", "gemini":
	default:
		return &ConfigError{Field: "AI_PROVIDER", Message: "must be one of openai, moonshot, gemini"}
	}
	if c.AI.APIKey == "" {
		return &ConfigError{Field: strings.ToUpper(c.AI.Provider) + "_API_KEY", Message: "required"}
	}

	if c.Monitor.PollInterval <= 0 {
		return &ConfigError{Field: "MONITOR_POLL_INTERVAL", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

// envDuration accepts Go durations ("15s") or plain seconds ("15")
func envDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
