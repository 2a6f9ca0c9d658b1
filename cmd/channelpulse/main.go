package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/channelpulse/channel-pulse/internal/conf"
)

var (
	version = "0.1.0"
	envFile string
)

func main() {
	root := &cobra.Command{
		Use:           "channelpulse",
		Short:         "Channel activity summaries, stats and automatic analyses",
		Long:          "channel-pulse ingests Discord, Slack or Feishu channels, summarizes them on demand and emails sentiment and jobs-to-be-done analyses when a channel gets busy.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadEnv()
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file (default: ./.env if present)")

	root.AddCommand(serveCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(summaryCmd())
	root.AddCommand(settingsCmd())
	root.AddCommand(channelCmd())
	root.AddCommand(mcpCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// loadEnv loads the .env file and sets up logging from the environment
func loadEnv() {
	var err error
	if envFile != "" {
		err = godotenv.Load(envFile)
	} else {
		err = godotenv.Load()
	}
	setupLogging(os.Getenv("LOG_LEVEL"), os.Getenv("DEBUG") == "true")
	if err != nil && envFile != "" {
		log.Warn().Err(err).Str("path", envFile).Msg("Failed to load env file")
	} else if err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}
}

// setupLogging writes human-readable logs to stderr; stdout stays free for
// command output and the MCP stdio transport
func setupLogging(level string, debug bool) {
	logLevel := zerolog.InfoLevel
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			logLevel = parsed
		}
	}
	if debug {
		logLevel = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(logLevel)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// loadConfig loads and validates the full configuration
func loadConfig() (*conf.Config, error) {
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
