package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/usecase"
	"github.com/channelpulse/channel-pulse/internal/conf"
	"github.com/channelpulse/channel-pulse/internal/data"
	"github.com/channelpulse/channel-pulse/internal/mcp"
)

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <server-id>",
		Short: "Sync and summarize every monitored channel of a server, then print fresh stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				stats, err := a.usecases.Analysis.RunServerAnalysis(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(stats)
			})
		},
	}
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <channel-id>",
		Short: "Summarize the last hour of a channel and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				summary, err := a.usecases.Analysis.GenerateChannelSummary(ctx, args[0])
				if err != nil {
					return err
				}
				if summary == nil {
					log.Info().Str("channel_id", args[0]).Msg("No messages in the window, nothing stored")
					summary, err = a.usecases.Analysis.LatestSummary(ctx, args[0])
					if err != nil {
						return err
					}
				}
				return printJSON(summary)
			})
		},
	}
}

// withApp wires the app, pulls the upstream catalog and runs fn
func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.usecases.Catalog.Pull(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

// withStores opens only the local store; no platform or AI credentials are needed
func withStores(fn func(*data.Stores) error) error {
	cfg := conf.LoadFromEnv()
	stores, err := data.NewStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()
	return fn(stores)
}

func settingsCmd() *cobra.Command {
	var (
		enable    bool
		disable   bool
		recipient string
		messages  int
		minutes   int
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or update automatic analysis settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if enable && disable {
				return errors.New("--enable and --disable are mutually exclusive")
			}
			ctx := context.Background()
			return withStores(func(stores *data.Stores) error {
				settings, err := stores.Settings.Get(ctx)
				if err != nil {
					return err
				}

				flags := cmd.Flags()
				changed := false
				if enable || disable {
					settings.AutoAnalysisEnabled = enable
					changed = true
				}
				if flags.Changed("recipient") {
					settings.DefaultEmailRecipient = recipient
					changed = true
				}
				if flags.Changed("message-threshold") {
					settings.MessageThreshold = messages
					changed = true
				}
				if flags.Changed("time-threshold") {
					settings.TimeThreshold = minutes
					changed = true
				}

				if changed {
					settings = settings.Normalize()
					if err := stores.Settings.Save(ctx, settings); err != nil {
						return err
					}
					log.Info().Msg("Settings saved; a running server picks them up on its next settings refresh")
				}
				return printJSON(settings)
			})
		},
	}

	cmd.Flags().BoolVar(&enable, "enable", false, "enable automatic analysis")
	cmd.Flags().BoolVar(&disable, "disable", false, "disable automatic analysis")
	cmd.Flags().StringVar(&recipient, "recipient", "", "email address that receives analyses")
	cmd.Flags().IntVar(&messages, "message-threshold", 0,
		fmt.Sprintf("new messages that trigger an analysis (%d-%d)", domain.MinMessageThreshold, domain.MaxMessageThreshold))
	cmd.Flags().IntVar(&minutes, "time-threshold", 0,
		fmt.Sprintf("minimum minutes between analyses of a channel (%d-%d)", domain.MinTimeThreshold, domain.MaxTimeThreshold))
	return cmd
}

func channelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "List channels and toggle their monitoring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored servers and channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(stores *data.Stores) error {
				servers, err := usecase.NewCatalogUsecase(nil, stores.Server).Load(context.Background())
				if err != nil {
					return err
				}
				return printJSON(servers)
			})
		},
	})

	toggle := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <channel-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStores(func(stores *data.Stores) error {
					return usecase.NewCatalogUsecase(nil, stores.Server).SetChannelActive(context.Background(), args[0], active)
				})
			},
		}
	}
	cmd.AddCommand(toggle("activate", "Monitor a channel", true))
	cmd.AddCommand(toggle("deactivate", "Stop monitoring a channel", false))
	return cmd
}

func mcpCmd() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the channel-pulse API as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				apiURL = conf.LoadFromEnv().API.URL
			}
			log.Info().Str("api_url", apiURL).Msg("Starting MCP server")
			server := mcp.NewServer(mcp.NewClient(apiURL), version)
			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "channel-pulse API base URL (default: API_URL or http://API_ADDR)")
	return cmd
}
