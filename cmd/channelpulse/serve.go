package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/channelpulse/channel-pulse/internal/api"
	"github.com/channelpulse/channel-pulse/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingest and monitor loops and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			log.Info().
				Str("platform", a.repos.Chat.Platform()).
				Str("ai_provider", cfg.AI.Provider).
				Str("db", cfg.Storage.DBPath).
				Bool("smtp", cfg.Mail.Enabled()).
				Msg("Starting channel-pulse")

			analysisSvc := service.NewAnalysisService(a.usecases.Analysis, cfg.API.ToAnalysisConfig())

			// Connect failures are retried by the server refresh loop
			scheduler := service.NewActivityScheduler(
				a.repos.Settings,
				a.usecases.Catalog,
				a.usecases.Sync,
				a.usecases.Monitor,
				a.classifier,
				cfg.Monitor.ToSchedulerConfig(),
			)
			if err := scheduler.Start(ctx); err != nil {
				return err
			}
			defer scheduler.Stop()

			apiServer := api.NewServer(api.Deps{
				Runner:    analysisSvc,
				Summaries: a.usecases.Analysis,
				Stats:     a.usecases.Stats,
				Messages:  a.repos.Message,
				States:    a.repos.MonitorState,
				Servers:   a.repos.Server,
				Settings:  a.repos.Settings,
				Health:    a.repos.Chat,
			}, cfg.API.Addr)

			errCh := make(chan error, 1)
			go func() {
				errCh <- apiServer.Start()
			}()

			select {
			case <-ctx.Done():
				log.Info().Msg("Shutting down...")
			case err := <-errCh:
				if err != nil {
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := apiServer.Stop(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("HTTP server shutdown")
			}
			return nil
		},
	}
}
