package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/channelpulse/channel-pulse/internal/biz"
	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/usecase"
	"github.com/channelpulse/channel-pulse/internal/conf"
	"github.com/channelpulse/channel-pulse/internal/data"
)

// app holds the wired repositories and usecases
type app struct {
	cfg        *conf.Config
	repos      *data.Repositories
	usecases   *biz.Usecases
	classifier *domain.ChannelClassifier
}

// newApp creates repositories and usecases. The chat repo is not connected yet.
func newApp(ctx context.Context, cfg *conf.Config) (*app, error) {
	repos, err := data.NewRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	classifier := cfg.Channels.ToClassifier()

	catalogUC := usecase.NewCatalogUsecase(repos.Chat, repos.Server)
	syncUC := usecase.NewSyncUsecase(repos.Chat, repos.Message, classifier, cfg.ToSyncConfig())
	statsUC := usecase.NewStatsUsecase(repos.Stats)
	analysisUC := usecase.NewAnalysisUsecase(repos.Server, repos.Summary, repos.Analyzer, syncUC, statsUC, classifier)
	monitorUC := usecase.NewMonitorUsecase(repos.MonitorState, repos.Message, repos.Analyzer, repos.Notifier, classifier)

	return &app{
		cfg:   cfg,
		repos: repos,
		usecases: &biz.Usecases{
			Catalog:  catalogUC,
			Sync:     syncUC,
			Stats:    statsUC,
			Analysis: analysisUC,
			Monitor:  monitorUC,
		},
		classifier: classifier,
	}, nil
}

func (a *app) Close() error {
	return a.repos.Close()
}

// printJSON writes v as indented JSON to stdout
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
