package biz

import (
	"github.com/channelpulse/channel-pulse/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Catalog  *usecase.CatalogUsecase
	Sync     *usecase.SyncUsecase
	Stats    *usecase.StatsUsecase
	Analysis *usecase.AnalysisUsecase
	Monitor  *usecase.MonitorUsecase
}
