//go:build wireinject
// +build wireinject

package di

import (
	"CropVol/internal/usecase"
	"CropVol/pkg/config"
	"CropVol/pkg/server"

	"github.com/google/wire"
)

var pipelineSet = wire.NewSet(
	// Ambient
	ProvideLogger,
	ProvideMetrics,

	// Infrastructure
	ProvideFitStore,
	ProvideFitPublisher,
	ProvideFitHistory,
	ProvideSources,

	// Services
	ProvideEstimator,
	ProvideFitMemo,

	// Use cases
	ProvideCatalog,
	ProvidePipeline,
)

// InitializeApp wires up all dependencies and returns the HTTP application.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		pipelineSet,
		ProvideJobTracker,
		ProvideJobQueue,
		ProvideRefits,
		ProvideRateLimiter,
		ProvideHandler,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializePipeline wires the pipeline alone, for one-shot CLI runs.
func InitializePipeline(cfg *config.Config) (*usecase.VolatilityPipeline, func(), error) {
	wire.Build(pipelineSet)
	return nil, nil, nil
}
