// Package handlers implements the HTTP surface of the media gateway.
package handlers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"gateway/internal/cache"
	"gateway/internal/infra"
	"gateway/internal/pipeline"
	"gateway/internal/providers/falai"
	"gateway/internal/storage"
)

// Version is the API version reported by info and health endpoints.
const Version = "1.0.0"

// Provider is the slice of the upstream client the handlers use directly,
// beyond what flows through the pipeline.
type Provider interface {
	ListModels(ctx context.Context) ([]falai.Model, error)
	Health(ctx context.Context) error
}

// App bundles the dependencies shared by all handlers.
type App struct {
	Cfg      *infra.Config
	Logger   zerolog.Logger
	Store    *storage.MediaStore
	Cache    *cache.ResultCache
	Pipeline *pipeline.Pipeline
	Provider Provider

	startTime time.Time
}

// NewApp wires an App. Uptime reporting starts now.
func NewApp(cfg *infra.Config, logger zerolog.Logger, store *storage.MediaStore, resultCache *cache.ResultCache, pl *pipeline.Pipeline, provider Provider) *App {
	return &App{
		Cfg:       cfg,
		Logger:    logger,
		Store:     store,
		Cache:     resultCache,
		Pipeline:  pl,
		Provider:  provider,
		startTime: time.Now(),
	}
}

func (a *App) uptime() float64 {
	return time.Since(a.startTime).Seconds()
}
