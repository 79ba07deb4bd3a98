package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gateway/internal/cache"
	httpapi "gateway/internal/http"
	"gateway/internal/http/handlers"
	"gateway/internal/infra"
	"gateway/internal/pipeline"
	"gateway/internal/providers/falai"
	"gateway/internal/storage"
	"gateway/internal/sweeper"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if redisClient == nil {
		logger.Fatal().Err(err).Msg("invalid redis configuration")
	}
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, results will not be cached")
	}
	defer redisClient.Close()
	resultCache := cache.New(redisClient, cfg.CacheTTL, logger)

	store, err := storage.NewMediaStore(storage.Options{
		Root:              cfg.UploadDir,
		MaxFileSize:       cfg.MaxFileSize,
		AllowedImageTypes: cfg.AllowedImageTypes,
		AllowedVideoTypes: cfg.AllowedVideoTypes,
		Logger:            logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	provider, err := falai.NewClient(falai.Options{
		APIKey:  cfg.FalAPIKey,
		BaseURL: cfg.FalBaseURL,
		Timeout: cfg.FalTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize provider client")
	}
	defer provider.Close()

	pl := pipeline.New(store, resultCache, provider, logger)
	app := handlers.NewApp(cfg, logger, store, resultCache, pl, provider)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	sweep := sweeper.New(store, cfg.SweepInterval, cfg.RetentionAge, logger)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweep.Run(ctx)
	}()

	go func() {
		logger.Info().Str("env", cfg.AppEnv).Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	<-sweepDone
	logger.Info().Msg("server stopped")
}
