package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voxkit/whisperd/internal/config"
	serverhttp "github.com/voxkit/whisperd/internal/http"
	"github.com/voxkit/whisperd/internal/service"
	"github.com/voxkit/whisperd/internal/whisper"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl := zerolog.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			lvl = l
		}
	}
	log.Logger = log.Level(lvl)

	cfg := config.Load()
	log.Info().
		Str("model", cfg.Model).
		Str("device", cfg.Device).
		Str("computeType", cfg.ComputeType()).
		Msg("whisperd configuration")

	loader := whisper.NewLoader(cfg)
	if cfg.Preload {
		if err := loader.Preload(); err != nil {
			// Keep serving; transcription requests retry the load.
			log.Error().Err(err).Msg("model preload failed")
		}
	}

	svc := service.New(loader)
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      serverhttp.NewRouter(cfg, svc, loader),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("whisperd server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
	}
	if err := loader.Close(); err != nil {
		log.Warn().Err(err).Msg("engine close failed")
	}
}
