package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/emoedu/live/internal/adapters/http"
	"github.com/emoedu/live/internal/app"
	"github.com/emoedu/live/internal/config"
	"github.com/emoedu/live/internal/core"
	"github.com/emoedu/live/internal/storage"
	"github.com/emoedu/live/internal/turn"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("CONFIG_ENV") == "dev" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		// Nothing downstream can run without a config.
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// The emotion log is best-effort: a broken database disables the
	// dashboard history but never blocks live sessions.
	var sink core.EmotionSink
	var store *storage.EmotionStore
	if store, err = storage.Open(cfg.DBPath); err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("emotion store unavailable, continuing without persistence")
		store = nil
	} else {
		sink = store
		defer store.Close()
	}

	reg := app.NewRegistry()
	rooms := app.NewRooms()
	relay := app.NewRelay(reg, rooms, app.DropPolicy{}, sink)

	if cfg.Turn.Enabled {
		turnSrv, err := turn.NewServer(cfg.Turn)
		if err != nil {
			log.Error().Err(err).Msg("failed to start TURN relay")
		} else {
			defer turnSrv.Stop()
		}
	}

	r := router.SetupRouter(ctx, cfg, relay, store)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("EmoEdu live server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
