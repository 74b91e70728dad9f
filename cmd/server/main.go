// Package main boots the card game session server: configuration,
// logging, the database pool and migrations, and the process-wide
// consistency cache the transport layer calls into.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"love-letter-server/internal/config"
	"love-letter-server/internal/pkg/db"
	"love-letter-server/internal/repository"
	"love-letter-server/internal/service"
	"love-letter-server/internal/store"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := repository.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Wire the repository, the consistency cache and the setup service.
	// The store is constructed once here and shared by reference; nothing
	// relies on package-level state.
	gameRepo := repository.NewGameRepository(dbPool.Pool)
	gameStore := store.New(gameRepo)
	setup := service.NewSetupService(gameStore, rand.New(rand.NewSource(time.Now().UnixNano())))
	_ = setup // handed to the transport layer, which is wired separately

	log.Info().Msg("Session state layer is ready")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	log.Info().Msg("Server stopped gracefully")
}
