// Command last-analyzer syncs a Last.fm listening history into Postgres and
// serves a small admin API over it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/bensonchow123/last-analyzer/internal/config"
	"github.com/bensonchow123/last-analyzer/internal/db"
	"github.com/bensonchow123/last-analyzer/internal/embedding"
	"github.com/bensonchow123/last-analyzer/internal/lastfm"
	syncpkg "github.com/bensonchow123/last-analyzer/internal/sync"
	"github.com/bensonchow123/last-analyzer/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is a development convenience; absence is fine.
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	var embedder embedding.Embedder = embedding.Disabled{}
	if cfg.OpenAIAPIKey != "" {
		embedder = embedding.NewOpenAI(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		log.Info().Str("model", cfg.EmbeddingModel).Msg("embeddings enabled")
	} else {
		log.Info().Msg("no embedding API key configured; storing entities without vectors")
	}

	client := lastfm.NewClient(lastfm.Config{
		APIKey:      cfg.LastfmAPIKey,
		User:        cfg.LastfmUsername,
		MinInterval: cfg.MinInterval,
	}, log)

	service := syncpkg.New(client, database, embedder, log,
		syncpkg.WithConcurrency(cfg.FetchConcurrency))
	scheduler := syncpkg.NewScheduler(service, cfg.SyncInterval, log)

	server := web.NewServer(web.ServerConfig{
		Addr:      cfg.HTTPAddr,
		Store:     web.DBStore{DB: database},
		Scheduler: scheduler,
		Log:       log,
	})

	go func() {
		if err := scheduler.Run(ctx); err != nil {
			log.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	return server.Run()
}
