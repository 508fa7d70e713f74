// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for the optional settings.
const (
	DefaultEmbeddingModel   = "text-embedding-3-small"
	DefaultSyncInterval     = 15 * time.Minute
	DefaultMinInterval      = 200 * time.Millisecond
	DefaultFetchConcurrency = 4
	DefaultHTTPAddr         = "127.0.0.1:8080"
)

// Config holds everything the application reads from the environment.
// OpenAIAPIKey is optional: when empty, entities are stored without
// embeddings.
type Config struct {
	LastfmAPIKey   string
	LastfmUsername string
	DatabaseURL    string

	OpenAIAPIKey   string
	EmbeddingModel string

	SyncInterval     time.Duration
	MinInterval      time.Duration
	FetchConcurrency int

	HTTPAddr string
}

// Load reads configuration from environment variables. Missing required
// variables are reported together so a broken deployment fails with one
// complete message.
func Load() (*Config, error) {
	cfg := &Config{
		LastfmAPIKey:     os.Getenv("LASTFM_API_KEY"),
		LastfmUsername:   os.Getenv("LASTFM_USERNAME"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel:   envOr("EMBEDDING_MODEL", DefaultEmbeddingModel),
		SyncInterval:     DefaultSyncInterval,
		MinInterval:      DefaultMinInterval,
		FetchConcurrency: DefaultFetchConcurrency,
		HTTPAddr:         envOr("HTTP_ADDR", DefaultHTTPAddr),
	}

	var missing []string
	if cfg.LastfmAPIKey == "" {
		missing = append(missing, "LASTFM_API_KEY")
	}
	if cfg.LastfmUsername == "" {
		missing = append(missing, "LASTFM_USERNAME")
	}
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if v, err := envMinutes("SYNC_INTERVAL_MINUTES"); err != nil {
		return nil, err
	} else if v > 0 {
		cfg.SyncInterval = v
	}
	if v, err := envMillis("RATE_LIMIT_MS"); err != nil {
		return nil, err
	} else if v > 0 {
		cfg.MinInterval = v
	}
	if raw := os.Getenv("FETCH_CONCURRENCY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid FETCH_CONCURRENCY %q", raw)
		}
		cfg.FetchConcurrency = n
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envMinutes(key string) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return time.Duration(n) * time.Minute, nil
}

func envMillis(key string) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return time.Duration(n) * time.Millisecond, nil
}
