// Package web serves the admin HTTP surface: health, sync status and a
// manual sync trigger. It is a JSON API only.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/bensonchow123/last-analyzer/internal/db"
	syncpkg "github.com/bensonchow123/last-analyzer/internal/sync"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// Trigger starts a background sync cycle, rejecting overlap with
// sync.ErrSyncRunning. Running reports whether one is in flight.
type Trigger interface {
	Trigger() error
	Running() bool
}

// Store is the slice of the database the handlers read.
type Store interface {
	Ping(ctx context.Context) error
	ReadCheckpoint(ctx context.Context) (*int64, error)
	CountScrobblesSince(ctx context.Context, since int64) (int64, error)
}

// DBStore adapts db.DB to Store.
type DBStore struct {
	DB *db.DB
}

func (s DBStore) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func (s DBStore) ReadCheckpoint(ctx context.Context) (*int64, error) {
	return s.DB.Checkpoint().Read(ctx)
}

func (s DBStore) CountScrobblesSince(ctx context.Context, since int64) (int64, error) {
	return s.DB.Scrobbles().CountSince(ctx, since)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr      string
	Store     Store
	Scheduler Trigger
	Log       zerolog.Logger
}

// Server is the admin HTTP server.
type Server struct {
	router    chi.Router
	server    *http.Server
	store     Store
	scheduler Trigger
	log       zerolog.Logger
}

// NewServer creates the admin server.
func NewServer(cfg ServerConfig) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	router := chi.NewRouter()
	s := &Server{
		router:    router,
		store:     cfg.Store,
		scheduler: cfg.Scheduler,
		log:       cfg.Log,
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.handleHealth)
	router.Get("/api/status", s.handleStatus)
	router.Post("/api/sync", s.handleSync)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse reports sync progress. Checkpoint is null until the first
// cycle completes.
type statusResponse struct {
	Checkpoint   *int64 `json:"checkpoint"`
	Syncing      bool   `json:"syncing"`
	ScrobblesDay int64  `json:"scrobbles_last_24h"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checkpoint, err := s.store.ReadCheckpoint(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reading checkpoint for status")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reading checkpoint"})
		return
	}

	since := time.Now().Add(-24 * time.Hour).Unix()
	count, err := s.store.CountScrobblesSince(ctx, since)
	if err != nil {
		s.log.Error().Err(err).Msg("counting recent scrobbles for status")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "counting scrobbles"})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Checkpoint:   checkpoint,
		Syncing:      s.scheduler.Running(),
		ScrobblesDay: count,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	err := s.scheduler.Trigger()
	switch {
	case errors.Is(err, syncpkg.ErrSyncRunning):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a sync cycle is already running"})
	case err != nil:
		s.log.Error().Err(err).Msg("triggering sync")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "triggering sync"})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting admin server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and shuts down gracefully on interrupt.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.log.Info().Msg("shutting down admin server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
