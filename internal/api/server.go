package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/voxnote/internal/config"
	"github.com/snarg/voxnote/internal/metrics"
	"github.com/snarg/voxnote/internal/storage"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// ServerOptions carries the handler dependencies. MQTT may be nil.
type ServerOptions struct {
	Pipeline  Pipeline
	Store     storage.ArtifactStore
	MQTT      ConnectionStatus
	Version   string
	StartTime time.Time
	Log       zerolog.Logger
}

func NewServer(cfg *config.Config, opts ServerOptions) *Server {
	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      NewRouter(cfg, opts),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: opts.Log,
	}
}

// NewRouter builds the full route table.
func NewRouter(cfg *config.Config, opts ServerOptions) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(metrics.InstrumentHandler)

	health := NewHealthHandler(opts.Store, opts.MQTT, opts.Version, opts.StartTime)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	NewPagesHandler(opts.Pipeline, opts.Log).Routes(r)
	NewUploadHandler(opts.Pipeline, int64(cfg.MaxUploadMB)<<20, opts.Log).Routes(r)
	NewFilesHandler(opts.Store, opts.Log).Routes(r)

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
