// Package server exposes enrichment, batch enrichment and cache maintenance
// over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/vocab-enricher/pkg/batch"
	"github.com/Sternrassler/vocab-enricher/pkg/enrichment"
	"github.com/Sternrassler/vocab-enricher/pkg/metrics"
)

// Enricher produces enriched records.
type Enricher interface {
	Enrich(ctx context.Context, term string, c enrichment.Context) (enrichment.Record, error)
}

// Purger removes expired cache entries.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// Config holds the HTTP server settings.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration

	// Batch is the default batch behaviour; requests may lower Concurrency.
	Batch        batch.Options
	MaxBatchSize int

	Version string
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		Batch:           batch.DefaultOptions(),
		MaxBatchSize:    batch.MaxBatchSize,
	}
}

// Server is the HTTP front end of the enrichment pipeline.
type Server struct {
	enricher Enricher
	purger   Purger
	cfg      Config
	engine   *gin.Engine
	logger   zerolog.Logger
}

// New creates a server and registers its routes.
func New(enricher Enricher, purger Purger, cfg Config, logger zerolog.Logger) *Server {
	if enricher == nil {
		panic("enricher cannot be nil")
	}
	if purger == nil {
		panic("purger cannot be nil")
	}
	if cfg.MaxBatchSize <= 0 || cfg.MaxBatchSize > batch.MaxBatchSize {
		cfg.MaxBatchSize = batch.MaxBatchSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		enricher: enricher,
		purger:   purger,
		cfg:      cfg,
		logger:   logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	engine.GET("/health", s.health)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := engine.Group("/v1")
	v1.POST("/enrich", s.enrich)
	v1.POST("/batch", s.batch)
	v1.POST("/cache/purge", s.purge)

	s.engine = engine
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}
