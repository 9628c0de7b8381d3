// Package server exposes the range index over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rangeq/internal/config"
	"github.com/Sumatoshi-tech/rangeq/internal/observability"
	"github.com/Sumatoshi-tech/rangeq/internal/rangeindex"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server. Only Index is required.
type Options struct {
	Config         config.ServerConfig
	Index          *rangeindex.Index
	Tracer         trace.Tracer
	RED            *observability.REDMetrics
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// Server serves the HTTP API.
type Server struct {
	index   *rangeindex.Index
	logger  *slog.Logger
	handler http.Handler
	http    *http.Server
}

// New builds a server and its route table.
func New(opts Options) *Server {
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("rangeq.server")
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		index:  opts.Index,
		logger: opts.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/series", s.handleListSeries)
	mux.HandleFunc("PUT /v1/series/{name}", s.handleSeriesCreate)
	mux.HandleFunc("GET /v1/series/{name}/query", s.handleSeriesQuery)
	mux.HandleFunc("GET /v1/series/{name}/describe", s.handleSeriesDescribe)
	mux.HandleFunc("POST /v1/series/{name}/update", s.handleSeriesUpdate)
	mux.HandleFunc("GET /v1/intervals", s.handleListIntervalSets)
	mux.HandleFunc("GET /v1/intervals/{name}/overlap", s.handleIntervalOverlap)
	mux.HandleFunc("GET /v1/intervals/{name}/contains", s.handleIntervalContains)
	mux.HandleFunc("PUT /v1/intervals/{name}", s.handleIntervalSetCreate)
	mux.HandleFunc("POST /v1/intervals/{name}", s.handleIntervalInsert)
	mux.HandleFunc("DELETE /v1/intervals/{name}", s.handleIntervalDelete)
	mux.HandleFunc("GET /v1/snapshot", s.handleSnapshot)
	mux.Handle("GET /healthz", observability.HealthHandler())
	mux.Handle("GET /readyz", observability.ReadyHandler(opts.Index.Ready))

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	s.handler = observability.HTTPMiddleware(opts.Tracer, opts.RED, mux)
	s.http = &http.Server{
		Addr:         opts.Config.Addr(),
		Handler:      s.handler,
		ReadTimeout:  opts.Config.ReadTimeout,
		WriteTimeout: opts.Config.WriteTimeout,
		IdleTimeout:  opts.Config.IdleTimeout,
	}

	return s
}

// Handler returns the instrumented route table.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.http.Serve(ln)
	}()

	s.logger.InfoContext(ctx, "server listening", "addr", ln.Addr().String())

	select {
	case serveErr := <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", serveErr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.logger.InfoContext(ctx, "server shutting down")

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
