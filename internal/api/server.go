// Package api serves wall layouts over HTTP.
//
// Routes:
//
//	GET  /healthz                 liveness
//	GET  /readyz                  readiness of the store, cache and blob backends
//	GET  /metrics                 Prometheus metrics
//	GET  /walls/{wallID}/layout   layout of a stored wall (?strategy=&columns=&refresh=)
//	POST /walls/{wallID}/join     {"user_id","name","code"} -> membership
//	POST /walls/{wallID}/tiles    multipart upload (user_id, text, files)
//	POST /layout                  {"tiles":[...],"strategy","columns"} -> layout
//
// Failures are answered with {"code","message"} and a status derived from the
// error code.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/memorywall/internal/config"
	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/ingest"
	"github.com/matzehuels/memorywall/pkg/metrics"
	"github.com/matzehuels/memorywall/pkg/pipeline"
	"github.com/matzehuels/memorywall/pkg/store"
)

// maxUploadBytes bounds a multipart upload request.
const maxUploadBytes = 64 << 20

// Options wires a Server.
type Options struct {
	Runner *pipeline.Runner
	// Store serves joins. It is usually the runner's store.
	Store store.Store
	// Uploader enables POST /walls/{wallID}/tiles when set.
	Uploader *ingest.Uploader
	Health   *metrics.HealthChecker
	// Gatherer backs /metrics; nil selects the default registry.
	Gatherer prometheus.Gatherer
	// Defaults are the layout options requests start from.
	Defaults pipeline.Options
	Logger   *log.Logger
}

// Server is the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	store    store.Store
	uploader *ingest.Uploader
	health   *metrics.HealthChecker
	gatherer prometheus.Gatherer
	defaults pipeline.Options
	logger   *log.Logger
}

// New creates a server.
func New(opts Options) *Server {
	s := &Server{
		runner:   opts.Runner,
		store:    opts.Store,
		uploader: opts.Uploader,
		health:   opts.Health,
		gatherer: opts.Gatherer,
		defaults: opts.Defaults,
		logger:   opts.Logger,
	}
	if s.store == nil && s.runner != nil {
		s.store = s.runner.Store
	}
	if s.health == nil {
		s.health = metrics.NewHealthChecker(0)
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(s.logRequests)
		r.Post("/layout", s.handleLayoutTiles)
		r.Route("/walls/{wallID}", func(r chi.Router) {
			r.Get("/layout", s.handleWallLayout)
			r.Post("/join", s.handleJoin)
			r.Post("/tiles", s.handleUpload)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Run serves h on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, cfg config.ServerConfig, h http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout.Duration(),
		WriteTimeout: cfg.WriteTimeout.Duration(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
			return
		}
		errc <- nil
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

// errorBody is the JSON body of a failed request.
type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	msg := errors.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		if code == errors.ErrCodeInternal {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}
