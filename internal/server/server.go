// Package server exposes the analysis pipeline over an HTTP API.
//
// The API accepts pipeline options as JSON and returns metric results. It
// shares the pipeline.Runner with the CLI, so both entry points get the
// same caching behavior.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/urbanweave/streetscope/pkg/buildinfo"
	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/pipeline"
	"github.com/urbanweave/streetscope/pkg/una"
)

// Server is the HTTP API server.
type Server struct {
	addr   string
	logger *log.Logger
	runner *pipeline.Runner
	server *http.Server
}

// New creates a server handling analysis requests with the given runner.
func New(addr string, runner *pipeline.Runner, logger *log.Logger) *Server {
	s := &Server{
		addr:   addr,
		logger: logger,
		runner: runner,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/accessibility", s.handleMetric(pipeline.MetricAccessibility))
		r.Post("/betweenness", s.handleMetric(pipeline.MetricBetweenness))
		r.Post("/service-area", s.handleMetric(pipeline.MetricServiceArea))
	})

	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// =============================================================================
// Handlers
// =============================================================================

// healthResponse is the GET /healthz body.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: buildinfo.Version})
}

// metricResponse is the POST /api/{metric} body.
type metricResponse struct {
	RunID         string                         `json:"run_id"`
	Metric        string                         `json:"metric"`
	Stats         pipeline.Stats                 `json:"stats"`
	Cached        bool                           `json:"cached"`
	Accessibility *una.AccessibilityResult       `json:"accessibility,omitempty"`
	Betweenness   *una.BetweennessResult         `json:"betweenness,omitempty"`
	ServiceAreas  map[int]*una.OriginServiceArea `json:"service_areas,omitempty"`
}

// errorResponse is the body of any non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// handleMetric builds the handler for one metric endpoint. The request
// body is a pipeline.Options JSON document; the metric field is forced to
// match the endpoint.
func (s *Server) handleMetric(metric string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts pipeline.Options
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
			return
		}
		opts.Metric = metric
		opts.Logger = s.logger

		result, err := s.runner.Execute(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, metricResponse{
			RunID:         result.RunID,
			Metric:        metric,
			Stats:         result.Stats,
			Cached:        result.CacheInfo.AnalyzeHit,
			Accessibility: result.Accessibility,
			Betweenness:   result.Betweenness,
			ServiceAreas:  result.ServiceAreas,
		})
	}
}

// logRequests logs one line per request through the structured logger.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Response helpers
// =============================================================================

// writeError maps pipeline errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidRange, errors.ErrCodeInvalidPolicy,
		errors.ErrCodeMissingBeta, errors.ErrCodeUnknownAttribute, errors.ErrCodeUnknownLayer,
		errors.ErrCodeUnknownNode, errors.ErrCodeNotOrigin:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{
		Error: errors.UserMessage(err),
		Code:  string(errors.GetCode(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
