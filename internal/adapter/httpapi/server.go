// Package httpapi exposes the ingest webhooks, the read API, and the
// health/metrics surface over HTTP.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mesuradors/tank-telemetry/internal/adapter/payload"
	"github.com/mesuradors/tank-telemetry/internal/config"
	"github.com/mesuradors/tank-telemetry/internal/domain"
	"github.com/mesuradors/tank-telemetry/internal/observability"
	"github.com/mesuradors/tank-telemetry/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "tank-telemetry"

// maxBodyBytes bounds inbound webhook bodies. ChirpStack envelopes are a few
// KB; anything near the limit is garbage.
const maxBodyBytes = 1 << 20

// Ingestor runs the ingestion pipeline for one normalized uplink.
type Ingestor interface {
	Ingest(ctx context.Context, up payload.Uplink) (pipeline.Receipt, error)
}

// StatusReader serves the read API from the warehouse status view.
type StatusReader interface {
	ListLocations(ctx context.Context) ([]string, error)
	StatusByLocation(ctx context.Context, location string) ([]domain.DeviceStatus, error)
	StatusAll(ctx context.Context) ([]domain.DeviceStatus, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server wires the routes to the pipeline and the status reader.
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	ingestor   Ingestor
	status     StatusReader
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer builds the router and the underlying http.Server.
func NewServer(cfg *config.Config, ingestor Ingestor, status StatusReader, ready ReadinessChecker, logger *slog.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		ingestor: ingestor,
		status:   status,
		logger:   logger,
		metrics:  metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/ingest/{secret}", s.withSecret(s.handleIngestDirect))
	r.Post("/ingest_chs/{secret}", s.withSecret(s.handleIngestChirpStack))

	r.Get("/v1/locations", s.handleListLocations)
	r.Get("/v1/locations/{location}/status", s.handleStatusByLocation)
	r.Get("/v1/status", s.handleStatusAll)

	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// withSecret guards a webhook handler with the path-segment shared secret.
// Comparison is constant-time; the secret never reaches the logs.
func (s *Server) withSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := chi.URLParam(r, "secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.IngestSecret)) != 1 {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": serviceName,
		"version": config.Version,
	})
}

// handleHealth reports liveness plus the effective warehouse wiring, so a
// glance at /healthz answers "which dataset is this instance pointed at".
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"version":          config.Version,
		"project":          s.cfg.ProjectID,
		"dataset":          s.cfg.DatasetID,
		"meters_table":     s.cfg.MetersTable,
		"readings_table":   s.cfg.ReadingsTable,
		"status_view":      s.cfg.StatusView,
		"secret_set":       s.cfg.IngestSecret != "",
		"raw_payload_json": s.cfg.RawPayloadJSON,
	})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// ingestResponse is a pipeline receipt plus the service version, matching the
// summary shape downstream gateways already consume.
type ingestResponse struct {
	pipeline.Receipt
	Version string `json:"version"`
}

func (s *Server) handleIngestDirect(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.metrics.ValidationErrors.Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	up, err := payload.ParseDirect(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ingest(w, r, up)
}

func (s *Server) handleIngestChirpStack(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.metrics.ValidationErrors.Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	event := r.URL.Query().Get("event")
	res, err := payload.ParseChirpStack(event, body, s.cfg.DeviceMap)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.Ignored {
		s.metrics.EventsIgnored.WithLabelValues(res.Reason).Inc()
		s.logger.Info("chirpstack event ignored",
			"reason", res.Reason,
			"event", event,
			"device_id", res.DeviceID,
		)
		resp := map[string]string{
			"status":  "ignored",
			"reason":  res.Reason,
			"version": config.Version,
		}
		if res.DeviceID != "" {
			resp["device_id"] = res.DeviceID
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	s.ingest(w, r, res.Uplink)
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request, up payload.Uplink) {
	receipt, err := s.ingestor.Ingest(r.Context(), up)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Receipt: receipt, Version: config.Version})
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.status.ListLocations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if locations == nil {
		locations = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locations})
}

func (s *Server) handleStatusByLocation(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")
	rows, err := s.status.StatusByLocation(r.Context(), location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(rows) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown location", "location": location})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"location": location, "devices": rows})
}

func (s *Server) handleStatusAll(w http.ResponseWriter, r *http.Request) {
	rows, err := s.status.StatusAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.DeviceStatus{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": rows})
}

// writeError maps domain-typed errors to HTTP statuses. Anything untyped is a
// 500 with a generic body; details go to the log, not the caller.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		s.metrics.ValidationErrors.Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "validation failed",
			"field":  vErr.Field,
			"reason": vErr.Reason,
		})
		return
	}
	if errors.Is(err, domain.ErrCalibrationNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
