// Package http exposes the synchronous request/response surface: health,
// metrics, predictions, zones, forecasts, and stored history.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hydrotech/groundwater-serve/internal/domain"
)

// Service is the orchestrator surface the HTTP layer fronts.
type Service interface {
	Predict(ctx context.Context, obs domain.Observation) (domain.PredictionResult, error)
	PredictDetailed(ctx context.Context, obs domain.Observation) (domain.PredictionResult, error)
	PredictAndPublish(ctx context.Context, obs domain.Observation, userID string) (domain.PredictionResult, domain.PredictionRecord, error)
	Zones() []domain.Zone
	ZoneForecast(ctx context.Context, zoneCode string, months int, userID string) (domain.ZoneForecast, error)
	ZoneHistory(ctx context.Context, zoneCode string, month int) (domain.ZoneHistoryStats, error)
	History(ctx context.Context, userID, zone string, limit int) ([]domain.PredictionRecord, error)
	DeleteRecord(ctx context.Context, id, userID string) error
	CheckReadiness(ctx context.Context) error
}

// Server routes the JSON API plus health, readiness, metrics, and the
// subscription endpoint.
type Server struct {
	httpServer *http.Server
	service    Service
	logger     *slog.Logger
}

// NewServer creates the HTTP server. subscriber handles GET /ws; pass nil
// to serve the API without the live channel (tests do this).
func NewServer(addr string, svc Service, subscriber http.Handler, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: svc,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("POST /api/predict/detailed", s.handlePredictDetailed)
	mux.HandleFunc("GET /api/zones", s.handleZones)
	mux.HandleFunc("GET /api/zones/{code}/forecast", s.handleZoneForecast)
	mux.HandleFunc("GET /api/zones/{code}/history", s.handleZoneHistory)
	mux.HandleFunc("GET /api/predictions", s.handlePredictions)
	mux.HandleFunc("DELETE /api/predictions/{id}", s.handleDeletePrediction)

	if subscriber != nil {
		mux.Handle("GET /ws", subscriber)
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// predictRequest is an observation plus the optional requesting user.
type predictRequest struct {
	domain.Observation
	UserID string `json:"user_id"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.service.Predict(r.Context(), req.Observation)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePredictDetailed(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// An identified request is persisted and fanned out to subscribers; an
	// anonymous one is scored and returned only.
	if req.UserID != "" {
		result, rec, err := s.service.PredictAndPublish(r.Context(), req.Observation, req.UserID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detailedResponse{PredictionResult: result, PredictionID: rec.ID})
		return
	}

	result, err := s.service.PredictDetailed(r.Context(), req.Observation)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detailedResponse{PredictionResult: result})
}

// detailedResponse adds the stored record id when the prediction was
// persisted.
type detailedResponse struct {
	domain.PredictionResult
	PredictionID string `json:"prediction_id,omitempty"`
}

func (s *Server) handleZones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"zones": s.service.Zones()})
}

func (s *Server) handleZoneForecast(w http.ResponseWriter, r *http.Request) {
	months, ok := queryInt(w, r, "months", 0)
	if !ok {
		return
	}

	zf, err := s.service.ZoneForecast(r.Context(), r.PathValue("code"), months, r.URL.Query().Get("user_id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, zf)
}

func (s *Server) handleZoneHistory(w http.ResponseWriter, r *http.Request) {
	month, ok := queryInt(w, r, "month", 0)
	if !ok {
		return
	}
	if month < 0 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be in [1, 12]")
		return
	}

	stats, err := s.service.ZoneHistory(r.Context(), r.PathValue("code"), month)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}

	recs, err := s.service.History(r.Context(), userID, r.URL.Query().Get("zone"), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": recs, "count": len(recs)})
}

func (s *Server) handleDeletePrediction(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := s.service.DeleteRecord(r.Context(), r.PathValue("id"), userID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// writeServiceError maps the domain error taxonomy onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidObservation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnknownZone), errors.Is(err, domain.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrWeatherUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// queryInt parses an optional integer query parameter. On a malformed value
// it writes a 400 and reports !ok.
func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return n, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
