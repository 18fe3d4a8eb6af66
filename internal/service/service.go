// Package service orchestrates the prediction pipeline: zone resolution,
// feature derivation, model invocation, confidence scoring, persistence, and
// fan-out to live subscribers.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hydrotech/groundwater-serve/internal/config"
	"github.com/hydrotech/groundwater-serve/internal/domain"
	"github.com/hydrotech/groundwater-serve/internal/forecast"
	"github.com/hydrotech/groundwater-serve/internal/observability"
	"github.com/hydrotech/groundwater-serve/internal/registry"
)

// Predictor is the external regression model behind an opaque interface.
type Predictor interface {
	Predict(ctx context.Context, features domain.FeatureVector) (float64, error)
	CheckReadiness(ctx context.Context) error
}

// Store persists prediction records and serves them back for history and
// forecasting queries.
type Store interface {
	Save(ctx context.Context, rec domain.PredictionRecord) error
	FindByUser(ctx context.Context, userID string, limit int) ([]domain.PredictionRecord, error)
	FindByUserAndZone(ctx context.Context, userID, zone string, limit int) ([]domain.PredictionRecord, error)
	FindInRange(ctx context.Context, zone string, since time.Time) ([]domain.PredictionRecord, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
}

// WeatherClient looks up current conditions at a coordinate.
type WeatherClient interface {
	Current(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error)
}

// Publisher emits saved prediction records to an event stream.
type Publisher interface {
	Publish(ctx context.Context, rec domain.PredictionRecord) error
}

// Service is the orchestrator behind both the HTTP surface and the websocket
// control messages. Weather and publisher are optional; nil disables the
// corresponding feature.
type Service struct {
	zones     *domain.ZoneSet
	predictor Predictor
	store     Store
	weather   WeatherClient
	publisher Publisher
	engine    *forecast.Engine
	registry  *registry.Registry
	logger    *slog.Logger
	metrics   *observability.Metrics

	residualStd   float64
	historyDays   int
	defaultMonths int
}

// New creates a Service. weather and publisher may be nil.
func New(
	cfg *config.Config,
	zones *domain.ZoneSet,
	predictor Predictor,
	store Store,
	weather WeatherClient,
	publisher Publisher,
	engine *forecast.Engine,
	reg *registry.Registry,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		zones:         zones,
		predictor:     predictor,
		store:         store,
		weather:       weather,
		publisher:     publisher,
		engine:        engine,
		registry:      reg,
		logger:        logger,
		metrics:       metrics,
		residualStd:   cfg.ResidualStd,
		historyDays:   cfg.ForecastHistoryDays,
		defaultMonths: cfg.ForecastMonthsDefault,
	}
}

// CheckReadiness reports whether the service can serve predictions.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if s.predictor == nil {
		return domain.ErrModelUnavailable
	}
	return s.predictor.CheckReadiness(ctx)
}

// Zones returns the configured zones in configuration order.
func (s *Service) Zones() []domain.Zone {
	return s.zones.All()
}

// RequestWeather looks up current conditions for a subscriber request.
// Returns ErrWeatherUnavailable when the weather integration is disabled or
// the upstream lookup fails.
func (s *Service) RequestWeather(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error) {
	if s.weather == nil {
		return domain.WeatherSnapshot{}, domain.ErrWeatherUnavailable
	}
	snap, err := s.weather.Current(ctx, lat, lon)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: %v", domain.ErrWeatherUnavailable, err)
	}
	return snap, nil
}

// Notify broadcasts a system notification to every live subscriber.
func (s *Service) Notify(level, message string) {
	s.registry.Broadcast(registry.NewSystemNotification(level, message))
}
