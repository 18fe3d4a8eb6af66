package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/hydrotech/groundwater-serve/internal/domain"
	"github.com/hydrotech/groundwater-serve/internal/registry"
)

// intervalZ is the z-score for a 95% prediction interval.
const intervalZ = 1.96

// Coarse linear approximations of per-feature influence on the predicted
// level. Not a real attribution method.
const (
	rainfallWeight    = 0.035
	temperatureWeight = 0.15
	baselineWeight    = 0.6
	monsoonEffect     = 3.0
	offSeasonEffect   = -2.0
)

// Predict runs the basic prediction pipeline: validate, resolve zone, build
// features, invoke the model, clamp to the physical range, and score
// confidence. The result carries only the level and confidence.
func (s *Service) Predict(ctx context.Context, obs domain.Observation) (domain.PredictionResult, error) {
	result, _, err := s.predictBasic(ctx, obs)
	return result, err
}

// PredictDetailed extends Predict with a 95% prediction interval from the
// configured residual standard deviation, a per-feature contribution
// breakdown, and a seasonal trend label.
func (s *Service) PredictDetailed(ctx context.Context, obs domain.Observation) (domain.PredictionResult, error) {
	result, zone, err := s.predictBasic(ctx, obs)
	if err != nil {
		return domain.PredictionResult{}, err
	}

	margin := intervalZ * s.residualStd
	result.Interval = &domain.Interval{
		Lower: domain.RoundTo(math.Max(domain.MinLevelM, result.PredictedLevelM-margin), 2),
		Upper: domain.RoundTo(math.Min(domain.MaxLevelM, result.PredictedLevelM+margin), 2),
	}
	result.Contributions = &domain.FeatureContributions{
		RainfallImpact:    domain.RoundTo(obs.RainfallMM*rainfallWeight, 2),
		TemperatureImpact: domain.RoundTo(-obs.TemperatureC*temperatureWeight, 2),
		LocationBaseline:  domain.RoundTo(zone.AvgLevelM*baselineWeight, 2),
		SeasonalEffect:    seasonalEffect(obs.Month),
	}
	result.Zone = zone.Code
	result.ZoneName = zone.Name
	result.SeasonalTrend = domain.SeasonalTrend(obs.Month)
	return result, nil
}

// PredictAndPublish runs the detailed pipeline, persists the record, fans the
// result out to every live subscriber, and emits an event when a publisher is
// configured. Persistence and publish failures degrade: they are logged and
// counted but never fail the prediction.
func (s *Service) PredictAndPublish(ctx context.Context, obs domain.Observation, userID string) (domain.PredictionResult, domain.PredictionRecord, error) {
	result, err := s.PredictDetailed(ctx, obs)
	if err != nil {
		return domain.PredictionResult{}, domain.PredictionRecord{}, err
	}

	rec := domain.PredictionRecord{
		ID:              uuid.NewString(),
		UserID:          userID,
		Zone:            result.Zone,
		PredictedLevelM: result.PredictedLevelM,
		Confidence:      result.Confidence,
		Observation:     obs,
		CreatedAt:       clock.Now().UTC(),
	}

	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Error("prediction save failed", "prediction_id", rec.ID, "error", err)
		s.metrics.StoreFailures.Inc()
	}

	s.registry.Broadcast(registry.NewPredictionUpdate(result, rec.ID, rec.CreatedAt))

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, rec); err != nil {
			s.logger.Error("prediction event publish failed", "prediction_id", rec.ID, "error", err)
			s.metrics.PublishFailures.Inc()
		} else {
			s.metrics.EventsPublished.Inc()
		}
	}

	return result, rec, nil
}

// predictBasic is the shared pipeline core. It returns the resolved zone so
// detailed variants can derive zone-dependent fields without resolving twice.
func (s *Service) predictBasic(ctx context.Context, obs domain.Observation) (domain.PredictionResult, domain.Zone, error) {
	if err := obs.Validate(); err != nil {
		return domain.PredictionResult{}, domain.Zone{}, err
	}
	if s.predictor == nil {
		return domain.PredictionResult{}, domain.Zone{}, domain.ErrModelUnavailable
	}

	zone := s.zones.Resolve(obs.Latitude, obs.Longitude)
	features := domain.BuildFeatures(obs, zone)
	if !features.Finite() {
		return domain.PredictionResult{}, domain.Zone{}, fmt.Errorf("%w: non-finite feature vector", domain.ErrInvalidObservation)
	}

	start := time.Now()
	raw, err := s.predictor.Predict(ctx, features)
	s.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.PredictionFailures.Inc()
		return domain.PredictionResult{}, domain.Zone{}, err
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		s.metrics.PredictionFailures.Inc()
		return domain.PredictionResult{}, domain.Zone{}, fmt.Errorf("%w: model returned non-finite level", domain.ErrInvalidObservation)
	}

	clamped := domain.ClampLevel(raw)
	confidence := domain.ConfidenceScore(s.zones, zone.Code, obs.Month, clamped)
	s.metrics.PredictionsTotal.Inc()

	return domain.PredictionResult{
		PredictedLevelM: domain.RoundTo(clamped, 2),
		Confidence:      confidence,
	}, zone, nil
}

func seasonalEffect(month int) float64 {
	if domain.IsMonsoonMonth(month) {
		return monsoonEffect
	}
	return offSeasonEffect
}
