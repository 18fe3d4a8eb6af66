package service_test

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/hydrotech/groundwater-serve/internal/domain"
	"github.com/hydrotech/groundwater-serve/internal/forecast"
	"github.com/hydrotech/groundwater-serve/internal/observability"
	"github.com/hydrotech/groundwater-serve/internal/registry"
	"github.com/hydrotech/groundwater-serve/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Predict_Basic(t *testing.T) {
	r := newRig(t)
	obs := validObservation()

	result, err := r.svc.Predict(context.Background(), obs)
	require.NoError(t, err)

	assert.Equal(t, 12.0, result.PredictedLevelM)
	assert.Equal(t, 0.75, result.Confidence)

	// The basic result carries only level and confidence.
	assert.Empty(t, result.Zone)
	assert.Empty(t, result.ZoneName)
	assert.Nil(t, result.Interval)
	assert.Nil(t, result.Contributions)
	assert.Empty(t, result.SeasonalTrend)

	// The model must see exactly the feature vector derived from the
	// observation and the resolved zone.
	zoneA, ok := r.zones.Get("A")
	require.True(t, ok)
	assert.Equal(t, domain.BuildFeatures(obs, zoneA), r.predictor.lastFeatures(t))
}

func TestService_Predict_ClampsHighOutput(t *testing.T) {
	r := newRig(t)
	r.predictor.level = 75.0

	result, err := r.svc.Predict(context.Background(), validObservation())
	require.NoError(t, err)

	assert.Equal(t, 50.0, result.PredictedLevelM)
	// 50 m sits outside the plausible band, so no confidence bonus.
	assert.Equal(t, 0.714, result.Confidence)
}

func TestService_Predict_ClampsLowOutput(t *testing.T) {
	r := newRig(t)
	r.predictor.level = -4.0

	result, err := r.svc.Predict(context.Background(), validObservation())
	require.NoError(t, err)

	assert.Equal(t, 2.0, result.PredictedLevelM)
	assert.Equal(t, 0.714, result.Confidence)
}

func TestService_Predict_InvalidObservation(t *testing.T) {
	r := newRig(t)
	obs := validObservation()
	obs.RainfallMM = -1

	_, err := r.svc.Predict(context.Background(), obs)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidObservation)
	assert.Zero(t, r.predictor.calls())
}

func TestService_Predict_ModelError(t *testing.T) {
	r := newRig(t)
	r.predictor.err = errors.New("model timeout")

	_, err := r.svc.Predict(context.Background(), validObservation())
	assert.EqualError(t, err, "model timeout")
}

func TestService_Predict_NonFiniteModelOutput(t *testing.T) {
	r := newRig(t)
	r.predictor.level = math.NaN()

	_, err := r.svc.Predict(context.Background(), validObservation())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidObservation)
	assert.Contains(t, err.Error(), "non-finite")
}

func TestService_Predict_NilPredictor(t *testing.T) {
	zones := testZones(t)
	metrics := observability.NewMetricsForTesting()
	svc := service.New(
		testConfig(), zones, nil, &mockStore{}, nil, nil,
		forecast.NewEngine(zones, clockwork.NewFakeClockAt(fixedNow)),
		registry.New(slog.Default(), metrics), slog.Default(), metrics,
	)

	_, err := svc.Predict(context.Background(), validObservation())
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestService_PredictDetailed(t *testing.T) {
	r := newRig(t)

	result, err := r.svc.PredictDetailed(context.Background(), validObservation())
	require.NoError(t, err)

	want := domain.PredictionResult{
		PredictedLevelM: 12.0,
		Confidence:      0.75,
		Zone:            "A",
		ZoneName:        "Urban",
		// 1.96 x 2.34 residual sigma around 12.0.
		Interval: &domain.Interval{Lower: 7.41, Upper: 16.59},
		Contributions: &domain.FeatureContributions{
			RainfallImpact:    7.0,
			TemperatureImpact: -4.2,
			LocationBaseline:  7.08,
			SeasonalEffect:    3.0,
		},
		SeasonalTrend: "Monsoon Season - Rising water levels expected",
	}
	assert.Equal(t, want, result)
}

func TestService_PredictDetailed_IntervalClampedToPhysicalRange(t *testing.T) {
	r := newRig(t)

	r.predictor.level = 3.0
	result, err := r.svc.PredictDetailed(context.Background(), validObservation())
	require.NoError(t, err)
	assert.Equal(t, &domain.Interval{Lower: 2.0, Upper: 7.59}, result.Interval)

	r.predictor.level = 49.0
	result, err = r.svc.PredictDetailed(context.Background(), validObservation())
	require.NoError(t, err)
	assert.Equal(t, &domain.Interval{Lower: 44.41, Upper: 50.0}, result.Interval)
}

func TestService_PredictDetailed_OffSeason(t *testing.T) {
	r := newRig(t)
	obs := domain.Observation{
		RainfallMM:   10,
		TemperatureC: 15,
		Latitude:     28.7,
		Longitude:    77.2,
		Month:        12,
	}

	result, err := r.svc.PredictDetailed(context.Background(), obs)
	require.NoError(t, err)

	assert.Equal(t, 0.643, result.Confidence)
	assert.Equal(t, -2.0, result.Contributions.SeasonalEffect)
	assert.Equal(t, "Winter - Stable levels", result.SeasonalTrend)
}

func TestService_PredictAndPublish(t *testing.T) {
	r := newRig(t)
	anon := &fakeConn{}
	user := &fakeConn{}
	r.registry.Connect(anon, "")
	r.registry.Connect(user, "u1")

	obs := validObservation()
	result, rec, err := r.svc.PredictAndPublish(context.Background(), obs, "u1")
	require.NoError(t, err)

	assert.Len(t, rec.ID, 36)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "A", rec.Zone)
	assert.Equal(t, 12.0, rec.PredictedLevelM)
	assert.Equal(t, 0.75, rec.Confidence)
	assert.Equal(t, obs, rec.Observation)
	assert.True(t, rec.CreatedAt.Equal(fixedNow))

	require.NotNil(t, result.Interval)
	assert.Equal(t, []domain.PredictionRecord{rec}, r.store.savedRecords())
	assert.Equal(t, []domain.PredictionRecord{rec}, r.publisher.publishedRecords())

	// Every live connection receives the update, not just the owner.
	for _, c := range []*fakeConn{anon, user} {
		got := c.messages()
		require.Len(t, got, 1)
		update, ok := got[0].(registry.PredictionUpdate)
		require.True(t, ok)
		assert.Equal(t, rec.ID, update.PredictionID)
		assert.Equal(t, result, update.Data)
	}
}

func TestService_PredictAndPublish_StoreFailureDegrades(t *testing.T) {
	r := newRig(t)
	conn := &fakeConn{}
	r.registry.Connect(conn, "")
	r.store.saveErr = errors.New("connection refused")

	_, rec, err := r.svc.PredictAndPublish(context.Background(), validObservation(), "u1")
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Len(t, conn.messages(), 1)
	assert.Len(t, r.publisher.publishedRecords(), 1)
}

func TestService_PredictAndPublish_PublishFailureDegrades(t *testing.T) {
	r := newRig(t)
	r.publisher.err = errors.New("broker unreachable")

	_, _, err := r.svc.PredictAndPublish(context.Background(), validObservation(), "u1")
	require.NoError(t, err)
	assert.Len(t, r.store.savedRecords(), 1)
}

func TestService_PredictAndPublish_NoPublisher(t *testing.T) {
	r := newRig(t)
	zones := r.zones
	metrics := observability.NewMetricsForTesting()
	svc := service.New(
		testConfig(), zones, r.predictor, r.store, nil, nil,
		forecast.NewEngine(zones, clockwork.NewFakeClockAt(fixedNow)),
		registry.New(slog.Default(), metrics), slog.Default(), metrics,
	)

	_, rec, err := svc.PredictAndPublish(context.Background(), validObservation(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.PredictionRecord{rec}, r.store.savedRecords())
}

func TestService_PredictAndPublish_PredictionErrorStopsPipeline(t *testing.T) {
	r := newRig(t)
	conn := &fakeConn{}
	r.registry.Connect(conn, "")
	r.predictor.err = errors.New("model timeout")

	_, _, err := r.svc.PredictAndPublish(context.Background(), validObservation(), "u1")
	require.Error(t, err)
	assert.Empty(t, r.store.savedRecords())
	assert.Empty(t, conn.messages())
}
