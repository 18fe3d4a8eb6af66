package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/hydrotech/groundwater-serve/internal/domain"
)

// defaultHistoryLimit bounds a history query when the caller supplies none.
const defaultHistoryLimit = 50

// History returns a user's stored predictions, newest first. A non-empty zone
// narrows the result to that zone; limit <= 0 selects the default.
func (s *Service) History(ctx context.Context, userID, zone string, limit int) ([]domain.PredictionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if zone != "" {
		return s.store.FindByUserAndZone(ctx, userID, zone, limit)
	}
	return s.store.FindByUser(ctx, userID, limit)
}

// DeleteRecord removes one of a user's stored predictions. Returns
// ErrRecordNotFound when the id does not exist or belongs to another user.
func (s *Service) DeleteRecord(ctx context.Context, id, userID string) error {
	deleted, err := s.store.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}
	return nil
}

// ZoneHistory aggregates every stored prediction for a zone, optionally
// narrowed to one calendar month (0 keeps all months). Returns
// ErrRecordNotFound when nothing matches.
func (s *Service) ZoneHistory(ctx context.Context, zoneCode string, month int) (domain.ZoneHistoryStats, error) {
	records, err := s.store.FindInRange(ctx, zoneCode, time.Time{})
	if err != nil {
		return domain.ZoneHistoryStats{}, err
	}

	if month != 0 {
		filtered := make([]domain.PredictionRecord, 0, len(records))
		for _, rec := range records {
			if rec.Observation.Month == month {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	if len(records) == 0 {
		return domain.ZoneHistoryStats{}, fmt.Errorf("%w: no records for zone %s", domain.ErrRecordNotFound, zoneCode)
	}

	levels := make([]float64, len(records))
	rains := make([]float64, len(records))
	temps := make([]float64, len(records))
	for i, rec := range records {
		levels[i] = rec.PredictedLevelM
		rains[i] = rec.Observation.RainfallMM
		temps[i] = rec.Observation.TemperatureC
	}

	return domain.ZoneHistoryStats{
		Zone:    zoneCode,
		Samples: len(records),
		Statistics: domain.LevelStatistics{
			MeanLevel:       domain.RoundTo(meanOf(levels), 2),
			StdLevel:        domain.RoundTo(sampleStdDev(levels), 2),
			MinLevel:        domain.RoundTo(slices.Min(levels), 2),
			MaxLevel:        domain.RoundTo(slices.Max(levels), 2),
			MeanRainfall:    domain.RoundTo(meanOf(rains), 2),
			MeanTemperature: domain.RoundTo(meanOf(temps), 2),
		},
	}, nil
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStdDev is the n-1 standard deviation; zero when fewer than two values.
func sampleStdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := meanOf(vals)
	var sum float64
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}
