package service

import (
	"context"
	"fmt"

	"github.com/hydrotech/groundwater-serve/internal/domain"
	"github.com/hydrotech/groundwater-serve/internal/registry"
)

// maxForecastMonths caps a single projection request.
const maxForecastMonths = 24

// ZoneForecast projects future levels for a zone from its stored history.
// months <= 0 selects the configured default. When userID is non-empty the
// assembled forecast is also pushed to that user's live connections.
// A history fetch failure degrades to the zone-average projection.
func (s *Service) ZoneForecast(ctx context.Context, zoneCode string, months int, userID string) (domain.ZoneForecast, error) {
	zone, ok := s.zones.Get(zoneCode)
	if !ok {
		return domain.ZoneForecast{}, fmt.Errorf("%w: %s", domain.ErrUnknownZone, zoneCode)
	}

	if months <= 0 {
		months = s.defaultMonths
	}
	if months > maxForecastMonths {
		months = maxForecastMonths
	}

	since := clock.Now().UTC().AddDate(0, 0, -s.historyDays)
	history, err := s.store.FindInRange(ctx, zoneCode, since)
	if err != nil {
		s.logger.Warn("history fetch failed, falling back to zone averages",
			"zone", zoneCode, "error", err)
		history = nil
	}

	zf := domain.ZoneForecast{
		Zone:                 zone.Code,
		ZoneName:             zone.Name,
		HistoricalDataPoints: len(history),
		Forecasts:            s.engine.Project(history, zoneCode, months),
		TrendAnalysis:        s.engine.AnalyzeTrend(history),
		GeneratedAt:          clock.Now().UTC(),
	}

	if userID != "" {
		s.registry.SendToUser(userID, registry.NewForecastUpdate(zf))
	}
	return zf, nil
}
