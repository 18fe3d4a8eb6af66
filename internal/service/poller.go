package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hydrotech/groundwater-serve/internal/config"
	"github.com/hydrotech/groundwater-serve/internal/domain"
	"github.com/hydrotech/groundwater-serve/internal/observability"
	"github.com/hydrotech/groundwater-serve/internal/registry"
)

// Poller periodically fetches current weather at each zone centroid and
// broadcasts the readings to every live subscriber.
type Poller struct {
	weather  WeatherClient
	zones    *domain.ZoneSet
	registry *registry.Registry
	logger   *slog.Logger
	metrics  *observability.Metrics
	interval time.Duration
	backoff  time.Duration
}

// NewPoller creates a Poller. The weather client must be non-nil; callers
// skip constructing a poller when the weather integration is disabled.
func NewPoller(
	cfg *config.Config,
	weather WeatherClient,
	zones *domain.ZoneSet,
	reg *registry.Registry,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Poller {
	return &Poller{
		weather:  weather,
		zones:    zones,
		registry: reg,
		logger:   logger,
		metrics:  metrics,
		interval: cfg.WeatherPollInterval,
		backoff:  cfg.WeatherPollBackoff,
	}
}

// Run polls until the context is cancelled. A failed poll logs and shortens
// the next wait to the backoff; the loop never terminates on error.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("weather poller started", "interval", p.interval, "zones", p.zones.Len())

	for {
		wait := p.interval
		if err := p.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("weather poller stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("weather poll failed", "error", err)
			wait = p.backoff
		}

		select {
		case <-ctx.Done():
			p.logger.Info("weather poller stopping", "reason", ctx.Err())
			return nil
		case <-clock.After(wait):
		}
	}
}

// pollOnce fetches each zone centroid's weather and broadcasts the readings.
// Individual zone failures are logged and skipped; an error is returned only
// when no zone produced a reading.
func (p *Poller) pollOnce(ctx context.Context) error {
	var delivered int
	for _, zone := range p.zones.All() {
		lat, lon := zone.Centroid()
		snap, err := p.weather.Current(ctx, lat, lon)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("zone weather fetch failed", "zone", zone.Code, "error", err)
			p.metrics.WeatherPollFailures.Inc()
			continue
		}
		p.registry.Broadcast(registry.NewWeatherUpdate(zone.Code, snap))
		delivered++
	}
	p.metrics.WeatherPollsTotal.Inc()
	if delivered == 0 {
		return errors.New("no zone produced a weather reading")
	}
	return nil
}
