// Command serve runs the groundwater prediction service: the HTTP API, the
// live subscription channel, and the background zone weather poller.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/hydrotech/groundwater-serve/internal/adapter/http"
	kafkaadapter "github.com/hydrotech/groundwater-serve/internal/adapter/kafka"
	"github.com/hydrotech/groundwater-serve/internal/adapter/memory"
	"github.com/hydrotech/groundwater-serve/internal/adapter/model"
	"github.com/hydrotech/groundwater-serve/internal/adapter/openweather"
	"github.com/hydrotech/groundwater-serve/internal/adapter/postgres"
	"github.com/hydrotech/groundwater-serve/internal/adapter/ws"
	"github.com/hydrotech/groundwater-serve/internal/config"
	"github.com/hydrotech/groundwater-serve/internal/domain"
	"github.com/hydrotech/groundwater-serve/internal/forecast"
	"github.com/hydrotech/groundwater-serve/internal/observability"
	"github.com/hydrotech/groundwater-serve/internal/registry"
	"github.com/hydrotech/groundwater-serve/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	zones, err := domain.LoadZones(cfg.ZoneConfigPath)
	if err != nil {
		logger.Error("failed to load zone config", "path", cfg.ZoneConfigPath, "error", err)
		os.Exit(1)
	}
	logger.Info("zone config loaded", "path", cfg.ZoneConfigPath, "zones", zones.Len())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	predictor := model.NewClient(cfg.ModelURL, cfg.ModelTimeout, logger)

	// Prediction storage (feature-flagged via POSTGRES_DSN).
	var store service.Store
	if cfg.PostgresDSN != "" {
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Error("failed to open postgres store", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
		logger.Info("postgres prediction store enabled")
	} else {
		store = memory.NewStore()
		logger.Info("in-memory prediction store enabled")
	}

	// Weather integration (feature-flagged via OPENWEATHER_API_KEY).
	var weather service.WeatherClient
	if cfg.WeatherEnabled {
		client := openweather.NewClient(cfg.WeatherAPIKey, cfg.WeatherBaseURL, cfg.WeatherTimeout, metrics, logger)
		weather = openweather.NewCachedClient(client, cfg.WeatherCacheSize, cfg.WeatherCacheTTL, metrics, nil)
		metrics.WeatherEnabled.Set(1)
		logger.Info("openweather integration enabled", "cache_size", cfg.WeatherCacheSize, "cache_ttl", cfg.WeatherCacheTTL)
	} else {
		logger.Info("openweather integration disabled")
	}

	// Prediction event sink (feature-flagged via KAFKA_BROKERS).
	var publisher service.Publisher
	var kafkaWriter *kafkaadapter.Writer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = kafkaWriter
		logger.Info("kafka prediction events enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka prediction events disabled")
	}

	reg := registry.New(logger, metrics)
	engine := forecast.NewEngine(zones, nil)
	svc := service.New(cfg, zones, predictor, store, weather, publisher, engine, reg, logger, metrics)

	subscriber := ws.NewHandler(cfg, reg, svc, zones, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, subscriber, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the zone weather poller.
	if weather != nil {
		poller := service.NewPoller(cfg, weather, zones, reg, logger, metrics)
		go func() {
			if err := poller.Run(ctx); err != nil {
				logger.Error("weather poller error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
