package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// prediction serving pipeline.
type Metrics struct {
	PredictionsTotal   prometheus.Counter
	PredictionFailures prometheus.Counter
	PredictionDuration prometheus.Histogram

	// Broadcast and connection metrics.
	BroadcastsTotal   prometheus.Counter
	MessagesDelivered prometheus.Counter
	DeliveryFailures  prometheus.Counter
	ActiveConnections prometheus.Gauge
	IdentifiedUsers   prometheus.Gauge

	// Weather integration metrics.
	WeatherRequests     *prometheus.CounterVec // labels: outcome={success,error}
	WeatherCache        *prometheus.CounterVec // labels: result={hit,miss}
	WeatherAPIDuration  prometheus.Histogram
	WeatherEnabled      prometheus.Gauge
	WeatherPollsTotal   prometheus.Counter
	WeatherPollFailures prometheus.Counter

	// Storage and event sink metrics.
	StoreFailures   prometheus.Counter
	EventsPublished prometheus.Counter
	PublishFailures prometheus.Counter
}

// NewMetrics creates and registers all serving metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PredictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "predictions_total",
			Help:      "Total successful prediction requests.",
		}),
		PredictionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "prediction_failures_total",
			Help:      "Total prediction requests that failed.",
		}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "groundwater",
			Name:      "prediction_duration_seconds",
			Help:      "End-to-end duration of a prediction request including the model call.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "broadcasts_total",
			Help:      "Total broadcast passes over the connection registry.",
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "messages_delivered_total",
			Help:      "Total envelopes delivered to subscriber connections.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "delivery_failures_total",
			Help:      "Total envelope deliveries that failed.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "groundwater",
			Name:      "active_connections",
			Help:      "Currently registered subscriber connections.",
		}),
		IdentifiedUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "groundwater",
			Name:      "identified_users",
			Help:      "Distinct users with at least one identified connection.",
		}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "weather_requests_total",
			Help:      "Weather API requests by outcome.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "groundwater",
			Name:      "weather_api_duration_seconds",
			Help:      "OpenWeather API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		WeatherEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "groundwater",
			Name:      "weather_enabled",
			Help:      "1 when the weather integration is enabled, 0 otherwise.",
		}),
		WeatherPollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "weather_polls_total",
			Help:      "Total zone weather poll cycles.",
		}),
		WeatherPollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "weather_poll_failures_total",
			Help:      "Total zone weather fetches that failed during polling.",
		}),
		StoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "store_failures_total",
			Help:      "Total prediction store operations that failed.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "events_published_total",
			Help:      "Total prediction events published to the event sink.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwater",
			Name:      "publish_failures_total",
			Help:      "Total prediction event publishes that failed.",
		}),
	}

	prometheus.MustRegister(
		m.PredictionsTotal,
		m.PredictionFailures,
		m.PredictionDuration,
		m.BroadcastsTotal,
		m.MessagesDelivered,
		m.DeliveryFailures,
		m.ActiveConnections,
		m.IdentifiedUsers,
		m.WeatherRequests,
		m.WeatherCache,
		m.WeatherAPIDuration,
		m.WeatherEnabled,
		m.WeatherPollsTotal,
		m.WeatherPollFailures,
		m.StoreFailures,
		m.EventsPublished,
		m.PublishFailures,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PredictionsTotal:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "groundwater", Name: "predictions_total"}),
		PredictionFailures:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "groundwater", Name: "prediction_failures_total"}),
		PredictionDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "groundwater", Name: "prediction_duration_seconds"}),
		BroadcastsTotal:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "groundwater", Name: "broadcasts_total"}),
		MessagesDelivered:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "groundwater", Name: "messages_delivered_total"}),
		DeliveryFailures:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "groundwater", Name: "delivery_failures_total"}),
		ActiveConnections:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "groundwater", Name: "active_connections"}),
		IdentifiedUsers:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "groundwater", Name: "identified_users"}),
		WeatherRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "groundwater", Name: "weather_requests_total"}, []string{"outcome"}),
		WeatherCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "groundwater", Name: "weather_cache_total"}, []string{"result"}),
		WeatherAPIDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "groundwater", Name: "weather_api_duration_seconds"}),
		WeatherEnabled:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "groundwater", Name: "weather_enabled"}),
		WeatherPollsTotal:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "groundwater", Name: "weather_polls_total"}),
		WeatherPollFailures: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "groundwater", Name: "weather_poll_failures_total"}),
		StoreFailures:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "groundwater", Name: "store_failures_total"}),
		EventsPublished:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "groundwater", Name: "events_published_total"}),
		PublishFailures:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "groundwater", Name: "publish_failures_total"}),
	}
}
