package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	ZoneConfigPath string

	// Model server configuration.
	ModelURL     string
	ModelTimeout time.Duration
	ResidualStd  float64

	// OpenWeather integration.
	WeatherAPIKey       string
	WeatherBaseURL      string
	WeatherEnabled      bool
	WeatherTimeout      time.Duration
	WeatherCacheTTL     time.Duration
	WeatherCacheSize    int
	WeatherPollInterval time.Duration
	WeatherPollBackoff  time.Duration

	// Prediction storage. Empty DSN selects the in-memory store.
	PostgresDSN string

	// Kafka event sink. No brokers disables publishing.
	KafkaBrokers []string
	KafkaTopic   string

	// Forecasting.
	ForecastMonthsDefault int
	ForecastHistoryDays   int

	// WebSocket transport.
	WSSendTimeout     time.Duration
	WSMaxMessageBytes int64
	WSMessagesPerSec  float64
	WSBurst           int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	modelTimeout, err := parsePositiveDuration("MODEL_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parsePositiveDuration("OPENWEATHER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	weatherCacheTTL, err := parsePositiveDuration("WEATHER_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parsePositiveDuration("WEATHER_POLL_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	pollBackoff, err := parsePositiveDuration("WEATHER_POLL_BACKOFF", "30s")
	if err != nil {
		return nil, err
	}
	sendTimeout, err := parsePositiveDuration("WS_SEND_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	residualStd, err := parsePositiveFloat("RESIDUAL_STD", "2.34")
	if err != nil {
		return nil, err
	}
	messagesPerSec, err := parsePositiveFloat("WS_MESSAGES_PER_SEC", "5")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("WEATHER_CACHE_SIZE", "256")
	if err != nil {
		return nil, err
	}
	forecastMonths, err := parsePositiveInt("FORECAST_MONTHS_DEFAULT", "6")
	if err != nil {
		return nil, err
	}
	historyDays, err := parsePositiveInt("FORECAST_HISTORY_DAYS", "90")
	if err != nil {
		return nil, err
	}
	maxMessageBytes, err := parsePositiveInt("WS_MAX_MESSAGE_BYTES", "4096")
	if err != nil {
		return nil, err
	}
	burst, err := parsePositiveInt("WS_BURST", "10")
	if err != nil {
		return nil, err
	}

	weatherAPIKey := os.Getenv("OPENWEATHER_API_KEY")
	weatherEnabled := weatherAPIKey != ""
	if v := os.Getenv("OPENWEATHER_ENABLED"); v != "" {
		weatherEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ZoneConfigPath: envOrDefault("ZONE_CONFIG_PATH", "data/sample/zone_config.json"),

		ModelURL:     os.Getenv("MODEL_URL"),
		ModelTimeout: modelTimeout,
		ResidualStd:  residualStd,

		WeatherAPIKey:       weatherAPIKey,
		WeatherBaseURL:      envOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		WeatherEnabled:      weatherEnabled,
		WeatherTimeout:      weatherTimeout,
		WeatherCacheTTL:     weatherCacheTTL,
		WeatherCacheSize:    cacheSize,
		WeatherPollInterval: pollInterval,
		WeatherPollBackoff:  pollBackoff,

		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		KafkaBrokers: parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "groundwater-predictions"),

		ForecastMonthsDefault: forecastMonths,
		ForecastHistoryDays:   historyDays,

		WSSendTimeout:     sendTimeout,
		WSMaxMessageBytes: int64(maxMessageBytes),
		WSMessagesPerSec:  messagesPerSec,
		WSBurst:           burst,
	}

	if cfg.ModelURL == "" {
		return nil, errors.New("MODEL_URL is required")
	}
	if cfg.ZoneConfigPath == "" {
		return nil, errors.New("ZONE_CONFIG_PATH is required")
	}
	if cfg.WeatherEnabled && cfg.WeatherAPIKey == "" {
		return nil, errors.New("OPENWEATHER_ENABLED is true but OPENWEATHER_API_KEY is not set")
	}
	if cfg.ForecastMonthsDefault > 24 {
		return nil, errors.New("invalid FORECAST_MONTHS_DEFAULT: must be at most 24")
	}

	return cfg, nil
}

// envOrDefault returns the environment value for key, or fallback when the
// variable is unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseBrokers splits a comma-separated broker list, dropping empty parts.
func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parsePositiveDuration(name, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(name, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parsePositiveInt(name, fallback string) (int, error) {
	n, err := strconv.Atoi(envOrDefault(name, fallback))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

func parsePositiveFloat(name, fallback string) (float64, error) {
	f, err := strconv.ParseFloat(envOrDefault(name, fallback), 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return f, nil
}
