// Package openweather looks up current conditions through the OpenWeather
// current-weather API and maps them onto domain weather snapshots.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/hydrotech/groundwater-serve/internal/domain"
	"github.com/hydrotech/groundwater-serve/internal/observability"
)

// Client implements service.WeatherClient against the OpenWeather API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeather client. baseURL points at the API root,
// e.g. https://api.openweathermap.org/data/2.5.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Current fetches the current conditions at a coordinate. Rainfall is the
// larger of the provider's one-hour and three-hour accumulations, matching
// the convention the model's training data used.
func (c *Client) Current(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error) {
	params := url.Values{
		"lat":   {fmt.Sprintf("%.4f", lat)},
		"lon":   {fmt.Sprintf("%.4f", lon)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+params.Encode(), nil)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("create weather request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.WeatherAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return domain.WeatherSnapshot{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.WeatherSnapshot{}, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var owResp response
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return domain.WeatherSnapshot{}, fmt.Errorf("decode weather response: %w", err)
	}
	c.metrics.WeatherRequests.WithLabelValues("success").Inc()

	snap := domain.WeatherSnapshot{
		TemperatureC: owResp.Main.Temp,
		RainfallMM:   math.Max(owResp.Rain.OneHour, owResp.Rain.ThreeHour),
		Humidity:     owResp.Main.Humidity,
		Pressure:     owResp.Main.Pressure,
		Location:     owResp.Name,
		ObservedAt:   time.Unix(owResp.Dt, 0).UTC(),
	}
	if len(owResp.Weather) > 0 {
		snap.Description = owResp.Weather[0].Description
	}
	return snap, nil
}

// OpenWeather API response types.

type response struct {
	Main    mainBlock      `json:"main"`
	Weather []weatherBlock `json:"weather"`
	Rain    rainBlock      `json:"rain"`
	Name    string         `json:"name"`
	Dt      int64          `json:"dt"`
}

type mainBlock struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Pressure float64 `json:"pressure"`
}

type weatherBlock struct {
	Description string `json:"description"`
}

type rainBlock struct {
	OneHour   float64 `json:"1h"`
	ThreeHour float64 `json:"3h"`
}
