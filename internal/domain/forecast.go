package domain

import "time"

// Trend labels shared by forecasts and trend analysis.
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// Forecast is one projected month of groundwater level.
type Forecast struct {
	Date           time.Time `json:"date"`
	Month          string    `json:"month"`
	PredictedLevel float64   `json:"predicted_level"`
	Interval       Interval  `json:"confidence_interval"`
	Trend          string    `json:"trend"`
	TrendRate      float64   `json:"trend_rate"`
	Note           string    `json:"note,omitempty"`
}

// TrendAnalysis summarizes the long-term movement of a prediction series.
type TrendAnalysis struct {
	Trend        string  `json:"trend"`
	Description  string  `json:"description"`
	Slope        float64 `json:"slope"`
	AverageLevel float64 `json:"average_level"`
	MinLevel     float64 `json:"min_level"`
	MaxLevel     float64 `json:"max_level"`
	Variance     float64 `json:"variance"`
}

// ZoneForecast bundles a zone's monthly projection with its trend summary.
type ZoneForecast struct {
	Zone                 string        `json:"zone"`
	ZoneName             string        `json:"zone_name"`
	HistoricalDataPoints int           `json:"historical_data_points"`
	Forecasts            []Forecast    `json:"forecasts"`
	TrendAnalysis        TrendAnalysis `json:"trend_analysis"`
	GeneratedAt          time.Time     `json:"generated_at"`
}
