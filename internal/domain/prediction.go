package domain

import "time"

// Interval is an uncertainty band around a predicted level, in meters.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// FeatureContributions decomposes a prediction into per-driver impact
// estimates. These are linearized approximations for display, not a true
// attribution method.
type FeatureContributions struct {
	RainfallImpact    float64 `json:"rainfall_impact"`
	TemperatureImpact float64 `json:"temperature_impact"`
	LocationBaseline  float64 `json:"location_baseline"`
	SeasonalEffect    float64 `json:"seasonal_effect"`
}

// PredictionResult is a scored groundwater level prediction. The basic
// variant carries only level and confidence; the detailed variant fills in
// the zone, interval, contributions, and seasonal trend.
type PredictionResult struct {
	PredictedLevelM float64               `json:"predicted_level_meters"`
	Confidence      float64               `json:"confidence_score"`
	Zone            string                `json:"aquifer_zone,omitempty"`
	ZoneName        string                `json:"zone_name,omitempty"`
	Interval        *Interval             `json:"prediction_interval,omitempty"`
	Contributions   *FeatureContributions `json:"feature_contributions,omitempty"`
	SeasonalTrend   string                `json:"seasonal_trend,omitempty"`
}

// PredictionRecord is a stored prediction: the scored level plus the
// observation that produced it and ownership metadata. Records are what the
// forecast engine consumes as history.
type PredictionRecord struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Zone            string      `json:"zone"`
	PredictedLevelM float64     `json:"predicted_level_m"`
	Confidence      float64     `json:"confidence_score"`
	Observation     Observation `json:"observation"`
	CreatedAt       time.Time   `json:"created_at"`
}
