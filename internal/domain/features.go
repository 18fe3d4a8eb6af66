package domain

import "math"

// defaultMonthlyRainfallMM is the climatology fallback for months missing
// from a zone's table. Lag months missing from the table scale off the
// current month instead.
const defaultMonthlyRainfallMM = 150.0

// Groundwater level bounds in meters. Model output is clamped to this band.
const (
	MinLevelM = 2.0
	MaxLevelM = 50.0
)

// FeatureVector is the exact column schema the regression model was trained
// on. Field order and JSON names mirror the training data; the model server
// rejects requests with missing or renamed columns.
type FeatureVector struct {
	Latitude                float64 `json:"latitude"`
	Longitude               float64 `json:"longitude"`
	Month                   int     `json:"month"`
	AquiferZone             string  `json:"aquifer_zone"`
	RainfallMM              float64 `json:"rainfall_mm"`
	RainfallLag1M           float64 `json:"rainfall_lag_1m"`
	RainfallLag2M           float64 `json:"rainfall_lag_2m"`
	RainfallRolling3M       float64 `json:"rainfall_rolling_3m"`
	RainfallStd3M           float64 `json:"rainfall_std_3m"`
	AvgTempC                float64 `json:"avg_temp_c"`
	TempRainfallInteraction float64 `json:"temp_rainfall_interaction"`
	SeasonalIndex           int     `json:"seasonal_index"`
}

// Finite reports whether every float column is a finite number.
func (f FeatureVector) Finite() bool {
	for _, v := range []float64{
		f.Latitude, f.Longitude, f.RainfallMM, f.RainfallLag1M, f.RainfallLag2M,
		f.RainfallRolling3M, f.RainfallStd3M, f.AvgTempC, f.TempRainfallInteraction,
	} {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// BuildFeatures derives the model's input columns from an observation and
// its resolved zone.
//
// Lag features substitute the zone climatology for the months preceding the
// observation. When the climatology has no entry for a lag month, the lag
// falls back to a fraction of the current month's average: 80% one month
// back, 60% two months back, mirroring the typical month-over-month rainfall
// decay in the training data.
func BuildFeatures(obs Observation, zone Zone) FeatureVector {
	month := obs.Month
	lag1Month := month - 1
	if lag1Month < 1 {
		lag1Month = 12
	}
	lag2Month := month - 2
	if lag2Month < 1 {
		lag2Month += 12
	}

	avg := lookupOrDefault(zone.AvgRainfall, month, defaultMonthlyRainfallMM)
	lag1 := lookupOrDefault(zone.AvgRainfall, lag1Month, avg*0.8)
	lag2 := lookupOrDefault(zone.AvgRainfall, lag2Month, avg*0.6)

	rolling := (obs.RainfallMM + lag1 + lag2) / 3

	return FeatureVector{
		Latitude:                obs.Latitude,
		Longitude:               obs.Longitude,
		Month:                   month,
		AquiferZone:             zone.Code,
		RainfallMM:              obs.RainfallMM,
		RainfallLag1M:           lag1,
		RainfallLag2M:           lag2,
		RainfallRolling3M:       rolling,
		RainfallStd3M:           populationStdDev([]float64{obs.RainfallMM, lag1, lag2}),
		AvgTempC:                obs.TemperatureC,
		TempRainfallInteraction: obs.TemperatureC * obs.RainfallMM / 100,
		SeasonalIndex:           seasonalIndex(month),
	}
}

// lookupOrDefault returns the climatology value for a month, or the fallback
// when the month has no entry.
func lookupOrDefault(climatology map[int]float64, month int, fallback float64) float64 {
	if v, ok := climatology[month]; ok {
		return v
	}
	return fallback
}

// IsMonsoonMonth reports whether the month falls in the June-September
// monsoon window.
func IsMonsoonMonth(month int) bool {
	return month >= 6 && month <= 9
}

// seasonalIndex is the binary monsoon feature column.
func seasonalIndex(month int) int {
	if IsMonsoonMonth(month) {
		return 1
	}
	return 0
}

// ClampLevel bounds a predicted level to the physically plausible band.
func ClampLevel(v float64) float64 {
	return clamp(v, MinLevelM, MaxLevelM)
}

// RoundTo rounds v to the given number of decimal places, half away from
// zero.
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// populationStdDev is the uncorrected (divide by n) standard deviation,
// matching the statistic the training pipeline computed for rainfall_std_3m.
func populationStdDev(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)))
}
