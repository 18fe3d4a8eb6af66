package domain

import (
	"fmt"
	"math"
)

// Physical bounds for incoming observations. Rainfall above 500 mm/month or
// temperatures outside [-10, 50] C are outside the model's training range
// and are rejected rather than extrapolated.
const (
	MaxRainfallMM   = 500.0
	MinTemperatureC = -10.0
	MaxTemperatureC = 50.0
)

// Observation is a single prediction request: where, when, and the weather
// conditions driving the water balance.
type Observation struct {
	RainfallMM   float64 `json:"rainfall_mm"`
	TemperatureC float64 `json:"temperature_c"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Month        int     `json:"month"`
}

// Validate checks the observation against calendar and physical bounds.
// All violations wrap ErrInvalidObservation.
func (o Observation) Validate() error {
	if !isFinite(o.RainfallMM) || o.RainfallMM < 0 || o.RainfallMM > MaxRainfallMM {
		return fmt.Errorf("%w: rainfall_mm must be in [0, %g], got %v", ErrInvalidObservation, MaxRainfallMM, o.RainfallMM)
	}
	if !isFinite(o.TemperatureC) || o.TemperatureC < MinTemperatureC || o.TemperatureC > MaxTemperatureC {
		return fmt.Errorf("%w: temperature_c must be in [%g, %g], got %v", ErrInvalidObservation, MinTemperatureC, MaxTemperatureC, o.TemperatureC)
	}
	if !isFinite(o.Latitude) || o.Latitude < -90 || o.Latitude > 90 {
		return fmt.Errorf("%w: latitude must be in [-90, 90], got %v", ErrInvalidObservation, o.Latitude)
	}
	if !isFinite(o.Longitude) || o.Longitude < -180 || o.Longitude > 180 {
		return fmt.Errorf("%w: longitude must be in [-180, 180], got %v", ErrInvalidObservation, o.Longitude)
	}
	if o.Month < 1 || o.Month > 12 {
		return fmt.Errorf("%w: month must be in [1, 12], got %d", ErrInvalidObservation, o.Month)
	}
	return nil
}

// isFinite reports whether v is neither NaN nor an infinity.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
