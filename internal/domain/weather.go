package domain

import "time"

// WeatherSnapshot is a current-conditions reading at a coordinate,
// normalized from the upstream provider. RainfallMM is the larger of the
// provider's one-hour and three-hour accumulations.
type WeatherSnapshot struct {
	TemperatureC float64   `json:"temperature_c"`
	RainfallMM   float64   `json:"rainfall_mm"`
	Humidity     float64   `json:"humidity"`
	Pressure     float64   `json:"pressure"`
	Description  string    `json:"description"`
	Location     string    `json:"location,omitempty"`
	ObservedAt   time.Time `json:"observed_at"`
}

// AsObservation converts a weather snapshot into a prediction observation
// for the given coordinate and month.
func (w WeatherSnapshot) AsObservation(lat, lon float64, month int) Observation {
	return Observation{
		RainfallMM:   w.RainfallMM,
		TemperatureC: w.TemperatureC,
		Latitude:     lat,
		Longitude:    lon,
		Month:        month,
	}
}
