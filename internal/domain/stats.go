package domain

// LevelStatistics summarizes the stored prediction levels and driving
// observations for one zone. All values are rounded to 2 decimals.
type LevelStatistics struct {
	MeanLevel       float64 `json:"mean_level"`
	StdLevel        float64 `json:"std_level"`
	MinLevel        float64 `json:"min_level"`
	MaxLevel        float64 `json:"max_level"`
	MeanRainfall    float64 `json:"mean_rainfall"`
	MeanTemperature float64 `json:"mean_temperature"`
}

// ZoneHistoryStats is the aggregate view of a zone's stored predictions,
// optionally narrowed to a single calendar month.
type ZoneHistoryStats struct {
	Zone       string          `json:"zone"`
	Samples    int             `json:"samples"`
	Statistics LevelStatistics `json:"statistics"`
}
