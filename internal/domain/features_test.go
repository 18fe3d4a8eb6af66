package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// urbanZone carries the full sample climatology for zone A.
func urbanZone() Zone {
	return Zone{
		Code: "A", Name: "Urban",
		LatRange: [2]float64{28.6, 28.8}, LonRange: [2]float64{77.1, 77.3},
		AvgRainfall: map[int]float64{
			1: 12.8, 2: 17.0, 3: 21.3, 4: 25.5, 5: 46.8, 6: 157.3,
			7: 221.0, 8: 199.8, 9: 148.8, 10: 80.8, 11: 34.0, 12: 17.0,
		},
		AvgLevelM: 11.8, Reliability: 0.85,
	}
}

func TestBuildFeatures_MonsoonMonth(t *testing.T) {
	obs := Observation{RainfallMM: 200, TemperatureC: 28, Latitude: 28.7, Longitude: 77.2, Month: 7}

	f := BuildFeatures(obs, urbanZone())

	assert.Equal(t, 28.7, f.Latitude)
	assert.Equal(t, 77.2, f.Longitude)
	assert.Equal(t, 7, f.Month)
	assert.Equal(t, "A", f.AquiferZone)
	assert.Equal(t, 200.0, f.RainfallMM)
	assert.Equal(t, 157.3, f.RainfallLag1M, "lag 1 is the June climatology")
	assert.Equal(t, 46.8, f.RainfallLag2M, "lag 2 is the May climatology")
	assert.InDelta(t, 134.7, f.RainfallRolling3M, 1e-9)
	assert.InDelta(t, 64.553, f.RainfallStd3M, 0.001)
	assert.Equal(t, 28.0, f.AvgTempC)
	assert.InDelta(t, 56.0, f.TempRainfallInteraction, 1e-9)
	assert.Equal(t, 1, f.SeasonalIndex)
}

func TestBuildFeatures_LagMonthsWrapAroundYear(t *testing.T) {
	zone := urbanZone()

	// January looks back to December and November.
	jan := BuildFeatures(Observation{RainfallMM: 10, TemperatureC: 15, Month: 1}, zone)
	assert.Equal(t, 17.0, jan.RainfallLag1M)
	assert.Equal(t, 34.0, jan.RainfallLag2M)
	assert.Equal(t, 0, jan.SeasonalIndex)

	// February looks back to January and December.
	feb := BuildFeatures(Observation{RainfallMM: 12, TemperatureC: 16, Month: 2}, zone)
	assert.Equal(t, 12.8, feb.RainfallLag1M)
	assert.Equal(t, 17.0, feb.RainfallLag2M)
}

func TestBuildFeatures_MissingClimatologyFallbacks(t *testing.T) {
	sparse := Zone{Code: "S", Name: "Sparse", AvgRainfall: map[int]float64{6: 100.0}}

	// Current month present, both lag months absent: lags scale off the
	// current month's average.
	f := BuildFeatures(Observation{RainfallMM: 50, TemperatureC: 30, Month: 6}, sparse)
	assert.InDelta(t, 80.0, f.RainfallLag1M, 1e-9)
	assert.InDelta(t, 60.0, f.RainfallLag2M, 1e-9)

	// Nothing present: the 150 mm default anchors every fallback.
	empty := Zone{Code: "E", Name: "Empty"}
	f = BuildFeatures(Observation{RainfallMM: 0, TemperatureC: 20, Month: 3}, empty)
	assert.InDelta(t, 120.0, f.RainfallLag1M, 1e-9)
	assert.InDelta(t, 90.0, f.RainfallLag2M, 1e-9)
}

func TestFeatureVector_Finite(t *testing.T) {
	f := BuildFeatures(Observation{RainfallMM: 10, TemperatureC: 20, Month: 4}, urbanZone())
	assert.True(t, f.Finite())

	f.TempRainfallInteraction = math.NaN()
	assert.False(t, f.Finite())

	f.TempRainfallInteraction = math.Inf(1)
	assert.False(t, f.Finite())
}

func TestLookupOrDefault(t *testing.T) {
	climo := map[int]float64{6: 157.3}

	assert.Equal(t, 157.3, lookupOrDefault(climo, 6, 999))
	assert.Equal(t, 999.0, lookupOrDefault(climo, 7, 999))
	assert.Equal(t, 999.0, lookupOrDefault(nil, 6, 999))
}

func TestIsMonsoonMonth(t *testing.T) {
	assert.False(t, IsMonsoonMonth(5))
	assert.True(t, IsMonsoonMonth(6))
	assert.True(t, IsMonsoonMonth(9))
	assert.False(t, IsMonsoonMonth(10))
}

func TestClampLevel(t *testing.T) {
	assert.Equal(t, 2.0, ClampLevel(1.9))
	assert.Equal(t, 2.0, ClampLevel(-100))
	assert.Equal(t, 50.0, ClampLevel(50.1))
	assert.Equal(t, 25.0, ClampLevel(25))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 3.14, RoundTo(3.14159, 2))
	assert.Equal(t, 2.718, RoundTo(2.71828, 3))
	assert.Equal(t, -1.3, RoundTo(-1.26, 1))
	assert.Equal(t, 17.0, RoundTo(17.0, 2))
}

func TestPopulationStdDev(t *testing.T) {
	assert.Equal(t, 2.0, populationStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}))
	assert.Equal(t, 0.0, populationStdDev([]float64{5, 5, 5}))
	assert.Equal(t, 0.0, populationStdDev(nil))
}
