package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceScore(t *testing.T) {
	set := fourZones()

	tests := []struct {
		name      string
		zone      string
		month     int
		predicted float64
		want      float64
	}{
		{
			// 0.75 * 0.85 * 1.12 * 1.05 = 0.7497
			name: "urban monsoon plausible", zone: "A", month: 7, predicted: 25, want: 0.75,
		},
		{
			// 0.75 * 0.92 * 1.12 * 1.05 = 0.81144
			name: "agricultural monsoon plausible", zone: "B", month: 8, predicted: 30, want: 0.811,
		},
		{
			// 0.75 * 0.85 * 1.00 * 1.05 = 0.669375
			name: "shoulder month no seasonal factor", zone: "A", month: 10, predicted: 20, want: 0.669,
		},
		{
			// 0.75 * 0.72 * 0.96 = 0.5184, no plausibility bonus below 5 m
			name: "coastal winter shallow", zone: "C", month: 1, predicted: 3, want: 0.518,
		},
		{
			// Unknown zones score with the default 0.75 reliability:
			// 0.75 * 0.75 * 0.96 * 1.05 = 0.567
			name: "unknown zone winter", zone: "Z", month: 12, predicted: 20, want: 0.567,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfidenceScore(set, tt.zone, tt.month, tt.predicted)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConfidenceScore_PlausibilityBonusEdges(t *testing.T) {
	set := fourZones()

	// The bonus band is inclusive at both 5 and 40 meters.
	atFive := ConfidenceScore(set, "A", 7, 5.0)
	atForty := ConfidenceScore(set, "A", 7, 40.0)
	justBelow := ConfidenceScore(set, "A", 7, 4.99)
	justAbove := ConfidenceScore(set, "A", 7, 40.01)

	assert.Equal(t, atFive, atForty)
	assert.Greater(t, atFive, justBelow)
	assert.Greater(t, atForty, justAbove)
}

func TestConfidenceScore_FloorsAtHalf(t *testing.T) {
	set := &ZoneSet{
		codes: []string{"W"},
		zones: map[string]Zone{"W": {Code: "W", Name: "Weak", Reliability: 0.55}},
	}

	// 0.75 * 0.55 * 0.96 = 0.396, clamped up to the floor.
	got := ConfidenceScore(set, "W", 1, 3)
	assert.Equal(t, 0.5, got)
}

func TestConfidenceScore_AlwaysWithinBounds(t *testing.T) {
	set := fourZones()

	for _, zone := range []string{"A", "B", "C", "D", "unknown"} {
		for month := 1; month <= 12; month++ {
			for _, predicted := range []float64{-10, 0, 2, 5, 25, 40, 50, 500} {
				got := ConfidenceScore(set, zone, month, predicted)
				assert.GreaterOrEqual(t, got, 0.5, "zone=%s month=%d predicted=%v", zone, month, predicted)
				assert.LessOrEqual(t, got, 1.0, "zone=%s month=%d predicted=%v", zone, month, predicted)
			}
		}
	}
}

func TestSeasonalTrend(t *testing.T) {
	tests := []struct {
		month int
		want  string
	}{
		{1, "Winter - Stable levels"},
		{2, "Winter - Stable levels"},
		{3, "Winter - Stable levels"},
		{4, "Pre-Monsoon - Declining trend expected"},
		{5, "Pre-Monsoon - Declining trend expected"},
		{6, "Monsoon Season - Rising water levels expected"},
		{7, "Monsoon Season - Rising water levels expected"},
		{8, "Monsoon Season - Rising water levels expected"},
		{9, "Monsoon Season - Rising water levels expected"},
		{10, "Post-Monsoon - Peak water levels"},
		{11, "Post-Monsoon - Peak water levels"},
		{12, "Winter - Stable levels"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SeasonalTrend(tt.month), "month %d", tt.month)
	}
}
