package domain

// baseConfidence anchors every confidence score before zone and seasonal
// factors are applied.
const baseConfidence = 0.75

// Seasonal trend descriptions served alongside detailed predictions.
const (
	trendMonsoon     = "Monsoon Season - Rising water levels expected"
	trendPostMonsoon = "Post-Monsoon - Peak water levels"
	trendWinter      = "Winter - Stable levels"
	trendPreMonsoon  = "Pre-Monsoon - Declining trend expected"
)

// ConfidenceScore rates a prediction in [0.5, 1.0], rounded to three
// decimals. The score combines three factors:
//
//   - zone reliability, reflecting how much training data the zone had
//   - season: monsoon months carry denser observations (x1.12), deep winter
//     sparser ones (x0.96), shoulder months neither
//   - a 5% bonus when the predicted level sits in the well-observed
//     5-40 m band
//
// The predicted level must be the clamped, unrounded model output.
func ConfidenceScore(zones *ZoneSet, zoneCode string, month int, predicted float64) float64 {
	confidence := baseConfidence * zones.ReliabilityOf(zoneCode)

	switch {
	case IsMonsoonMonth(month):
		confidence *= 1.12
	case month == 4 || month == 5 || month == 10 || month == 11:
		// Shoulder months, no adjustment.
	default:
		confidence *= 0.96
	}

	if predicted >= 5.0 && predicted <= 40.0 {
		confidence *= 1.05
	}

	return RoundTo(clamp(confidence, 0.5, 1.0), 3)
}

// SeasonalTrend describes the expected groundwater movement for a month.
func SeasonalTrend(month int) string {
	switch {
	case IsMonsoonMonth(month):
		return trendMonsoon
	case month == 10 || month == 11:
		return trendPostMonsoon
	case month == 12 || month <= 3:
		return trendWinter
	default:
		return trendPreMonsoon
	}
}
