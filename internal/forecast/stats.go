package forecast

import (
	"fmt"
	"math"
	"time"
)

// olsFit computes an ordinary least squares fit y = slope*x + intercept.
// A degenerate x series (all identical) yields a flat line through the mean.
func olsFit(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}

	xMean := mean(xs)
	yMean := mean(ys)

	var num, den float64
	for i := range xs {
		dx := xs[i] - xMean
		num += dx * (ys[i] - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, yMean
	}

	slope = num / den
	return slope, yMean - slope*xMean
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// popVariance is the uncorrected (divide by n) variance.
func popVariance(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := mean(vals)
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return sq / float64(len(vals))
}

func popStdDev(vals []float64) float64 {
	return math.Sqrt(popVariance(vals))
}

func minMax(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// wholeDays is the number of complete days from first to t, truncated.
func wholeDays(first, t time.Time) float64 {
	return float64(t.Sub(first) / (24 * time.Hour))
}

// formatRateDescription renders the human-readable trend sentence with the
// unrounded slope magnitude.
func formatRateDescription(verb string, slope float64) string {
	return fmt.Sprintf("Groundwater levels are %s at %.3fm per prediction", verb, math.Abs(slope))
}
