// Package forecast projects future groundwater levels from stored
// prediction history using a linear trend plus a mean seasonal offset.
package forecast

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/hydrotech/groundwater-serve/internal/domain"
)

// minHistory is the smallest series the trend path accepts. Shorter series
// fall back to the zone-average projection.
const minHistory = 3

const limitedHistoryNote = "Based on zone average - limited historical data"

// Engine turns prediction history into monthly forecasts and trend
// summaries. Safe for concurrent use.
type Engine struct {
	zones *domain.ZoneSet
	clock clockwork.Clock

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine builds an engine over the zone set. A nil clock selects the
// real clock. The jitter source is seeded from the clock, so a fake clock
// makes the default projection reproducible.
func NewEngine(zones *domain.ZoneSet, clk clockwork.Clock) *Engine {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Engine{
		zones: zones,
		clock: clk,
		rng:   rand.New(rand.NewSource(clk.Now().UnixNano())),
	}
}

// Project forecasts one level per future month, 30-day steps.
//
// With fewer than three records the projection anchors on the zone's average
// level with small jitter and a fixed ±2 m band. Otherwise it fits an
// ordinary least squares trend over elapsed days, adds the mean residual as
// a seasonal offset, and widens the band to 1.96 standard deviations of the
// historical levels. The band is identical for every projected month; it
// reflects historical variance only and does not grow with the horizon.
//
// The history slice is caller-owned: Project sorts a copy.
func (e *Engine) Project(history []domain.PredictionRecord, zoneCode string, monthsAhead int) []domain.Forecast {
	if monthsAhead <= 0 {
		return nil
	}
	if len(history) < minHistory {
		return e.defaultProjection(zoneCode, monthsAhead)
	}

	sorted := make([]domain.PredictionRecord, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	first := sorted[0].CreatedAt
	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, rec := range sorted {
		xs[i] = wholeDays(first, rec.CreatedAt)
		ys[i] = rec.PredictedLevelM
	}

	slope, intercept := olsFit(xs, ys)

	var residualSum float64
	for i := range xs {
		residualSum += ys[i] - (slope*xs[i] + intercept)
	}
	seasonalOffset := residualSum / float64(len(xs))

	band := 1.96 * popStdDev(ys)

	trend := domain.TrendDecreasing
	if slope > 0 {
		trend = domain.TrendIncreasing
	}
	rate := domain.RoundTo(slope*30, 3)

	last := sorted[len(sorted)-1].CreatedAt
	out := make([]domain.Forecast, 0, monthsAhead)
	for m := 1; m <= monthsAhead; m++ {
		date := last.AddDate(0, 0, 30*m)
		raw := slope*wholeDays(first, date) + intercept + seasonalOffset
		out = append(out, domain.Forecast{
			Date:           date,
			Month:          date.Format("January 2006"),
			PredictedLevel: domain.RoundTo(raw, 2),
			Interval: domain.Interval{
				Lower: domain.RoundTo(raw-band, 2),
				Upper: domain.RoundTo(raw+band, 2),
			},
			Trend:     trend,
			TrendRate: rate,
		})
	}
	return out
}

// defaultProjection anchors on the zone average with uniform jitter in
// [-1, 1) and a fixed ±2 m band.
func (e *Engine) defaultProjection(zoneCode string, monthsAhead int) []domain.Forecast {
	base := e.zones.AvgLevelOf(zoneCode)
	now := e.clock.Now().UTC()

	out := make([]domain.Forecast, 0, monthsAhead)
	for m := 1; m <= monthsAhead; m++ {
		date := now.AddDate(0, 0, 30*m)
		raw := base + e.jitter()
		out = append(out, domain.Forecast{
			Date:           date,
			Month:          date.Format("January 2006"),
			PredictedLevel: domain.RoundTo(raw, 2),
			Interval: domain.Interval{
				Lower: domain.RoundTo(raw-2, 2),
				Upper: domain.RoundTo(raw+2, 2),
			},
			Trend:     domain.TrendStable,
			TrendRate: 0,
			Note:      limitedHistoryNote,
		})
	}
	return out
}

func (e *Engine) jitter() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()*2 - 1
}

// AnalyzeTrend fits a least squares line over the series by index and
// labels the movement. Slopes smaller than 0.01 m per prediction in either
// direction count as stable. The history must be ordered oldest first.
func (e *Engine) AnalyzeTrend(history []domain.PredictionRecord) domain.TrendAnalysis {
	if len(history) < minHistory {
		return domain.TrendAnalysis{
			Trend:       domain.TrendInsufficientData,
			Description: "Not enough historical data to determine trend",
		}
	}

	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, rec := range history {
		xs[i] = float64(i)
		ys[i] = rec.PredictedLevelM
	}

	slope, _ := olsFit(xs, ys)

	var trend, description string
	switch {
	case slope < 0.01 && slope > -0.01:
		trend = domain.TrendStable
		description = "Groundwater levels are relatively stable"
	case slope > 0:
		trend = domain.TrendIncreasing
		description = formatRateDescription("rising", slope)
	default:
		trend = domain.TrendDecreasing
		description = formatRateDescription("declining", slope)
	}

	minLevel, maxLevel := minMax(ys)
	return domain.TrendAnalysis{
		Trend:        trend,
		Description:  description,
		Slope:        domain.RoundTo(slope, 4),
		AverageLevel: domain.RoundTo(mean(ys), 2),
		MinLevel:     domain.RoundTo(minLevel, 2),
		MaxLevel:     domain.RoundTo(maxLevel, 2),
		Variance:     domain.RoundTo(popVariance(ys), 2),
	}
}
