// Package domain models aquifer zones and groundwater level predictions.
//
// # Zone Model
//
// The service divides its coverage area into rectangular aquifer zones, each
// with a lat/lon bounding box, a monthly rainfall climatology, and physical
// properties (soil type, permeability, extraction pressure). Zones are loaded
// at startup from a JSON or YAML config file and are immutable afterwards.
//
// Coordinates resolve to a zone by inclusive bounding-box containment, first
// match in config order. Coordinates outside every box fall back to the zone
// with the nearest box centroid, so every coordinate on Earth resolves to
// some zone.
//
// # Rainfall Climatology
//
// Each zone carries average rainfall per calendar month (mm), keyed 1-12.
// The climatology follows the Indian monsoon cycle: dry winter months,
// a sharp June-September peak, and a post-monsoon decline. Months missing
// from a zone's table fall back to 150.0 mm; lag months fall back to scaled
// fractions of the current month's average (80% for one month back, 60% for
// two). See [BuildFeatures].
//
// # Feature Schema
//
// The regression model upstream was trained on a fixed 12-column schema.
// [FeatureVector] reproduces it exactly, including the derived columns:
// lag rainfall, 3-month rolling mean, 3-month population standard deviation,
// temperature-rainfall interaction (temp * rain / 100), and a binary
// seasonal index that is 1 during monsoon months (June-September).
//
// # Level Conventions
//
// Groundwater levels are meters below ground. Model output is clamped to
// the physically plausible band [2, 50] meters and reported rounded to two
// decimals. Confidence scores live in [0.5, 1.0], rounded to three decimals,
// and combine zone reliability, seasonal data density, and a bonus when the
// prediction falls in the well-observed 5-40 m band. See [ConfidenceScore].
package domain
