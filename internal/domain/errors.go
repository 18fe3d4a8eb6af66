package domain

import "errors"

// Sentinel errors shared across adapters. Transport layers wrap their own
// failures with these so the HTTP and WebSocket handlers can map errors to
// response codes with errors.Is instead of string matching.
var (
	ErrInvalidObservation = errors.New("invalid observation")
	ErrUnknownZone        = errors.New("unknown zone")
	ErrModelUnavailable   = errors.New("model unavailable")
	ErrWeatherUnavailable = errors.New("weather unavailable")
	ErrRecordNotFound     = errors.New("record not found")
)
