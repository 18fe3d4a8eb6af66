package registry

import (
	"time"

	"github.com/hydrotech/groundwater-serve/internal/domain"
)

// Message is one outbound envelope. Type returns the wire tag.
type Message interface {
	Type() string
}

// Wire tags for the closed envelope set.
const (
	TypeConnectionSuccess   = "connection_success"
	TypePong                = "pong"
	TypeWeatherUpdate       = "weather_update"
	TypePredictionUpdate    = "prediction_update"
	TypeForecastUpdate      = "forecast_update"
	TypeSubscriptionSuccess = "subscription_success"
	TypeSystemNotification  = "system_notification"
	TypeError               = "error"
)

// Severity levels for system notifications.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
	LevelSuccess = "success"
)

// header carries the fields every envelope shares. Embedding promotes Kind
// and Timestamp into each message's JSON output.
type header struct {
	Kind      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

func (h header) Type() string { return h.Kind }

func newHeader(kind string) header {
	return header{Kind: kind, Timestamp: clock.Now().UTC().Format(time.RFC3339)}
}

// ConnectionSuccess greets a subscriber once its connection is registered.
type ConnectionSuccess struct {
	header
	Message string `json:"message"`
}

func NewConnectionSuccess(message string) ConnectionSuccess {
	return ConnectionSuccess{header: newHeader(TypeConnectionSuccess), Message: message}
}

// Pong answers a ping control message.
type Pong struct {
	header
}

func NewPong() Pong {
	return Pong{header: newHeader(TypePong)}
}

// WeatherUpdate carries a current-conditions snapshot. Zone is set when the
// update comes from the background zone poller, empty for direct
// request_weather replies.
type WeatherUpdate struct {
	header
	Zone string                 `json:"zone,omitempty"`
	Data domain.WeatherSnapshot `json:"data"`
}

func NewWeatherUpdate(zone string, snap domain.WeatherSnapshot) WeatherUpdate {
	return WeatherUpdate{header: newHeader(TypeWeatherUpdate), Zone: zone, Data: snap}
}

// PredictionUpdate announces a freshly scored prediction together with its
// stored record id.
type PredictionUpdate struct {
	header
	Data         domain.PredictionResult `json:"data"`
	PredictionID string                  `json:"prediction_id"`
	SavedAt      string                  `json:"saved_at"`
}

func NewPredictionUpdate(result domain.PredictionResult, predictionID string, savedAt time.Time) PredictionUpdate {
	return PredictionUpdate{
		header:       newHeader(TypePredictionUpdate),
		Data:         result,
		PredictionID: predictionID,
		SavedAt:      savedAt.UTC().Format(time.RFC3339),
	}
}

// ForecastUpdate carries a zone forecast to a specific user.
type ForecastUpdate struct {
	header
	Data domain.ZoneForecast `json:"data"`
}

func NewForecastUpdate(forecast domain.ZoneForecast) ForecastUpdate {
	return ForecastUpdate{header: newHeader(TypeForecastUpdate), Data: forecast}
}

// SubscriptionSuccess acknowledges a zone subscription request.
type SubscriptionSuccess struct {
	header
	Zone string `json:"zone"`
}

func NewSubscriptionSuccess(zone string) SubscriptionSuccess {
	return SubscriptionSuccess{header: newHeader(TypeSubscriptionSuccess), Zone: zone}
}

// SystemNotification is an operator-initiated broadcast.
type SystemNotification struct {
	header
	Level   string `json:"level"`
	Message string `json:"message"`
}

func NewSystemNotification(level, message string) SystemNotification {
	return SystemNotification{header: newHeader(TypeSystemNotification), Level: level, Message: message}
}

// ErrorMessage reports a per-connection failure without closing the stream.
type ErrorMessage struct {
	header
	Message string `json:"message"`
}

func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{header: newHeader(TypeError), Message: message}
}
