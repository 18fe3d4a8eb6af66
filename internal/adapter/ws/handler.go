// Package ws exposes the live subscription channel: a persistent WebSocket
// per client, registered with the connection registry and driven by a small
// set of typed control messages.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/hydrotech/groundwater-serve/internal/config"
	"github.com/hydrotech/groundwater-serve/internal/domain"
	"github.com/hydrotech/groundwater-serve/internal/registry"
)

// Inbound control message types.
const (
	inboundPing           = "ping"
	inboundRequestWeather = "request_weather"
	inboundSubscribeZone  = "subscribe_zone"
)

// requestTimeout bounds collaborator calls made on behalf of one control
// message.
const requestTimeout = 10 * time.Second

// WeatherRequester serves request_weather control messages.
type WeatherRequester interface {
	RequestWeather(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error)
}

// Handler upgrades HTTP requests to subscriber connections and runs their
// read loops. Each connection gets its own goroutine (the HTTP handler
// itself) and its own inbound rate limiter.
type Handler struct {
	registry *registry.Registry
	weather  WeatherRequester
	zones    *domain.ZoneSet
	logger   *slog.Logger
	upgrader websocket.Upgrader

	sendTimeout     time.Duration
	maxMessageBytes int64
	messageRate     rate.Limit
	burst           int
}

// NewHandler creates the subscription endpoint handler. weather may be nil
// when the weather integration is disabled.
func NewHandler(cfg *config.Config, reg *registry.Registry, weather WeatherRequester, zones *domain.ZoneSet, logger *slog.Logger) *Handler {
	return &Handler{
		registry: reg,
		weather:  weather,
		zones:    zones,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API serves browser dashboards on other origins; auth is
			// out of scope here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sendTimeout:     cfg.WSSendTimeout,
		maxMessageBytes: cfg.WSMaxMessageBytes,
		messageRate:     rate.Limit(cfg.WSMessagesPerSec),
		burst:           cfg.WSBurst,
	}
}

// inbound is the shape of every client control message. Unknown fields are
// ignored; unknown types get an error envelope, never a close.
type inbound struct {
	Type   string  `json:"type"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Zone   string  `json:"zone"`
	UserID string  `json:"user_id"`
}

// ServeHTTP upgrades the request and serves the connection until the peer
// goes away. An optional user_id query parameter binds the connection to a
// user immediately; clients may also identify later via any control message
// carrying user_id.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newConn(socket, h.sendTimeout)
	userID := r.URL.Query().Get("user_id")
	h.registry.Connect(c, userID)

	// Disconnect exactly once, whether the read loop exits or a broadcast
	// evicted the connection first (Disconnect tolerates both).
	var cleanup sync.Once
	disconnect := func() {
		cleanup.Do(func() {
			h.registry.Disconnect(c)
			_ = c.Close()
		})
	}
	defer disconnect()

	h.registry.SendTo(c, registry.NewConnectionSuccess("Connected to groundwater prediction service"))

	h.readLoop(r.Context(), c)
}

// readLoop consumes control messages until the peer disconnects or errors.
func (h *Handler) readLoop(ctx context.Context, c *conn) {
	c.socket.SetReadLimit(h.maxMessageBytes)
	limiter := rate.NewLimiter(h.messageRate, h.burst)

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		if !limiter.Allow() {
			h.registry.SendTo(c, registry.NewErrorMessage("message rate limit exceeded"))
			continue
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.registry.SendTo(c, registry.NewErrorMessage("malformed message"))
			continue
		}

		h.registry.Identify(c, msg.UserID)
		h.handleMessage(ctx, c, msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, msg inbound) {
	switch msg.Type {
	case inboundPing:
		h.registry.SendTo(c, registry.NewPong())

	case inboundRequestWeather:
		h.handleWeatherRequest(ctx, c, msg.Lat, msg.Lon)

	case inboundSubscribeZone:
		if _, ok := h.zones.Get(msg.Zone); !ok {
			h.registry.SendTo(c, registry.NewErrorMessage("unknown zone: "+msg.Zone))
			return
		}
		h.registry.SendTo(c, registry.NewSubscriptionSuccess(msg.Zone))

	default:
		h.registry.SendTo(c, registry.NewErrorMessage("unknown message type: "+msg.Type))
	}
}

func (h *Handler) handleWeatherRequest(ctx context.Context, c *conn, lat, lon float64) {
	if h.weather == nil {
		h.registry.SendTo(c, registry.NewErrorMessage("weather service is not available"))
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	snap, err := h.weather.RequestWeather(reqCtx, lat, lon)
	if err != nil {
		if errors.Is(err, domain.ErrWeatherUnavailable) {
			h.registry.SendTo(c, registry.NewErrorMessage("weather service is not available"))
		} else {
			h.registry.SendTo(c, registry.NewErrorMessage("weather lookup failed"))
		}
		return
	}
	h.registry.SendTo(c, registry.NewWeatherUpdate("", snap))
}
