package ws_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrotech/groundwater-serve/internal/adapter/ws"
	"github.com/hydrotech/groundwater-serve/internal/config"
	"github.com/hydrotech/groundwater-serve/internal/domain"
	"github.com/hydrotech/groundwater-serve/internal/observability"
	"github.com/hydrotech/groundwater-serve/internal/registry"
)

// --- mocks ---

type stubWeather struct {
	snap domain.WeatherSnapshot
	err  error
}

func (s *stubWeather) RequestWeather(context.Context, float64, float64) (domain.WeatherSnapshot, error) {
	if s.err != nil {
		return domain.WeatherSnapshot{}, s.err
	}
	return s.snap, nil
}

// --- helpers ---

func testConfig() *config.Config {
	return &config.Config{
		WSSendTimeout:     time.Second,
		WSMaxMessageBytes: 4096,
		WSMessagesPerSec:  100,
		WSBurst:           100,
	}
}

func testZones(t *testing.T) *domain.ZoneSet {
	t.Helper()
	zones, err := domain.ParseZonesJSON(strings.NewReader(`{
		"A": {
			"name": "Urban",
			"lat_range": [28.6, 28.8],
			"lon_range": [77.1, 77.3],
			"avg_rainfall": {"7": 221.0},
			"avg_level": 11.8,
			"reliability": 0.85
		}
	}`))
	require.NoError(t, err)
	return zones
}

type fixture struct {
	reg  *registry.Registry
	peer *websocket.Conn
}

// dial spins up the handler on a test server and opens one client
// connection, consuming the connection_success greeting.
func dial(t *testing.T, weather ws.WeatherRequester, query string) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(logger, observability.NewMetricsForTesting())
	h := ws.NewHandler(testConfig(), reg, weather, testZones(t), logger)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	peer, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = peer.Close() })

	greeting := readEnvelope(t, peer)
	require.Equal(t, "connection_success", greeting["type"])

	return &fixture{reg: reg, peer: peer}
}

func readEnvelope(t *testing.T, peer *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := peer.ReadMessage()
	require.NoError(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.NotEmpty(t, envelope["timestamp"], "every envelope carries a timestamp")
	return envelope
}

func send(t *testing.T, peer *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, peer.WriteJSON(v))
}

// --- tests ---

func TestHandler_PingPong(t *testing.T) {
	f := dial(t, nil, "")

	send(t, f.peer, map[string]any{"type": "ping"})
	envelope := readEnvelope(t, f.peer)
	assert.Equal(t, "pong", envelope["type"])
}

func TestHandler_SubscribeZone(t *testing.T) {
	f := dial(t, nil, "")

	send(t, f.peer, map[string]any{"type": "subscribe_zone", "zone": "A"})
	envelope := readEnvelope(t, f.peer)
	assert.Equal(t, "subscription_success", envelope["type"])
	assert.Equal(t, "A", envelope["zone"])
}

func TestHandler_SubscribeUnknownZone(t *testing.T) {
	f := dial(t, nil, "")

	send(t, f.peer, map[string]any{"type": "subscribe_zone", "zone": "Z"})
	envelope := readEnvelope(t, f.peer)
	assert.Equal(t, "error", envelope["type"])
	assert.Contains(t, envelope["message"], "unknown zone")
}

func TestHandler_RequestWeather(t *testing.T) {
	weather := &stubWeather{snap: domain.WeatherSnapshot{TemperatureC: 28.4, RainfallMM: 5.4, Description: "moderate rain"}}
	f := dial(t, weather, "")

	send(t, f.peer, map[string]any{"type": "request_weather", "lat": 28.7, "lon": 77.2})
	envelope := readEnvelope(t, f.peer)
	require.Equal(t, "weather_update", envelope["type"])

	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 28.4, data["temperature_c"])
}

func TestHandler_RequestWeatherUnavailable(t *testing.T) {
	weather := &stubWeather{err: domain.ErrWeatherUnavailable}
	f := dial(t, weather, "")

	send(t, f.peer, map[string]any{"type": "request_weather", "lat": 28.7, "lon": 77.2})
	envelope := readEnvelope(t, f.peer)
	assert.Equal(t, "error", envelope["type"])
}

func TestHandler_WeatherDisabled(t *testing.T) {
	f := dial(t, nil, "")

	send(t, f.peer, map[string]any{"type": "request_weather", "lat": 28.7, "lon": 77.2})
	envelope := readEnvelope(t, f.peer)
	assert.Equal(t, "error", envelope["type"])
	assert.Contains(t, envelope["message"], "not available")
}

func TestHandler_MalformedMessageKeepsConnection(t *testing.T) {
	f := dial(t, nil, "")

	require.NoError(t, f.peer.WriteMessage(websocket.TextMessage, []byte("{not json")))
	envelope := readEnvelope(t, f.peer)
	assert.Equal(t, "error", envelope["type"])

	// The connection survives and keeps serving.
	send(t, f.peer, map[string]any{"type": "ping"})
	envelope = readEnvelope(t, f.peer)
	assert.Equal(t, "pong", envelope["type"])
}

func TestHandler_UnknownTypeYieldsError(t *testing.T) {
	f := dial(t, nil, "")

	send(t, f.peer, map[string]any{"type": "shutdown_everything"})
	envelope := readEnvelope(t, f.peer)
	assert.Equal(t, "error", envelope["type"])
	assert.Contains(t, envelope["message"], "unknown message type")
}

func TestHandler_UserIDQueryParamBindsUser(t *testing.T) {
	f := dial(t, nil, "?user_id=u1")

	assert.Equal(t, 1, f.reg.ActiveCount())
	assert.Equal(t, 1, f.reg.UserCount())
}

func TestHandler_LateIdentifyViaControlMessage(t *testing.T) {
	f := dial(t, nil, "")
	require.Equal(t, 0, f.reg.UserCount())

	send(t, f.peer, map[string]any{"type": "ping", "user_id": "u1"})
	envelope := readEnvelope(t, f.peer)
	require.Equal(t, "pong", envelope["type"])

	assert.Equal(t, 1, f.reg.UserCount())
}

func TestHandler_CloseDisconnectsExactlyOnce(t *testing.T) {
	f := dial(t, nil, "?user_id=u1")
	require.Equal(t, 1, f.reg.ActiveCount())

	require.NoError(t, f.peer.Close())

	assert.Eventually(t, func() bool {
		return f.reg.ActiveCount() == 0 && f.reg.UserCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RateLimitAnswersWithError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(logger, observability.NewMetricsForTesting())
	cfg := testConfig()
	cfg.WSMessagesPerSec = 1
	cfg.WSBurst = 1
	h := ws.NewHandler(cfg, reg, nil, testZones(t), logger)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = peer.Close() })
	require.Equal(t, "connection_success", readEnvelope(t, peer)["type"])

	// First message consumes the burst, the second trips the limiter.
	send(t, peer, map[string]any{"type": "ping"})
	require.Equal(t, "pong", readEnvelope(t, peer)["type"])

	send(t, peer, map[string]any{"type": "ping"})
	envelope := readEnvelope(t, peer)
	assert.Equal(t, "error", envelope["type"])
	assert.Contains(t, envelope["message"], "rate limit")
}

func TestHandler_BroadcastReachesSubscriber(t *testing.T) {
	f := dial(t, nil, "")

	f.reg.Broadcast(registry.NewSystemNotification(registry.LevelInfo, "maintenance at midnight"))
	envelope := readEnvelope(t, f.peer)
	assert.Equal(t, "system_notification", envelope["type"])
	assert.Equal(t, "info", envelope["level"])
}
