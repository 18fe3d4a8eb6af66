package service_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hydrotech/groundwater-serve/internal/domain"
	"github.com/hydrotech/groundwater-serve/internal/observability"
	"github.com/hydrotech/groundwater-serve/internal/registry"
	"github.com/hydrotech/groundwater-serve/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pollerSetup wires a poller against the real clock with millisecond
// intervals so Run cycles several times inside a short context deadline.
func pollerSetup(t *testing.T, weather *mockWeather) (*service.Poller, *fakeConn, *domain.ZoneSet) {
	t.Helper()
	zones := testZones(t)
	metrics := observability.NewMetricsForTesting()
	reg := registry.New(slog.Default(), metrics)
	conn := &fakeConn{}
	reg.Connect(conn, "")
	p := service.NewPoller(testConfig(), weather, zones, reg, slog.Default(), metrics)
	return p, conn, zones
}

func TestPoller_BroadcastsZoneWeather(t *testing.T) {
	weather := &mockWeather{snap: domain.WeatherSnapshot{
		TemperatureC: 31.0,
		Description:  "overcast clouds",
	}}
	p, conn, zones := pollerSetup(t, weather)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	msgs := conn.messages()
	require.GreaterOrEqual(t, len(msgs), 2)

	first, ok := msgs[0].(registry.WeatherUpdate)
	require.True(t, ok)
	assert.Equal(t, "A", first.Zone)
	assert.Equal(t, weather.snap, first.Data)

	second, ok := msgs[1].(registry.WeatherUpdate)
	require.True(t, ok)
	assert.Equal(t, "B", second.Zone)

	// Lookups hit each zone centroid in configuration order.
	zoneA, _ := zones.Get("A")
	wantLat, wantLon := zoneA.Centroid()
	weather.mu.Lock()
	gotFirst := weather.coords[0]
	weather.mu.Unlock()
	assert.Equal(t, [2]float64{wantLat, wantLon}, gotFirst)
}

func TestPoller_SkipsFailingZone(t *testing.T) {
	weather := &mockWeather{snap: domain.WeatherSnapshot{TemperatureC: 29.0}}
	p, conn, zones := pollerSetup(t, weather)

	zoneA, _ := zones.Get("A")
	lat, lon := zoneA.Centroid()
	weather.errOn = &[2]float64{lat, lon}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	msgs := conn.messages()
	require.NotEmpty(t, msgs)
	for _, msg := range msgs {
		update, ok := msg.(registry.WeatherUpdate)
		require.True(t, ok)
		assert.Equal(t, "B", update.Zone)
	}
}

func TestPoller_ContinuesAfterTotalFailure(t *testing.T) {
	weather := &mockWeather{err: errors.New("api quota exceeded")}
	p, conn, _ := pollerSetup(t, weather)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	// The loop retried on the short backoff instead of terminating.
	assert.GreaterOrEqual(t, weather.calls(), 4)
	assert.Empty(t, conn.messages())
}
