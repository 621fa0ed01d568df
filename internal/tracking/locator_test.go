package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/FooledKiwi/busease/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stops roughly 1.1 km apart along a meridian.
var testStops = map[string]geo.Point{
	"S1": {Lat: -12.000, Lng: -77.000},
	"S2": {Lat: -12.010, Lng: -77.000},
	"S3": {Lat: -12.020, Lng: -77.000},
}

func mapResolver(m map[string]geo.Point) Resolver {
	return ResolverFunc(func(_ context.Context, id string) (geo.Point, bool, error) {
		p, ok := m[id]
		return p, ok, nil
	})
}

func TestLocator_WithinRangeOfOneStop(t *testing.T) {
	l := NewLocator(mapResolver(testStops), DefaultThresholdMeters)

	idx, ok, err := l.Locate(context.Background(), geo.Point{Lat: -12.0101, Lng: -77.0}, []string{"S1", "S2", "S3"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestLocator_NoStopInRange(t *testing.T) {
	l := NewLocator(mapResolver(testStops), DefaultThresholdMeters)

	idx, ok, err := l.Locate(context.Background(), geo.Point{Lat: -12.005, Lng: -77.0}, []string{"S1", "S2", "S3"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
}

func TestLocator_FurthestAlongWins(t *testing.T) {
	// Two stops sharing a location: both are in range, the later one wins.
	stops := map[string]geo.Point{
		"A": {Lat: 0, Lng: 0},
		"B": {Lat: 0.0005, Lng: 0},
		"C": {Lat: 0.0010, Lng: 0},
		"D": {Lat: 0.5, Lng: 0},
	}
	l := NewLocator(mapResolver(stops), DefaultThresholdMeters)

	idx, ok, err := l.Locate(context.Background(), geo.Point{Lat: 0.0005, Lng: 0}, []string{"A", "B", "C", "D"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestLocator_ThresholdIsInclusive(t *testing.T) {
	fix := geo.Point{Lat: 0, Lng: 0}
	stop := geo.Point{Lat: 0.001, Lng: 0}
	exact := fix.DistanceTo(stop)

	l := NewLocator(mapResolver(map[string]geo.Point{"A": stop}), exact)
	_, ok, err := l.Locate(context.Background(), fix, []string{"A"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocator_SkipsUnresolvableStops(t *testing.T) {
	l := NewLocator(mapResolver(testStops), DefaultThresholdMeters)

	idx, ok, err := l.Locate(context.Background(), geo.Point{Lat: -12.0, Lng: -77.0}, []string{"missing", "S1", "ghost"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestLocator_ResolverError(t *testing.T) {
	boom := errors.New("store unreachable")
	l := NewLocator(ResolverFunc(func(context.Context, string) (geo.Point, bool, error) {
		return geo.Point{}, false, boom
	}), DefaultThresholdMeters)

	_, ok, err := l.Locate(context.Background(), geo.Point{}, []string{"S1"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}

func TestLocator_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultThresholdMeters, NewLocator(mapResolver(nil), 0).Threshold())
	assert.Equal(t, 50.0, NewLocator(mapResolver(nil), 50).Threshold())
}

func TestLocator_EmptyRoute(t *testing.T) {
	l := NewLocator(mapResolver(testStops), DefaultThresholdMeters)
	_, ok, err := l.Locate(context.Background(), geo.Point{}, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
