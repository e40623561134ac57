package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformIdentity(t *testing.T) {
	tf, err := Transform(WGS84, WGS84)
	require.NoError(t, err)

	p := orb.Point{-101.5, 38.2}
	assert.Equal(t, p, tf(p))
}

func TestTransformRoundTrip(t *testing.T) {
	fwd, err := Transform(WGS84, WebMercator)
	require.NoError(t, err)
	inv, err := Transform(WebMercator, WGS84)
	require.NoError(t, err)

	cases := []orb.Point{
		{0, 0},
		{-101.5, 38.2},
		{179.9, -45},
		{-180, 85},
	}

	for _, p := range cases {
		got := inv(fwd(p))
		assert.InDelta(t, p.Lon(), got.Lon(), 1e-6)
		assert.InDelta(t, p.Lat(), got.Lat(), 1e-6)
	}
}

func TestTransformKnownPoint(t *testing.T) {
	fwd, err := Transform(WGS84, WebMercator)
	require.NoError(t, err)

	// equator, prime meridian
	assert.Equal(t, orb.Point{0, 0}, fwd(orb.Point{0, 0}))

	// one degree of longitude at the equator
	p := fwd(orb.Point{1, 0})
	assert.InDelta(t, 111319.49, p[0], 0.01)
}

func TestTransformClampsLatitude(t *testing.T) {
	fwd, err := Transform(WGS84, WebMercator)
	require.NoError(t, err)

	extreme := fwd(orb.Point{0, 89.9})
	clamped := fwd(orb.Point{0, MaxLat})
	assert.Equal(t, clamped, extreme)
}

func TestTransformUnsupported(t *testing.T) {
	_, err := Transform(CRS{EPSG: 2163}, WebMercator)
	assert.Error(t, err)
}

func TestCRSString(t *testing.T) {
	assert.Equal(t, "EPSG:4326", WGS84.String())
	assert.True(t, WGS84.IsGeographic())
	assert.False(t, WebMercator.IsGeographic())
}
