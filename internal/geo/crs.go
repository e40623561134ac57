// Package geo handles coordinate reference systems and raster
// georeferencing math.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// MaxLat is the latitude bound of the spherical Mercator projection.
const MaxLat = 85.05112878

const earthRadius = 6378137.0

// CRS identifies a coordinate reference system by EPSG code.
type CRS struct {
	EPSG int
}

// Known systems. WGS84 is the default for GeoJSON input without an
// explicit crs member.
var (
	WGS84       = CRS{EPSG: 4326}
	WebMercator = CRS{EPSG: 3857}
)

func (c CRS) String() string {
	return fmt.Sprintf("EPSG:%d", c.EPSG)
}

// IsGeographic reports whether coordinates are degrees rather than meters.
func (c CRS) IsGeographic() bool {
	return c.EPSG == 4326
}

// Transform returns the point mapping from src to dst, or an error when
// either system is unsupported.
func Transform(src, dst CRS) (func(orb.Point) orb.Point, error) {
	switch {
	case src == dst:
		return func(p orb.Point) orb.Point { return p }, nil
	case src == WGS84 && dst == WebMercator:
		return lonLatToMercator, nil
	case src == WebMercator && dst == WGS84:
		return mercatorToLonLat, nil
	default:
		return nil, fmt.Errorf("no transform from %s to %s", src, dst)
	}
}

// lonLatToMercator projects WGS84 degrees onto spherical Mercator meters.
// Latitude is clamped to the projection's valid range first.
func lonLatToMercator(p orb.Point) orb.Point {
	lat := p.Lat()
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	x := earthRadius * p.Lon() * math.Pi / 180.0
	y := earthRadius * math.Log(math.Tan(math.Pi/4.0+lat*math.Pi/360.0))

	return orb.Point{x, y}
}

// mercatorToLonLat is the inverse spherical Mercator projection.
func mercatorToLonLat(p orb.Point) orb.Point {
	lon := p[0] / earthRadius * 180.0 / math.Pi

	latRad := 2.0*math.Atan(math.Exp(p[1]/earthRadius)) - math.Pi*0.5
	lat := latRad * 180.0 / math.Pi

	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	return orb.Point{lon, lat}
}
