package vector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pljv/geokit/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [-101.5, 38.2]},
			"properties": {"name": "playa", "area_ha": 12.5}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [-100.0, 39.0]},
			"properties": {"name": "wetland", "area_ha": 3.25}
		}
	]
}`

func TestFromGeoJSON(t *testing.T) {
	v, err := FromGeoJSON([]byte(sampleGeoJSON))
	require.NoError(t, err)

	assert.Equal(t, 2, v.Len())
	assert.Equal(t, geo.WGS84, v.CRS)

	f := v.Features.Features[0]
	assert.Equal(t, orb.Point{-101.5, 38.2}, f.Geometry)
	assert.Equal(t, "playa", f.Properties["name"])
}

func TestFromGeoJSONWithCRSMember(t *testing.T) {
	doc := `{
		"type": "FeatureCollection",
		"crs": {"type": "name", "properties": {"name": "EPSG:3857"}},
		"features": []
	}`

	v, err := FromGeoJSON([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, geo.WebMercator, v.CRS)
}

func TestFromGeoJSONInvalid(t *testing.T) {
	_, err := FromGeoJSON([]byte(`{"not": "geojson"`))
	assert.Error(t, err)
}

func TestOpenUnsupportedFormat(t *testing.T) {
	_, err := Open("features.gpkg")
	assert.Error(t, err)
}

func TestGeoJSONFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.geojson")

	v, err := FromGeoJSON([]byte(sampleGeoJSON))
	require.NoError(t, err)
	require.NoError(t, v.Write(path))

	got, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Len())
	assert.Equal(t, v.Features.Features[1].Geometry, got.Features.Features[1].Geometry)
	assert.Equal(t, 3.25, got.Features.Features[1].Properties["area_ha"])
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.geojson"))
	assert.True(t, os.IsNotExist(err))
}

func TestBound(t *testing.T) {
	v, err := FromGeoJSON([]byte(sampleGeoJSON))
	require.NoError(t, err)

	b := v.Bound()
	assert.Equal(t, orb.Point{-101.5, 38.2}, b.Min)
	assert.Equal(t, orb.Point{-100.0, 39.0}, b.Max)
}

func TestEmptyCollection(t *testing.T) {
	v := New()
	assert.Equal(t, 0, v.Len())
	assert.Equal(t, orb.Bound{}, v.Bound())

	// empty collections still marshal
	data, err := v.MarshalGeoJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "FeatureCollection")
}

func TestReproject(t *testing.T) {
	v := New()
	v.Features.Append(geojson.NewFeature(orb.Point{0, 0}))
	v.Features.Append(geojson.NewFeature(orb.LineString{{0, 0}, {1, 0}}))

	require.NoError(t, v.Reproject(geo.WebMercator))
	assert.Equal(t, geo.WebMercator, v.CRS)

	ls := v.Features.Features[1].Geometry.(orb.LineString)
	assert.InDelta(t, 111319.49, ls[1][0], 0.01)

	// back again
	require.NoError(t, v.Reproject(geo.WGS84))
	ls = v.Features.Features[1].Geometry.(orb.LineString)
	assert.InDelta(t, 1.0, ls[1][0], 1e-6)
}

func TestReprojectUnsupported(t *testing.T) {
	v := New()
	assert.Error(t, v.Reproject(geo.CRS{EPSG: 2163}))
}

func TestParseEPSG(t *testing.T) {
	epsg, ok := parseEPSG("EPSG:4326")
	assert.True(t, ok)
	assert.Equal(t, 4326, epsg)

	epsg, ok = parseEPSG("urn:ogc:def:crs:EPSG::3857")
	assert.True(t, ok)
	assert.Equal(t, 3857, epsg)

	_, ok = parseEPSG("urn:ogc:def:crs:OGC:1.3:CRS84")
	assert.False(t, ok)
}
