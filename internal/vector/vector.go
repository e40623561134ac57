// Package vector handles feature-based geospatial data: shapefile and
// GeoJSON input/output, reprojection, and attribute handling.
package vector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pljv/geokit/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// Vector is a feature collection with a coordinate reference system.
// Feature properties carry the attribute table.
type Vector struct {
	Filename string
	CRS      geo.CRS
	Features *geojson.FeatureCollection
}

// New returns an empty vector in WGS84. An empty specification is
// allowed; features can be appended and written later.
func New() *Vector {
	return &Vector{
		CRS:      geo.WGS84,
		Features: geojson.NewFeatureCollection(),
	}
}

// Open reads a vector dataset, dispatching on the file extension:
// .shp for ESRI shapefiles, .geojson or .json for GeoJSON.
func Open(path string) (*Vector, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return readShapefile(path)
	case ".geojson", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		v, err := FromGeoJSON(data)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		v.Filename = path
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported vector format: %s", path)
	}
}

// FromGeoJSON builds a vector from a GeoJSON feature collection
// document. RFC 7946 fixes the CRS to WGS84, so that is assumed when
// no crs member is present.
func FromGeoJSON(data []byte) (*Vector, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	v := &Vector{CRS: geo.WGS84, Features: fc}

	// Legacy documents may carry a crs member; honor an EPSG reference
	// if one parses.
	var doc struct {
		CRS *struct {
			Properties struct {
				Name string `json:"name"`
			} `json:"properties"`
		} `json:"crs"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.CRS != nil {
		if epsg, ok := parseEPSG(doc.CRS.Properties.Name); ok {
			v.CRS = geo.CRS{EPSG: epsg}
		}
	} else if doc.CRS == nil {
		log.Debug().Msg("No crs member in GeoJSON input, assuming EPSG:4326")
	}

	return v, nil
}

func parseEPSG(name string) (int, bool) {
	// Accepts "EPSG:4326" and the OGC urn form.
	name = strings.ToUpper(name)
	idx := strings.LastIndexAny(name, ":")
	if idx < 0 || !strings.Contains(name, "EPSG") {
		return 0, false
	}
	var epsg int
	if _, err := fmt.Sscanf(name[idx+1:], "%d", &epsg); err != nil {
		return 0, false
	}
	return epsg, true
}

// Write stores the collection, dispatching on the file extension the
// same way Open does.
func (v *Vector) Write(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return v.writeShapefile(path)
	case ".geojson", ".json":
		data, err := v.MarshalGeoJSON()
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	default:
		return fmt.Errorf("unsupported vector format: %s", path)
	}
}

// MarshalGeoJSON encodes the collection as a GeoJSON document.
func (v *Vector) MarshalGeoJSON() ([]byte, error) {
	return json.Marshal(v.Features)
}

// Bound returns the bounding box of all features, or a zero bound for
// an empty collection.
func (v *Vector) Bound() orb.Bound {
	var b orb.Bound
	for i, f := range v.Features.Features {
		if i == 0 {
			b = f.Geometry.Bound()
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b
}

// Len returns the feature count.
func (v *Vector) Len() int {
	return len(v.Features.Features)
}

// Reproject transforms every coordinate into dst and updates the CRS.
func (v *Vector) Reproject(dst geo.CRS) error {
	tf, err := geo.Transform(v.CRS, dst)
	if err != nil {
		return err
	}

	for _, f := range v.Features.Features {
		f.Geometry = mapPoints(f.Geometry, tf)
	}
	v.CRS = dst

	return nil
}

// mapPoints applies fn to every coordinate of g.
func mapPoints(g orb.Geometry, fn func(orb.Point) orb.Point) orb.Geometry {
	switch t := g.(type) {
	case orb.Point:
		return fn(t)
	case orb.MultiPoint:
		for i := range t {
			t[i] = fn(t[i])
		}
		return t
	case orb.LineString:
		for i := range t {
			t[i] = fn(t[i])
		}
		return t
	case orb.MultiLineString:
		for i := range t {
			mapPoints(t[i], fn)
		}
		return t
	case orb.Ring:
		for i := range t {
			t[i] = fn(t[i])
		}
		return t
	case orb.Polygon:
		for i := range t {
			mapPoints(t[i], fn)
		}
		return t
	case orb.MultiPolygon:
		for i := range t {
			mapPoints(t[i], fn)
		}
		return t
	case orb.Collection:
		for i := range t {
			t[i] = mapPoints(t[i], fn)
		}
		return t
	default:
		return g
	}
}
