package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pljv/geokit/internal/geo"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// readShapefile decodes geometry and DBF attributes. Shapefiles do not
// embed a CRS in the .shp itself; WGS84 is assumed and callers can
// override the field after opening.
func readShapefile(path string) (*Vector, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	fields := r.Fields()
	v := New()
	v.Filename = path

	for r.Next() {
		n, shape := r.Shape()
		row := int(n)

		g, err := shapeToGeometry(shape)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, row, err)
		}
		if g == nil {
			// null shape placeholder rows carry no geometry
			continue
		}

		f := geojson.NewFeature(g)
		for i, field := range fields {
			f.Properties[field.String()] = parseAttribute(field, r.ReadAttribute(row, i))
		}
		v.Features.Append(f)
	}

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Int("features", v.Len()).
		Int("fields", len(fields)).
		Msg("Shapefile loaded")

	return v, nil
}

// parseAttribute converts a DBF value by its declared field type.
// Numeric and float fields become float64; everything else stays a
// trimmed string.
func parseAttribute(field shp.Field, raw string) interface{} {
	raw = strings.TrimSpace(strings.TrimRight(raw, "\x00"))

	switch field.Fieldtype {
	case 'N', 'F':
		if raw == "" {
			return nil
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
		return raw
	case 'L':
		return raw == "T" || raw == "t" || raw == "Y" || raw == "y"
	default:
		return raw
	}
}

func shapeToGeometry(s shp.Shape) (orb.Geometry, error) {
	switch t := s.(type) {
	case *shp.Null:
		return nil, nil
	case *shp.Point:
		return orb.Point{t.X, t.Y}, nil
	case *shp.PointZ:
		return orb.Point{t.X, t.Y}, nil
	case *shp.PointM:
		return orb.Point{t.X, t.Y}, nil
	case *shp.MultiPoint:
		mp := make(orb.MultiPoint, len(t.Points))
		for i, p := range t.Points {
			mp[i] = orb.Point{p.X, p.Y}
		}
		return mp, nil
	case *shp.PolyLine:
		return polyLineToGeometry(t.Parts, t.Points), nil
	case *shp.PolyLineZ:
		return polyLineToGeometry(t.Parts, t.Points), nil
	case *shp.Polygon:
		return ringsToGeometry(partsToRings(t.Parts, t.Points)), nil
	case *shp.PolygonZ:
		return ringsToGeometry(partsToRings(t.Parts, t.Points)), nil
	default:
		return nil, fmt.Errorf("unsupported shape type %T", s)
	}
}

func polyLineToGeometry(parts []int32, points []shp.Point) orb.Geometry {
	lines := make(orb.MultiLineString, 0, len(parts))
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		ls := make(orb.LineString, 0, end-int(start))
		for _, p := range points[start:end] {
			ls = append(ls, orb.Point{p.X, p.Y})
		}
		lines = append(lines, ls)
	}

	if len(lines) == 1 {
		return lines[0]
	}
	return lines
}

func partsToRings(parts []int32, points []shp.Point) []orb.Ring {
	rings := make([]orb.Ring, 0, len(parts))
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		ring := make(orb.Ring, 0, end-int(start))
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

// ringsToGeometry groups shapefile rings into polygons. Outer rings are
// clockwise in the shapefile convention; counter-clockwise rings are
// holes belonging to the preceding outer ring.
func ringsToGeometry(rings []orb.Ring) orb.Geometry {
	var polys orb.MultiPolygon

	for _, ring := range rings {
		if ring.Orientation() == orb.CW || len(polys) == 0 {
			polys = append(polys, orb.Polygon{ring})
			continue
		}
		polys[len(polys)-1] = append(polys[len(polys)-1], ring)
	}

	if len(polys) == 1 {
		return polys[0]
	}
	return polys
}

// writeShapefile encodes the collection. Shapefiles hold one geometry
// class per file, so mixed collections are rejected rather than
// silently dropped.
func (v *Vector) writeShapefile(path string) error {
	if v.Len() == 0 {
		return fmt.Errorf("refusing to write an empty shapefile: %s", path)
	}

	shapeType, err := commonShapeType(v.Features.Features)
	if err != nil {
		return err
	}

	fields, names := attributeFields(v.Features.Features)

	w, err := shp.Create(path, shapeType)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	err = func() error {
		defer w.Close()

		if err := w.SetFields(fields); err != nil {
			return fmt.Errorf("dbf schema for %s: %w", path, err)
		}

		for _, f := range v.Features.Features {
			shape, err := geometryToShape(f.Geometry, shapeType)
			if err != nil {
				return err
			}
			row := int(w.Write(shape))

			for i, name := range names {
				val := f.Properties[name]
				if val == nil {
					val = ""
				}
				if err := w.WriteAttribute(row, i, val); err != nil {
					return fmt.Errorf("attribute %s row %d: %w", name, row, err)
				}
			}
		}
		return nil
	}()
	if err != nil {
		return err
	}

	// go-shp emits the attribute table as <base>dbf while its reader
	// opens <base>.dbf; move the sidecar once the writer has flushed.
	base := strings.TrimSuffix(path, ".shp")
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return fmt.Errorf("dbf sidecar for %s: %w", path, err)
	}

	if v.CRS == geo.WGS84 {
		// best effort .prj so downstream tools see the datum
		writePrjSidecar(path)
	}

	return nil
}

func commonShapeType(features []*geojson.Feature) (shp.ShapeType, error) {
	var st shp.ShapeType

	for _, f := range features {
		var t shp.ShapeType
		switch f.Geometry.(type) {
		case orb.Point:
			t = shp.POINT
		case orb.MultiPoint:
			t = shp.MULTIPOINT
		case orb.LineString, orb.MultiLineString:
			t = shp.POLYLINE
		case orb.Polygon, orb.MultiPolygon:
			t = shp.POLYGON
		default:
			return 0, fmt.Errorf("geometry %T cannot be stored in a shapefile", f.Geometry)
		}
		if st == 0 {
			st = t
		} else if st != t {
			return 0, fmt.Errorf("mixed geometry types %v and %v in one shapefile", st, t)
		}
	}

	return st, nil
}

func geometryToShape(g orb.Geometry, st shp.ShapeType) (shp.Shape, error) {
	switch t := g.(type) {
	case orb.Point:
		return &shp.Point{X: t[0], Y: t[1]}, nil
	case orb.MultiPoint:
		pts := make([]shp.Point, len(t))
		for i, p := range t {
			pts[i] = shp.Point{X: p[0], Y: p[1]}
		}
		mp := &shp.MultiPoint{NumPoints: int32(len(pts)), Points: pts}
		mp.Box = shapeBox(t.Bound())
		return mp, nil
	case orb.LineString:
		return buildPolyLine([]orb.LineString{t}, t.Bound()), nil
	case orb.MultiLineString:
		lines := make([]orb.LineString, len(t))
		copy(lines, t)
		return buildPolyLine(lines, t.Bound()), nil
	case orb.Polygon:
		pl := buildPolyLine(polygonLines(t), t.Bound())
		return (*shp.Polygon)(pl), nil
	case orb.MultiPolygon:
		var lines []orb.LineString
		for _, p := range t {
			lines = append(lines, polygonLines(p)...)
		}
		pl := buildPolyLine(lines, t.Bound())
		return (*shp.Polygon)(pl), nil
	default:
		return nil, fmt.Errorf("geometry %T cannot be stored in a shapefile", g)
	}
}

// polygonLines returns rings in shapefile winding: outer ring
// clockwise, holes counter-clockwise.
func polygonLines(p orb.Polygon) []orb.LineString {
	lines := make([]orb.LineString, 0, len(p))
	for i, ring := range p {
		r := make(orb.Ring, len(ring))
		copy(r, ring)

		outer := i == 0
		if (outer && r.Orientation() == orb.CCW) || (!outer && r.Orientation() == orb.CW) {
			r.Reverse()
		}
		lines = append(lines, orb.LineString(r))
	}
	return lines
}

func buildPolyLine(lines []orb.LineString, bound orb.Bound) *shp.PolyLine {
	pl := &shp.PolyLine{
		NumParts: int32(len(lines)),
		Box:      shapeBox(bound),
	}

	for _, ls := range lines {
		pl.Parts = append(pl.Parts, int32(len(pl.Points)))
		for _, p := range ls {
			pl.Points = append(pl.Points, shp.Point{X: p[0], Y: p[1]})
		}
	}
	pl.NumPoints = int32(len(pl.Points))

	return pl
}

func shapeBox(b orb.Bound) shp.Box {
	return shp.Box{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]}
}

// wgs84WKT is the well-known text most tools expect in a .prj sidecar.
const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

func writePrjSidecar(shpPath string) {
	prj := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
	if err := os.WriteFile(prj, []byte(wgs84WKT), 0644); err != nil {
		log.Warn().Err(err).Str("path", prj).Msg("Failed to write .prj sidecar")
	}
}

// attributeFields derives a DBF schema from the union of property keys.
// Keys are truncated to the 10-character DBF limit.
func attributeFields(features []*geojson.Feature) ([]shp.Field, []string) {
	numeric := map[string]bool{}
	var names []string
	seen := map[string]bool{}

	for _, f := range features {
		for k, val := range f.Properties {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
				numeric[k] = true
			}
			switch val.(type) {
			case float64, float32, int, int64, nil:
			default:
				numeric[k] = false
			}
		}
	}

	// deterministic column order
	sort.Strings(names)

	fields := make([]shp.Field, 0, len(names))
	for _, name := range names {
		col := name
		if len(col) > 10 {
			col = col[:10]
		}
		if numeric[name] {
			fields = append(fields, shp.FloatField(col, 19, 8))
		} else {
			fields = append(fields, shp.StringField(col, 64))
		}
	}

	return fields, names
}
