package geo

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// GeoTransform is an affine grid-to-world mapping in GDAL coefficient
// order: origin X, pixel width, row rotation, origin Y, column rotation,
// pixel height. Pixel height is negative for north-up rasters. The origin
// is the outer corner of the top-left cell.
type GeoTransform [6]float64

// NewGeoTransform builds a north-up transform from an origin corner and
// cell size.
func NewGeoTransform(originX, originY, cellW, cellH float64) GeoTransform {
	return GeoTransform{originX, cellW, 0, originY, 0, -cellH}
}

// World returns the coordinates of the center of cell (col, row).
func (t GeoTransform) World(col, row int) orb.Point {
	fc := float64(col) + 0.5
	fr := float64(row) + 0.5
	return orb.Point{
		t[0] + fc*t[1] + fr*t[2],
		t[3] + fc*t[4] + fr*t[5],
	}
}

// Cell returns the (col, row) holding the world point p. The result may
// be outside the grid; bounds checking is the caller's concern.
func (t GeoTransform) Cell(p orb.Point) (col, row int) {
	// Invert the affine mapping. Determinant is nonzero for any raster
	// with nonzero cell sizes.
	det := t[1]*t[5] - t[2]*t[4]
	dx := p[0] - t[0]
	dy := p[1] - t[3]

	fc := (dx*t[5] - dy*t[2]) / det
	fr := (dy*t[1] - dx*t[4]) / det

	return int(math.Floor(fc)), int(math.Floor(fr))
}

// CellWidth returns the horizontal cell size.
func (t GeoTransform) CellWidth() float64 { return t[1] }

// CellHeight returns the vertical cell size as a positive value.
func (t GeoTransform) CellHeight() float64 {
	if t[5] < 0 {
		return -t[5]
	}
	return t[5]
}

// Bound returns the world extent of a w x h grid.
func (t GeoTransform) Bound(w, h int) orb.Bound {
	c0 := orb.Point{t[0], t[3]}
	c1 := orb.Point{
		t[0] + float64(w)*t[1] + float64(h)*t[2],
		t[3] + float64(w)*t[4] + float64(h)*t[5],
	}
	return orb.MultiPoint{c0, c1}.Bound()
}

// WriteWorldFile encodes the transform in ESRI world file order:
// pixel width, row rotation, column rotation, pixel height, then the
// center of the top-left cell.
func (t GeoTransform) WriteWorldFile(w io.Writer) error {
	center := t.World(0, 0)
	lines := []float64{t[1], t[2], t[4], t[5], center[0], center[1]}

	for _, v := range lines {
		if _, err := fmt.Fprintf(w, "%.10f\n", v); err != nil {
			return err
		}
	}

	return nil
}

// ReadWorldFile parses the six-line ESRI world file format.
func ReadWorldFile(r io.Reader) (GeoTransform, error) {
	var vals []float64

	scan := bufio.NewScanner(r)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return GeoTransform{}, fmt.Errorf("world file: bad line %q: %w", line, err)
		}
		vals = append(vals, v)
	}
	if err := scan.Err(); err != nil {
		return GeoTransform{}, err
	}
	if len(vals) < 6 {
		return GeoTransform{}, fmt.Errorf("world file: expected 6 values, got %d", len(vals))
	}

	// World files reference the cell center; shift back to the corner.
	cellW, rotRow, rotCol, cellH := vals[0], vals[1], vals[2], vals[3]
	originX := vals[4] - 0.5*cellW - 0.5*rotRow
	originY := vals[5] - 0.5*rotCol - 0.5*cellH

	return GeoTransform{originX, cellW, rotRow, originY, rotCol, cellH}, nil
}
