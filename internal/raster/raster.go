// Package raster handles gridded geospatial data: reading and writing
// GeoTIFF and ESRI ASCII grids, nodata masking, reclassification, and
// preview rendering.
package raster

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pljv/geokit/internal/geo"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/mem"
)

// DefaultNoData is the nodata value assumed for 16-bit unsigned input
// that does not declare one.
const DefaultNoData = 65535

// Raster is a single-band grid. Cell values are held as float64
// regardless of the on-disk sample type; NoData marks missing cells.
type Raster struct {
	Filename  string
	Data      []float64
	Width     int
	Height    int
	NoData    float64
	Transform geo.GeoTransform
	CRS       geo.CRS
}

// Option adjusts how a raster is opened.
type Option func(*openOptions)

type openOptions struct {
	noData float64
	crs    geo.CRS
}

// WithNoData overrides the nodata value assumed for the file.
func WithNoData(v float64) Option {
	return func(o *openOptions) { o.noData = v }
}

// WithCRS declares the coordinate system of the file. Neither supported
// format carries one inline.
func WithCRS(c geo.CRS) Option {
	return func(o *openOptions) { o.crs = c }
}

// New returns a zero-filled raster with a unit geotransform.
func New(width, height int) *Raster {
	return &Raster{
		Data:      make([]float64, width*height),
		Width:     width,
		Height:    height,
		NoData:    DefaultNoData,
		Transform: geo.NewGeoTransform(0, float64(height), 1, 1),
		CRS:       geo.WGS84,
	}
}

// Open reads a raster file, dispatching on the file extension.
// GeoTIFF pixel data pairs with a .tfw world file for georeferencing;
// ESRI ASCII grids are self-describing.
func Open(path string, opts ...Option) (*Raster, error) {
	o := openOptions{noData: DefaultNoData, crs: geo.WGS84}
	for _, opt := range opts {
		opt(&o)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return readTIFF(path, o)
	case ".asc":
		return readASCGrid(path, o)
	default:
		return nil, fmt.Errorf("unsupported raster format: %s", path)
	}
}

// Write stores the raster, dispatching on the file extension. TIFF
// output quantizes to 16-bit unsigned and writes a world file next to
// the image; .asc output keeps float precision.
func (r *Raster) Write(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return r.writeTIFF(path)
	case ".asc":
		return r.writeASCGrid(path)
	default:
		return fmt.Errorf("unsupported raster format: %s", path)
	}
}

// At returns the value of cell (col, row).
func (r *Raster) At(col, row int) float64 {
	return r.Data[row*r.Width+col]
}

// Set assigns the value of cell (col, row).
func (r *Raster) Set(col, row int, v float64) {
	r.Data[row*r.Width+col] = v
}

// IsNoData reports whether v is the missing-cell marker.
func (r *Raster) IsNoData(v float64) bool {
	return v == r.NoData
}

// Fill replaces every nodata cell with v. Focal filters fill with zero
// before running, matching the masked-array fill the analyses expect.
func (r *Raster) Fill(v float64) {
	for i, d := range r.Data {
		if d == r.NoData {
			r.Data[i] = v
		}
	}
}

// Mask returns true for every valid (non-nodata) cell.
func (r *Raster) Mask() []bool {
	m := make([]bool, len(r.Data))
	for i, d := range r.Data {
		m[i] = d != r.NoData
	}
	return m
}

// Clone returns a deep copy sharing no data with the receiver.
func (r *Raster) Clone() *Raster {
	out := *r
	out.Data = make([]float64, len(r.Data))
	copy(out.Data, r.Data)
	return &out
}

// Bound returns the world-coordinate extent of the grid.
func (r *Raster) Bound() orb.Bound {
	return r.Transform.Bound(r.Width, r.Height)
}

// EstimateBytes reports the in-memory cost of cellCount float64 cells.
func EstimateBytes(cellCount int) uint64 {
	return uint64(cellCount) * 8
}

// EnsureMemory fails when an allocation of need bytes would exceed free
// RAM. A probe failure only logs; refusing work on a platform we cannot
// measure would be worse than trying.
func EnsureMemory(need uint64) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("Could not probe free memory, continuing")
		return nil
	}

	if need > vm.Free {
		return fmt.Errorf("operation needs %d bytes but only %d free", need, vm.Free)
	}

	return nil
}

// sanitizeNoData coerces a negative nodata value to zero for unsigned
// sample data, where it could never match a cell.
func sanitizeNoData(ndv float64) float64 {
	if ndv < 0 {
		log.Warn().
			Float64("nodata", ndv).
			Msg("Nodata value is negative but samples are unsigned, forcing 0")
		return 0
	}
	return ndv
}
