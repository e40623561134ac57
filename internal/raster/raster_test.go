package raster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pljv/geokit/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUnsupportedFormat(t *testing.T) {
	_, err := Open("elevation.png")
	assert.Error(t, err)
}

func TestWriteUnsupportedFormat(t *testing.T) {
	r := New(2, 2)
	assert.Error(t, r.Write("out.png"))
}

func TestTIFFRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.tif")

	src := New(4, 3)
	src.Transform = geo.NewGeoTransform(442000, 4100000, 30, 30)
	for i := range src.Data {
		src.Data[i] = float64(i * 100)
	}
	src.Set(2, 1, src.NoData)

	require.NoError(t, src.Write(path))

	// sidecar world file must exist
	_, err := os.Stat(filepath.Join(dir, "grid.tfw"))
	require.NoError(t, err)

	got, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, src.Width, got.Width)
	assert.Equal(t, src.Height, got.Height)
	assert.Equal(t, src.Data, got.Data)
	for i := range src.Transform {
		assert.InDelta(t, src.Transform[i], got.Transform[i], 1e-6)
	}
}

func TestTIFFWithoutWorldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.tif")

	src := New(2, 2)
	require.NoError(t, src.Write(path))
	require.NoError(t, os.Remove(filepath.Join(dir, "grid.tfw")))

	got, err := Open(path)
	require.NoError(t, err)

	// unit transform keeps array analyses usable
	assert.Equal(t, 1.0, got.Transform.CellWidth())
	assert.Equal(t, 1.0, got.Transform.CellHeight())
}

func TestASCGridRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.asc")

	src := New(3, 2)
	src.NoData = -9999
	src.Transform = geo.NewGeoTransform(100, 260, 30, 30)
	copy(src.Data, []float64{1.5, 2, -9999, 4, 5.25, 6})

	require.NoError(t, src.Write(path))

	got, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, src.Width, got.Width)
	assert.Equal(t, src.Height, got.Height)
	assert.Equal(t, src.NoData, got.NoData)
	assert.Equal(t, src.Data, got.Data)
	for i := range src.Transform {
		assert.InDelta(t, src.Transform[i], got.Transform[i], 1e-9)
	}
}

func TestASCGridRejectsRectangularCells(t *testing.T) {
	r := New(2, 2)
	r.Transform = geo.NewGeoTransform(0, 2, 30, 10)
	assert.Error(t, r.Write(filepath.Join(t.TempDir(), "bad.asc")))
}

func TestASCGridParseErrors(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"missing_header.asc": "ncols 2\nnrows 2\n1 2\n3 4\n",
		"short_data.asc":     "ncols 2\nnrows 2\ncellsize 30\n1 2 3\n",
		"bad_cell.asc":       "ncols 2\nnrows 1\ncellsize 30\n1 x\n",
	}

	for name, body := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))

		_, err := Open(path)
		assert.Error(t, err, name)
	}
}

func TestReclassify(t *testing.T) {
	r := New(3, 1)
	r.NoData = 255
	copy(r.Data, []float64{2, 9, 255})

	r.Reclassify([]float64{2, 3}, 1)

	assert.Equal(t, []float64{1, 0, 255}, r.Data)
}

func TestFillAndMask(t *testing.T) {
	r := New(2, 2)
	r.NoData = -1
	copy(r.Data, []float64{5, -1, 7, -1})

	assert.Equal(t, []bool{true, false, true, false}, r.Mask())

	r.Fill(0)
	assert.Equal(t, []float64{5, 0, 7, 0}, r.Data)
}

func TestCloneIsIndependent(t *testing.T) {
	r := New(2, 1)
	copy(r.Data, []float64{1, 2})

	c := r.Clone()
	c.Set(0, 0, 42)

	assert.Equal(t, 1.0, r.At(0, 0))
	assert.Equal(t, 42.0, c.At(0, 0))
}

func TestSanitizeNoData(t *testing.T) {
	assert.Equal(t, 0.0, sanitizeNoData(-9999))
	assert.Equal(t, 65535.0, sanitizeNoData(65535))
}

func TestClampUint16(t *testing.T) {
	assert.Equal(t, uint16(0), clampUint16(-5))
	assert.Equal(t, uint16(65535), clampUint16(1e9))
	assert.Equal(t, uint16(7), clampUint16(7.4))
	assert.Equal(t, uint16(8), clampUint16(7.6))
}

func TestPreviewDimensions(t *testing.T) {
	r := New(100, 50)
	for i := range r.Data {
		r.Data[i] = float64(i % 7)
	}

	img := r.Preview(25)
	b := img.Bounds()
	assert.Equal(t, 25, b.Dx())
	assert.Equal(t, 12, b.Dy())

	// small rasters pass through unscaled
	small := New(10, 10)
	assert.Equal(t, 10, small.Preview(25).Bounds().Dx())
}

func TestEstimateBytes(t *testing.T) {
	assert.Equal(t, uint64(800), EstimateBytes(100))
}
