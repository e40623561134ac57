package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pljv/geokit/internal/geo"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/tiff"
)

// worldFilePath returns the .tfw sidecar path for a TIFF.
func worldFilePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".tfw"
}

func readTIFF(path string, o openOptions) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	r := &Raster{
		Filename: path,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Data:     make([]float64, bounds.Dx()*bounds.Dy()),
		NoData:   sanitizeNoData(o.noData),
		CRS:      o.crs,
	}

	// Fast path for the common 16-bit single band case; anything else
	// goes through the color model, losing no more than the format
	// itself already did.
	switch m := img.(type) {
	case *image.Gray16:
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				i := m.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				r.Data[y*r.Width+x] = float64(uint16(m.Pix[i])<<8 | uint16(m.Pix[i+1]))
			}
		}
	case *image.Gray:
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				r.Data[y*r.Width+x] = float64(m.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	default:
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				r.Data[y*r.Width+x] = float64(g.Y)
			}
		}
	}

	if err := r.loadWorldFile(worldFilePath(path)); err != nil {
		return nil, err
	}

	return r, nil
}

// loadWorldFile attaches the sidecar geotransform if one exists.
// Without one the raster keeps a unit transform anchored at the grid
// top, which leaves pure array analyses usable.
func (r *Raster) loadWorldFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		log.Warn().
			Str("path", path).
			Msg("No world file found, using unit geotransform")
		r.Transform = geo.NewGeoTransform(0, float64(r.Height), 1, 1)
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	t, err := geo.ReadWorldFile(f)
	if err != nil {
		return fmt.Errorf("world file %s: %w", path, err)
	}
	r.Transform = t

	return nil
}

func (r *Raster) writeTIFF(path string) error {
	img := image.NewGray16(image.Rect(0, 0, r.Width, r.Height))

	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			v := r.At(x, y)
			if r.IsNoData(v) {
				v = r.NoData
			}
			img.SetGray16(x, y, color.Gray16{Y: clampUint16(v)})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	opts := &tiff.Options{Compression: tiff.Deflate, Predictor: true}
	if err := tiff.Encode(f, img, opts); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	wf, err := os.Create(worldFilePath(path))
	if err != nil {
		return err
	}
	defer func() { _ = wf.Close() }()

	return r.Transform.WriteWorldFile(wf)
}

func clampUint16(v float64) uint16 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(math.Round(v))
}
