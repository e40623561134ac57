package raster

import (
	"image"
	"image/draw"
	"io"
	"math"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
)

// Preview renders the grid as a normalized grayscale image no larger
// than maxDim on either side. Nodata cells render black. CatmullRom is
// used for the downscale; slower than bilinear but previews are
// generated once and cached.
func (r *Raster) Preview(maxDim int) image.Image {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range r.Data {
		if v == r.NoData {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	span := hi - lo
	if span <= 0 || math.IsInf(lo, 1) {
		span = 1
	}

	img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			v := r.At(x, y)
			if r.IsNoData(v) {
				continue
			}
			img.Pix[y*img.Stride+x] = uint8(math.Round(255 * (v - lo) / span))
		}
	}

	if r.Width <= maxDim && r.Height <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(r.Width)
	if r.Height > r.Width {
		scale = float64(maxDim) / float64(r.Height)
	}
	dst := image.NewGray(image.Rect(0, 0,
		int(float64(r.Width)*scale), int(float64(r.Height)*scale)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	return dst
}

// WritePreviewWebP encodes a preview as lossy WebP.
func (r *Raster) WritePreviewWebP(w io.Writer, maxDim int, quality float32) error {
	return webp.Encode(w, r.Preview(maxDim), &webp.Options{Lossless: false, Quality: quality})
}
