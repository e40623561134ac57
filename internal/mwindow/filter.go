package mwindow

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/pljv/geokit/internal/batch"
	"github.com/pljv/geokit/internal/raster"

	"gonum.org/v1/gonum/stat"
)

// Filter applies a focal statistic over every cell of src and returns a
// new raster. Nodata cells do not contribute to any neighborhood, and a
// nodata center stays nodata in the output. Rows are processed in
// chunks on a worker pool.
func Filter(src *raster.Raster, k Kernel, st Stat, concurrency int) (*raster.Raster, error) {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	// input copy plus output grid
	if err := raster.EnsureMemory(2 * raster.EstimateBytes(len(src.Data))); err != nil {
		return nil, err
	}

	out := src.Clone()
	out.Filename = ""

	radius := k.Size / 2
	weighted := k.Shape == Gaussian

	chunk := (src.Height + concurrency - 1) / concurrency
	if chunk < 1 {
		chunk = 1
	}

	var jobs []batch.Job
	for start := 0; start < src.Height; start += chunk {
		end := start + chunk
		if end > src.Height {
			end = src.Height
		}

		start, end := start, end
		jobs = append(jobs, batch.Job{
			Name: fmt.Sprintf("rows %d-%d", start, end-1),
			Run: func() error {
				filterRows(src, out, k, st, radius, weighted, start, end)
				return nil
			},
		})
	}

	if errs := batch.Run(jobs, concurrency); len(errs) > 0 {
		return nil, errs[0]
	}

	return out, nil
}

func filterRows(src, out *raster.Raster, k Kernel, st Stat, radius int, weighted bool, rowStart, rowEnd int) {
	vals := make([]float64, 0, k.Size*k.Size)
	weights := make([]float64, 0, k.Size*k.Size)

	for row := rowStart; row < rowEnd; row++ {
		for col := 0; col < src.Width; col++ {
			center := src.At(col, row)
			if src.IsNoData(center) {
				out.Set(col, row, out.NoData)
				continue
			}

			vals = vals[:0]
			weights = weights[:0]

			for kr := 0; kr < k.Size; kr++ {
				rr := row + kr - radius
				if rr < 0 || rr >= src.Height {
					continue
				}
				for kc := 0; kc < k.Size; kc++ {
					cc := col + kc - radius
					if cc < 0 || cc >= src.Width {
						continue
					}
					w := k.At(kc, kr)
					if w == 0 {
						continue
					}
					v := src.At(cc, rr)
					if src.IsNoData(v) {
						continue
					}
					vals = append(vals, v)
					weights = append(weights, w)
				}
			}

			out.Set(col, row, apply(st, vals, weights, weighted))
		}
	}
}

// apply computes the statistic over a neighborhood. Gaussian weights
// shape sums and means; median and stddev treat the kernel as a plain
// footprint.
func apply(st Stat, vals, weights []float64, weighted bool) float64 {
	if len(vals) == 0 {
		return 0
	}

	switch st {
	case Sum:
		var s float64
		if weighted {
			for i, v := range vals {
				s += v * weights[i]
			}
			return s
		}
		for _, v := range vals {
			s += v
		}
		return s
	case Mean:
		if weighted {
			return stat.Mean(vals, weights)
		}
		return stat.Mean(vals, nil)
	case Median:
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	case StdDev:
		if len(vals) < 2 {
			return 0
		}
		return stat.StdDev(vals, nil)
	default:
		return 0
	}
}
