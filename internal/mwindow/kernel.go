// Package mwindow implements moving-window (focal) analyses over
// rasters: kernel construction, neighborhood statistics, and the little
// specification grammar the CLI accepts.
package mwindow

import (
	"fmt"
	"math"
	"strings"
)

// Shape selects the footprint of a moving window.
type Shape int

const (
	Square Shape = iota
	Circle
	Gaussian
)

// ParseShape maps a user string to a window shape. The empty string
// means square.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "square":
		return Square, nil
	case "circle", "circular":
		return Circle, nil
	case "gaussian", "gauss":
		return Gaussian, nil
	default:
		return 0, fmt.Errorf("unknown window shape %q", s)
	}
}

// Kernel is a size x size footprint with per-cell weights. A zero
// weight excludes the cell from the neighborhood.
type Kernel struct {
	Shape   Shape
	Size    int
	Weights []float64
}

// NewKernel builds a footprint. The size is the full window width and
// must be odd so the window centers on a cell.
func NewKernel(shape Shape, size int) (Kernel, error) {
	if size < 1 || size%2 == 0 {
		return Kernel{}, fmt.Errorf("window size must be a positive odd number, got %d", size)
	}

	k := Kernel{
		Shape:   shape,
		Size:    size,
		Weights: make([]float64, size*size),
	}
	radius := float64(size / 2)

	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			dr := float64(r) - radius
			dc := float64(c) - radius
			dist := math.Sqrt(dr*dr + dc*dc)

			switch shape {
			case Square:
				k.Weights[r*size+c] = 1
			case Circle:
				// disc of ones inside the radius
				if dist <= radius {
					k.Weights[r*size+c] = 1
				}
			case Gaussian:
				// sigma so the window edge sits near three sigma
				sigma := math.Max(radius/3, 0.5)
				k.Weights[r*size+c] = math.Exp(-(dist * dist) / (2 * sigma * sigma))
			}
		}
	}

	if shape == Gaussian {
		var sum float64
		for _, w := range k.Weights {
			sum += w
		}
		for i := range k.Weights {
			k.Weights[i] /= sum
		}
	}

	return k, nil
}

// At returns the weight at kernel cell (col, row).
func (k Kernel) At(col, row int) float64 {
	return k.Weights[row*k.Size+col]
}
