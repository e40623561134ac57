package vector

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Table holds the numeric columns of the attribute table, row-aligned
// with the feature collection. Missing or non-numeric cells are NaN.
type Table struct {
	Names   []string
	Columns map[string][]float64
	Rows    int
}

// NumericTable extracts every attribute key that is numeric in at least
// one feature.
func (v *Vector) NumericTable() *Table {
	t := &Table{
		Columns: map[string][]float64{},
		Rows:    v.Len(),
	}

	for row, f := range v.Features.Features {
		for k, val := range f.Properties {
			num, ok := toFloat(val)
			if !ok {
				continue
			}
			col, exists := t.Columns[k]
			if !exists {
				col = make([]float64, t.Rows)
				for i := range col {
					col[i] = math.NaN()
				}
				t.Columns[k] = col
				t.Names = append(t.Names, k)
			}
			col[row] = num
		}
	}

	sort.Strings(t.Names)
	return t
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// valid returns the non-NaN entries of col.
func valid(col []float64) []float64 {
	out := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// MinMaxScale rescales every column to [0, 1] in place. Constant
// columns become zero.
func (t *Table) MinMaxScale() {
	for _, name := range t.Names {
		col := t.Columns[name]
		obs := valid(col)
		if len(obs) == 0 {
			continue
		}

		lo, hi := floats.Min(obs), floats.Max(obs)
		span := hi - lo

		for i, v := range col {
			if math.IsNaN(v) {
				continue
			}
			if span == 0 {
				col[i] = 0
				continue
			}
			col[i] = (v - lo) / span
		}
	}
}

// ZScore centers every column to zero mean and unit variance in place.
// Constant columns become zero.
func (t *Table) ZScore() {
	for _, name := range t.Names {
		col := t.Columns[name]
		obs := valid(col)
		if len(obs) == 0 {
			continue
		}

		mean := stat.Mean(obs, nil)
		sd := stat.StdDev(obs, nil)

		for i, v := range col {
			if math.IsNaN(v) {
				continue
			}
			if sd == 0 || math.IsNaN(sd) {
				col[i] = 0
				continue
			}
			col[i] = (v - mean) / sd
		}
	}
}

// Apply writes the table values back into the feature properties.
func (v *Vector) Apply(t *Table) error {
	if t.Rows != v.Len() {
		return fmt.Errorf("table has %d rows, collection has %d features", t.Rows, v.Len())
	}

	for _, name := range t.Names {
		col := t.Columns[name]
		for row, f := range v.Features.Features {
			if math.IsNaN(col[row]) {
				continue
			}
			f.Properties[name] = col[row]
		}
	}

	return nil
}
