package raster

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pljv/geokit/internal/geo"
)

// readASCGrid parses the ESRI ASCII grid format: a six-line header
// followed by row-major cell values, top row first.
func readASCGrid(path string, o openOptions) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	header := map[string]float64{}
	var data []float64

	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)

		// Header lines are "key value" pairs with an alphabetic key;
		// everything after them is cell data.
		if len(data) == 0 && len(fields) == 2 && !isNumeric(fields[0]) {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("asc header %q: %w", line, err)
			}
			header[strings.ToLower(fields[0])] = v
			continue
		}

		for _, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("asc cell %q: %w", s, err)
			}
			data = append(data, v)
		}
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}

	ncols, ok := header["ncols"]
	if !ok {
		return nil, fmt.Errorf("asc %s: missing ncols", path)
	}
	nrows, ok := header["nrows"]
	if !ok {
		return nil, fmt.Errorf("asc %s: missing nrows", path)
	}
	cell, ok := header["cellsize"]
	if !ok {
		return nil, fmt.Errorf("asc %s: missing cellsize", path)
	}

	w, h := int(ncols), int(nrows)
	if len(data) != w*h {
		return nil, fmt.Errorf("asc %s: expected %d cells, got %d", path, w*h, len(data))
	}

	noData := o.noData
	if v, ok := header["nodata_value"]; ok {
		noData = v
	}

	// Corner keys take priority; center keys shift by half a cell.
	x0, y0 := header["xllcorner"], header["yllcorner"]
	if cx, ok := header["xllcenter"]; ok {
		x0 = cx - cell/2
	}
	if cy, ok := header["yllcenter"]; ok {
		y0 = cy - cell/2
	}

	return &Raster{
		Filename:  path,
		Data:      data,
		Width:     w,
		Height:    h,
		NoData:    noData,
		Transform: geo.NewGeoTransform(x0, y0+nrows*cell, cell, cell),
		CRS:       o.crs,
	}, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// writeASCGrid stores the grid as an ESRI ASCII grid. The format only
// expresses square, axis-aligned cells.
func (r *Raster) writeASCGrid(path string) error {
	if r.Transform[2] != 0 || r.Transform[4] != 0 {
		return fmt.Errorf("asc output cannot express a rotated geotransform")
	}
	cell := r.Transform.CellWidth()
	if cell != r.Transform.CellHeight() {
		return fmt.Errorf("asc output requires square cells, have %gx%g",
			r.Transform.CellWidth(), r.Transform.CellHeight())
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)

	yll := r.Transform[3] - float64(r.Height)*cell
	fmt.Fprintf(w, "ncols %d\n", r.Width)
	fmt.Fprintf(w, "nrows %d\n", r.Height)
	fmt.Fprintf(w, "xllcorner %g\n", r.Transform[0])
	fmt.Fprintf(w, "yllcorner %g\n", yll)
	fmt.Fprintf(w, "cellsize %g\n", cell)
	fmt.Fprintf(w, "NODATA_value %g\n", r.NoData)

	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			if col > 0 {
				if err := w.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := w.WriteString(strconv.FormatFloat(r.At(col, row), 'g', -1, 64)); err != nil {
				return err
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}

	return w.Flush()
}
