package raster

// Reclassify rewrites the grid in place: cells matching any value in
// match become target, all other valid cells become zero, nodata cells
// stay nodata. This is the binary reclassification step that precedes a
// focal analysis of a categorical layer.
func (r *Raster) Reclassify(match []float64, target float64) {
	set := make(map[float64]struct{}, len(match))
	for _, m := range match {
		set[m] = struct{}{}
	}

	for i, v := range r.Data {
		if v == r.NoData {
			continue
		}
		if _, ok := set[v]; ok {
			r.Data[i] = target
		} else {
			r.Data[i] = 0
		}
	}
}
