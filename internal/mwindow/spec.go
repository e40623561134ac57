package mwindow

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Stat selects the neighborhood statistic.
type Stat int

const (
	Sum Stat = iota
	Mean
	Median
	StdDev
)

func (s Stat) String() string {
	switch s {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	case Median:
		return "median"
	case StdDev:
		return "stddev"
	default:
		return "unknown"
	}
}

// ParseStat maps a user-supplied function name to a statistic. Users
// habitually write qualified names like "numpy.sum" or abbreviations
// like "sd"; the match is deliberately forgiving.
func ParseStat(s string) (Stat, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}

	switch {
	case strings.Contains(name, "sum"):
		return Sum, nil
	case strings.Contains(name, "mean"), strings.Contains(name, "avg"), strings.Contains(name, "average"):
		return Mean, nil
	case strings.Contains(name, "median"):
		return Median, nil
	case strings.Contains(name, "std"), name == "sd", strings.Contains(name, "stdev"):
		return StdDev, nil
	default:
		return 0, fmt.Errorf("unknown window function %q (want sum, mean, median, or sd)", s)
	}
}

// ParseWindows parses a comma-separated list of window sizes, e.g.
// "3,11,33".
func ParseWindows(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("window size %q: %w", p, err)
		}
		if n < 1 || n%2 == 0 {
			return nil, fmt.Errorf("window size must be a positive odd number, got %d", n)
		}
		sizes = append(sizes, n)
	}

	if len(sizes) == 0 {
		return nil, fmt.Errorf("no window sizes in %q", s)
	}

	return sizes, nil
}

// ReclassRule names one reclassification: cells holding any value in
// Match become the target value before filtering.
type ReclassRule struct {
	Key   string
	Match []float64
}

// ParseReclass parses reclassification rules of the form
// "row_crop=1,2,3;wheat=2,7". Each rule produces its own output series.
func ParseReclass(s string) ([]ReclassRule, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var rules []ReclassRule
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, fmt.Errorf("reclass rule %q: want name=v1,v2,...", part)
		}

		var match []float64
		for _, vs := range strings.Split(kv[1], ",") {
			vs = strings.TrimSpace(vs)
			if vs == "" {
				continue
			}
			v, err := strconv.ParseFloat(vs, 64)
			if err != nil {
				return nil, fmt.Errorf("reclass rule %q: value %q: %w", part, vs, err)
			}
			match = append(match, v)
		}
		if len(match) == 0 {
			return nil, fmt.Errorf("reclass rule %q: no match values", part)
		}

		rules = append(rules, ReclassRule{Key: kv[0], Match: match})
	}

	return rules, nil
}

// OutputName derives the output path for one window run:
// base "out.tif", key "wheat", size 3 -> "out_mw_wheat_3x3.tif".
// An empty key (no reclassification) is skipped in the name.
func OutputName(base, key string, size int) string {
	ext := filepath.Ext(base)
	if ext != ".tif" && ext != ".tiff" && ext != ".asc" {
		ext = ".tif"
	} else {
		base = strings.TrimSuffix(base, ext)
	}

	name := base + "_mw"
	if key != "" {
		name += "_" + key
	}

	return fmt.Sprintf("%s_%dx%d%s", name, size, size, ext)
}
