// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Attribution string    `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Workspace   string    `yaml:"workspace" json:"-"`
	CacheDir    string    `yaml:"cache_dir,omitempty" json:"-"`
	Datasets    []Dataset `yaml:"datasets" json:"datasets"`
}

// Dataset represents a single vector or raster dataset entry.
type Dataset struct {
	Index *int `yaml:"index,omitempty" json:"index,omitempty"`

	Name        string   `yaml:"name" json:"name"`
	Vector      string   `yaml:"vector,omitempty" json:"-"`
	Raster      string   `yaml:"raster,omitempty" json:"-"`
	Attribution string   `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty" json:"-"`
	EPSG        int      `yaml:"epsg,omitempty" json:"epsg,omitempty"`
	NoData      *float64 `yaml:"nodata,omitempty" json:"nodata,omitempty"`

	// set during server context validation
	NoVector bool `yaml:"-" json:"no_vector,omitempty"`
	NoRaster bool `yaml:"-" json:"no_raster,omitempty"`
}

// VectorPath returns the vector source resolved against the workspace.
func (d Dataset) VectorPath(workspace string) string {
	if d.Vector == "" || filepath.IsAbs(d.Vector) {
		return d.Vector
	}
	return filepath.Join(workspace, d.Vector)
}

// RasterPath returns the raster source resolved against the workspace.
func (d Dataset) RasterPath(workspace string) string {
	if d.Raster == "" || filepath.IsAbs(d.Raster) {
		return d.Raster
	}
	return filepath.Join(workspace, d.Raster)
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Workspace == "" {
		cfg.Workspace = "."
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "cache"
	}

	for _, d := range cfg.Datasets {
		if d.Name == "" {
			return nil, fmt.Errorf("%s: dataset without a name", path)
		}
		if d.Vector == "" && d.Raster == "" {
			return nil, fmt.Errorf("%s: dataset %q has neither vector nor raster source", path, d.Name)
		}
	}

	return &cfg, nil
}
