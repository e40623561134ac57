package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
attribution: Playa Lakes Joint Venture
workspace: ./data
cache_dir: ./cache
datasets:
  - name: playas
    vector: playas.shp
    aliases: [playa, lakes]
    epsg: 4326
  - name: landcover
    raster: nass_2016.tif
    nodata: 65535
    index: 1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.Workspace)
	assert.Equal(t, "./cache", cfg.CacheDir)
	require.Len(t, cfg.Datasets, 2)

	playas := cfg.Datasets[0]
	assert.Equal(t, "playas", playas.Name)
	assert.Equal(t, []string{"playa", "lakes"}, playas.Aliases)
	assert.Equal(t, 4326, playas.EPSG)
	assert.Equal(t, filepath.Join("./data", "playas.shp"), playas.VectorPath(cfg.Workspace))

	landcover := cfg.Datasets[1]
	require.NotNil(t, landcover.NoData)
	assert.Equal(t, 65535.0, *landcover.NoData)
	require.NotNil(t, landcover.Index)
	assert.Equal(t, 1, *landcover.Index)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
datasets:
  - name: only
    raster: grid.asc
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Workspace)
	assert.Equal(t, "cache", cfg.CacheDir)
}

func TestLoadRejectsNamelessDataset(t *testing.T) {
	path := writeConfig(t, `
datasets:
  - vector: a.shp
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsSourcelessDataset(t *testing.T) {
	path := writeConfig(t, `
datasets:
  - name: empty
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestAbsolutePathsKept(t *testing.T) {
	d := Dataset{Vector: "/abs/path.shp", Raster: "/abs/grid.tif"}
	assert.Equal(t, "/abs/path.shp", d.VectorPath("/workspace"))
	assert.Equal(t, "/abs/grid.tif", d.RasterPath("/workspace"))
}
