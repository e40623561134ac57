package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pljv/geokit/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [-101.5, 38.2]},
			"properties": {"name": "playa"}
		}
	]
}`

const testASCGrid = `ncols 3
nrows 2
xllcorner 0
yllcorner 0
cellsize 30
NODATA_value -9999
1 2 3
4 5 6
`

func testContext(t *testing.T) *ServerContext {
	t.Helper()

	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(workspace, "sample.geojson"), []byte(testGeoJSON), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(workspace, "grid.asc"), []byte(testASCGrid), 0644))

	cfg := &config.Config{
		Workspace: workspace,
		CacheDir:  filepath.Join(workspace, "cache"),
		Datasets: []config.Dataset{
			{Name: "playas", Vector: "sample.geojson", Aliases: []string{"playa"}},
			{Name: "landcover", Raster: "grid.asc"},
			{Name: "ghost", Vector: "missing.shp"},
		},
	}

	return NewServerContext(cfg)
}

func TestContextDropsMissingDatasets(t *testing.T) {
	ctx := testContext(t)

	require.Len(t, ctx.Config.Datasets, 2)
	for _, ds := range ctx.Config.Datasets {
		assert.NotEqual(t, "ghost", ds.Name)
	}
}

func TestContextResolvesAliases(t *testing.T) {
	ctx := testContext(t)

	ds, ok := ctx.dataset("playa")
	require.True(t, ok)
	assert.Equal(t, "playas", ds.Name)

	_, ok = ctx.dataset("nope")
	assert.False(t, ok)
}

func TestHandleDatasetsList(t *testing.T) {
	ctx := testContext(t)

	rec := httptest.NewRecorder()
	ctx.HandleDatasetsList(rec, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var datasets []config.Dataset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &datasets))
	assert.Len(t, datasets, 2)
}

func TestHandleHealthz(t *testing.T) {
	ctx := testContext(t)

	rec := httptest.NewRecorder()
	ctx.HandleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleDatasetAssetGeoJSON(t *testing.T) {
	ctx := testContext(t)

	rec := httptest.NewRecorder()
	ctx.HandleDatasetAsset(rec,
		httptest.NewRequest(http.MethodGet, "/datasets/playa/features.geojson", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.Contains(t, rec.Body.String(), "FeatureCollection")
}

func TestHandleDatasetAssetConditionalGet(t *testing.T) {
	ctx := testContext(t)

	first := httptest.NewRecorder()
	ctx.HandleDatasetAsset(first,
		httptest.NewRequest(http.MethodGet, "/datasets/playas/features.geojson", nil))
	require.Equal(t, http.StatusOK, first.Code)

	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/datasets/playas/features.geojson", nil)
	req.Header.Set("If-None-Match", etag)

	second := httptest.NewRecorder()
	ctx.HandleDatasetAsset(second, req)
	assert.Equal(t, http.StatusNotModified, second.Code)
}

func TestHandleDatasetAssetNotFound(t *testing.T) {
	ctx := testContext(t)

	cases := []string{
		"/datasets/unknown/features.geojson",
		"/datasets/playas/secrets.txt",
		"/datasets/playas",
		"/datasets/landcover/features.geojson", // raster-only dataset
	}

	for _, path := range cases {
		rec := httptest.NewRecorder()
		ctx.HandleDatasetAsset(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestEnsureCachedReusesFreshAssets(t *testing.T) {
	ctx := testContext(t)

	ds, ok := ctx.dataset("playas")
	require.True(t, ok)

	path1, err := ctx.ensureGeoJSON(ds)
	require.NoError(t, err)
	info1, err := os.Stat(path1)
	require.NoError(t, err)

	path2, err := ctx.ensureGeoJSON(ds)
	require.NoError(t, err)
	info2, err := os.Stat(path2)
	require.NoError(t, err)

	assert.Equal(t, path1, path2)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}
