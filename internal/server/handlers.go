// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pljv/geokit/internal/config"
	"github.com/pljv/geokit/internal/raster"
	"github.com/pljv/geokit/internal/vector"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	etagCap        = 64
	previewMaxDim  = 1024
	previewQuality = 85
)

// HandleDatasetsList serves the JSON configuration of available datasets.
func (s *ServerContext) HandleDatasetsList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(s.Config.Datasets)
}

// HandleHealthz reports liveness.
func (s *ServerContext) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// HandleDatasetAsset serves derived assets for one dataset:
// /datasets/{name}/features.geojson and /datasets/{name}/preview.webp.
// Assets are built lazily and cached on disk.
func (s *ServerContext) HandleDatasetAsset(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "datasets" {
		http.NotFound(w, r)
		return
	}

	ds, ok := s.dataset(parts[1])
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch parts[2] {
	case "features.geojson":
		if ds.NoVector {
			http.NotFound(w, r)
			return
		}
		path, err := s.ensureGeoJSON(ds)
		if err != nil {
			log.Error().Err(err).Str("dataset", ds.Name).Msg("Failed to build GeoJSON cache")
			http.Error(w, "conversion failed", http.StatusInternalServerError)
			return
		}
		s.serveFile(w, r, path, "application/geo+json")

	case "preview.webp":
		if ds.NoRaster {
			http.NotFound(w, r)
			return
		}
		path, err := s.ensurePreview(ds)
		if err != nil {
			log.Error().Err(err).Str("dataset", ds.Name).Msg("Failed to build preview cache")
			http.Error(w, "preview failed", http.StatusInternalServerError)
			return
		}
		s.serveFile(w, r, path, "image/webp")

	default:
		http.NotFound(w, r)
	}
}

// ensureGeoJSON converts the dataset's vector source into a cached
// GeoJSON file and returns its path.
func (s *ServerContext) ensureGeoJSON(ds config.Dataset) (string, error) {
	src := ds.VectorPath(s.Config.Workspace)
	dst := filepath.Join(s.Config.CacheDir, ds.Name, "features.geojson")

	return s.ensureCached(ds.Name, src, dst, func(tmp string) error {
		v, err := vector.Open(src)
		if err != nil {
			return err
		}
		return v.Write(tmp)
	})
}

// ensurePreview renders the dataset's raster source into a cached WebP
// preview and returns its path.
func (s *ServerContext) ensurePreview(ds config.Dataset) (string, error) {
	src := ds.RasterPath(s.Config.Workspace)
	dst := filepath.Join(s.Config.CacheDir, ds.Name, "preview.webp")

	return s.ensureCached(ds.Name, src, dst, func(tmp string) error {
		var opts []raster.Option
		if ds.NoData != nil {
			opts = append(opts, raster.WithNoData(*ds.NoData))
		}

		rst, err := raster.Open(src, opts...)
		if err != nil {
			return err
		}

		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		return rst.WritePreviewWebP(f, previewMaxDim, previewQuality)
	})
}

// ensureCached rebuilds dst from src when missing or stale. The build
// writes to a uniquely named temp file which is renamed into place, so
// concurrent readers never see a partial asset.
func (s *ServerContext) ensureCached(name, src, dst string, build func(tmp string) error) (string, error) {
	mu := s.buildLock(name)
	mu.Lock()
	defer mu.Unlock()

	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	if dstInfo, err := os.Stat(dst); err == nil && dstInfo.ModTime().After(srcInfo.ModTime()) {
		return dst, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	tmp := fmt.Sprintf("%s.%s.tmp%s", dst, uuid.NewString(), filepath.Ext(dst))
	if err := build(tmp); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	log.Info().Str("dataset", name).Str("asset", dst).Msg("Cache asset built")

	return dst, nil
}

// serveFile serves a file from disk with ETag generation.
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
}
