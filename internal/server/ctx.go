package server

import (
	"os"
	"sort"
	"sync"

	"github.com/pljv/geokit/internal/config"

	"github.com/rs/zerolog/log"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config       *config.Config
	NameResolver map[string]string

	// serializes lazy cache builds per dataset
	buildMu sync.Mutex
	builds  map[string]*sync.Mutex
}

// NewServerContext initializes the context and validates the dataset
// configuration. Datasets whose files are all missing are dropped; the
// rest keep per-source availability flags for the listing endpoint.
func NewServerContext(cfg *config.Config) *ServerContext {
	log.Info().Int("config_datasets_count", len(cfg.Datasets)).Msg("Initializing server context")

	resolver := make(map[string]string)
	valid := make([]config.Dataset, 0, len(cfg.Datasets))

	for i := range cfg.Datasets {
		ds := &cfg.Datasets[i]

		if ds.Attribution == "" {
			ds.Attribution = cfg.Attribution
		}

		if ds.Vector == "" {
			ds.NoVector = true
			log.Trace().Str("dataset", ds.Name).Msg("Vector source skipped: none in config")
		} else if _, err := os.Stat(ds.VectorPath(cfg.Workspace)); os.IsNotExist(err) {
			ds.NoVector = true
			log.Trace().
				Str("dataset", ds.Name).
				Str("path", ds.VectorPath(cfg.Workspace)).
				Msg("Vector source skipped: file not found")
		}

		if ds.Raster == "" {
			ds.NoRaster = true
			log.Trace().Str("dataset", ds.Name).Msg("Raster source skipped: none in config")
		} else if _, err := os.Stat(ds.RasterPath(cfg.Workspace)); os.IsNotExist(err) {
			ds.NoRaster = true
			log.Trace().
				Str("dataset", ds.Name).
				Str("path", ds.RasterPath(cfg.Workspace)).
				Msg("Raster source skipped: file not found")
		}

		if ds.NoVector && ds.NoRaster {
			log.Warn().
				Str("dataset", ds.Name).
				Msg("Skipping dataset: no readable sources")
			continue
		}

		resolver[ds.Name] = ds.Name
		for _, alias := range ds.Aliases {
			resolver[alias] = ds.Name
		}

		log.Debug().
			Str("dataset", ds.Name).
			Bool("vector", !ds.NoVector).
			Bool("raster", !ds.NoRaster).
			Msg("Dataset validated and added to context")

		valid = append(valid, *ds)
	}

	cfg.Datasets = valid

	sort.Slice(cfg.Datasets, func(i, j int) bool {
		idxI, idxJ := 999999, 999999
		if cfg.Datasets[i].Index != nil {
			idxI = *cfg.Datasets[i].Index
		}
		if cfg.Datasets[j].Index != nil {
			idxJ = *cfg.Datasets[j].Index
		}
		if idxI != idxJ {
			return idxI < idxJ
		}

		return cfg.Datasets[i].Name < cfg.Datasets[j].Name
	})

	log.Info().
		Int("valid_datasets_count", len(cfg.Datasets)).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:       cfg,
		NameResolver: resolver,
		builds:       make(map[string]*sync.Mutex),
	}
}

// dataset returns the validated entry for a (possibly aliased) name.
func (s *ServerContext) dataset(name string) (config.Dataset, bool) {
	real, ok := s.NameResolver[name]
	if !ok {
		return config.Dataset{}, false
	}
	for _, ds := range s.Config.Datasets {
		if ds.Name == real {
			return ds, true
		}
	}
	return config.Dataset{}, false
}

// buildLock returns the mutex guarding cache builds for one dataset.
func (s *ServerContext) buildLock(name string) *sync.Mutex {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	mu, ok := s.builds[name]
	if !ok {
		mu = &sync.Mutex{}
		s.builds[name] = mu
	}
	return mu
}
