// Package remote fetches geospatial data from network services: PostGIS
// geometry tables and the USDA NASS QuickStats API.
package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pljv/geokit/internal/vector"

	"github.com/lib/pq"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// PostGISConfig holds connection settings, loadable from a JSON file
// with environment fallbacks.
type PostGISConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"sslmode"`
}

// LoadPostGISConfig reads a JSON connection file and fills gaps from
// PG* environment variables.
func LoadPostGISConfig(path string) (PostGISConfig, error) {
	var cfg PostGISConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if cfg.Host == "" {
		cfg.Host = os.Getenv("PGHOST")
	}
	if cfg.Database == "" {
		cfg.Database = os.Getenv("PGDATABASE")
	}
	if cfg.Username == "" {
		cfg.Username = os.Getenv("PGUSER")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("PGPASSWORD")
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "prefer"
	}

	return cfg, nil
}

// DSN renders a lib/pq connection string.
func (c PostGISConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode)
}

// PostGIS is a connection to a PostGIS-enabled database.
type PostGIS struct {
	db *sql.DB
}

// OpenPostGIS opens a connection pool and verifies it.
func OpenPostGIS(ctx context.Context, cfg PostGISConfig) (*PostGIS, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgis ping: %w", err)
	}

	return &PostGIS{db: db}, nil
}

// Close releases the connection pool.
func (p *PostGIS) Close() error {
	return p.db.Close()
}

// FetchTable reads every row of a geometry table into a vector
// collection. Geometry comes back as WKB; the id column, when present,
// is stored as a feature property.
func (p *PostGIS) FetchTable(ctx context.Context, table, geomColumn string) (*vector.Vector, error) {
	query := fmt.Sprintf(
		`SELECT ST_AsBinary(%s) FROM %s WHERE %s IS NOT NULL`,
		pq.QuoteIdentifier(geomColumn),
		pq.QuoteIdentifier(table),
		pq.QuoteIdentifier(geomColumn),
	)

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	v := vector.New()

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}

		g, err := wkb.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("decode wkb from %s: %w", table, err)
		}
		v.Features.Append(geojson.NewFeature(g))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("table", table).
		Int("features", v.Len()).
		Msg("PostGIS table fetched")

	return v, nil
}
