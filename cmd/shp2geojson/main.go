package main

import (
	"bytes"
	"context"
	"os"

	"github.com/pljv/geokit/internal/geo"
	"github.com/pljv/geokit/internal/logger"
	"github.com/pljv/geokit/internal/remote"
	"github.com/pljv/geokit/internal/vector"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	mjson "github.com/tdewolff/minify/v2/json"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input   string `short:"i" long:"input"  description:"Input vector dataset (.shp, .geojson)"`
	Output  string `short:"o" long:"output" description:"Output GeoJSON path (defaults to stdout)"`
	EPSG    int    `short:"e" long:"epsg"   description:"Reproject output to this EPSG code (4326 or 3857)"`
	Minify  bool   `short:"m" long:"minify" description:"Minify the GeoJSON output"`
	SrcEPSG int    `long:"source-epsg"      description:"Override the EPSG code of the input"`

	Normalize string `long:"normalize" description:"Rescale numeric attribute columns" choice:"minmax" choice:"zscore"`

	PGTable  string `long:"pg-table"  env:"PG_TABLE"       description:"Read features from this PostGIS table instead of a file"`
	PGGeom   string `long:"pg-geom"   env:"PG_GEOM"        description:"Geometry column of the PostGIS table" default:"geom"`
	PGConfig string `long:"pg-config" env:"PG_CONFIG_FILE" description:"JSON connection file; PG* environment fills the gaps"`
}

func main() {
	// optional .env for PG* credentials
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	if (opts.Input == "") == (opts.PGTable == "") {
		log.Fatal().Msg("Exactly one of --input or --pg-table is required")
	}

	var v *vector.Vector
	var err error

	if opts.PGTable != "" {
		v, err = fetchPostGIS(opts)
		if err != nil {
			log.Fatal().Err(err).Str("table", opts.PGTable).Msg("Failed to fetch PostGIS table")
		}
	} else {
		v, err = vector.Open(opts.Input)
		if err != nil {
			log.Fatal().Err(err).Str("path", opts.Input).Msg("Failed to open vector dataset")
		}
	}

	if opts.SrcEPSG != 0 {
		v.CRS = geo.CRS{EPSG: opts.SrcEPSG}
	}

	if opts.EPSG != 0 {
		if err := v.Reproject(geo.CRS{EPSG: opts.EPSG}); err != nil {
			log.Fatal().Err(err).Msg("Reprojection failed")
		}
	}

	if opts.Normalize != "" {
		table := v.NumericTable()
		switch opts.Normalize {
		case "minmax":
			table.MinMaxScale()
		case "zscore":
			table.ZScore()
		}
		if err := v.Apply(table); err != nil {
			log.Fatal().Err(err).Msg("Normalization failed")
		}

		log.Debug().
			Strs("columns", table.Names).
			Str("method", opts.Normalize).
			Msg("Numeric attributes normalized")
	}

	data, err := v.MarshalGeoJSON()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode GeoJSON")
	}

	if opts.Minify {
		m := minify.New()
		m.AddFunc("application/json", mjson.Minify)

		var buf bytes.Buffer
		if err := m.Minify("application/json", &buf, bytes.NewReader(data)); err != nil {
			log.Fatal().Err(err).Msg("Failed to minify GeoJSON")
		}
		data = buf.Bytes()
	}

	if opts.Output == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			log.Fatal().Err(err).Msg("Failed to write output")
		}
		return
	}

	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write output")
	}

	log.Info().
		Str("output", opts.Output).
		Int("features", v.Len()).
		Msg("Conversion finished")
}

func fetchPostGIS(opts Options) (*vector.Vector, error) {
	cfg, err := remote.LoadPostGISConfig(opts.PGConfig)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	pg, err := remote.OpenPostGIS(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pg.Close() }()

	return pg.FetchTable(ctx, opts.PGTable, opts.PGGeom)
}
