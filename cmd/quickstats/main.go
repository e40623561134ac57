package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pljv/geokit/internal/logger"
	"github.com/pljv/geokit/internal/remote"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Endpoint    string `short:"e" long:"endpoint"    description:"QuickStats endpoint" default:"api_GET"`
	Counts      bool   `short:"n" long:"counts"      description:"Only report the record count for the query"`
	Credentials string `short:"k" long:"credentials" env:"QUICKSTATS_CONFIG" description:"JSON credentials file; QUICKSTATS_API_KEY is the fallback"`
	Output      string `short:"o" long:"output"      description:"Output path for the JSON response (defaults to stdout)"`
	Timeout     int    `short:"t" long:"timeout"     description:"Request timeout in seconds" default:"60"`

	Args struct {
		Params []string `positional-arg-name:"key=value" description:"Query parameters, e.g. commodity_desc=CORN year__GE=2012"`
	} `positional-args:"true"`
}

func main() {
	// optional .env for the API key
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

	params := map[string]string{}
	for _, arg := range opts.Args.Params {
		key, val, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			log.Fatal().Str("arg", arg).Msg("Parameters must be key=value pairs")
		}
		params[key] = val
	}

	cfg, err := remote.LoadQuickStatsConfig(opts.Credentials)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load QuickStats credentials")
	}

	client := &http.Client{Timeout: time.Duration(opts.Timeout) * time.Second}
	qs := remote.NewQuickStats(client, cfg)
	ctx := context.Background()

	if opts.Counts {
		count, err := qs.GetCounts(ctx, params)
		if err != nil {
			log.Fatal().Err(err).Msg("QuickStats count query failed")
		}
		log.Info().Int("count", count).Msg("Query counted")
		return
	}

	raw, err := qs.Get(ctx, opts.Endpoint, params)
	if err != nil {
		log.Fatal().Err(err).Str("endpoint", opts.Endpoint).Msg("QuickStats query failed")
	}

	if opts.Output == "" {
		if _, err := os.Stdout.Write(raw); err != nil {
			log.Fatal().Err(err).Msg("Failed to write output")
		}
		return
	}

	if err := os.WriteFile(opts.Output, raw, 0644); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write output")
	}

	log.Info().
		Str("endpoint", opts.Endpoint).
		Str("output", opts.Output).
		Msg("QuickStats response saved")
}
