package main

import (
	"os"

	"github.com/pljv/geokit/internal/batch"
	"github.com/pljv/geokit/internal/logger"
	"github.com/pljv/geokit/internal/mwindow"
	"github.com/pljv/geokit/internal/raster"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Raster      string  `short:"r" long:"raster"       env:"RASTER_FILE" description:"Full path to the source raster file" required:"true"`
	Function    string  `short:"f" long:"fun"          description:"Statistic to apply over each window (sum, mean, median, sd)" default:"sum"`
	Windows     string  `short:"w" long:"window-sizes" description:"Comma-separated window sizes, e.g. 3,11,33" required:"true"`
	Shape       string  `short:"s" long:"shape"        description:"Window shape: square, circle, or gaussian" default:"square"`
	Reclass     string  `short:"c" long:"reclass"      description:"Reclassification rules, e.g. row_crop=1,2,3;wheat=2,7"`
	Target      float64 `short:"t" long:"target-value" description:"Value assigned to matched cells when reclassifying" default:"1"`
	Outfile     string  `short:"o" long:"outfile"      description:"Output filename prefix; window size and reclass key are appended"`
	NoData      float64 `short:"n" long:"nodata"       description:"Nodata value of the source raster" default:"65535"`
	Concurrency int     `short:"p" long:"concurrency"  env:"CONCURRENCY" description:"Concurrent filter runs" default:"4"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	stat, err := mwindow.ParseStat(opts.Function)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid function")
	}

	shape, err := mwindow.ParseShape(opts.Shape)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid shape")
	}

	sizes, err := mwindow.ParseWindows(opts.Windows)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid window sizes")
	}

	rules, err := mwindow.ParseReclass(opts.Reclass)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid reclass rules")
	}

	outBase := opts.Outfile
	if outBase == "" {
		outBase = opts.Raster
	}

	src, err := raster.Open(opts.Raster, raster.WithNoData(opts.NoData))
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.Raster).Msg("Failed to open raster")
	}

	// One reclassified copy per rule; a single pass-through run when no
	// rules were given.
	inputs := map[string]*raster.Raster{}
	if len(rules) == 0 {
		inputs[""] = src
	} else {
		for _, rule := range rules {
			focal := src.Clone()
			focal.Reclassify(rule.Match, opts.Target)
			inputs[rule.Key] = focal

			log.Debug().
				Str("key", rule.Key).
				Floats64("match", rule.Match).
				Msg("Reclassified input raster")
		}
	}

	log.Info().
		Int("runs", len(inputs)*len(sizes)).
		Str("function", stat.String()).
		Msg("Starting moving window analyses")

	var jobs []batch.Job
	for key, in := range inputs {
		for _, size := range sizes {
			key, in, size := key, in, size
			out := mwindow.OutputName(outBase, key, size)

			jobs = append(jobs, batch.Job{
				Name: out,
				Run: func() error {
					kernel, err := mwindow.NewKernel(shape, size)
					if err != nil {
						return err
					}

					log.Debug().
						Str("outfile", out).
						Int("size", size).
						Msg("Applying moving window filter")

					result, err := mwindow.Filter(in, kernel, stat, 0)
					if err != nil {
						return err
					}
					return result.Write(out)
				},
			})
		}
	}

	if errs := batch.Run(jobs, opts.Concurrency); len(errs) > 0 {
		log.Fatal().Int("failed", len(errs)).Msg("Some analyses failed")
	}

	log.Info().Msg("Moving window analyses finished successfully")
}
