package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/geolayers/internal/config"
	"github.com/woozymasta/geolayers/internal/logger"
	"github.com/woozymasta/geolayers/internal/processor"
	"github.com/woozymasta/geolayers/internal/source"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string        `short:"c" long:"config"        env:"CONFIG_FILE"   description:"Path to layer catalogue" default:"config.yaml"`
	DataDir     string        `short:"d" long:"data-dir"      env:"DATA_DIR"      description:"Override data_dir of the catalogue"`
	CacheDir    string        `short:"C" long:"cache-dir"     env:"CACHE_DIR"     description:"Override cache_dir of the catalogue"`
	Limit       []string      `short:"l" long:"limit"         env:"LIMIT_LAYERS"  description:"Limit processing to specific layer ids"`
	Concurrency int           `short:"p" long:"concurrency"   env:"CONCURRENCY"   description:"Concurrency" default:"4"`
	Timeout     time.Duration `short:"t" long:"fetch-timeout" env:"FETCH_TIMEOUT" description:"Timeout for remote layer sources" default:"60s"`
	Force       bool          `short:"f" long:"force"         description:"Force overwrite of existing cache"`
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

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.CacheDir != "" {
		cfg.CacheDir = opts.CacheDir
	}

	// Filter layers if limit is set
	layers := cfg.Layers
	if len(opts.Limit) > 0 {
		var missing []string
		layers, missing = cfg.Filter(opts.Limit)
		for _, id := range missing {
			log.Error().
				Str("layer", id).
				Msg("Layer specified in --limit not found in configuration")
		}
	}

	log.Info().
		Int("layers_total", len(cfg.Layers)).
		Int("layers_queued", len(layers)).
		Int("concurrency", opts.Concurrency).
		Bool("force", opts.Force).
		Msg("Starting loader")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	outcomes := processor.ProcessLayers(ctx, source.NewLoader(cfg.DataDir, opts.Timeout), layers, processor.Options{
		CacheDir:    cfg.CacheDir,
		Concurrency: opts.Concurrency,
		Force:       opts.Force,
	})
	stop()

	var cached, skipped, failed int
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
		case o.Skipped:
			skipped++
		default:
			cached++
		}
	}

	log.Info().
		Int("cached", cached).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("Loader finished")

	if failed > 0 {
		os.Exit(1)
	}
}
