package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/geolayers/internal/config"
	"github.com/woozymasta/geolayers/internal/logger"
	"github.com/woozymasta/geolayers/internal/server"
	"github.com/woozymasta/geolayers/internal/source"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string        `short:"c" long:"config"        env:"CONFIG_FILE"    description:"Path to layer catalogue"             default:"config.yaml"`
	DataDir     string        `short:"d" long:"data-dir"      env:"DATA_DIR"       description:"Override data_dir of the catalogue"`
	CacheDir    string        `short:"C" long:"cache-dir"     env:"CACHE_DIR"      description:"Override cache_dir of the catalogue"`
	Addr        string        `short:"a" long:"addr"          env:"LISTEN_ADDRESS" description:"Address to listen on"                default:"0.0.0.0"`
	Port        int           `short:"p" long:"port"          env:"LISTEN_PORT"    description:"Port to listen on"                   default:"8080"`
	Timeout     time.Duration `short:"t" long:"fetch-timeout" env:"FETCH_TIMEOUT"  description:"Timeout for remote layer sources"    default:"15s"`
	MaxBodySize int64         `short:"m" long:"max-body"      env:"MAX_BODY_SIZE"  description:"Max upload size for /api/normalize" default:"33554432"`
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

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
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

	srvCtx := server.NewServerContext(cfg, source.NewLoader(cfg.DataDir, opts.Timeout))
	if opts.MaxBodySize > 0 {
		srvCtx.MaxBodySize = opts.MaxBodySize
	}

	handler := server.RequestLogger(srvCtx.Routes())

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Str("data_dir", cfg.DataDir).
		Str("cache_dir", cfg.CacheDir).
		Int("layers_loaded", len(cfg.Layers)).
		Msg("Web server started")

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
