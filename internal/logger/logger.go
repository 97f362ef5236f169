// Package logger configures the global zerolog logger from command line options.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a go-flags option group shared by every command.
type Logger struct {
	Level   string `long:"log-level"    env:"LOG_LEVEL"    description:"Log level"                         default:"info" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal" choice:"panic" choice:"disabled"`
	Format  string `long:"log-format"   env:"LOG_FORMAT"   description:"Log format"                        default:"text" choice:"text" choice:"json"`
	Output  string `long:"log-output"   env:"LOG_OUTPUT"   description:"Log output: stderr, stdout or file" default:"stderr"`
	NoColor bool   `long:"log-no-color" env:"LOG_NO_COLOR" description:"Disable colored text output"`
}

// Setup installs the global logger and level. A log file that cannot be
// opened falls back to stderr.
func (l Logger) Setup() {
	level, err := zerolog.ParseLevel(strings.ToLower(l.Level))
	if err != nil || l.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out, openErr := l.writer()
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	if openErr != nil {
		log.Error().Err(openErr).Str("output", l.Output).Msg("Cannot open log output, using stderr")
	}
}

func (l Logger) writer() (io.Writer, error) {
	var (
		file *os.File
		err  error
	)

	switch l.Output {
	case "", "stderr":
		file = os.Stderr
	case "stdout":
		file = os.Stdout
	default:
		file, err = os.OpenFile(l.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			file = os.Stderr
		}
	}

	if l.Format == "json" {
		return file, err
	}

	return zerolog.ConsoleWriter{
		Out:        file,
		TimeFormat: time.DateTime,
		NoColor:    l.NoColor || !isatty.IsTerminal(file.Fd()),
	}, err
}
