package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"miner-scanner/config"
)

// setupLogging configures the global zerolog logger. While the terminal UI owns the
// screen, logs go to cfg.File (or are discarded when no file is set).
func setupLogging(cfg config.LogConfig, tuiActive bool) (io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	switch {
	case cfg.File != "":
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		out, closer = f, f
	case tuiActive:
		out = io.Discard
	}

	if cfg.Pretty && cfg.File == "" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return closer, nil
}
