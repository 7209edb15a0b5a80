// Package logging provides structured logging for the ppmi500 pipeline using zerolog.
// Console output is used when stderr is a terminal and JSON lines otherwise,
// so curation runs can be read interactively or collected by a scheduler.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("stage", "assemble").Int("rows", 512).Msg("Joined identity table")
//
//	ctx := logging.WithStage(context.Background(), "qc")
//	logging.FromContext(ctx).Warn().Str("site", "AR").Msg("Unrecognized QC code")
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger zerolog.Logger

	// Nop logger for discarding output.
	Nop = zerolog.Nop()
)

func init() {
	cfg := ConfigFromEnv()
	if cfg.Level == "info" && os.Getenv("DEBUG") != "" {
		cfg.Level = "debug"
	}
	defaultLogger = NewLoggerFromConfig(cfg)
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// New creates a new JSON logger writing to w at the global level.
func New(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).
		Level(zerolog.GlobalLevel()).
		With().
		Timestamp().
		Logger()
}

// Debug starts a new debug level log event.
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info starts a new info level log event.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a new warning level log event.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error starts a new error level log event.
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// Err creates a new error log event with the given error.
func Err(err error) *zerolog.Event {
	return defaultLogger.Err(err)
}
