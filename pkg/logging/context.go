package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const loggerKey contextKey = iota

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}

	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}

	return Default()
}

// WithField adds a single field to the logger in the context.
func WithField(ctx context.Context, key string, value any) context.Context {
	newLogger := addField(FromContext(ctx).With(), key, value).Logger()
	return WithLogger(ctx, &newLogger)
}

// WithStage tags log lines with the pipeline stage (assemble, qc, attach).
func WithStage(ctx context.Context, stage string) context.Context {
	return WithField(ctx, "stage", stage)
}

// WithSite tags log lines with a QC review site.
func WithSite(ctx context.Context, site string) context.Context {
	return WithField(ctx, "site", site)
}

// WithSubject tags log lines with a subject identifier.
func WithSubject(ctx context.Context, subjectID string) context.Context {
	return WithField(ctx, "subject_id", subjectID)
}

// WithSource tags log lines with a backfill source.
func WithSource(ctx context.Context, source string) context.Context {
	return WithField(ctx, "source", source)
}
