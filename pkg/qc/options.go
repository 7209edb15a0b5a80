package qc

import (
	"github.com/rs/zerolog"
)

// options configures a Consolidator.
type options struct {
	schema Schema
	strict bool
	logger *zerolog.Logger
}

func defaultOptions() *options {
	return &options{schema: DefaultSchema()}
}

// Option is a function that configures a Consolidator.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithSchema replaces the default column layout.
func WithSchema(s Schema) Option {
	return func(o *options) error {
		if err := s.Validate(); err != nil {
			return err
		}
		o.schema = s
		return nil
	}
}

// WithStrict makes the first unrecognized reviewer code a returned error
// instead of a diagnostic.
func WithStrict(strict bool) Option {
	return func(o *options) error {
		o.strict = strict
		return nil
	}
}

// WithLogger sets the logger. By default the context logger is used.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}
