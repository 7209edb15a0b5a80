package ppmi500

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/ppmi500/pkg/authority"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/qc"
	"github.com/agentstation/ppmi500/pkg/sources"
)

// config holds the pipeline configuration.
type config struct {
	logger      *zerolog.Logger
	sexLookup   sources.SexLookup
	metadata    sources.MetadataSource
	authorities authority.Authority
	sexCodes    map[string]string
	schema      *qc.Schema
	strictQC    bool
	provenance  bool
}

func defaultConfig() *config {
	return &config{provenance: true}
}

// Option is a function that configures a Pipeline.
type Option func(*config) error

// options applies the given options to the pipeline configuration.
func (p *pipeline) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(p.config); err != nil {
			return err
		}
	}
	return nil
}

// WithLogger sets the logger used by every stage.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithSexLookup configures the per-subject document lookup used to backfill commonSex.
// Without one the subject_json source is skipped.
func WithSexLookup(lookup sources.SexLookup) Option {
	return func(c *config) error {
		if lookup == nil {
			return &errors.ValidationError{
				Field:   "sexLookup",
				Message: "cannot be nil",
			}
		}
		c.sexLookup = lookup
		return nil
	}
}

// WithMetadataSource configures where the release metadata table comes from.
// Without one the metadata source is skipped.
func WithMetadataSource(src sources.MetadataSource) Option {
	return func(c *config) error {
		if src == nil {
			return &errors.ValidationError{
				Field:   "metadataSource",
				Message: "cannot be nil",
			}
		}
		c.metadata = src
		return nil
	}
}

// WithAuthorities replaces the default backfill chain.
func WithAuthorities(a authority.Authority) Option {
	return func(c *config) error {
		if a == nil {
			return &errors.ValidationError{
				Field:   "authorities",
				Message: "cannot be nil",
			}
		}
		c.authorities = a
		return nil
	}
}

// WithSexCodes replaces the commonSex code normalization map.
func WithSexCodes(codes map[string]string) Option {
	return func(c *config) error {
		c.sexCodes = codes
		return nil
	}
}

// WithQCSchema replaces the default QC column layout.
func WithQCSchema(s qc.Schema) Option {
	return func(c *config) error {
		if err := s.Validate(); err != nil {
			return err
		}
		c.schema = &s
		return nil
	}
}

// WithStrictQC makes an unrecognized reviewer code abort the run.
func WithStrictQC(strict bool) Option {
	return func(c *config) error {
		c.strictQC = strict
		return nil
	}
}

// WithProvenance configures whether filled values are tracked.
func WithProvenance(enabled bool) Option {
	return func(c *config) error {
		c.provenance = enabled
		return nil
	}
}
