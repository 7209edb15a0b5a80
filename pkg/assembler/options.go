package assembler

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/ppmi500/pkg/authority"
	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
)

// options configures an assembler.
type options struct {
	authorities authority.Authority
	codes       map[string]map[string]string // field -> raw code -> canonical value
	tracking    bool
	logger      *zerolog.Logger
}

func defaultOptions() *options {
	return &options{
		authorities: authority.Default(),
		codes: map[string]map[string]string{
			constants.ColCommonSex: DefaultSexCodes(),
		},
		tracking: true,
	}
}

// DefaultSexCodes maps the raw sex codes found in subject documents to the
// spelling used in the demographic table.
func DefaultSexCodes() map[string]string {
	return map[string]string{"M": constants.SexMale}
}

// Option is a function that configures an Assembler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithAuthorities sets the backfill chain.
func WithAuthorities(authorities authority.Authority) Option {
	return func(o *options) error {
		if authorities == nil {
			return &errors.ValidationError{
				Field:   "authorities",
				Message: "cannot be nil",
			}
		}
		o.authorities = authorities
		return nil
	}
}

// WithCodes sets the code normalization map applied to field after it is
// backfilled. An empty map disables normalization for the field.
func WithCodes(field string, codes map[string]string) Option {
	return func(o *options) error {
		if field == "" {
			return &errors.ValidationError{
				Field:   "field",
				Message: "cannot be empty",
			}
		}
		copied := make(map[string]string, len(codes))
		for k, v := range codes {
			copied[k] = v
		}
		o.codes[field] = copied
		return nil
	}
}

// WithSexCodes is WithCodes for commonSex.
func WithSexCodes(codes map[string]string) Option {
	return WithCodes(constants.ColCommonSex, codes)
}

// WithProvenance enables per-subject tracking of filled values.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.tracking = enabled
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
