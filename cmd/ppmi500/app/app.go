// Package app provides the application context and dependency management
// for the ppmi500 CLI. It centralizes configuration, logging, the remote
// collaborator and the pipeline instance.
package app

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/ppmi500"
	appcontext "github.com/agentstation/ppmi500/cmd/ppmi500/context"
	"github.com/agentstation/ppmi500/internal/cmd/inputs"
	"github.com/agentstation/ppmi500/internal/sources/cache"
	"github.com/agentstation/ppmi500/internal/sources/local"
	"github.com/agentstation/ppmi500/internal/sources/s3store"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/sources"
)

// Compile-time interface check.
var _ appcontext.Context = (*App)(nil)

// App represents the ppmi500 application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	fs     afero.Fs

	// Lazy-initialized, guarded by mu
	mu       sync.RWMutex
	client   s3iface.S3API
	store    *s3store.Store
	lookups  *cache.SexLookup
	pipeline ppmi500.Pipeline
}

// New creates a new App instance with the given version information.
// Configuration is loaded from the environment and config files and can be
// replaced with functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		fs:      afero.NewOsFs(),
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured report format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Fs returns the filesystem used for inputs and outputs.
func (a *App) Fs() afero.Fs {
	return a.fs
}

// DataDir returns the configured data directory.
func (a *App) DataDir() string {
	return a.config.DataDir
}

// LocalRoot returns the configured mirror directory.
func (a *App) LocalRoot() string {
	return a.config.LocalRoot
}

// Files returns the configured file names.
func (a *App) Files() inputs.Files {
	return a.config.Files()
}

// Mirror returns a local mirror rooted at root using the configured key layout.
func (a *App) Mirror(root string) *local.Mirror {
	return local.New(a.fs, root,
		local.WithSubjectPrefix(a.config.S3SubjectPrefix),
		local.WithMetadataKey(a.config.S3MetadataKey),
		local.WithSexField(a.config.SexField),
	)
}

// Remote returns the object store, creating the client lazily.
func (a *App) Remote() (appcontext.Remote, error) {
	store, err := a.s3Store()
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (a *App) s3Store() (*s3store.Store, error) {
	a.mu.RLock()
	if a.store != nil {
		s := a.store
		a.mu.RUnlock()
		return s, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.store != nil {
		return a.store, nil
	}
	if a.client == nil {
		client, err := s3store.NewClient(a.config.S3Region)
		if err != nil {
			return nil, err
		}
		a.client = client
	}
	a.store = s3store.New(a.client,
		s3store.WithBucket(a.config.S3Bucket),
		s3store.WithSubjectPrefix(a.config.S3SubjectPrefix),
		s3store.WithMetadataKey(a.config.S3MetadataKey),
		s3store.WithSexField(a.config.SexField),
	)
	return a.store, nil
}

// Pipeline returns the pipeline. Without options the instance is created once
// and cached; with options a new one is built on top of the configured ones.
func (a *App) Pipeline(opts ...ppmi500.Option) (ppmi500.Pipeline, error) {
	if len(opts) > 0 {
		base, err := a.pipelineOptions()
		if err != nil {
			return nil, err
		}
		return ppmi500.New(append(base, opts...)...)
	}

	a.mu.RLock()
	if a.pipeline != nil {
		p := a.pipeline
		a.mu.RUnlock()
		return p, nil
	}
	a.mu.RUnlock()

	base, err := a.pipelineOptions()
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipeline != nil {
		return a.pipeline, nil
	}
	p, err := ppmi500.New(base...)
	if err != nil {
		return nil, err
	}
	a.pipeline = p
	return p, nil
}

// pipelineOptions translates the configuration into pipeline options.
func (a *App) pipelineOptions() ([]ppmi500.Option, error) {
	opts := []ppmi500.Option{
		ppmi500.WithLogger(a.logger),
		ppmi500.WithStrictQC(a.config.StrictQC),
	}
	if a.config.SexCodes != nil {
		opts = append(opts, ppmi500.WithSexCodes(a.config.SexCodes))
	}

	var lookup sources.SexLookup
	var metadata sources.MetadataSource
	switch a.config.MetadataSource {
	case SourceS3:
		store, err := a.s3Store()
		if err != nil {
			return nil, err
		}
		lookup, metadata = store, store
	case SourceLocal:
		m := a.Mirror(a.config.LocalRoot)
		lookup, metadata = m, m
	case SourceNone:
		a.logger.Warn().Msg("No metadata source configured; subject_json and metadata backfill skipped")
		return opts, nil
	default:
		return nil, &errors.ConfigError{Component: "metadata_source", Message: "unknown source " + a.config.MetadataSource}
	}

	if a.config.LookupCacheSize > 0 {
		cached, err := a.lookupCache(lookup)
		if err != nil {
			return nil, err
		}
		lookup = cached
	}
	return append(opts, ppmi500.WithSexLookup(lookup), ppmi500.WithMetadataSource(metadata)), nil
}

func (a *App) lookupCache(next sources.SexLookup) (*cache.SexLookup, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lookups == nil {
		c, err := cache.New(next, a.config.LookupCacheSize)
		if err != nil {
			return nil, &errors.ConfigError{Component: "lookup_cache_size", Message: "creating cache", Err: err}
		}
		a.lookups = c
	}
	return a.lookups, nil
}

// Shutdown releases the application's resources and logs lookup cache use.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.RLock()
	lookups := a.lookups
	a.mu.RUnlock()

	if lookups != nil {
		stats := lookups.Stats()
		a.logger.Debug().
			Int64("hits", stats.Hits).
			Int64("misses", stats.Misses).
			Int("size", stats.Size).
			Msg("Subject lookup cache")
		lookups.Purge()
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return &errors.ValidationError{Field: "config", Message: "cannot be nil"}
		}
		if err := config.Validate(); err != nil {
			return err
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithFs sets the filesystem used for inputs and outputs.
func WithFs(fs afero.Fs) Option {
	return func(a *App) error {
		a.fs = fs
		return nil
	}
}

// WithS3Client sets the object store client instead of one from the default
// AWS credential chain.
func WithS3Client(client s3iface.S3API) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}

// WithPipeline sets a custom pipeline instance (useful for testing).
func WithPipeline(p ppmi500.Pipeline) Option {
	return func(a *App) error {
		a.pipeline = p
		return nil
	}
}
