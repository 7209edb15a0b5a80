// Package save configures where a pipeline run is written.
package save

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/agentstation/ppmi500/pkg/constants"
)

// Options is the configuration for save.
type Options struct {
	fs             afero.Fs
	dir            string
	outputFile     string
	qcFile         string
	provenanceFile string
}

// Fs returns the filesystem written to.
func (s *Options) Fs() afero.Fs {
	return s.fs
}

// OutputPath returns the path of the flat output table.
func (s *Options) OutputPath() string {
	return s.join(s.outputFile)
}

// QCPath returns the path of the consolidated QC table, or "" when disabled.
func (s *Options) QCPath() string {
	return s.join(s.qcFile)
}

// ProvenancePath returns the path of the provenance file, or "" when disabled.
func (s *Options) ProvenancePath() string {
	return s.join(s.provenanceFile)
}

func (s *Options) join(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// Defaults returns the default save options.
func Defaults() *Options {
	return &Options{
		fs:         afero.NewOsFs(),
		dir:        ".",
		outputFile: constants.DefaultOutputFile,
		qcFile:     constants.DefaultQCOutputFile,
	}
}

// Apply applies the given options to the save options.
func (s *Options) Apply(opts ...Option) Options {
	for _, opt := range opts {
		opt(s)
	}
	return *s
}

// Option is a function that configures save options.
type Option func(*Options)

// WithFs writes to fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Options) {
		s.fs = fs
	}
}

// WithDir sets the directory relative file names resolve against.
func WithDir(dir string) Option {
	return func(s *Options) {
		s.dir = dir
	}
}

// WithOutputFile sets the flat output file name.
func WithOutputFile(name string) Option {
	return func(s *Options) {
		s.outputFile = name
	}
}

// WithQCFile sets the consolidated QC file name. Empty disables it.
func WithQCFile(name string) Option {
	return func(s *Options) {
		s.qcFile = name
	}
}

// WithProvenanceFile sets the provenance YAML file name. Empty disables it.
func WithProvenanceFile(name string) Option {
	return func(s *Options) {
		s.provenanceFile = name
	}
}
