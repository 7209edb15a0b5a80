package context

import (
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/ppmi500"
	"github.com/agentstation/ppmi500/internal/cmd/inputs"
	"github.com/agentstation/ppmi500/internal/sources/local"
)

// MockContext provides a mock implementation of Context for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default value.
//
// Example Usage:
//
//	mock := &context.MockContext{
//	    FsFunc: func() afero.Fs { return fs },
//	    PipelineFunc: func(opts ...ppmi500.Option) (ppmi500.Pipeline, error) {
//	        return ppmi500.New(opts...)
//	    },
//	}
//	cmd := run.NewCommand(mock)
type MockContext struct {
	PipelineFunc     func(opts ...ppmi500.Option) (ppmi500.Pipeline, error)
	RemoteFunc       func() (Remote, error)
	FsFunc           func() afero.Fs
	DataDirFunc      func() string
	LocalRootFunc    func() string
	FilesFunc        func() inputs.Files
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

// Pipeline returns a pipeline using the mock function or one with no sources.
func (m *MockContext) Pipeline(opts ...ppmi500.Option) (ppmi500.Pipeline, error) {
	if m.PipelineFunc != nil {
		return m.PipelineFunc(opts...)
	}
	return ppmi500.New(append([]ppmi500.Option{ppmi500.WithLogger(m.Logger())}, opts...)...)
}

// Remote returns a remote using the mock function or nil.
func (m *MockContext) Remote() (Remote, error) {
	if m.RemoteFunc != nil {
		return m.RemoteFunc()
	}
	return nil, nil
}

// Mirror returns a default layout mirror on Fs.
func (m *MockContext) Mirror(root string) *local.Mirror {
	return local.New(m.Fs(), root)
}

// Fs returns a filesystem using the mock function or a fresh in-memory one.
func (m *MockContext) Fs() afero.Fs {
	if m.FsFunc != nil {
		return m.FsFunc()
	}
	return afero.NewMemMapFs()
}

// DataDir returns the data directory using the mock function or ".".
func (m *MockContext) DataDir() string {
	if m.DataDirFunc != nil {
		return m.DataDirFunc()
	}
	return "."
}

// LocalRoot returns the mirror directory using the mock function or "mirror".
func (m *MockContext) LocalRoot() string {
	if m.LocalRootFunc != nil {
		return m.LocalRootFunc()
	}
	return "mirror"
}

// Files returns file names using the mock function or the defaults.
func (m *MockContext) Files() inputs.Files {
	if m.FilesFunc != nil {
		return m.FilesFunc()
	}
	return inputs.DefaultFiles()
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *MockContext) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "table".
func (m *MockContext) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns version using the mock function or "dev".
func (m *MockContext) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *MockContext) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *MockContext) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "test".
func (m *MockContext) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

// Ensure MockContext implements Context at compile time.
var _ Context = (*MockContext)(nil)
