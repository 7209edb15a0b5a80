// Package context provides the application context interface for ppmi500 commands.
//
// The Context interface defines the contract between the application layer and
// command implementations, so commands can be tested with MockContext and an
// in-memory filesystem.
//
// Usage in Commands:
//
//	func NewCommand(appCtx context.Context) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            p, err := appCtx.Pipeline()
//	            if err != nil {
//	                return err
//	            }
//	            in, err := inputs.Load(appCtx.Fs(), appCtx.DataDir(), appCtx.Files())
//	            // ...
//	        },
//	    }
//	}
package context

import (
	stdctx "context"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/ppmi500"
	"github.com/agentstation/ppmi500/internal/cmd/inputs"
	"github.com/agentstation/ppmi500/internal/sources/local"
)

// Remote is the read side of the curated object store used by fetch.
type Remote interface {
	// Object returns the body of key.
	Object(ctx stdctx.Context, key string) ([]byte, error)

	// Document returns the key and body of the subject's first JSON document.
	// key is empty when the subject has none.
	Document(ctx stdctx.Context, subjectID string) (key string, data []byte, err error)

	// MetadataKey returns the key of the metadata CSV.
	MetadataKey() string
}

// Context provides what commands need from the application.
//
// Thread Safety: All methods must be safe for concurrent access.
type Context interface {
	// Pipeline returns the configured pipeline. Without options the cached
	// instance is returned; options build a new one on top of the configured ones.
	Pipeline(opts ...ppmi500.Option) (ppmi500.Pipeline, error)

	// Remote returns the object store client.
	Remote() (Remote, error)

	// Mirror returns a local mirror rooted at root with the configured key layout.
	Mirror(root string) *local.Mirror

	// Fs returns the filesystem inputs are read from and outputs written to.
	Fs() afero.Fs

	// DataDir returns the configured data directory.
	DataDir() string

	// LocalRoot returns the configured mirror directory.
	LocalRoot() string

	// Files returns the configured file names.
	Files() inputs.Files

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured report format (table, json, yaml, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
