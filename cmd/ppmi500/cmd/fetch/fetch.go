// Package fetch implements the command that mirrors the remote collaborator
// to a local directory.
package fetch

import (
	"context"
	"path"

	"github.com/spf13/cobra"

	appcontext "github.com/agentstation/ppmi500/cmd/ppmi500/context"
	"github.com/agentstation/ppmi500/internal/cmd/inputs"
	"github.com/agentstation/ppmi500/internal/cmd/output"
	"github.com/agentstation/ppmi500/internal/sources/local"
	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/logging"
)

// Flags holds the fetch options.
type Flags struct {
	Subjects bool
}

// Result describes what a fetch wrote.
type Result struct {
	Root          string   `json:"root" yaml:"root"`
	MetadataBytes int      `json:"metadata_bytes" yaml:"metadata_bytes"`
	Documents     int      `json:"documents" yaml:"documents"`
	NoDocument    []string `json:"no_document,omitempty" yaml:"no_document,omitempty"`
}

// NewCommand creates the fetch command.
func NewCommand(app appcontext.Context) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "fetch [dir]",
		GroupID: "data",
		Short:   "Mirror the release metadata and subject documents locally",
		Long: `Fetch downloads the release metadata CSV from the object store into a
local mirror directory, using the same key layout, so later runs can set
metadata_source to local and work offline.

With --subjects it also stores the first JSON document of every subject in
the identity table. Calls are sequential and the first failure aborts.
The mirror directory defaults to the local_root setting.`,
		Example: `  ppmi500 fetch
  ppmi500 fetch ./mirror --subjects`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := inputs.Dir(args, app.LocalRoot())
			res, err := Execute(cmd.Context(), app, root, flags)
			if err != nil {
				return err
			}
			return output.NewFormatter(output.Format(app.OutputFormat())).Format(cmd.OutOrStdout(), *res)
		},
	}
	cmd.Flags().BoolVar(&flags.Subjects, "subjects", false, "also fetch the identity subjects' JSON documents")
	return cmd
}

// Execute copies the remote objects into the mirror at root.
func Execute(ctx context.Context, app appcontext.Context, root string, flags *Flags) (*Result, error) {
	ctx = logging.WithStage(logging.WithLogger(ctx, app.Logger()), "fetch")
	logger := logging.FromContext(ctx)

	remote, err := app.Remote()
	if err != nil {
		return nil, err
	}
	if remote == nil {
		return nil, &errors.ConfigError{Component: "remote", Message: "no object store configured"}
	}
	mirror := app.Mirror(root)
	res := &Result{Root: mirror.Root()}

	// Step 1: Metadata table
	data, err := remote.Object(ctx, remote.MetadataKey())
	if err != nil {
		return nil, err
	}
	if err := mirror.Put(mirror.MetadataKey(), data); err != nil {
		return nil, err
	}
	res.MetadataBytes = len(data)
	logger.Info().Str("key", remote.MetadataKey()).Int("bytes", len(data)).Msg("Mirrored metadata")

	if !flags.Subjects {
		return res, nil
	}

	// Step 2: Subject documents
	identity, err := inputs.Identity(app.Fs(), app.DataDir(), app.Files())
	if err != nil {
		return nil, err
	}
	identity = identity.Canonicalize(constants.ColSubjectID)
	for _, subject := range identity.Unique(constants.ColSubjectID) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := fetchDocument(ctx, remote, mirror, subject, res); err != nil {
			return nil, err
		}
	}
	logger.Info().Int("documents", res.Documents).Int("without", len(res.NoDocument)).Msg("Mirrored subject documents")
	return res, nil
}

// fetchDocument stores the subject's first document directly under its folder,
// where the mirror looks for it.
func fetchDocument(ctx context.Context, remote appcontext.Remote, mirror *local.Mirror, subject string, res *Result) error {
	key, data, err := remote.Document(ctx, subject)
	if err != nil {
		return err
	}
	if key == "" {
		res.NoDocument = append(res.NoDocument, subject)
		return nil
	}
	if err := mirror.Put(mirror.SubjectKey(subject, path.Base(key)), data); err != nil {
		return err
	}
	res.Documents++
	return nil
}
