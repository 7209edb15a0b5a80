// Package qc implements the QC consolidation command.
package qc

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/agentstation/ppmi500"
	appcontext "github.com/agentstation/ppmi500/cmd/ppmi500/context"
	"github.com/agentstation/ppmi500/internal/cmd/inputs"
	"github.com/agentstation/ppmi500/internal/cmd/output"
	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/table"
)

// Flags holds the qc options.
type Flags struct {
	Strict bool
	DryRun bool
}

// Report is the machine readable outcome of a consolidation.
type Report struct {
	Output      string                          `json:"output,omitempty" yaml:"output,omitempty"`
	Images      int                             `json:"images" yaml:"images"`
	Reviewed    int                             `json:"reviewed" yaml:"reviewed"`
	Skipped     int                             `json:"skipped" yaml:"skipped"`
	Diagnostics []*errors.UnrecognizedCodeError `json:"diagnostics" yaml:"diagnostics"`
	Warnings    []string                        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewCommand creates the qc command.
func NewCommand(app appcontext.Context) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "qc [dir]",
		GroupID: "core",
		Short:   "Consolidate the per-site human QC reviews",
		Long: `QC unions the per-site reviewer tables, reduces them to one row per image
with a false-dominant consensus per modality, aggregates the failure reasons
and writes the consolidated table.

When the identity table carries imageID its subjectID and date win over the
sites' own values. Unrecognized reviewer codes are reported and treated as
missing unless --strict is given.`,
		Example: `  ppmi500 qc ./data
  ppmi500 qc ./data --strict -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := inputs.Dir(args, app.DataDir())
			return execute(cmd, app, dir, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.Strict, "strict", false, "abort on the first unrecognized QC code")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "report without writing the consolidated table")
	return cmd
}

func execute(cmd *cobra.Command, app appcontext.Context, dir string, flags *Flags) error {
	ctx := cmd.Context()
	fs := app.Fs()
	files := app.Files()

	sites, err := inputs.Sites(fs, dir, files)
	if err != nil {
		return err
	}

	// The identity table is optional here
	var identity *table.Table
	if ok, _ := afero.Exists(fs, inputs.Path(dir, files.Identity)); ok {
		if identity, err = inputs.Identity(fs, dir, files); err != nil {
			return err
		}
	} else {
		app.Logger().Warn().Str("file", files.Identity).Msg("Identity table not found; site keys kept")
	}

	var opts []ppmi500.Option
	if flags.Strict {
		opts = append(opts, ppmi500.WithStrictQC(true))
	}
	p, err := app.Pipeline(opts...)
	if err != nil {
		return err
	}
	res, err := p.Consolidate(ctx, sites, identity)
	if err != nil {
		return err
	}

	report := Report{
		Images:      res.Table.Len(),
		Reviewed:    res.Table.Filter(func(r table.Row) bool { return r.Get(constants.ColHasHumanQC).ValueOrZero() == "1" }).Len(),
		Skipped:     res.Skipped,
		Diagnostics: res.Diagnostics,
		Warnings:    res.Warnings,
	}
	if !flags.DryRun {
		path := inputs.Path(dir, files.QCOutput)
		if err := table.WriteFile(fs, path, res.Table); err != nil {
			return err
		}
		report.Output = path
	}
	return printReport(cmd.OutOrStdout(), output.Format(app.OutputFormat()), report)
}

func printReport(w io.Writer, format output.Format, report Report) error {
	switch format {
	case output.FormatJSON, output.FormatYAML:
		return output.NewFormatter(format).Format(w, report)
	}
	if report.Output != "" {
		fmt.Fprintf(w, "Wrote %d images to %s\n", report.Images, report.Output)
	}
	fmt.Fprintf(w, "%d of %d images have a human QC verdict\n", report.Reviewed, report.Images)
	if len(report.Diagnostics) > 0 {
		fmt.Fprintf(w, "\n%d unrecognized QC codes (treated as missing):\n", len(report.Diagnostics))
		if err := output.Render(w, format, report.Diagnostics, output.DiagnosticsToData(report.Diagnostics)); err != nil {
			return err
		}
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	return nil
}
