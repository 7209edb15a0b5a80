// Package assemble implements the demographic assembly command.
package assemble

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	appcontext "github.com/agentstation/ppmi500/cmd/ppmi500/context"
	"github.com/agentstation/ppmi500/internal/cmd/inputs"
	"github.com/agentstation/ppmi500/internal/cmd/output"
	"github.com/agentstation/ppmi500/pkg/backfill"
	"github.com/agentstation/ppmi500/pkg/table"
)

// Report is the machine readable outcome of an assembly.
type Report struct {
	Rows          int             `json:"rows" yaml:"rows"`
	Filled        map[string]int  `json:"filled" yaml:"filled"`
	MissingBefore backfill.Report `json:"missing_before" yaml:"missing_before"`
	MissingAfter  backfill.Report `json:"missing_after" yaml:"missing_after"`
	Warnings      []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewCommand creates the assemble command.
func NewCommand(app appcontext.Context) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:     "assemble [dir]",
		GroupID: "core",
		Short:   "Assemble and backfill the demographic table",
		Long: `Assemble joins the demographic table to the identity visits and backfills
commonSex, joinedDX and age_BL from the configured sources.

It reports, per field, the subjects missing before and after the backfill.
The assembled table is written only when --out is given.`,
		Example: `  ppmi500 assemble ./data
  ppmi500 assemble ./data --out demographics.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := inputs.Dir(args, app.DataDir())
			return execute(cmd, app, dir, out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the assembled table to this CSV file (relative to dir)")
	return cmd
}

func execute(cmd *cobra.Command, app appcontext.Context, dir, out string) error {
	ctx := cmd.Context()
	files := app.Files()

	identity, err := inputs.Identity(app.Fs(), dir, files)
	if err != nil {
		return err
	}
	demographic, err := inputs.Demographic(app.Fs(), dir, files)
	if err != nil {
		return err
	}

	p, err := app.Pipeline()
	if err != nil {
		return err
	}
	res, err := p.Assemble(ctx, identity, demographic)
	if err != nil {
		return err
	}

	if out != "" {
		path := inputs.Path(dir, out)
		if err := table.WriteFile(app.Fs(), path, res.Table); err != nil {
			return err
		}
		app.Logger().Info().Str("path", path).Int("rows", res.Table.Len()).Msg("Wrote demographics")
	}

	report := Report{
		Rows:          res.Table.Len(),
		Filled:        res.Filled,
		MissingBefore: res.MissingBefore,
		MissingAfter:  res.MissingAfter,
		Warnings:      res.Warnings,
	}
	return printReport(cmd.OutOrStdout(), output.Format(app.OutputFormat()), report)
}

func printReport(w io.Writer, format output.Format, report Report) error {
	switch format {
	case output.FormatJSON, output.FormatYAML:
		return output.NewFormatter(format).Format(w, report)
	}
	fmt.Fprintf(w, "Assembled %d visits\n\n", report.Rows)
	if err := output.Render(w, format, report, output.BackfillToData(report.MissingBefore, report.MissingAfter, report.Filled)); err != nil {
		return err
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	return nil
}
