// Package run implements the full pipeline run of the root command.
package run

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentstation/ppmi500"
	appcontext "github.com/agentstation/ppmi500/cmd/ppmi500/context"
	"github.com/agentstation/ppmi500/internal/cmd/inputs"
	"github.com/agentstation/ppmi500/internal/cmd/output"
	"github.com/agentstation/ppmi500/pkg/backfill"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/provenance"
	"github.com/agentstation/ppmi500/pkg/save"
	"github.com/agentstation/ppmi500/pkg/sources"
)

// Flags holds the run options.
type Flags struct {
	Strict         bool
	DryRun         bool
	ProvenanceFile string
}

// Report is the machine readable outcome of a run.
type Report struct {
	Output      string                          `json:"output,omitempty" yaml:"output,omitempty"`
	Rows        int                             `json:"rows" yaml:"rows"`
	Filled      map[string]int                  `json:"filled" yaml:"filled"`
	Sources     map[sources.ID]int              `json:"sources,omitempty" yaml:"sources,omitempty"`
	Missing     backfill.Report                 `json:"missing" yaml:"missing"`
	Diagnostics []*errors.UnrecognizedCodeError `json:"diagnostics" yaml:"diagnostics"`
	KeyCheck    string                          `json:"key_check,omitempty" yaml:"key_check,omitempty"`
	Warnings    []string                        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Summary     ppmi500.Summary                 `json:"summary" yaml:"summary"`
}

// Bind makes cmd run the full pipeline and adds the run flags.
func Bind(cmd *cobra.Command, app appcontext.Context) {
	flags := &Flags{}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir := inputs.Dir(args, app.DataDir())
		return Execute(cmd.Context(), app, dir, flags, cmd.OutOrStdout())
	}
	cmd.Flags().BoolVar(&flags.Strict, "strict", false, "abort on the first unrecognized QC code")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "report without writing any file")
	cmd.Flags().StringVar(&flags.ProvenanceFile, "provenance-file", "", "write the record of filled values to this YAML file")
}

// Execute runs the pipeline over dir, writes its outputs there and prints the report to w.
func Execute(ctx context.Context, app appcontext.Context, dir string, flags *Flags, w io.Writer) error {
	logger := app.Logger()
	files := app.Files()
	if flags.ProvenanceFile != "" {
		files.Provenance = flags.ProvenanceFile
	}

	// Step 1: Load inputs
	in, err := inputs.Load(app.Fs(), dir, files)
	if err != nil {
		return err
	}

	// Step 2: Build the pipeline; --strict needs its own instance
	var opts []ppmi500.Option
	if flags.Strict {
		opts = append(opts, ppmi500.WithStrictQC(true))
	}
	p, err := app.Pipeline(opts...)
	if err != nil {
		return err
	}

	filled := make(map[string]int)
	p.OnValueFilled(func(_ string, pv provenance.Provenance) {
		filled[pv.Field]++
	})

	// Step 3: Run
	res, err := p.Run(ctx, in)
	if err != nil {
		return err
	}

	// Step 4: Write outputs
	report := Report{
		Rows:        res.Table.Len(),
		Filled:      filled,
		Missing:     res.Missing,
		Diagnostics: res.QC.Diagnostics,
		Summary:     ppmi500.Summarize(res.Table),
	}
	if res.Demographics.Provenance != nil {
		report.Sources = provenance.GenerateReport(res.Demographics.Provenance).BySource()
	}
	report.Warnings = append(report.Warnings, res.Demographics.Warnings...)
	report.Warnings = append(report.Warnings, res.QC.Warnings...)
	if res.KeyCheck != nil {
		report.KeyCheck = res.KeyCheck.Error()
	}

	if !flags.DryRun {
		if err := res.Save(
			save.WithFs(app.Fs()),
			save.WithDir(dir),
			save.WithOutputFile(files.Output),
			save.WithQCFile(files.QCOutput),
			save.WithProvenanceFile(files.Provenance),
		); err != nil {
			return err
		}
		report.Output = inputs.Path(dir, files.Output)
	} else {
		logger.Info().Msg("Dry run; nothing written")
	}

	// Step 5: Print the report
	return printReport(w, output.Format(app.OutputFormat()), report, res)
}

func printReport(w io.Writer, format output.Format, report Report, res *ppmi500.Result) error {
	switch format {
	case output.FormatJSON, output.FormatYAML:
		return output.NewFormatter(format).Format(w, report)
	}

	wide := format == output.FormatWide
	if report.Output != "" {
		fmt.Fprintf(w, "Wrote %d rows to %s\n\n", report.Rows, report.Output)
	}
	if len(report.Filled) > 0 {
		fields := make([]string, 0, len(report.Filled))
		for f := range report.Filled {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(w, "Filled %d %s values\n", report.Filled[f], f)
		}
		ids := make([]sources.ID, 0, len(report.Sources))
		for id := range report.Sources {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			fmt.Fprintf(w, "%d fields now come from %s\n", report.Sources[id], id)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Missing after run:")
	if err := output.Render(w, format, res.Missing, output.MissingToData(res.Missing, wide)); err != nil {
		return err
	}

	if len(res.QC.Diagnostics) > 0 {
		fmt.Fprintf(w, "\n%d unrecognized QC codes (treated as missing):\n", len(res.QC.Diagnostics))
		if err := output.Render(w, format, res.QC.Diagnostics, output.DiagnosticsToData(res.QC.Diagnostics)); err != nil {
			return err
		}
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	if report.KeyCheck != "" {
		fmt.Fprintf(w, "Warning: %s\n", report.KeyCheck)
	}
	return nil
}
