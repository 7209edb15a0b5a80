// Package summary implements the summary command.
package summary

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/ppmi500"
	appcontext "github.com/agentstation/ppmi500/cmd/ppmi500/context"
	"github.com/agentstation/ppmi500/internal/cmd/inputs"
	"github.com/agentstation/ppmi500/internal/cmd/output"
)

// NewCommand creates the summary command.
func NewCommand(app appcontext.Context) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:     "summary [dir]",
		GroupID: "data",
		Short:   "Summarize a curated output table",
		Long: `Summary reads the curated output table and reports unique subjects,
subjects with a T1w image, images per modality, subjects per diagnosis and
the null count of every reported field.`,
		Example: `  ppmi500 summary ./data
  ppmi500 summary --file other.csv -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := inputs.Dir(args, app.DataDir())
			if file == "" {
				file = app.Files().Output
			}
			t, err := inputs.Read(app.Fs(), inputs.Path(dir, file))
			if err != nil {
				return err
			}
			s := ppmi500.Summarize(t)
			return output.Render(cmd.OutOrStdout(), output.Format(app.OutputFormat()), s, output.SummaryToData(s))
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "output table to summarize (default is the output_file setting)")
	return cmd
}
