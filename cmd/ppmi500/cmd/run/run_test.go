package run_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500"
	"github.com/agentstation/ppmi500/cmd/ppmi500/cmd/run"
	appcontext "github.com/agentstation/ppmi500/cmd/ppmi500/context"
	"github.com/agentstation/ppmi500/internal/cmd/cmdtest"
	"github.com/agentstation/ppmi500/internal/cmd/inputs"
	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/sources"
	"github.com/agentstation/ppmi500/pkg/table"
)

func mockApp(fs afero.Fs, format string) *appcontext.MockContext {
	return &appcontext.MockContext{
		FsFunc:           func() afero.Fs { return fs },
		DataDirFunc:      func() string { return "/data" },
		FilesFunc:        cmdtest.Files,
		OutputFormatFunc: func() string { return format },
		PipelineFunc: func(opts ...ppmi500.Option) (ppmi500.Pipeline, error) {
			base := []ppmi500.Option{
				ppmi500.WithSexLookup(sources.SexLookupFunc(func(_ context.Context, id string) (null.String, error) {
					if id == "3001" {
						return null.StringFrom("M"), nil
					}
					return null.String{}, nil
				})),
				ppmi500.WithMetadataSource(sources.MetadataFunc(func(context.Context) (*table.Table, error) {
					return table.ReadCSV(strings.NewReader(cmdtest.Metadata), "metadata")
				})),
			}
			return ppmi500.New(append(base, opts...)...)
		},
	}
}

func execute(t *testing.T, app appcontext.Context, args ...string) (string, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "ppmi500 [dir]"}
	run.Bind(cmd, app)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := cmdtest.Write(t, fs, "/data")

	out, err := execute(t, mockApp(fs, "json"))
	require.NoError(t, err)

	var report run.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, "/data/"+files.Output, report.Output)
	assert.Equal(t, 1, report.Filled[constants.ColAgeBL])
	assert.Equal(t, 1, report.Filled[constants.ColJoinedDX])
	assert.Equal(t, map[sources.ID]int{sources.SubjectJSON: 1, sources.Metadata: 2}, report.Sources)
	assert.Empty(t, report.Missing.Get(constants.ColCommonSex))
	assert.Equal(t, []string{"3002"}, report.Missing.Get(constants.ColHasHumanQC))
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "LF", report.Diagnostics[0].Site)
	assert.Equal(t, "maybe", report.Diagnostics[0].Value)
	assert.Empty(t, report.KeyCheck)
	assert.Equal(t, 2, report.Summary.Subjects)

	written, err := table.ReadFile(fs, inputs.Path("/data", files.Output))
	require.NoError(t, err)
	assert.Equal(t, 3, written.Len())
	assert.Equal(t, "Male", written.Get(0, constants.ColCommonSex).String)

	merged, err := table.ReadFile(fs, inputs.Path("/data", files.QCOutput))
	require.NoError(t, err)
	assert.Equal(t, 2, merged.Len())
}

func TestRunTableOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	cmdtest.Write(t, fs, "/other")

	out, err := execute(t, mockApp(fs, "table"), "/other", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Missing after run:")
	assert.Contains(t, out, "1 unrecognized QC codes")
	assert.Contains(t, out, "Filled 1 age_BL values")
	assert.Contains(t, out, "2 fields now come from metadata")
	assert.NotContains(t, out, "Wrote")

	exists, err := afero.Exists(fs, "/other/"+constants.DefaultOutputFile)
	require.NoError(t, err)
	assert.False(t, exists, "dry run writes nothing")
}

func TestRunStrict(t *testing.T) {
	fs := afero.NewMemMapFs()
	cmdtest.Write(t, fs, "/data")

	_, err := execute(t, mockApp(fs, "json"), "--strict")
	require.Error(t, err)
	assert.True(t, errors.IsUnrecognizedCode(err))
}

func TestRunProvenanceFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	cmdtest.Write(t, fs, "/data")

	_, err := execute(t, mockApp(fs, "yaml"), "--provenance-file", "provenance.yaml")
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/data/provenance.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "3001:commonSex")
}

func TestRunMissingInput(t *testing.T) {
	_, err := execute(t, mockApp(afero.NewMemMapFs(), "json"))
	assert.True(t, errors.IsNotFound(err))
}
