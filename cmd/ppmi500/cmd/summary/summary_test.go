package summary_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ppmi500"
	"github.com/agentstation/ppmi500/cmd/ppmi500/cmd/summary"
	appcontext "github.com/agentstation/ppmi500/cmd/ppmi500/context"
	"github.com/agentstation/ppmi500/pkg/errors"
)

const curated = `subjectID,date,modality,joinedDX,commonSex,age_BL,has_humanqc
3001,20180101,T1w,PD,Male,67.1,1
3001,20180101,DTI,PD,Male,67.1,1
3002,20190101,DTI,Prodromal,Female,,1
3003,20200101,,,,,
`

func TestSummaryCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/curated.csv", []byte(curated), 0o644))
	app := &appcontext.MockContext{
		FsFunc:           func() afero.Fs { return fs },
		OutputFormatFunc: func() string { return "json" },
	}

	cmd := summary.NewCommand(app)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"/data", "--file", "curated.csv"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var s ppmi500.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &s))
	assert.Equal(t, 4, s.Rows)
	assert.Equal(t, 3, s.Subjects)
	assert.Equal(t, 1, s.T1wSubjects)
	assert.Equal(t, []ppmi500.Count{{Value: "DTI", Count: 2}, {Value: "T1w", Count: 1}}, s.Modalities)
	assert.Equal(t, []ppmi500.Count{{Value: "PD", Count: 1}, {Value: "Prodromal", Count: 1}}, s.Diagnoses)
}

func TestSummaryCommandTable(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/PPMI500_demographic_QC.csv", []byte(curated), 0o644))
	app := &appcontext.MockContext{
		FsFunc:      func() afero.Fs { return fs },
		DataDirFunc: func() string { return "/data" },
	}

	cmd := summary.NewCommand(app)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, buf.String(), "Modality: DTI")
	assert.Contains(t, buf.String(), "Missing: age_BL")
}

func TestSummaryCommandMissingFile(t *testing.T) {
	app := &appcontext.MockContext{FsFunc: afero.NewMemMapFs}
	cmd := summary.NewCommand(app)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nowhere"})
	err := cmd.ExecuteContext(context.Background())
	assert.True(t, errors.IsNotFound(err))
}
