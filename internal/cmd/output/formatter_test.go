package output_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ppmi500"
	"github.com/agentstation/ppmi500/internal/cmd/output"
	"github.com/agentstation/ppmi500/pkg/backfill"
	"github.com/agentstation/ppmi500/pkg/errors"
)

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"table", "JSON", "yaml", "wide", ""} {
		_, err := output.ParseFormat(in)
		assert.NoError(t, err, in)
	}
	_, err := output.ParseFormat("xml")
	assert.True(t, errors.IsValidationError(err))
}

func TestRenderMissing(t *testing.T) {
	report := backfill.Report{
		{Field: "commonSex", Subjects: []string{"3001", "3002"}},
		{Field: "age_BL", Subjects: nil},
	}

	var buf bytes.Buffer
	require.NoError(t, output.Render(&buf, output.FormatTable, report, output.MissingToData(report, false)))
	assert.Contains(t, buf.String(), "commonSex")
	assert.Contains(t, buf.String(), "3001, 3002")

	buf.Reset()
	require.NoError(t, output.Render(&buf, output.FormatJSON, report, output.MissingToData(report, false)))
	var decoded backfill.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []string{"3001", "3002"}, decoded.Get("commonSex"))

	buf.Reset()
	require.NoError(t, output.Render(&buf, output.FormatYAML, report, output.MissingToData(report, false)))
	var fromYAML backfill.Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Len(t, fromYAML, 2)
}

func TestMissingToDataTruncates(t *testing.T) {
	var subjects []string
	for i := 0; i < 12; i++ {
		subjects = append(subjects, string(rune('a'+i)))
	}
	report := backfill.Report{{Field: "joinedDX", Subjects: subjects}}

	d := output.MissingToData(report, false)
	require.Len(t, d.Rows, 1)
	assert.Equal(t, "12", d.Rows[0][1])
	assert.Equal(t, "a, b, c, d, e, f, g, h, i, j (+2 more)", d.Rows[0][2])

	wide := output.MissingToData(report, true)
	assert.Equal(t, "a, b, c, d, e, f, g, h, i, j, k, l", wide.Rows[0][2])
}

func TestDiagnosticsToData(t *testing.T) {
	d := output.DiagnosticsToData([]*errors.UnrecognizedCodeError{
		{Site: "BA", Row: 4, ImageID: "I9", Column: "FLAIR_BA", Value: "borderline"},
	})
	assert.Equal(t, [][]string{{"BA", "4", "I9", "FLAIR_BA", `"borderline"`}}, d.Rows)
}

func TestSummaryToData(t *testing.T) {
	s := ppmi500.Summary{
		Rows:        3,
		Subjects:    2,
		T1wSubjects: 1,
		Modalities:  []ppmi500.Count{{Value: "T1w", Count: 2}},
		Diagnoses:   []ppmi500.Count{{Value: "PD", Count: 2}},
		Missing:     []ppmi500.Count{{Value: "age_BL", Count: 0}},
	}
	d := output.SummaryToData(s)
	assert.Equal(t, [][]string{
		{"Rows", "3"},
		{"Subjects", "2"},
		{"T1w Subjects", "1"},
		{"Modality: T1w", "2"},
		{"Diagnosis: PD", "2"},
		{"Missing: age_BL", "0"},
	}, d.Rows)
}

func TestTableFormatterReflection(t *testing.T) {
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatTable)
	require.NoError(t, f.Format(&buf, []ppmi500.Count{{Value: "DTI", Count: 7}}))
	assert.Contains(t, buf.String(), "DTI")
	assert.Contains(t, buf.String(), "7")
}

func TestBackfillToData(t *testing.T) {
	before := backfill.Report{
		{Field: "commonSex", Subjects: []string{"3001", "3002"}},
		{Field: "age_BL", Subjects: []string{"3003"}},
	}
	after := backfill.Report{
		{Field: "commonSex", Subjects: nil},
		{Field: "age_BL", Subjects: []string{"3003"}},
	}
	d := output.BackfillToData(before, after, map[string]int{"commonSex": 2})
	assert.Equal(t, [][]string{
		{"commonSex", "2", "2", "0"},
		{"age_BL", "1", "0", "1"},
	}, d.Rows)
}
