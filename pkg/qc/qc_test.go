package qc_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/logging"
	"github.com/agentstation/ppmi500/pkg/qc"
	"github.com/agentstation/ppmi500/pkg/table"
)

func newConsolidator(t *testing.T, opts ...qc.Option) *qc.Consolidator {
	t.Helper()
	opts = append([]qc.Option{qc.WithLogger(logging.NewNopLogger())}, opts...)
	c, err := qc.New(opts...)
	require.NoError(t, err)
	return c
}

// row finds the consolidated row for imageID.
func row(t *testing.T, tb *table.Table, imageID string) table.Row {
	t.Helper()
	for i := 0; i < tb.Len(); i++ {
		if tb.Get(i, constants.ColImageID).String == imageID {
			return tb.Row(i)
		}
	}
	t.Fatalf("image %s not found", imageID)
	return table.Row{}
}

func TestConsolidateDisagreementFails(t *testing.T) {
	ar := table.MustFromStrings(
		[]string{"subjectID", "date", "imageID", "modality", "qchuman_DTI_AR"},
		[][]string{{"3001", "20180101", "I1", "DTI", "TRUE"}},
	)
	lf := table.MustFromStrings(
		[]string{"subjectID", "date", "imageID", "modality", "qchuman_DTI_LF"},
		[][]string{{"3001", "20180101", "I1", "DTI", "false"}},
	)

	res, err := newConsolidator(t).Consolidate(context.Background(), []qc.Site{
		{Name: "AR", Table: ar},
		{Name: "LF", Table: lf},
	}, nil)
	require.NoError(t, err)

	require.Equal(t, 1, res.Table.Len())
	r := row(t, res.Table, "I1")
	assert.Equal(t, "False", r.Get("qchuman_DTI").String)
	assert.False(t, r.Get("qchuman_T1w").Valid)
	assert.Equal(t, "1", r.Get(constants.ColHasHumanQC).String)
	assert.Empty(t, res.Diagnostics)
}

func TestConsolidateReconciliation(t *testing.T) {
	cols := []string{"imageID", "qchuman_FLAIR_XUE", "qchuman_FLAIR_BA", "qchuman_NM_BA", "qchuman_rsfMRI_LF"}
	site := table.MustFromStrings(cols, [][]string{
		{"I1", "PASS", "", "", ""},
		{"I2", "", "", "", ""},
		{"I3", "pass", "True", "FAIL", "True"},
		{"I4", "", "fail", "", ""},
		{"I5", "", "", "", ""},
		{"I5", "TRUE", "", "", ""},
	})

	res, err := newConsolidator(t).Consolidate(context.Background(), []qc.Site{{Name: "XW", Table: site}}, nil)
	require.NoError(t, err)
	require.Equal(t, 5, res.Table.Len())

	tests := []struct {
		image, flair, nm, rsfmri, has string
	}{
		{"I1", "True", "", "", "1"},
		{"I2", "", "", "", "0"},
		{"I3", "True", "False", "True", "1"},
		{"I4", "False", "", "", "1"},
		{"I5", "True", "", "", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			r := row(t, res.Table, tt.image)
			assert.Equal(t, tt.flair, r.Get("qchuman_FLAIR").ValueOrZero())
			assert.Equal(t, tt.nm, r.Get("qchuman_NM").ValueOrZero())
			assert.Equal(t, tt.rsfmri, r.Get("qchuman_rsfMRI").ValueOrZero())
			assert.Equal(t, tt.has, r.Get(constants.ColHasHumanQC).String)
		})
	}
}

func TestConsolidateOutputLayout(t *testing.T) {
	site := table.MustFromStrings(
		[]string{"imageID", "notes", "qchuman_T1w_BA"},
		[][]string{{"I1", "blurry", "True"}},
	)
	res, err := newConsolidator(t).Consolidate(context.Background(), []qc.Site{{Name: "BA", Table: site}}, nil)
	require.NoError(t, err)

	assert.Equal(t, qc.DefaultSchema().Output(), res.Table.Columns())
	assert.False(t, res.Table.Has("notes"))
	assert.False(t, res.Table.Has("qchuman_T1w_BA"))
}

func TestConsolidateFailureAggregation(t *testing.T) {
	site := table.MustFromStrings(
		[]string{"imageID", "qchuman_T1w_XUE", "qcfail_motion", "qcfail_noise", "qcfail_other"},
		[][]string{
			{"I1", "False", "1", "", ""},
			{"I1", "False", "", "", ""},
			{"I2", "True", "", "", ""},
			{"I3", "False", "0", "yes", ""},
			{"I3", "False", "x", "", "n"},
		},
	)

	res, err := newConsolidator(t).Consolidate(context.Background(), []qc.Site{{Name: "XW", Table: site}}, nil)
	require.NoError(t, err)

	i1 := row(t, res.Table, "I1")
	assert.Equal(t, "True", i1.Get("qcfail_motion").String)
	for _, f := range []string{"qcfail_artifact", "qcfail_coverage", "qcfail_noise", "qcfail_contrast", "qcfail_other"} {
		assert.False(t, i1.Get(f).Valid, f)
	}

	i2 := row(t, res.Table, "I2")
	assert.False(t, i2.Get("qcfail_motion").Valid, "images without flags keep null failures")

	i3 := row(t, res.Table, "I3")
	assert.Equal(t, "True", i3.Get("qcfail_motion").String)
	assert.Equal(t, "True", i3.Get("qcfail_noise").String)
	assert.False(t, i3.Get("qcfail_other").Valid, "a set but false flag stays null")
}

func TestConsolidateKeepsUnlistedFailureFlags(t *testing.T) {
	ar := table.MustFromStrings(
		[]string{"imageID", "qchuman_DTI_AR", "qcfail_ghosting"},
		[][]string{{"I1", "True", "True"}, {"I2", "True", ""}},
	)
	lf := table.MustFromStrings(
		[]string{"imageID", "qchuman_DTI_LF", "qcfail_ghosting", "qcfail_wrap"},
		[][]string{{"I2", "True", "", "yes"}},
	)

	res, err := newConsolidator(t).Consolidate(context.Background(), []qc.Site{
		{Name: "AR", Table: ar},
		{Name: "LF", Table: lf},
	}, nil)
	require.NoError(t, err)

	cols := res.Table.Columns()
	assert.Contains(t, cols, "qcfail_ghosting")
	assert.Contains(t, cols, "qcfail_wrap")
	assert.Equal(t, "True", row(t, res.Table, "I1").Get("qcfail_ghosting").String)
	assert.Equal(t, "True", row(t, res.Table, "I2").Get("qcfail_wrap").String)
	assert.False(t, row(t, res.Table, "I2").Get("qcfail_ghosting").Valid)
	assert.Contains(t, res.Warnings, "failure flags outside the schema kept: qcfail_ghosting, qcfail_wrap")

	schema, added := qc.DefaultSchema().WithSiteFailures([]qc.Site{{Name: "AR", Table: ar}})
	assert.Equal(t, []string{"qcfail_ghosting"}, added)
	assert.Equal(t, "qcfail_ghosting", schema.Failures[len(schema.Failures)-1])
	assert.Len(t, qc.DefaultSchema().Failures, 6, "the default schema is not modified")
}

func TestConsolidateIdempotent(t *testing.T) {
	ar := table.MustFromStrings(
		[]string{"subjectID", "date", "imageID", "modality", "qchuman_DTI_AR", "qcfail_motion"},
		[][]string{
			{"3001", "20180101", "I1", "DTI", "True", ""},
			{"3002", "20180202", "I2", "DTI", "True", "1"},
		},
	)
	lf := table.MustFromStrings(
		[]string{"subjectID", "date", "imageID", "modality", "qchuman_DTI_LF", "qchuman_T1w_XUE"},
		[][]string{
			{"3001", "20180101", "I1", "DTI", "False", ""},
			{"3002", "20180202", "I2", "DTI", "", "PASS"},
		},
	)
	c := newConsolidator(t)

	first, err := c.Consolidate(context.Background(), []qc.Site{{Name: "AR", Table: ar}, {Name: "LF", Table: lf}}, nil)
	require.NoError(t, err)
	second, err := c.Consolidate(context.Background(), []qc.Site{{Name: "merged", Table: first.Table}}, nil)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Table.Records(), second.Table.Records()); diff != "" {
		t.Errorf("re-consolidation changed the table (-first +second):\n%s", diff)
	}
}

func TestConsolidateUnrecognizedCodes(t *testing.T) {
	site := table.MustFromStrings(
		[]string{"imageID", "qchuman_FLAIR_BA", "qchuman_FLAIR_XUE"},
		[][]string{
			{"I1", "borderline", "True"},
			{"I2", "FAIL", "?"},
		},
	)

	res, err := newConsolidator(t).Consolidate(context.Background(), []qc.Site{{Name: "BA", Table: site}}, nil)
	require.NoError(t, err)

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, "qchuman_FLAIR_XUE", res.Diagnostics[0].Column, "diagnostics follow schema column order")
	assert.Equal(t, "?", res.Diagnostics[0].Value)

	d := res.Diagnostics[1]
	assert.Equal(t, "BA", d.Site)
	assert.Equal(t, 0, d.Row)
	assert.Equal(t, "I1", d.ImageID)
	assert.Equal(t, "qchuman_FLAIR_BA", d.Column)
	assert.Equal(t, "borderline", d.Value)
	assert.True(t, errors.IsUnrecognizedCode(d))

	assert.Equal(t, "True", row(t, res.Table, "I1").Get("qchuman_FLAIR").String, "unknown code reads as no review")
	assert.Equal(t, "False", row(t, res.Table, "I2").Get("qchuman_FLAIR").String)
}

func TestConsolidateStrict(t *testing.T) {
	site := table.MustFromStrings(
		[]string{"imageID", "qchuman_NM_BA"},
		[][]string{{"I1", "True"}, {"I2", "maybe"}},
	)
	_, err := newConsolidator(t, qc.WithStrict(true)).
		Consolidate(context.Background(), []qc.Site{{Name: "BA", Table: site}}, nil)
	require.Error(t, err)

	var code *errors.UnrecognizedCodeError
	require.ErrorAs(t, err, &code)
	assert.Equal(t, "I2", code.ImageID)
	assert.Equal(t, 1, code.Row)
}

func TestConsolidateMissingColumns(t *testing.T) {
	site := table.MustFromStrings([]string{"imageID"}, [][]string{{"I1"}, {""}})

	res, err := newConsolidator(t).Consolidate(context.Background(), []qc.Site{
		{Name: "AR", Table: site},
		{Name: "LF"},
	}, nil)
	require.NoError(t, err)

	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, "0", res.Table.Get(0, constants.ColHasHumanQC).String)
	assert.Equal(t, 1, res.Skipped)
	assert.Contains(t, res.Warnings, "site LF has no table; skipped")
	assert.Contains(t, res.Warnings, "1 QC rows have no imageID and were skipped")

	empty, err := newConsolidator(t).Consolidate(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Table.Len())
	assert.Equal(t, qc.DefaultSchema().Output(), empty.Table.Columns())
}

func TestConsolidateIdentityJoin(t *testing.T) {
	site := table.MustFromStrings(
		[]string{"subjectID", "date", "imageID", "modality", "qchuman_T1w_BA"},
		[][]string{
			{"", "20180101", "1001.0", "T1w", "True"},
			{"3002", "20190101", "1002", "T1w", "False"},
			{"3003", "20200101", "1003", "T1w", "True"},
		},
	)
	identity := table.MustFromStrings(
		[]string{"subjectID", "date", "imageID"},
		[][]string{
			{"3001", "20180101", "1001"},
			{"3002.0", "20190101.0", "1002"},
		},
	)

	res, err := newConsolidator(t).Consolidate(context.Background(), []qc.Site{{Name: "BA", Table: site}}, identity)
	require.NoError(t, err)
	require.Equal(t, 3, res.Table.Len())
	assert.NotContains(t, res.Warnings, "identity table has no imageID; site subjectID and date kept")

	assert.Equal(t, "3001", row(t, res.Table, "1001").Get("subjectID").String, "identity fills the gap")
	assert.Equal(t, "3002", row(t, res.Table, "1002").Get("subjectID").String)
	assert.Equal(t, "20190101", row(t, res.Table, "1002").Get("date").String)
	assert.Equal(t, "3003", row(t, res.Table, "1003").Get("subjectID").String, "site values survive without identity")
	assert.Equal(t, qc.DefaultSchema().Output(), res.Table.Columns())
}

func TestSchemaValidate(t *testing.T) {
	assert.NoError(t, qc.DefaultSchema().Validate())

	s := qc.DefaultSchema()
	s.Keys = []string{"subjectID"}
	_, err := qc.New(qc.WithSchema(s))
	assert.True(t, errors.IsValidationError(err))

	s = qc.DefaultSchema()
	s.Failures = append(s.Failures, "qchuman_DTI_AR")
	assert.Error(t, s.Validate())

	s = qc.DefaultSchema()
	s.Modalities = nil
	assert.Error(t, s.Validate())
}

func TestFlagTrue(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "1", "1.0", "yes", "Y", " x "} {
		assert.True(t, qc.FlagTrue(table.Cell(v)), v)
	}
	for _, v := range []string{"", "0", "false", "no", "n", "2"} {
		assert.False(t, qc.FlagTrue(table.Cell(v)), v)
	}
}
