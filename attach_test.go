package ppmi500_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ppmi500"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/table"
)

func TestAttachQC(t *testing.T) {
	demo := table.MustFromStrings(
		[]string{"subjectID", "date", "commonSex"},
		[][]string{{"3001", "20180101", "Male"}, {"3002.0", "20190101", "Female"}},
	)
	reviews := table.MustFromStrings(
		[]string{"subjectID", "date", "imageID", "modality", "qchuman_T1w", "has_humanqc"},
		[][]string{
			{"3001", "20180101", "I1", "T1w", "True", "1"},
			{"3001", "20180101", "I2", "DTI", "", "0"},
			{"3001", "20180101", "I1", "T1w", "True", "1"},
			{"3002", "20190101.0", "I3", "T1w", "False", "1.0"},
		},
	)

	out, err := ppmi500.AttachQC(demo, reviews)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "I1", out.Get(0, "imageID").String)
	assert.Equal(t, "I3", out.Get(1, "imageID").String, "keys and flags are canonicalized")
	assert.Equal(t, "3002", out.Get(1, "subjectID").String)

	_, err = ppmi500.AttachQC(table.MustFromStrings([]string{"subjectID"}, nil), reviews)
	assert.True(t, errors.IsMissingColumn(err))
}

func TestAttachQCMatchesImages(t *testing.T) {
	demo := table.MustFromStrings(
		[]string{"subjectID", "date", "imageID", "commonSex"},
		[][]string{
			{"3001", "20180101", "I1", "Male"},
			{"3001", "20180101", "I2", "Male"},
		},
	)
	reviews := table.MustFromStrings(
		[]string{"subjectID", "date", "imageID", "modality", "qchuman_DTI", "has_humanqc"},
		[][]string{
			{"3001", "20180101", "I1", "T1w", "", "1"},
			{"3001", "20180101", "I2", "DTI", "False", "1"},
		},
	)

	out, err := ppmi500.AttachQC(demo, reviews)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len(), "one row per image")
	assert.False(t, out.Has("imageID_x"))
	assert.Equal(t, []string{"I1", "T1w"}, []string{out.Get(0, "imageID").String, out.Get(0, "modality").String})
	assert.Equal(t, []string{"I2", "DTI", "False"},
		[]string{out.Get(1, "imageID").String, out.Get(1, "modality").String, out.Get(1, "qchuman_DTI").String})
}

func TestVerifyKeys(t *testing.T) {
	identity := table.MustFromStrings(
		[]string{"subjectID", "date"},
		[][]string{{"3001", "20180101"}, {"3002", "20190101"}},
	)

	same := table.MustFromStrings(
		[]string{"subjectID", "date", "imageID"},
		[][]string{{"3001.0", "20180101", "I1"}, {"3001", "20180101", "I2"}, {"3002", "20190101", ""}},
	)
	assert.NoError(t, ppmi500.VerifyKeys(identity, same))

	diff := table.MustFromStrings(
		[]string{"subjectID", "date"},
		[][]string{{"3001", "20180101"}, {"3003", "20200101"}},
	)
	err := ppmi500.VerifyKeys(identity, diff)
	require.Error(t, err)
	assert.True(t, errors.IsKeyMismatch(err))

	var mismatch *errors.KeyMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"3002-20190101"}, mismatch.Missing)
	assert.Equal(t, []string{"3003-20200101"}, mismatch.Extra)
}

func TestSummarize(t *testing.T) {
	out := table.MustFromStrings(
		[]string{"subjectID", "date", "modality", "joinedDX", "commonSex", "age_BL", "has_humanqc"},
		[][]string{
			{"3001", "20180101", "T1w", "PD", "Male", "67", "1"},
			{"3001", "20180101", "DTI", "PD", "Male", "67", "1"},
			{"3002", "20190101", "DTI", "PD", "Female", "", "1"},
			{"3003", "20200101", "", "Control", "", "70", ""},
		},
	)

	s := ppmi500.Summarize(out)
	assert.Equal(t, 4, s.Rows)
	assert.Equal(t, 3, s.Subjects)
	assert.Equal(t, 1, s.T1wSubjects)
	assert.Equal(t, []ppmi500.Count{{Value: "DTI", Count: 2}, {Value: "T1w", Count: 1}}, s.Modalities)
	assert.Equal(t, []ppmi500.Count{{Value: "PD", Count: 2}, {Value: "Control", Count: 1}}, s.Diagnoses)
	assert.Equal(t, []ppmi500.Count{
		{Value: "commonSex", Count: 1},
		{Value: "joinedDX", Count: 0},
		{Value: "age_BL", Count: 1},
		{Value: "modality", Count: 1},
		{Value: "has_humanqc", Count: 1},
	}, s.Missing)
}
