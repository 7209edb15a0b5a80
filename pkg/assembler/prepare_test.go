package assembler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/assembler"
	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/table"
)

func TestDateFromFilename(t *testing.T) {
	tests := []struct {
		name string
		in   null.String
		want null.String
	}{
		{"curated name", null.StringFrom("PPMI-3001-20180101-T1w-I100.nii.gz"), null.StringFrom("20180101")},
		{"exactly three tokens", null.StringFrom("a-b-c"), null.StringFrom("c")},
		{"too short", null.StringFrom("PPMI-3001"), null.String{}},
		{"null", null.String{}, null.String{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := assembler.DateFromFilename(tt.in)
			assert.Equal(t, tt.want.Valid, got.Valid)
			assert.Equal(t, tt.want.String, got.String)
		})
	}
}

func TestPrepareDemographics(t *testing.T) {
	demo := demoRows(t,
		map[string]string{"subjectID": "3001.0", "filename": "PPMI-3001-20180101-T1w", "moca": "28"},
		map[string]string{"subjectID": "3002", "filename": "bad"},
	)

	out, err := assembler.PrepareDemographics(demo)
	require.NoError(t, err)

	assert.False(t, out.Has(constants.ColFilename))
	assert.False(t, out.Has("unused_extra"))
	assert.True(t, out.Has(constants.ColDate))
	assert.Equal(t, "3001", out.Get(0, constants.ColSubjectID).String)
	assert.Equal(t, "20180101", out.Get(0, constants.ColDate).String)
	assert.Equal(t, "28", out.Get(0, "moca").String)
	assert.False(t, out.Get(1, constants.ColDate).Valid)
}

func TestBaselineMetadata(t *testing.T) {
	base, err := assembler.BaselineMetadata(metadata())
	require.NoError(t, err)

	assert.Equal(t, []string{"subjectIdentifier", "researchGroup", "subjectAge"}, base.Columns())
	assert.Equal(t, 2, base.Len(), "duplicates and non-Baseline visits removed")
	assert.Equal(t, []string{"3001", "3003"}, base.Unique(constants.ColMetaSubject))

	_, err = assembler.BaselineMetadata(table.MustFromStrings([]string{"subjectIdentifier"}, nil))
	assert.Error(t, err)
}
