// Package cmdtest writes a small curated release into a filesystem for
// command tests.
package cmdtest

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ppmi500/internal/cmd/inputs"
	"github.com/agentstation/ppmi500/pkg/constants"
)

// Metadata is the release metadata CSV of the fixture.
const Metadata = "subjectIdentifier,researchGroup,visitIdentifier,subjectAge\n" +
	"3001,PD,Baseline,67.1\n" +
	"3002,Prodromal,Baseline,59\n" +
	"3002,Prodromal,Month 12,60\n"

// Files returns the fixture's file layout: two sites instead of four.
func Files() inputs.Files {
	f := inputs.DefaultFiles()
	f.QC = []string{"QC/ppmi500_AR.csv", "QC/ppmi500_LF.csv"}
	return f
}

// Write stores the fixture inputs under dir. Subject 3001 lacks commonSex,
// age and diagnosis and has two reviewed images; image I1 is reviewed True by
// AR and False by LF; the LF table holds one unrecognized code. Subject 3002
// is complete and unreviewed.
func Write(t testing.TB, fs afero.Fs, dir string) inputs.Files {
	t.Helper()
	files := Files()

	write := func(name, body string) {
		require.NoError(t, fs.MkdirAll(dir+"/QC", constants.DirPermissions))
		require.NoError(t, afero.WriteFile(fs, inputs.Path(dir, name), []byte(body), constants.FilePermissions))
	}

	write(files.Identity, "subjectID,date\n3001,20180101\n3002,20190101\n")

	cols := constants.DemographicColumns
	row := func(values map[string]string) string {
		rec := make([]string, len(cols))
		for i, c := range cols {
			rec[i] = values[c]
		}
		return strings.Join(rec, ",")
	}
	write(files.Demographic, strings.Join([]string{
		strings.Join(cols, ","),
		row(map[string]string{"subjectID": "3001.0", "filename": "PPMI-3001-20180101-T1w-I2"}),
		row(map[string]string{"subjectID": "3002", "filename": "PPMI-3002-20190101-T1w-I3", "commonSex": "Female", "age_BL": "58.9", "joinedDX": "Prodromal"}),
	}, "\n")+"\n")

	write("QC/ppmi500_AR.csv", "subjectID,date,imageID,modality,qchuman_DTI_AR,qchuman_T1w_XUE\n"+
		"3001,20180101,I1,DTI,TRUE,\n"+
		"3001,20180101,I2,T1w,,PASS\n")
	write("QC/ppmi500_LF.csv", "subjectID,date,imageID,modality,qchuman_DTI_LF,qchuman_rsfMRI_LF\n"+
		"3001,20180101,I1,DTI,FALSE,maybe\n")
	return files
}
