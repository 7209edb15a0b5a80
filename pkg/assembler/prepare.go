package assembler

import (
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/table"
)

// PrepareDemographics keeps the demographic column subset, derives date from
// the third "-" separated token of filename, drops filename and canonicalizes
// the visit key. A missing column is a *errors.ColumnError.
func PrepareDemographics(demo *table.Table) (*table.Table, error) {
	sel, err := demo.Select(constants.DemographicColumns...)
	if err != nil {
		return nil, err
	}
	filenames, err := sel.Column(constants.ColFilename)
	if err != nil {
		return nil, err
	}
	dates := make([]null.String, len(filenames))
	for i, f := range filenames {
		dates[i] = DateFromFilename(f)
	}
	out, err := sel.WithColumn(constants.ColDate, dates)
	if err != nil {
		return nil, err
	}
	out = out.Drop(constants.ColFilename)
	return out.Canonicalize(constants.ColSubjectID, constants.ColDate), nil
}

// DateFromFilename returns the third "-" separated token of a curated file
// name such as "PPMI-3001-20180101-T1w-I1.nii.gz". Null or short names yield null.
func DateFromFilename(filename null.String) null.String {
	if !filename.Valid {
		return null.String{}
	}
	parts := strings.Split(filename.String, "-")
	if len(parts) < 3 {
		return null.String{}
	}
	return null.StringFrom(parts[2])
}

// BaselineMetadata reduces the release metadata table to one row per subject
// at the Baseline visit, with columns subjectIdentifier, researchGroup and
// subjectAge. Subject identifiers are canonicalized.
func BaselineMetadata(meta *table.Table) (*table.Table, error) {
	sel, err := meta.Select(
		constants.ColMetaSubject,
		constants.ColMetaResearchGroup,
		constants.ColMetaVisit,
		constants.ColMetaAge,
	)
	if err != nil {
		return nil, err
	}
	base := sel.DropDuplicates().Filter(func(r table.Row) bool {
		v := r.Get(constants.ColMetaVisit)
		return v.Valid && v.String == constants.VisitBaseline
	})
	return base.Drop(constants.ColMetaVisit).Canonicalize(constants.ColMetaSubject), nil
}
