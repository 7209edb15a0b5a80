package ppmi500

import (
	"sort"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/table"
)

// AttachQC joins the reviewed images of qc onto the visits of demographics.
//
// Only images with has_humanqc == 1 are attached. Both sides are keyed on
// canonical (subjectID, date), plus imageID when both carry it; a visit with
// several reviewed images yields one row per image and a visit with none
// keeps a single row with null QC columns. Exact duplicate rows are removed.
func AttachQC(demographics, qc *table.Table) (*table.Table, error) {
	keys := []string{constants.ColSubjectID, constants.ColDate}
	for _, k := range keys {
		if !demographics.Has(k) {
			return nil, errors.NewColumnError(demographics.Name(), k)
		}
	}

	if demographics.Has(constants.ColImageID) && qc.Has(constants.ColImageID) {
		keys = append(keys, constants.ColImageID)
	}

	canon := append(append([]string{}, keys...), constants.ColHasHumanQC)
	reviewed := qc.Canonicalize(canon...).
		Filter(func(r table.Row) bool {
			v := r.Get(constants.ColHasHumanQC)
			return v.Valid && v.String == "1"
		}).
		DropDuplicates()
	for _, k := range keys {
		if !reviewed.Has(k) {
			return nil, errors.NewColumnError(qc.Name(), k)
		}
	}

	merged, err := demographics.Canonicalize(keys...).LeftJoin(reviewed, keys, table.DefaultSuffixes)
	if err != nil {
		return nil, err
	}
	return merged.DropDuplicates(), nil
}

// VerifyKeys checks that output carries exactly the subjectID-date keys of
// identity. A difference is returned as an *errors.KeyMismatchError.
func VerifyKeys(identity, output *table.Table) error {
	want, err := visitKeys(identity)
	if err != nil {
		return err
	}
	got, err := visitKeys(output)
	if err != nil {
		return err
	}

	mismatch := &errors.KeyMismatchError{}
	for k := range want {
		if !got[k] {
			mismatch.Missing = append(mismatch.Missing, k)
		}
	}
	for k := range got {
		if !want[k] {
			mismatch.Extra = append(mismatch.Extra, k)
		}
	}
	if len(mismatch.Missing) == 0 && len(mismatch.Extra) == 0 {
		return nil
	}
	sort.Strings(mismatch.Missing)
	sort.Strings(mismatch.Extra)
	return mismatch
}

// visitKeys returns the set of "subjectID-date" keys. Null cells render empty.
func visitKeys(t *table.Table) (map[string]bool, error) {
	if _, err := t.Select(constants.ColSubjectID, constants.ColDate); err != nil {
		return nil, err
	}
	t = t.Canonicalize(constants.ColSubjectID, constants.ColDate)
	keys := make(map[string]bool, t.Len())
	for i := 0; i < t.Len(); i++ {
		keys[t.Get(i, constants.ColSubjectID).ValueOrZero()+"-"+t.Get(i, constants.ColDate).ValueOrZero()] = true
	}
	return keys, nil
}
