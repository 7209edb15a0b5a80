package qc

import (
	"strings"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
)

// FailurePrefix marks a failure reason flag column.
const FailurePrefix = "qcfail_"

// Modality names one consensus column and the reviewer columns folded into it.
type Modality struct {
	Name      string   `json:"name" yaml:"name"`
	Consensus string   `json:"consensus" yaml:"consensus"`
	Reviewers []string `json:"reviewers" yaml:"reviewers"`
}

// Schema is the canonical layout of the raw site tables.
type Schema struct {
	Keys       []string   `json:"keys" yaml:"keys"`
	Failures   []string   `json:"failures" yaml:"failures"`
	Modalities []Modality `json:"modalities" yaml:"modalities"`
}

// DefaultSchema returns the layout of the PPMI-500 reviewer exports.
func DefaultSchema() Schema {
	return Schema{
		Keys: []string{
			constants.ColSubjectID,
			constants.ColDate,
			constants.ColImageID,
			constants.ColModality,
		},
		Failures: []string{
			"qcfail_motion",
			"qcfail_artifact",
			"qcfail_coverage",
			"qcfail_noise",
			"qcfail_contrast",
			"qcfail_other",
		},
		Modalities: []Modality{
			{Name: "DTI", Consensus: "qchuman_DTI", Reviewers: []string{"qchuman_DTI_AR", "qchuman_DTI_LF"}},
			{Name: "FLAIR", Consensus: "qchuman_FLAIR", Reviewers: []string{"qchuman_FLAIR_XUE", "qchuman_FLAIR_BA"}},
			{Name: "T1w", Consensus: "qchuman_T1w", Reviewers: []string{"qchuman_T1w_XUE", "qchuman_T1w_BA"}},
			{Name: "NM", Consensus: "qchuman_NM", Reviewers: []string{"qchuman_NM_BA"}},
			{Name: "rsfMRI", Consensus: "qchuman_rsfMRI", Reviewers: []string{"qchuman_rsfMRI_LF"}},
		},
	}
}

// Validate checks that the schema can drive a consolidation.
func (s Schema) Validate() error {
	hasImage := false
	for _, k := range s.Keys {
		if k == constants.ColImageID {
			hasImage = true
		}
	}
	if !hasImage {
		return errors.NewValidationError("keys", s.Keys, "must include "+constants.ColImageID)
	}
	if len(s.Modalities) == 0 {
		return errors.NewValidationError("modalities", nil, "at least one modality is required")
	}
	seen := make(map[string]bool)
	for _, c := range s.Columns() {
		if seen[c] {
			return errors.NewValidationError("columns", c, "column listed twice")
		}
		seen[c] = true
	}
	for _, m := range s.Modalities {
		if m.Consensus == "" {
			return errors.NewValidationError("consensus", m.Name, "modality needs a consensus column")
		}
	}
	return nil
}

// Reviewers returns every reviewer column in modality order.
func (s Schema) Reviewers() []string {
	var out []string
	for _, m := range s.Modalities {
		out = append(out, m.Reviewers...)
	}
	return out
}

// Consensus returns the consensus columns in modality order.
func (s Schema) Consensus() []string {
	out := make([]string, len(s.Modalities))
	for i, m := range s.Modalities {
		out[i] = m.Consensus
	}
	return out
}

// Columns is the canonical raw column order: keys, failure flags, reviewer
// columns, then consensus columns.
func (s Schema) Columns() []string {
	out := append([]string{}, s.Keys...)
	out = append(out, s.Failures...)
	out = append(out, s.Reviewers()...)
	return append(out, s.Consensus()...)
}

// Output is the column order of a consolidated table.
func (s Schema) Output() []string {
	out := append([]string{}, s.Keys...)
	out = append(out, s.Consensus()...)
	out = append(out, s.Failures...)
	return append(out, constants.ColHasHumanQC)
}

// verdictColumns are the columns holding reviewer judgments.
func (s Schema) verdictColumns() []string {
	return append(s.Reviewers(), s.Consensus()...)
}

// WithSiteFailures returns the schema extended by every qcfail_* column a
// site table carries that the schema does not list, in order of first
// appearance, and the names it added.
func (s Schema) WithSiteFailures(sites []Site) (Schema, []string) {
	known := make(map[string]bool, len(s.Failures))
	for _, f := range s.Failures {
		known[f] = true
	}
	var added []string
	for _, site := range sites {
		if site.Table == nil {
			continue
		}
		for _, col := range site.Table.Columns() {
			if strings.HasPrefix(col, FailurePrefix) && !known[col] {
				known[col] = true
				added = append(added, col)
			}
		}
	}
	if len(added) > 0 {
		s.Failures = append(append([]string{}, s.Failures...), added...)
	}
	return s, added
}
