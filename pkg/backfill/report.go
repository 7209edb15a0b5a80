package backfill

import (
	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/table"
)

// Missing lists the subjects whose value for one field is null.
type Missing struct {
	Field    string   `json:"field" yaml:"field"`
	Subjects []string `json:"subjects" yaml:"subjects"`
}

// Report holds one Missing entry per requested field, in request order.
type Report []Missing

// MissingKeys returns the sorted distinct key values of rows where col is null.
// An absent col counts as null on every row.
func MissingKeys(t *table.Table, col, key string) []string {
	nulls := t.Filter(func(r table.Row) bool { return !r.Get(col).Valid })
	return nulls.Unique(key)
}

// MissingSubjects returns the sorted distinct subjectIDs of rows where col is null.
func MissingSubjects(t *table.Table, col string) []string {
	return MissingKeys(t, col, constants.ColSubjectID)
}

// NewReport computes the missing subjects for each field.
func NewReport(t *table.Table, fields ...string) Report {
	r := make(Report, 0, len(fields))
	for _, f := range fields {
		r = append(r, Missing{Field: f, Subjects: MissingSubjects(t, f)})
	}
	return r
}

// Get returns the missing subjects for field.
func (r Report) Get(field string) []string {
	for _, m := range r {
		if m.Field == field {
			return m.Subjects
		}
	}
	return nil
}

// Total counts the missing (field, subject) pairs.
func (r Report) Total() int {
	n := 0
	for _, m := range r {
		n += len(m.Subjects)
	}
	return n
}
