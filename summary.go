package ppmi500

import (
	"sort"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/table"
)

// Count is one value and how many times it occurs.
type Count struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// Summary describes a curated output table.
type Summary struct {
	Rows        int     `json:"rows" yaml:"rows"`
	Subjects    int     `json:"subjects" yaml:"subjects"`
	T1wSubjects int     `json:"t1w_subjects" yaml:"t1w_subjects"`
	Modalities  []Count `json:"modalities" yaml:"modalities"`
	Diagnoses   []Count `json:"diagnoses" yaml:"diagnoses"`
	Missing     []Count `json:"missing" yaml:"missing"`
}

// Summarize counts subjects, modalities and diagnoses in an output table.
// Diagnoses are counted once per distinct (subjectID, joinedDX) pair; null
// values are not counted. Missing holds the null cell count per ReportFields column.
func Summarize(t *table.Table) Summary {
	s := Summary{
		Rows:     t.Len(),
		Subjects: len(t.Unique(constants.ColSubjectID)),
	}

	t1w := t.Filter(func(r table.Row) bool {
		m := r.Get(constants.ColModality)
		return m.Valid && m.String == "T1w"
	})
	s.T1wSubjects = len(t1w.Unique(constants.ColSubjectID))

	s.Modalities = valueCounts(t, constants.ColModality)

	dx := t.Reindex(constants.ColSubjectID, constants.ColJoinedDX).DropDuplicates()
	s.Diagnoses = valueCounts(dx, constants.ColJoinedDX)

	for _, f := range ReportFields {
		s.Missing = append(s.Missing, Count{Value: f, Count: t.CountNull(f)})
	}
	return s
}

// valueCounts counts the non-null values of col, most frequent first.
func valueCounts(t *table.Table, col string) []Count {
	var out []Count
	for _, g := range t.GroupBy(col) {
		out = append(out, Count{Value: g.Key, Count: len(g.Rows)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
