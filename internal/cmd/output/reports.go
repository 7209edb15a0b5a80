package output

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/ppmi500"
	"github.com/agentstation/ppmi500/pkg/backfill"
	"github.com/agentstation/ppmi500/pkg/errors"
)

// maxSubjects caps the subject list of a missing report row outside wide output.
const maxSubjects = 10

// Render writes raw in format. Table formats render tableData instead, so
// reports keep their full structure in JSON and YAML.
func Render(w io.Writer, format Format, raw any, tableData Data) error {
	formatter := NewFormatter(format)
	switch format {
	case FormatTable, FormatWide, "":
		return formatter.Format(w, tableData)
	default:
		return formatter.Format(w, raw)
	}
}

// MissingToData lays out a missing report, one row per field.
func MissingToData(r backfill.Report, wide bool) Data {
	d := Data{
		Headers:         []string{"Field", "Count", "Subjects"},
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignLeft},
	}
	for _, m := range r {
		subjects := m.Subjects
		more := ""
		if !wide && len(subjects) > maxSubjects {
			more = " (+" + strconv.Itoa(len(subjects)-maxSubjects) + " more)"
			subjects = subjects[:maxSubjects]
		}
		d.Rows = append(d.Rows, []string{
			m.Field,
			strconv.Itoa(len(m.Subjects)),
			strings.Join(subjects, ", ") + more,
		})
	}
	return d
}

// DiagnosticsToData lays out unrecognized QC codes, one row per cell.
func DiagnosticsToData(diags []*errors.UnrecognizedCodeError) Data {
	d := Data{
		Headers:         []string{"Site", "Row", "Image", "Column", "Value"},
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignLeft, AlignLeft, AlignLeft},
	}
	for _, diag := range diags {
		d.Rows = append(d.Rows, []string{
			diag.Site,
			strconv.Itoa(diag.Row),
			diag.ImageID,
			diag.Column,
			strconv.Quote(diag.Value),
		})
	}
	return d
}

// SummaryToData lays out a run summary as a two column table.
func SummaryToData(s ppmi500.Summary) Data {
	caser := cases.Title(language.English)
	d := Data{
		Headers:         []string{"Property", "Value"},
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
	d.Rows = append(d.Rows,
		[]string{"Rows", strconv.Itoa(s.Rows)},
		[]string{"Subjects", strconv.Itoa(s.Subjects)},
		[]string{"T1w Subjects", strconv.Itoa(s.T1wSubjects)},
	)
	section := func(name string, counts []ppmi500.Count) {
		for _, c := range counts {
			d.Rows = append(d.Rows, []string{caser.String(name) + ": " + c.Value, strconv.Itoa(c.Count)})
		}
	}
	section("modality", s.Modalities)
	section("diagnosis", s.Diagnoses)
	section("missing", s.Missing)
	return d
}

// BackfillToData lays out a backfill outcome: per field, the subjects missing
// before and after the chain and the cells it filled.
func BackfillToData(before, after backfill.Report, filled map[string]int) Data {
	d := Data{
		Headers:         []string{"Field", "Missing Before", "Filled", "Missing After"},
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight},
	}
	for _, m := range before {
		d.Rows = append(d.Rows, []string{
			m.Field,
			strconv.Itoa(len(m.Subjects)),
			strconv.Itoa(filled[m.Field]),
			strconv.Itoa(len(after.Get(m.Field))),
		})
	}
	return d
}
