// Package table provides the column-ordered, nullable string table that every
// stage of the curation pipeline reads and produces.
//
// Tables are immutable values: every operation returns a new *Table and leaves
// its receiver untouched. Cells are null.String so that a missing value is
// distinguishable from an empty string all the way from CSV ingest to output.
package table

import (
	"encoding/binary"
	"sort"

	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/errors"
)

// Table is an ordered set of named columns over rows of nullable strings.
type Table struct {
	name    string
	columns []string
	index   map[string]int
	rows    [][]null.String
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Group holds the row positions that share a key value.
type Group struct {
	Key  string
	Rows []int
}

// New builds a table from a header and rows. Column names must be unique and
// every row must have one cell per column.
func New(columns []string, rows [][]null.String) (*Table, error) {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
		rows:    make([][]null.String, 0, len(rows)),
	}
	for i, c := range t.columns {
		if _, dup := t.index[c]; dup {
			return nil, errors.NewValidationError("columns", c, "duplicate column "+c)
		}
		t.index[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, &errors.ValidationError{
				Field:   "rows",
				Value:   i,
				Message: "row width does not match header",
			}
		}
		t.rows = append(t.rows, append([]null.String(nil), r...))
	}
	return t, nil
}

// FromStrings builds a table from raw strings. Cells in the NA vocabulary
// (see IsNA) become null.
func FromStrings(columns []string, records [][]string) (*Table, error) {
	rows := make([][]null.String, len(records))
	for i, rec := range records {
		row := make([]null.String, len(rec))
		for j, s := range rec {
			row[j] = Cell(s)
		}
		rows[i] = row
	}
	return New(columns, rows)
}

// MustFromStrings is FromStrings that panics on error. Intended for fixtures.
func MustFromStrings(columns []string, records [][]string) *Table {
	t, err := FromStrings(columns, records)
	if err != nil {
		panic(err)
	}
	return t
}

// Cell converts a raw string to a cell, mapping NA markers to null.
func Cell(s string) null.String {
	if IsNA(s) {
		return null.String{}
	}
	return null.StringFrom(s)
}

// Named returns a copy of t labeled with name. The label appears in column errors.
func (t *Table) Named(name string) *Table {
	c := t.shallow()
	c.name = name
	return c
}

// Name returns the table label.
func (t *Table) Name() string { return t.name }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the table carries the column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Get returns the cell at row i, column col. Absent columns read as null.
func (t *Table) Get(i int, col string) null.String {
	j, ok := t.index[col]
	if !ok {
		return null.String{}
	}
	return t.rows[i][j]
}

// Row returns a view of row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Rows returns a deep copy of the cells.
func (t *Table) Rows() [][]null.String {
	out := make([][]null.String, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]null.String(nil), r...)
	}
	return out
}

// Records renders every row as strings, with null as the empty string.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		rec := make([]string, len(r))
		for j, c := range r {
			rec[j] = c.ValueOrZero()
		}
		out[i] = rec
	}
	return out
}

// Column returns a copy of the named column.
func (t *Table) Column(col string) ([]null.String, error) {
	j, ok := t.index[col]
	if !ok {
		return nil, errors.NewColumnError(t.name, col)
	}
	out := make([]null.String, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Select keeps the listed columns, in the listed order.
func (t *Table) Select(cols ...string) (*Table, error) {
	for _, c := range cols {
		if !t.Has(c) {
			return nil, errors.NewColumnError(t.name, c)
		}
	}
	return t.Reindex(cols...), nil
}

// Reindex conforms the table to cols: listed columns the table lacks are
// added as all-null, unlisted columns are dropped.
func (t *Table) Reindex(cols ...string) *Table {
	out := newShape(t.name, dedupe(cols))
	src := make([]int, len(out.columns))
	for k, c := range out.columns {
		j, ok := t.index[c]
		if !ok {
			j = -1
		}
		src[k] = j
	}
	for _, r := range t.rows {
		row := make([]null.String, len(src))
		for k, j := range src {
			if j >= 0 {
				row[k] = r[j]
			}
		}
		out.rows = append(out.rows, row)
	}
	return out
}

// Drop removes the listed columns. Columns the table lacks are ignored.
func (t *Table) Drop(cols ...string) *Table {
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		drop[c] = true
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	return t.Reindex(keep...)
}

// Rename renames columns according to mapping. Unknown source names are
// ignored; a rename that would produce a duplicate column is an error.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		if to, ok := mapping[c]; ok {
			cols[i] = to
		} else {
			cols[i] = c
		}
	}
	out, err := New(cols, t.rows)
	if err != nil {
		return nil, err
	}
	out.name = t.name
	return out, nil
}

// WithColumn sets the named column to values, appending it when absent.
func (t *Table) WithColumn(col string, values []null.String) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, &errors.ValidationError{
			Field:   col,
			Value:   len(values),
			Message: "column length does not match table length",
		}
	}
	cols := t.columns
	j, ok := t.index[col]
	if !ok {
		cols = append(t.Columns(), col)
		j = len(cols) - 1
	}
	out := newShape(t.name, cols)
	for i, r := range t.rows {
		row := make([]null.String, len(cols))
		copy(row, r)
		row[j] = values[i]
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// Map applies fn to every cell of col.
func (t *Table) Map(col string, fn func(null.String) null.String) (*Table, error) {
	values, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	for i := range values {
		values[i] = fn(values[i])
	}
	return t.WithColumn(col, values)
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := newShape(t.name, t.columns)
	for i, r := range t.rows {
		if keep(Row{t: t, i: i}) {
			out.rows = append(out.rows, append([]null.String(nil), r...))
		}
	}
	return out
}

// DropDuplicates removes rows that repeat an earlier row cell for cell,
// keeping the first occurrence. Null equals null.
func (t *Table) DropDuplicates() *Table {
	out := newShape(t.name, t.columns)
	seen := make(map[string]bool, len(t.rows))
	for _, r := range t.rows {
		k := rowKey(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.rows = append(out.rows, append([]null.String(nil), r...))
	}
	return out
}

// Concat stacks tables by row. The result carries the union of columns in
// order of first appearance; cells a table lacks are null.
func Concat(tables ...*Table) *Table {
	var cols []string
	for _, t := range tables {
		if t != nil {
			cols = append(cols, t.columns...)
		}
	}
	out := newShape("", dedupe(cols))
	for _, t := range tables {
		if t == nil {
			continue
		}
		out.rows = append(out.rows, t.Reindex(out.columns...).rows...)
	}
	return out
}

// Unique returns the sorted distinct non-null values of col.
func (t *Table) Unique(col string) []string {
	j, ok := t.index[col]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.rows {
		if c := r[j]; c.Valid && !seen[c.String] {
			seen[c.String] = true
			out = append(out, c.String)
		}
	}
	sort.Strings(out)
	return out
}

// GroupBy partitions row positions by the value of col, in order of first
// appearance. Rows with a null key belong to no group.
func (t *Table) GroupBy(col string) []Group {
	j, ok := t.index[col]
	if !ok {
		return nil
	}
	pos := make(map[string]int)
	var groups []Group
	for i, r := range t.rows {
		c := r[j]
		if !c.Valid {
			continue
		}
		g, seen := pos[c.String]
		if !seen {
			g = len(groups)
			pos[c.String] = g
			groups = append(groups, Group{Key: c.String})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	return groups
}

// CountNull returns how many cells of col are null. An absent column counts as all null.
func (t *Table) CountNull(col string) int {
	j, ok := t.index[col]
	if !ok {
		return len(t.rows)
	}
	n := 0
	for _, r := range t.rows {
		if !r[j].Valid {
			n++
		}
	}
	return n
}

// Get returns the cell of the row in col.
func (r Row) Get(col string) null.String { return r.t.Get(r.i, col) }

// Index returns the row position within its table.
func (r Row) Index() int { return r.i }

func (t *Table) shallow() *Table {
	c := *t
	return &c
}

func newShape(name string, cols []string) *Table {
	t := &Table{
		name:    name,
		columns: append([]string(nil), cols...),
		index:   make(map[string]int, len(cols)),
	}
	for i, c := range t.columns {
		t.index[c] = i
	}
	return t
}

func dedupe(cols []string) []string {
	seen := make(map[string]bool, len(cols))
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// rowKey encodes a row so that null and "" stay distinct.
func rowKey(r []null.String) string {
	b := make([]byte, 0, 16*len(r))
	for _, c := range r {
		if !c.Valid {
			b = append(b, 0)
			continue
		}
		b = append(b, 1)
		b = binary.AppendUvarint(b, uint64(len(c.String)))
		b = append(b, c.String...)
	}
	return string(b)
}
