package table

import (
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/errors"
)

// Suffixes are appended to non-key columns that both sides of a join carry.
type Suffixes struct {
	Left  string
	Right string
}

// DefaultSuffixes mirror the conventional x/y merge suffixes.
var DefaultSuffixes = Suffixes{Left: "_x", Right: "_y"}

// LookupJoin left-joins right onto t on the key columns, taking only the
// first matching right row. The result has exactly t.Len() rows.
//
// Null key cells never match.
func (t *Table) LookupJoin(right *Table, on []string, sfx Suffixes) (*Table, error) {
	return t.join(right, on, sfx, true)
}

// LeftJoin left-joins right onto t on the key columns. Every matching right
// row yields an output row; left rows without a match appear once with null
// right-hand cells. Left row order is kept.
func (t *Table) LeftJoin(right *Table, on []string, sfx Suffixes) (*Table, error) {
	return t.join(right, on, sfx, false)
}

func (t *Table) join(right *Table, on []string, sfx Suffixes, firstOnly bool) (*Table, error) {
	if len(on) == 0 {
		return nil, errors.NewValidationError("on", on, "join needs at least one key column")
	}
	isKey := make(map[string]bool, len(on))
	for _, k := range on {
		if !t.Has(k) {
			return nil, errors.NewColumnError(t.name, k)
		}
		if !right.Has(k) {
			return nil, errors.NewColumnError(right.name, k)
		}
		isKey[k] = true
	}

	var rightCols []string
	for _, c := range right.columns {
		if !isKey[c] {
			rightCols = append(rightCols, c)
		}
	}
	collide := make(map[string]bool)
	for _, c := range rightCols {
		if t.Has(c) {
			collide[c] = true
		}
	}
	if len(collide) > 0 && (sfx.Left == sfx.Right) {
		return nil, errors.NewValidationError("suffixes", sfx, "overlapping columns need distinct suffixes")
	}

	cols := make([]string, 0, len(t.columns)+len(rightCols))
	for _, c := range t.columns {
		if collide[c] {
			c += sfx.Left
		}
		cols = append(cols, c)
	}
	for _, c := range rightCols {
		if collide[c] {
			c += sfx.Right
		}
		cols = append(cols, c)
	}
	out := newShape(t.name, cols)
	if len(out.index) != len(cols) {
		return nil, errors.NewValidationError("suffixes", sfx, "suffixed column names collide")
	}

	matches := make(map[string][]int)
	for i := range right.rows {
		k, ok := right.keyOf(i, on)
		if !ok {
			continue
		}
		if firstOnly && len(matches[k]) > 0 {
			continue
		}
		matches[k] = append(matches[k], i)
	}

	rightIdx := make([]int, len(rightCols))
	for n, c := range rightCols {
		rightIdx[n] = right.index[c]
	}
	for i, r := range t.rows {
		var hits []int
		if k, ok := t.keyOf(i, on); ok {
			hits = matches[k]
		}
		if len(hits) == 0 {
			row := make([]null.String, len(cols))
			copy(row, r)
			out.rows = append(out.rows, row)
			continue
		}
		for _, h := range hits {
			row := make([]null.String, len(cols))
			copy(row, r)
			for n, j := range rightIdx {
				row[len(r)+n] = right.rows[h][j]
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// DuplicateKeys counts rows whose key repeats an earlier row's key.
func (t *Table) DuplicateKeys(on ...string) int {
	seen := make(map[string]bool, len(t.rows))
	n := 0
	for i := range t.rows {
		k, ok := t.keyOf(i, on)
		if !ok {
			continue
		}
		if seen[k] {
			n++
		}
		seen[k] = true
	}
	return n
}

// keyOf encodes the key cells of row i. ok is false when any key cell is null.
func (t *Table) keyOf(i int, on []string) (string, bool) {
	cells := make([]null.String, len(on))
	for n, c := range on {
		cells[n] = t.Get(i, c)
		if !cells[n].Valid {
			return "", false
		}
	}
	return rowKey(cells), true
}

// Canonicalize rewrites the listed key columns with CanonicalKey so that keys
// read from differently typed sources compare equal. Absent columns are ignored.
func (t *Table) Canonicalize(cols ...string) *Table {
	out := t
	for _, c := range cols {
		if !out.Has(c) {
			continue
		}
		out, _ = out.Map(c, func(v null.String) null.String {
			if !v.Valid {
				return v
			}
			return null.StringFrom(CanonicalKey(v.String))
		})
	}
	return out
}

// CanonicalKey trims whitespace and renders integral decimals without their
// fractional part, so "3001.0" and " 3001" both become "3001". Other values
// are returned trimmed.
func CanonicalKey(s string) string {
	s = strings.TrimSpace(s)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	intPart, frac := s[:dot], s[dot+1:]
	if strings.Trim(frac, "0") != "" || !isInteger(intPart) {
		return s
	}
	return intPart
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
