// Package backfill fills missing cells of one table from another keyed table
// and reports which subjects are still missing values.
package backfill

import (
	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/table"
)

// Filled records one cell written by Fill.
type Filled struct {
	Row   int
	Key   string
	Value string
}

// Fill coalesces the null cells of column target in t with column srcCol of
// src, matched on key. Non-null target cells are never overwritten.
//
// The source is projected to (key, srcCol), rows with a null srcCol are
// dropped, and the first remaining row per key wins, so the result always has
// t.Len() rows and the same column order as t.
func Fill(t *table.Table, target string, src *table.Table, srcCol, key string) (*table.Table, []Filled, error) {
	if !t.Has(target) {
		return nil, nil, errors.NewColumnError(t.Name(), target)
	}
	if !t.Has(key) {
		return nil, nil, errors.NewColumnError(t.Name(), key)
	}
	proj, err := src.Select(key, srcCol)
	if err != nil {
		return nil, nil, err
	}
	proj = proj.Filter(func(r table.Row) bool { return r.Get(srcCol).Valid })
	if srcCol != target {
		if proj, err = proj.Rename(map[string]string{srcCol: target}); err != nil {
			return nil, nil, err
		}
	}

	left, right := target+constants.SuffixLeft, target+constants.SuffixRight
	merged, err := t.LookupJoin(proj, []string{key}, table.Suffixes{
		Left:  constants.SuffixLeft,
		Right: constants.SuffixRight,
	})
	if err != nil {
		return nil, nil, err
	}

	current, err := merged.Column(left)
	if err != nil {
		return nil, nil, err
	}
	fallback, err := merged.Column(right)
	if err != nil {
		return nil, nil, err
	}

	var filled []Filled
	for i := range current {
		if current[i].Valid || !fallback[i].Valid {
			continue
		}
		current[i] = fallback[i]
		filled = append(filled, Filled{
			Row:   i,
			Key:   merged.Get(i, key).ValueOrZero(),
			Value: fallback[i].String,
		})
	}

	if merged, err = merged.WithColumn(left, current); err != nil {
		return nil, nil, err
	}
	merged = merged.Drop(right)
	if merged, err = merged.Rename(map[string]string{left: target}); err != nil {
		return nil, nil, err
	}
	return merged, filled, nil
}

// Replace rewrites the non-null cells of col found in codes. It returns the
// number of cells rewritten.
func Replace(t *table.Table, col string, codes map[string]string) (*table.Table, int, error) {
	n := 0
	out, err := t.Map(col, func(v null.String) null.String {
		if !v.Valid {
			return v
		}
		if to, ok := codes[v.String]; ok {
			n++
			return null.StringFrom(to)
		}
		return v
	})
	if err != nil {
		return nil, 0, err
	}
	return out, n, nil
}
