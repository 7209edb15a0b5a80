package sources

import (
	"context"
	"fmt"

	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/logging"
	"github.com/agentstation/ppmi500/pkg/table"
)

// DocumentProvider serves the per-subject JSON documents through a SexLookup.
// Lookups run one subject at a time; the first error aborts.
type DocumentProvider struct {
	lookup SexLookup
}

// NewDocumentProvider creates a provider over lookup.
func NewDocumentProvider(lookup SexLookup) *DocumentProvider {
	return &DocumentProvider{lookup: lookup}
}

// ID implements Provider.
func (p *DocumentProvider) ID() ID { return SubjectJSON }

// Table implements Provider. Subjects without a document are left out.
func (p *DocumentProvider) Table(ctx context.Context, column string, subjects []string) (*table.Table, error) {
	rows := make([][]null.String, 0, len(subjects))
	for _, s := range subjects {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapCanceled("subject lookup", err)
		}
		v, err := p.lookup.SexField(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("lookup subject %s: %w", s, err)
		}
		if !v.Valid {
			logging.FromContext(logging.WithSubject(ctx, s)).Debug().Msg("No subject document")
			continue
		}
		rows = append(rows, []null.String{null.StringFrom(s), v})
	}
	t, err := table.New([]string{constants.ColSubjectID, column}, rows)
	if err != nil {
		return nil, err
	}
	return t.Named(string(SubjectJSON)), nil
}

// TableProvider serves values from an in-memory table keyed by a subject column.
type TableProvider struct {
	id  ID
	t   *table.Table
	key string
}

// NewTableProvider creates a provider over t whose subject identifiers live in key.
func NewTableProvider(id ID, t *table.Table, key string) *TableProvider {
	return &TableProvider{id: id, t: t, key: key}
}

// ID implements Provider.
func (p *TableProvider) ID() ID { return p.id }

// Table implements Provider. The key column is renamed to subjectID.
func (p *TableProvider) Table(_ context.Context, column string, subjects []string) (*table.Table, error) {
	want := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		want[s] = true
	}
	sel, err := p.t.Select(p.key, column)
	if err != nil {
		return nil, err
	}
	sel = sel.Canonicalize(p.key).Filter(func(r table.Row) bool {
		return want[r.Get(p.key).ValueOrZero()]
	})
	if p.key != constants.ColSubjectID {
		if sel, err = sel.Rename(map[string]string{p.key: constants.ColSubjectID}); err != nil {
			return nil, err
		}
	}
	return sel.Named(string(p.id)), nil
}
