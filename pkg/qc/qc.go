// Package qc consolidates the human QC reviews exported by several sites into
// one verdict per image and modality.
//
// Reviewer cells are parsed into three-valued verdicts and folded with
// verdict.Merge, so a single failing review fails the image. Failure reason
// flags are aggregated per image, and the per-image table is finally joined to
// the identity list to carry subject and visit context.
package qc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/logging"
	"github.com/agentstation/ppmi500/pkg/table"
	"github.com/agentstation/ppmi500/pkg/verdict"
)

// Site is one reviewer export.
type Site struct {
	Name  string
	Table *table.Table
}

// Result is the outcome of one consolidation.
type Result struct {
	// Table has one row per imageID in Schema.Output order.
	Table *table.Table

	// Diagnostics lists reviewer cells that were not a known pass/fail code.
	// Those cells were treated as missing.
	Diagnostics []*errors.UnrecognizedCodeError

	// Skipped counts rows dropped for lacking an imageID.
	Skipped int

	Warnings []string
	Duration time.Duration
}

// Consolidator merges site QC tables.
type Consolidator struct {
	schema Schema
	strict bool
	logger *zerolog.Logger
}

// New creates a Consolidator with options.
func New(opts ...Option) (*Consolidator, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &Consolidator{schema: o.schema, strict: o.strict, logger: o.logger}, nil
}

// Schema returns the column layout in use.
func (c *Consolidator) Schema() Schema { return c.schema }

// Consolidate unions the site tables and reduces them to one row per image.
// identity may be nil; when it carries imageID its subjectID and date take
// precedence over the sites' own.
//
// Missing columns are never an error: absent reviewers read as no review.
// In strict mode the first unrecognized reviewer code is returned as an
// *errors.UnrecognizedCodeError.
func (c *Consolidator) Consolidate(ctx context.Context, sites []Site, identity *table.Table) (*Result, error) {
	start := time.Now()
	if c.logger != nil {
		ctx = logging.WithLogger(ctx, c.logger)
	}
	ctx = logging.WithStage(ctx, "qc")
	logger := logging.FromContext(ctx)
	res := &Result{}

	if schema, added := c.schema.WithSiteFailures(sites); len(added) > 0 {
		c = &Consolidator{schema: schema, strict: c.strict, logger: c.logger}
		res.Warnings = append(res.Warnings, fmt.Sprintf("failure flags outside the schema kept: %s", strings.Join(added, ", ")))
		logger.Warn().Strs("columns", added).Msg("Unlisted failure flags")
	}

	var parts []*table.Table
	for _, s := range sites {
		if s.Table == nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("site %s has no table; skipped", s.Name))
			continue
		}
		t, diags, err := c.normalize(ctx, s)
		if err != nil {
			return nil, err
		}
		res.Diagnostics = append(res.Diagnostics, diags...)
		parts = append(parts, t)
	}

	raw := table.Concat(parts...).Reindex(c.schema.Columns()...).Named("qc").DropDuplicates()
	if n := raw.CountNull(constants.ColImageID); n > 0 {
		res.Skipped = n
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d QC rows have no imageID and were skipped", n))
		logger.Warn().Int("rows", n).Msg("QC rows without imageID")
	}

	merged, err := c.consensus(raw).LeftJoin(c.failures(raw), []string{constants.ColImageID}, table.DefaultSuffixes)
	if err != nil {
		return nil, err
	}
	merged, err = merged.WithColumn(constants.ColHasHumanQC, c.hasHumanQC(merged))
	if err != nil {
		return nil, err
	}
	merged = merged.Reindex(c.schema.Output()...)

	out, attached, err := c.attachIdentity(merged, identity)
	if err != nil {
		return nil, err
	}
	if !attached {
		res.Warnings = append(res.Warnings, "identity table has no imageID; site subjectID and date kept")
	}

	res.Table = out
	res.Duration = time.Since(start)
	logger.Info().
		Int("sites", len(parts)).
		Int("rows", raw.Len()).
		Int("images", out.Len()).
		Int("diagnostics", len(res.Diagnostics)).
		Dur("duration", res.Duration).
		Msg("Consolidated QC")
	return res, nil
}

// normalize conforms one site table to the schema and parses its reviewer
// cells into canonical verdict spelling.
func (c *Consolidator) normalize(ctx context.Context, s Site) (*table.Table, []*errors.UnrecognizedCodeError, error) {
	logger := logging.FromContext(logging.WithSite(ctx, s.Name))
	t := s.Table.Reindex(c.schema.Columns()...).
		Canonicalize(constants.ColSubjectID, constants.ColDate, constants.ColImageID)

	var diags []*errors.UnrecognizedCodeError
	for _, col := range c.schema.verdictColumns() {
		values, err := t.Column(col)
		if err != nil {
			return nil, nil, err
		}
		for i, cell := range values {
			v, err := verdict.Parse(cell)
			if err != nil {
				d := &errors.UnrecognizedCodeError{
					Site:    s.Name,
					Row:     i,
					ImageID: t.Get(i, constants.ColImageID).ValueOrZero(),
					Column:  col,
					Value:   cell.String,
				}
				if c.strict {
					return nil, nil, d
				}
				logger.Warn().
					Str("column", col).
					Int("row", i).
					Str("value", cell.String).
					Msg("Unrecognized QC code")
				diags = append(diags, d)
			}
			values[i] = v.NullString()
		}
		if t, err = t.WithColumn(col, values); err != nil {
			return nil, nil, err
		}
	}
	logger.Debug().Int("rows", t.Len()).Int("diagnostics", len(diags)).Msg("Normalized site")
	return t, diags, nil
}

// consensus reduces raw to one row per imageID: the first non-null key value
// per key column and, per modality, the fold of every reviewer's first
// non-null verdict. An existing consensus column counts as one more reviewer.
func (c *Consolidator) consensus(raw *table.Table) *table.Table {
	cols := append(append([]string{}, c.schema.Keys...), c.schema.Consensus()...)
	groups := raw.GroupBy(constants.ColImageID)
	rows := make([][]null.String, 0, len(groups))
	for _, g := range groups {
		row := make([]null.String, 0, len(cols))
		for _, k := range c.schema.Keys {
			row = append(row, firstValid(raw, g.Rows, k))
		}
		for _, m := range c.schema.Modalities {
			vs := make([]verdict.Verdict, 0, len(m.Reviewers)+1)
			for _, col := range append(append([]string{}, m.Reviewers...), m.Consensus) {
				v, _ := verdict.Parse(firstValid(raw, g.Rows, col))
				vs = append(vs, v)
			}
			row = append(row, verdict.Fold(vs...).NullString())
		}
		rows = append(rows, row)
	}
	out, _ := table.New(cols, rows)
	return out.Named("consensus")
}

// failures aggregates the qcfail_* flags per imageID over the rows that set
// at least one flag. A flag is true when any member row marks it.
func (c *Consolidator) failures(raw *table.Table) *table.Table {
	cols := append([]string{constants.ColImageID}, c.schema.Failures...)
	flagged := raw.Filter(func(r table.Row) bool {
		for _, f := range c.schema.Failures {
			if r.Get(f).Valid {
				return true
			}
		}
		return false
	})

	groups := flagged.GroupBy(constants.ColImageID)
	rows := make([][]null.String, 0, len(groups))
	for _, g := range groups {
		row := []null.String{null.StringFrom(g.Key)}
		for _, f := range c.schema.Failures {
			set := false
			for _, i := range g.Rows {
				if FlagTrue(flagged.Get(i, f)) {
					set = true
					break
				}
			}
			row = append(row, flagCell(set))
		}
		rows = append(rows, row)
	}
	out, _ := table.New(cols, rows)
	return out.Named("failures")
}

func (c *Consolidator) hasHumanQC(t *table.Table) []null.String {
	out := make([]null.String, t.Len())
	for i := range out {
		out[i] = null.StringFrom("0")
		for _, col := range c.schema.Consensus() {
			if t.Get(i, col).Valid {
				out[i] = null.StringFrom("1")
				break
			}
		}
	}
	return out
}

// attachIdentity joins the identity context onto t by imageID. Identity values
// win; the site's own values fill the gaps. attached is false when identity
// cannot be joined.
func (c *Consolidator) attachIdentity(t, identity *table.Table) (*table.Table, bool, error) {
	if identity == nil || !identity.Has(constants.ColImageID) {
		return t.DropDuplicates(), false, nil
	}
	var shared []string
	for _, col := range []string{constants.ColSubjectID, constants.ColDate} {
		if identity.Has(col) && t.Has(col) {
			shared = append(shared, col)
		}
	}
	ids, err := identity.Select(append([]string{constants.ColImageID}, shared...)...)
	if err != nil {
		return nil, false, err
	}
	ids = ids.Canonicalize(constants.ColImageID, constants.ColSubjectID, constants.ColDate).DropDuplicates()

	sfx := table.Suffixes{Left: "_site", Right: "_identity"}
	joined, err := t.LeftJoin(ids, []string{constants.ColImageID}, sfx)
	if err != nil {
		return nil, false, err
	}
	for _, col := range shared {
		site, err := joined.Column(col + sfx.Left)
		if err != nil {
			return nil, false, err
		}
		fromID, err := joined.Column(col + sfx.Right)
		if err != nil {
			return nil, false, err
		}
		for i := range site {
			if fromID[i].Valid {
				site[i] = fromID[i]
			}
		}
		if joined, err = joined.WithColumn(col, site); err != nil {
			return nil, false, err
		}
	}
	return joined.Reindex(c.schema.Output()...).DropDuplicates(), true, nil
}

func firstValid(t *table.Table, rows []int, col string) null.String {
	for _, i := range rows {
		if v := t.Get(i, col); v.Valid {
			return v
		}
	}
	return null.String{}
}
