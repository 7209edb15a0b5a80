// Package assembler builds the per-visit demographic table: it joins the
// identity list to the wide demographic export and backfills sex, age and
// diagnosis from auxiliary sources in authority order.
package assembler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/ppmi500/pkg/authority"
	"github.com/agentstation/ppmi500/pkg/backfill"
	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/logging"
	"github.com/agentstation/ppmi500/pkg/provenance"
	"github.com/agentstation/ppmi500/pkg/sources"
	"github.com/agentstation/ppmi500/pkg/table"
)

// Result is the outcome of one assembly.
type Result struct {
	// Table has one row per identity row, keyed by (subjectID, date).
	Table *table.Table

	// MissingBefore and MissingAfter list, per backfilled field, the subjects
	// still null right after the join and after the whole chain ran.
	MissingBefore backfill.Report
	MissingAfter  backfill.Report

	// Provenance records every filled value; nil when tracking is off.
	Provenance provenance.Map

	// Filled counts the cells written per field.
	Filled map[string]int

	// Warnings are non-fatal findings worth a human look.
	Warnings []string

	Duration time.Duration
}

// Assembler runs the demographic join and backfill chain.
type Assembler struct {
	authorities authority.Authority
	codes       map[string]map[string]string
	tracking    bool
	logger      *zerolog.Logger
}

// New creates an Assembler with options.
func New(opts ...Option) (*Assembler, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		authorities: o.authorities,
		codes:       o.codes,
		tracking:    o.tracking,
		logger:      o.logger,
	}, nil
}

// Assemble joins identity (subjectID, date[, ...]) with the demographic
// export and fills missing values. metadata is the raw release metadata
// table and lookup reads subject documents; either may be nil, in which case
// its source is skipped with a warning.
//
// The result has exactly identity.Len() rows. Lookup errors abort.
func (a *Assembler) Assemble(ctx context.Context, identity, demographic, metadata *table.Table, lookup sources.SexLookup) (*Result, error) {
	start := time.Now()
	if a.logger != nil {
		ctx = logging.WithLogger(ctx, a.logger)
	}
	ctx = logging.WithStage(ctx, "assemble")
	logger := logging.FromContext(ctx)

	res := &Result{Filled: make(map[string]int)}

	if _, err := identity.Select(constants.ColSubjectID, constants.ColDate); err != nil {
		return nil, err
	}
	ids := identity.Canonicalize(constants.ColSubjectID, constants.ColDate)

	demo, err := PrepareDemographics(demographic)
	if err != nil {
		return nil, err
	}
	demo = demo.DropDuplicates()
	if n := demo.DuplicateKeys(constants.ColSubjectID, constants.ColDate); n > 0 {
		msg := fmt.Sprintf("%d demographic rows repeat a (subjectID, date) with different values; the first row is used", n)
		logger.Warn().Int("rows", n).Msg("Conflicting demographic rows")
		res.Warnings = append(res.Warnings, msg)
	}

	merged, err := ids.LookupJoin(demo, []string{constants.ColSubjectID, constants.ColDate}, table.DefaultSuffixes)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("identity_rows", ids.Len()).
		Int("demographic_rows", demo.Len()).
		Msg("Joined identity and demographics")

	fields := a.authorities.Fields()
	res.MissingBefore = backfill.NewReport(merged, fields...)
	logMissing(logger, "Missing before backfill", res.MissingBefore)

	srcs, warnings, err := a.providers(metadata, lookup, demo)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, warnings...)

	tracker := provenance.NewTracker(a.tracking)
	for _, field := range fields {
		if merged, err = a.fillField(ctx, merged, field, srcs, tracker, res); err != nil {
			return nil, err
		}
	}

	res.Table = merged
	res.MissingAfter = backfill.NewReport(merged, fields...)
	logMissing(logger, "Missing after backfill", res.MissingAfter)
	if a.tracking {
		res.Provenance = tracker.Map()
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (a *Assembler) providers(metadata *table.Table, lookup sources.SexLookup, demo *table.Table) (*sources.Sources, []string, error) {
	var warnings []string
	srcs := sources.NewSources(sources.NewTableProvider(sources.Demographics, demo, constants.ColSubjectID))
	if lookup != nil {
		srcs.Set(sources.NewDocumentProvider(lookup))
	} else {
		warnings = append(warnings, "no subject document lookup configured; subject_json backfill skipped")
	}
	if metadata != nil {
		base, err := BaselineMetadata(metadata)
		if err != nil {
			return nil, nil, err
		}
		srcs.Set(sources.NewTableProvider(sources.Metadata, base, constants.ColMetaSubject))
	} else {
		warnings = append(warnings, "no metadata table; metadata backfill skipped")
	}
	return srcs, warnings, nil
}

// fillField walks the authorities for field from highest priority down,
// asking each source only for the subjects still missing a value.
func (a *Assembler) fillField(
	ctx context.Context,
	t *table.Table,
	field string,
	srcs *sources.Sources,
	tracker provenance.Tracker,
	res *Result,
) (*table.Table, error) {
	logger := logging.FromContext(ctx)
	var filledRows []backfill.Filled
	filledBy := make(map[string]sources.ID)

	for _, auth := range a.authorities.List(field) {
		missing := backfill.MissingSubjects(t, field)
		if len(missing) == 0 {
			break
		}
		p, ok := srcs.Get(auth.Source)
		if !ok {
			continue
		}

		srcCtx := logging.WithSource(ctx, auth.Source.String())
		candidates, err := p.Table(srcCtx, auth.Column, missing)
		if err != nil {
			return nil, fmt.Errorf("backfill %s from %s: %w", field, auth.Source, err)
		}

		var filled []backfill.Filled
		t, filled, err = backfill.Fill(t, field, candidates, auth.Column, constants.ColSubjectID)
		if err != nil {
			return nil, fmt.Errorf("backfill %s from %s: %w", field, auth.Source, err)
		}
		filledRows = append(filledRows, filled...)
		res.Filled[field] += len(filled)

		for _, f := range distinctSubjects(filled) {
			filledBy[f.Key] = auth.Source
			tracker.Track(f.Key, field, provenance.Provenance{
				Source:   auth.Source,
				Value:    f.Value,
				Priority: auth.Priority,
				Reason:   "missing in demographics",
			})
		}
		logging.FromContext(srcCtx).Info().
			Str("field", field).
			Int("requested", len(missing)).
			Int("filled", len(filled)).
			Msg("Backfilled field")
	}

	codes := a.codes[field]
	if len(codes) > 0 && t.Has(field) {
		before := t
		var n int
		var err error
		if t, n, err = backfill.Replace(t, field, codes); err != nil {
			return nil, err
		}
		if n > 0 {
			logger.Debug().Str("field", field).Int("rewritten", n).Msg("Normalized codes")
		}
		for _, f := range distinctSubjects(filledRows) {
			prev, now := before.Get(f.Row, field), t.Get(f.Row, field)
			if prev.Valid && now.Valid && prev.String != now.String {
				tracker.Track(f.Key, field, provenance.Provenance{
					Source:   filledBy[f.Key],
					Value:    now.String,
					Previous: prev.String,
					Reason:   "code normalization",
				})
			}
		}
	}

	if field == constants.ColCommonSex {
		res.Warnings = append(res.Warnings, unexpectedSexValues(t)...)
	}
	return t, nil
}

// unexpectedSexValues reports values of commonSex other than Male and Female.
func unexpectedSexValues(t *table.Table) []string {
	bySubject := make(map[string][]string)
	for i := 0; i < t.Len(); i++ {
		v := t.Get(i, constants.ColCommonSex)
		if !v.Valid || v.String == constants.SexMale || v.String == constants.SexFemale {
			continue
		}
		bySubject[v.String] = append(bySubject[v.String], t.Get(i, constants.ColSubjectID).ValueOrZero())
	}
	values := make([]string, 0, len(bySubject))
	for v := range bySubject {
		values = append(values, v)
	}
	sort.Strings(values)

	var out []string
	for _, v := range values {
		out = append(out, fmt.Sprintf("commonSex value %q for subjects %v", v, uniqueSorted(bySubject[v])))
	}
	return out
}

func distinctSubjects(filled []backfill.Filled) []backfill.Filled {
	seen := make(map[string]bool, len(filled))
	out := make([]backfill.Filled, 0, len(filled))
	for _, f := range filled {
		if seen[f.Key] {
			continue
		}
		seen[f.Key] = true
		out = append(out, f)
	}
	return out
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func logMissing(logger *zerolog.Logger, msg string, r backfill.Report) {
	for _, m := range r {
		if len(m.Subjects) == 0 {
			continue
		}
		logger.Warn().Str("field", m.Field).Strs("subjects", m.Subjects).Msg(msg)
	}
}
