// Package ppmi500 provides the main entry point for the PPMI-500 curation
// pipeline. It assembles per-visit demographics, consolidates multi-site human
// QC reviews and joins the two into one flat table.
//
// The pipeline wraps the building blocks under pkg/ with:
// - Backfill of sex, age and diagnosis from auxiliary sources
// - False-dominant reconciliation of reviewer verdicts
// - Event hooks for filled values and unrecognized QC codes
// - Flexible configuration through functional options
//
// Example usage:
//
//	p, err := ppmi500.New(
//	    ppmi500.WithSexLookup(lookup),
//	    ppmi500.WithMetadataSource(store),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p.OnUnrecognizedCode(func(d *errors.UnrecognizedCodeError) {
//	    log.Printf("QC code: %v", d)
//	})
//
//	result, err := p.Run(ctx, ppmi500.Inputs{
//	    Identity:    ids,
//	    Demographic: demo,
//	    Sites:       sites,
//	})
package ppmi500

import (
	"context"
	"fmt"

	"github.com/agentstation/ppmi500/pkg/assembler"
	"github.com/agentstation/ppmi500/pkg/qc"
	"github.com/agentstation/ppmi500/pkg/table"
)

// Compile-time interface check to ensure proper implementation.
var _ Pipeline = (*pipeline)(nil)

// Pipeline runs the curation stages.
type Pipeline interface {
	// Run executes the full pipeline.
	Run(ctx context.Context, in Inputs) (*Result, error)

	// Assemble runs the demographic stage alone.
	Assemble(ctx context.Context, identity, demographic *table.Table) (*assembler.Result, error)

	// Consolidate runs the QC stage alone.
	Consolidate(ctx context.Context, sites []qc.Site, identity *table.Table) (*qc.Result, error)

	// Hooks provides access to event callback registration
	Hooks
}

// pipeline is the internal implementation of the Pipeline interface.
type pipeline struct {
	config       *config
	assembler    *assembler.Assembler
	consolidator *qc.Consolidator

	// Event hooks
	hooks *hooks
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) (Pipeline, error) {
	p := &pipeline{
		config: defaultConfig(),
		hooks:  newHooks(),
	}
	if err := p.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}

	aopts := []assembler.Option{
		assembler.WithProvenance(p.config.provenance),
		assembler.WithLogger(p.config.logger),
	}
	if p.config.authorities != nil {
		aopts = append(aopts, assembler.WithAuthorities(p.config.authorities))
	}
	if p.config.sexCodes != nil {
		aopts = append(aopts, assembler.WithSexCodes(p.config.sexCodes))
	}
	a, err := assembler.New(aopts...)
	if err != nil {
		return nil, fmt.Errorf("creating assembler: %w", err)
	}

	qopts := []qc.Option{
		qc.WithStrict(p.config.strictQC),
		qc.WithLogger(p.config.logger),
	}
	if p.config.schema != nil {
		qopts = append(qopts, qc.WithSchema(*p.config.schema))
	}
	c, err := qc.New(qopts...)
	if err != nil {
		return nil, fmt.Errorf("creating consolidator: %w", err)
	}

	p.assembler = a
	p.consolidator = c
	return p, nil
}
