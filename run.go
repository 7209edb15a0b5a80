package ppmi500

import (
	"context"
	"errors"
	"time"

	"github.com/agentstation/ppmi500/pkg/assembler"
	"github.com/agentstation/ppmi500/pkg/backfill"
	"github.com/agentstation/ppmi500/pkg/constants"
	pkgerrors "github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/logging"
	"github.com/agentstation/ppmi500/pkg/qc"
	"github.com/agentstation/ppmi500/pkg/table"
)

// ReportFields are the output columns whose null subjects are reported after a run.
var ReportFields = []string{
	constants.ColCommonSex,
	constants.ColJoinedDX,
	constants.ColAgeBL,
	constants.ColModality,
	constants.ColHasHumanQC,
}

// Inputs are the tables a run consumes.
type Inputs struct {
	// Identity lists the visits to curate: subjectID, date and optionally imageID.
	Identity *table.Table

	// Demographic is the wide clinical export with a filename column.
	Demographic *table.Table

	// Sites are the per-site reviewer exports.
	Sites []qc.Site
}

// Result is the outcome of a full run.
type Result struct {
	// Table is the flat output: one row per QC image, or per visit when a
	// visit has no reviewed image.
	Table *table.Table

	Demographics *assembler.Result
	QC           *qc.Result

	// KeyCheck is the key mismatch reported by VerifyKeys, or nil.
	KeyCheck error

	// Missing lists the subjects still null in ReportFields.
	Missing backfill.Report

	Duration time.Duration
}

// Run executes the pipeline: metadata fetch, demographic assembly, QC
// consolidation, attach and verification. A remote failure aborts the run; a
// key mismatch is reported in Result.KeyCheck.
func (p *pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	if p.config.logger != nil {
		ctx = logging.WithLogger(ctx, p.config.logger)
	}
	logger := logging.FromContext(ctx)

	// Step 1: Validate inputs upfront
	if in.Identity == nil {
		return nil, &pkgerrors.ValidationError{Field: "identity", Message: "cannot be nil"}
	}
	if in.Demographic == nil {
		return nil, &pkgerrors.ValidationError{Field: "demographic", Message: "cannot be nil"}
	}

	// Step 2: Assemble demographics with backfill
	demo, err := p.Assemble(ctx, in.Identity, in.Demographic)
	if err != nil {
		return nil, err
	}

	// Step 3: Consolidate QC reviews
	review, err := p.Consolidate(ctx, in.Sites, in.Identity)
	if err != nil {
		return nil, err
	}

	// Step 4: Attach reviewed images to the visits
	out, err := AttachQC(demo.Table, review.Table)
	if err != nil {
		return nil, err
	}

	res := &Result{Table: out, Demographics: demo, QC: review}

	// Step 5: Verify the identity key set survived
	if err := VerifyKeys(in.Identity, out); err != nil {
		res.KeyCheck = err
		logger.Warn().Err(err).Msg("Visit keys differ from identity table")
		var mismatch *pkgerrors.KeyMismatchError
		if errors.As(err, &mismatch) {
			p.hooks.triggerKeyMismatch(mismatch)
		}
	}

	// Step 6: Report what is still missing
	res.Missing = backfill.NewReport(out, ReportFields...)
	for _, m := range res.Missing {
		logger.Info().Str("field", m.Field).Int("subjects", len(m.Subjects)).Msg("Missing after run")
	}

	res.Duration = time.Since(start)
	logger.Info().
		Int("identity_rows", in.Identity.Len()).
		Int("output_rows", out.Len()).
		Dur("duration", res.Duration).
		Msg("Pipeline completed")
	return res, nil
}

// Assemble fetches the metadata table when a source is configured and runs
// the demographic stage.
func (p *pipeline) Assemble(ctx context.Context, identity, demographic *table.Table) (*assembler.Result, error) {
	var meta *table.Table
	if p.config.metadata != nil {
		var err error
		if meta, err = p.config.metadata.MetadataTable(ctx); err != nil {
			return nil, err
		}
	}
	res, err := p.assembler.Assemble(ctx, identity, demographic, meta, p.config.sexLookup)
	if err != nil {
		return nil, err
	}
	p.hooks.triggerFilled(res.Provenance)
	return res, nil
}

// Consolidate runs the QC stage.
func (p *pipeline) Consolidate(ctx context.Context, sites []qc.Site, identity *table.Table) (*qc.Result, error) {
	res, err := p.consolidator.Consolidate(ctx, sites, identity)
	if err != nil {
		return nil, err
	}
	p.hooks.triggerDiagnostics(res.Diagnostics)
	return res, nil
}
