package ppmi500

import (
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/logging"
	"github.com/agentstation/ppmi500/pkg/provenance"
	"github.com/agentstation/ppmi500/pkg/save"
	"github.com/agentstation/ppmi500/pkg/table"
)

// Save writes the output table and, when configured, the consolidated QC
// table and the provenance file.
func (r *Result) Save(opts ...save.Option) error {
	if r == nil || r.Table == nil {
		return &errors.ValidationError{Field: "result", Message: "nothing to save"}
	}
	o := save.Defaults().Apply(opts...)
	fs := o.Fs()

	if err := table.WriteFile(fs, o.OutputPath(), r.Table); err != nil {
		return err
	}
	logging.Info().Str("path", o.OutputPath()).Int("rows", r.Table.Len()).Msg("Wrote output")

	if path := o.QCPath(); path != "" && r.QC != nil {
		if err := table.WriteFile(fs, path, r.QC.Table); err != nil {
			return err
		}
		logging.Debug().Str("path", path).Msg("Wrote consolidated QC")
	}

	if path := o.ProvenancePath(); path != "" && r.Demographics != nil && r.Demographics.Provenance != nil {
		if err := provenance.Save(fs, path, r.Demographics.Provenance); err != nil {
			return err
		}
		logging.Debug().Str("path", path).Msg("Wrote provenance")
	}
	return nil
}
