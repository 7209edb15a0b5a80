// Package inputs locates and reads the pipeline's CSV files in a data directory.
package inputs

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentstation/ppmi500"
	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/qc"
	"github.com/agentstation/ppmi500/pkg/table"
)

// Files names the input and output files relative to a data directory.
type Files struct {
	Identity    string
	Demographic string
	QC          []string
	QCOutput    string
	Output      string
	Provenance  string
}

// DefaultFiles returns the file names of the curated release layout.
func DefaultFiles() Files {
	return Files{
		Identity:    constants.DefaultIdentityFile,
		Demographic: constants.DefaultDemographicFile,
		QC:          append([]string(nil), constants.DefaultQCFiles...),
		QCOutput:    constants.DefaultQCOutputFile,
		Output:      constants.DefaultOutputFile,
	}
}

// Path resolves name against dir unless it is absolute.
func Path(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, filepath.FromSlash(name))
}

// SiteName derives a site label from a QC file name: the part after the last
// underscore of the base name, without extension.
//
//	QC/ppmi500_AR.csv -> AR
func SiteName(name string) string {
	base := path.Base(filepath.ToSlash(name))
	base = strings.TrimSuffix(base, path.Ext(base))
	if i := strings.LastIndex(base, "_"); i >= 0 && i < len(base)-1 {
		return base[i+1:]
	}
	return base
}

// Identity reads the identity table.
func Identity(fs afero.Fs, dir string, f Files) (*table.Table, error) {
	t, err := Read(fs, Path(dir, f.Identity))
	if err != nil {
		return nil, err
	}
	return t.Named("identity"), nil
}

// Demographic reads the wide demographic table.
func Demographic(fs afero.Fs, dir string, f Files) (*table.Table, error) {
	t, err := Read(fs, Path(dir, f.Demographic))
	if err != nil {
		return nil, err
	}
	return t.Named("demographic"), nil
}

// Sites reads every QC table in f.QC order.
func Sites(fs afero.Fs, dir string, f Files) ([]qc.Site, error) {
	sites := make([]qc.Site, 0, len(f.QC))
	for _, name := range f.QC {
		site := SiteName(name)
		t, err := Read(fs, Path(dir, name))
		if err != nil {
			return nil, err
		}
		sites = append(sites, qc.Site{Name: site, Table: t.Named(site)})
	}
	return sites, nil
}

// Load reads every input of a full run.
func Load(fs afero.Fs, dir string, f Files) (ppmi500.Inputs, error) {
	var in ppmi500.Inputs
	var err error
	if in.Identity, err = Identity(fs, dir, f); err != nil {
		return in, err
	}
	if in.Demographic, err = Demographic(fs, dir, f); err != nil {
		return in, err
	}
	if in.Sites, err = Sites(fs, dir, f); err != nil {
		return in, err
	}
	return in, nil
}

// Read loads one input CSV. A missing file is an *errors.NotFoundError.
func Read(fs afero.Fs, path string) (*table.Table, error) {
	ok, err := afero.Exists(fs, path)
	if err != nil {
		return nil, errors.WrapIO("stat", path, err)
	}
	if !ok {
		return nil, errors.NewNotFoundError("input file", path)
	}
	return table.ReadFile(fs, path)
}

// Dir returns the positional directory argument, or fallback when none was given.
func Dir(args []string, fallback string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return fallback
}
