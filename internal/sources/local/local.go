// Package local serves subject documents and the metadata table from a
// filesystem mirror of the curated bucket. Keys map to paths under a root
// directory, so a mirror written by the fetch command can replace the
// object store offline.
package local

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/logging"
	"github.com/agentstation/ppmi500/pkg/sources"
	"github.com/agentstation/ppmi500/pkg/table"
)

// Compile-time interface checks.
var (
	_ sources.SexLookup      = (*Mirror)(nil)
	_ sources.MetadataSource = (*Mirror)(nil)
)

// Mirror reads the curated release layout from a directory.
type Mirror struct {
	fs            afero.Fs
	root          string
	subjectPrefix string
	metadataKey   string
	sexField      string
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithSubjectPrefix sets the key prefix under which each subject has a folder.
func WithSubjectPrefix(prefix string) Option {
	return func(m *Mirror) {
		m.subjectPrefix = prefix
	}
}

// WithMetadataKey sets the key of the metadata CSV.
func WithMetadataKey(key string) Option {
	return func(m *Mirror) {
		m.metadataKey = key
	}
}

// WithSexField sets the JSON field read by SexField.
func WithSexField(field string) Option {
	return func(m *Mirror) {
		m.sexField = field
	}
}

// New creates a Mirror rooted at root on fs.
func New(fs afero.Fs, root string, opts ...Option) *Mirror {
	m := &Mirror{
		fs:            fs,
		root:          root,
		subjectPrefix: constants.DefaultSubjectPrefix,
		metadataKey:   constants.DefaultMetadataKey,
		sexField:      constants.DefaultSexField,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the mirror directory.
func (m *Mirror) Root() string { return m.root }

// Path maps an object key to its mirror path.
func (m *Mirror) Path(key string) string {
	return filepath.Join(m.root, filepath.FromSlash(key))
}

// SubjectKey returns the key of a document named name in the subject's folder.
func (m *Mirror) SubjectKey(subjectID, name string) string {
	return path.Join(m.subjectPrefix+subjectID, name)
}

// MetadataKey returns the key of the metadata CSV.
func (m *Mirror) MetadataKey() string { return m.metadataKey }

// SexField implements sources.SexLookup. The first JSON file in name order
// under the subject's folder is read; a missing folder yields null.
func (m *Mirror) SexField(ctx context.Context, subjectID string) (null.String, error) {
	dir := m.Path(m.subjectPrefix + subjectID)
	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.FromContext(ctx).Debug().Str("subject_id", subjectID).Msg("No subject folder")
			return null.String{}, nil
		}
		return null.String{}, errors.WrapIO("list", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !sources.IsDocument(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		data, err := afero.ReadFile(m.fs, p)
		if err != nil {
			return null.String{}, errors.WrapIO("read", p, err)
		}
		return sources.FieldFromDocument(data, m.sexField, p)
	}
	return null.String{}, nil
}

// MetadataTable implements sources.MetadataSource.
func (m *Mirror) MetadataTable(_ context.Context) (*table.Table, error) {
	t, err := table.ReadFile(m.fs, m.Path(m.metadataKey))
	if err != nil {
		return nil, err
	}
	return t.Named("metadata"), nil
}

// Put stores data under key, creating parent directories.
func (m *Mirror) Put(key string, data []byte) error {
	p := m.Path(key)
	if err := m.fs.MkdirAll(filepath.Dir(p), constants.DirPermissions); err != nil {
		return errors.WrapIO("mkdir", filepath.Dir(p), err)
	}
	if err := afero.WriteFile(m.fs, p, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", p, err)
	}
	return nil
}
