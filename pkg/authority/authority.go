// Package authority decides which auxiliary sources may fill which
// demographic field, and in what order they are consulted.
package authority

import (
	"path/filepath"
	"sort"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/sources"
)

// Authority determines which sources may fill each field
type Authority interface {
	// Find returns the highest priority authority for a field
	Find(field string) *Field

	// List returns every authority for a field, highest priority first
	List(field string) []Field

	// Fields returns the fillable fields in fill order
	Fields() []string
}

// Field defines source priority for a specific target column
type Field struct {
	Path     string     `json:"path" yaml:"path"`         // target column, e.g. "commonSex"
	Source   sources.ID `json:"source" yaml:"source"`     // source consulted for the value
	Column   string     `json:"column" yaml:"column"`     // column name within the source
	Priority int        `json:"priority" yaml:"priority"` // higher is consulted first
}

// authorities holds an ordered list of field authorities
type authorities struct {
	fields []Field
	order  []string
}

// New creates an Authority from fields. Fill order is the order in which
// target paths first appear.
func New(fields ...Field) (Authority, error) {
	a := &authorities{fields: append([]Field(nil), fields...)}
	seen := make(map[string]bool)
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if !seen[f.Path] {
			seen[f.Path] = true
			a.order = append(a.order, f.Path)
		}
	}
	return a, nil
}

// Default returns the standard backfill chain: sex from the subject document,
// then age and diagnosis from Baseline metadata.
func Default() Authority {
	a, _ := New(DefaultFields()...)
	return a
}

// DefaultFields returns the standard authority list.
func DefaultFields() []Field {
	return []Field{
		{Path: constants.ColCommonSex, Source: sources.SubjectJSON, Column: constants.DefaultSexField, Priority: 100},
		{Path: constants.ColAgeBL, Source: sources.Metadata, Column: constants.ColMetaAge, Priority: 100},
		{Path: constants.ColJoinedDX, Source: sources.Metadata, Column: constants.ColMetaResearchGroup, Priority: 100},
	}
}

// Validate checks that the authority names a target, a known source and a column.
func (f Field) Validate() error {
	switch {
	case f.Path == "":
		return errors.NewValidationError("path", f.Path, "authority needs a target field")
	case !f.Source.IsValid():
		return errors.NewValidationError("source", f.Source, "unknown source "+f.Source.String())
	case f.Column == "":
		return errors.NewValidationError("column", f.Column, "authority for "+f.Path+" needs a source column")
	}
	return nil
}

// Find returns the highest priority authority for a field
func (a *authorities) Find(field string) *Field {
	return ByField(field, a.fields)
}

// List returns the authorities matching field, highest priority first.
// Equal priorities keep their declaration order.
func (a *authorities) List(field string) []Field {
	var out []Field
	for _, f := range a.fields {
		if MatchesPattern(field, f.Path) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// Fields returns the fillable fields in fill order
func (a *authorities) Fields() []string {
	return append([]string(nil), a.order...)
}

// ByField returns the highest priority authority for a given field
func ByField(field string, authorities []Field) *Field {
	var bestMatch *Field
	var bestPriority int
	var bestMatchLength int

	for i, auth := range authorities {
		if MatchesPattern(field, auth.Path) {
			// priority first, then pattern specificity, then declaration order
			patternLength := len(auth.Path)
			if bestMatch == nil || auth.Priority > bestPriority ||
				(auth.Priority == bestPriority && patternLength > bestMatchLength) {
				bestMatch = &authorities[i]
				bestPriority = auth.Priority
				bestMatchLength = patternLength
			}
		}
	}

	return bestMatch
}

// MatchesPattern checks if a field matches a pattern (supports * wildcards)
func MatchesPattern(field, pattern string) bool {
	if field == pattern {
		return true
	}

	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(field) >= len(prefix) && field[:len(prefix)] == prefix
	}

	matched, err := filepath.Match(pattern, field)
	if err != nil {
		return false
	}
	return matched
}
