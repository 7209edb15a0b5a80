// Package sources defines the auxiliary data sources the demographic backfill
// draws on, and the interfaces that remote and local implementations satisfy.
//
// A Provider answers one question: for these subjects, what does the source
// hold in this column? The assembler asks providers in authority order and
// fills whatever is still missing.
//
// Example usage:
//
//	srcs := sources.NewSources()
//	srcs.Set(sources.NewDocumentProvider(lookup))
//	srcs.Set(sources.NewTableProvider(sources.Metadata, baseline, "subjectID"))
//
//	p, ok := srcs.Get(sources.Metadata)
//	candidates, err := p.Table(ctx, "subjectAge", []string{"3001", "3002"})
package sources

import (
	"context"
	"slices"
	"sync"

	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/table"
)

// ID represents the identifier of a data source.
type ID string

// String returns the string representation of a source ID.
func (id ID) String() string {
	return string(id)
}

// Known source IDs.
const (
	// SubjectJSON is the per-subject JSON document in the curated release.
	SubjectJSON ID = "subject_json"
	// Metadata is the release metadata table, restricted to Baseline visits.
	Metadata ID = "metadata"
	// Demographics is the wide demographic table itself.
	Demographics ID = "demographics"
)

// IDs returns all known source IDs.
func IDs() []ID {
	return []ID{SubjectJSON, Metadata, Demographics}
}

// IsValid returns true if the ID is one of the defined constants.
func (id ID) IsValid() bool {
	return slices.Contains(IDs(), id)
}

// SexLookup reads the recorded sex of a subject from its JSON document.
//
// The returned cell is null when the subject has no document at all, and the
// literal "Unknown" when a document exists but lacks the field. Errors are
// remote failures and abort the run.
type SexLookup interface {
	SexField(ctx context.Context, subjectID string) (null.String, error)
}

// SexLookupFunc adapts a function to SexLookup.
type SexLookupFunc func(ctx context.Context, subjectID string) (null.String, error)

// SexField implements SexLookup.
func (f SexLookupFunc) SexField(ctx context.Context, subjectID string) (null.String, error) {
	return f(ctx, subjectID)
}

// MetadataSource provides the raw release metadata table.
type MetadataSource interface {
	MetadataTable(ctx context.Context) (*table.Table, error)
}

// MetadataFunc adapts a function to MetadataSource.
type MetadataFunc func(ctx context.Context) (*table.Table, error)

// MetadataTable implements MetadataSource.
func (f MetadataFunc) MetadataTable(ctx context.Context) (*table.Table, error) {
	return f(ctx)
}

// Provider yields candidate values for subjects missing a field.
type Provider interface {
	// ID identifies the source.
	ID() ID

	// Table returns a (subjectID, column) table with at most the requested
	// subjects. Subjects the source knows nothing about are simply absent.
	Table(ctx context.Context, column string, subjects []string) (*table.Table, error)
}

// Sources is a thread-safe registry of providers keyed by ID.
type Sources struct {
	mu        sync.RWMutex
	providers map[ID]Provider
}

// NewSources creates a new Sources instance.
func NewSources(providers ...Provider) *Sources {
	s := &Sources{providers: make(map[ID]Provider)}
	for _, p := range providers {
		s.Set(p)
	}
	return s
}

// Get returns a provider by ID.
func (s *Sources) Get(id ID) (Provider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, found := s.providers[id]
	return p, found
}

// Set registers p under its ID, replacing any previous provider.
func (s *Sources) Set(p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.ID()] = p
}

// Delete removes a provider by ID.
func (s *Sources) Delete(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.providers, id)
}

// Len returns the number of providers.
func (s *Sources) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.providers)
}

// IDs returns the registered IDs in sorted order.
func (s *Sources) IDs() []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]ID, 0, len(s.providers))
	for id := range s.providers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
