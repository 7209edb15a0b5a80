// Package provenance records which source supplied each backfilled value.
package provenance

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/sources"
)

// Provenance tracks the origin of one field value for one subject.
type Provenance struct {
	Source    sources.ID `yaml:"source" json:"source"`                         // source that provided the value
	Field     string     `yaml:"field" json:"field"`                           // target column
	Value     string     `yaml:"value" json:"value"`                           // the value written
	Previous  string     `yaml:"previous,omitempty" json:"previous,omitempty"` // value replaced, if any
	Priority  int        `yaml:"priority" json:"priority"`                     // authority priority of the source
	Reason    string     `yaml:"reason,omitempty" json:"reason,omitempty"`     // why the value was written
	Timestamp utc.Time   `yaml:"timestamp" json:"timestamp"`                   // when the value was written
}

// Map tracks provenance for many subjects.
type Map map[string][]Provenance // key is "subjectID:field"

// Tracker manages provenance tracking during backfill.
type Tracker interface {
	// Track records provenance for a field
	Track(subjectID, field string, p Provenance)

	// FindByField retrieves provenance for one subject field
	FindByField(subjectID, field string) []Provenance

	// FindBySubject retrieves all provenance for a subject
	FindBySubject(subjectID string) map[string][]Provenance

	// Map returns a copy of the complete provenance map
	Map() Map

	// Len returns the number of tracked records
	Len() int

	// Clear removes all provenance data
	Clear()
}

type tracker struct {
	mu         sync.RWMutex
	provenance Map
	enabled    bool
}

// NewTracker creates a new provenance tracker. A disabled tracker records nothing.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

// Track records provenance for a field.
func (p *tracker) Track(subjectID, field string, history Provenance) {
	if !p.enabled {
		return
	}
	if history.Timestamp.IsZero() {
		history.Timestamp = utc.Now()
	}
	if history.Field == "" {
		history.Field = field
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	key := makeKey(subjectID, field)
	p.provenance[key] = append(p.provenance[key], history)
}

// FindByField retrieves provenance for a specific field.
func (p *tracker) FindByField(subjectID, field string) []Provenance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Provenance(nil), p.provenance[makeKey(subjectID, field)]...)
}

// FindBySubject retrieves all provenance for a subject.
func (p *tracker) FindBySubject(subjectID string) map[string][]Provenance {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(map[string][]Provenance)
	prefix := subjectID + ":"
	for key, info := range p.provenance {
		if field, found := strings.CutPrefix(key, prefix); found {
			result[field] = append([]Provenance(nil), info...)
		}
	}
	return result
}

// Map returns the complete provenance map.
func (p *tracker) Map() Map {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(Map, len(p.provenance))
	for k, v := range p.provenance {
		result[k] = append([]Provenance{}, v...)
	}
	return result
}

// Len returns the number of tracked records.
func (p *tracker) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, v := range p.provenance {
		n += len(v)
	}
	return n
}

// Clear removes all provenance data.
func (p *tracker) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.provenance = make(Map)
}

func makeKey(subjectID, field string) string {
	return subjectID + ":" + field
}

// Report is a per-subject view of a provenance map.
type Report struct {
	Subjects map[string]SubjectProvenance
}

// SubjectProvenance contains provenance for a single subject.
type SubjectProvenance struct {
	ID     string
	Fields map[string]Field
}

// Field contains the provenance history of a single field, oldest first.
type Field struct {
	Current Provenance   // last value written
	History []Provenance // every write
}

// GenerateReport creates a provenance report from a Map.
func GenerateReport(provenance Map) *Report {
	report := &Report{Subjects: make(map[string]SubjectProvenance)}

	for key, infos := range provenance {
		subjectID, field, ok := strings.Cut(key, ":")
		if !ok || len(infos) == 0 {
			continue
		}

		subject, exists := report.Subjects[subjectID]
		if !exists {
			subject = SubjectProvenance{ID: subjectID, Fields: make(map[string]Field)}
		}

		history := append([]Provenance(nil), infos...)
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].Timestamp.Before(history[j].Timestamp)
		})
		subject.Fields[field] = Field{Current: history[len(history)-1], History: history}
		report.Subjects[subjectID] = subject
	}

	return report
}

// BySource counts the fields each source supplied the current value for.
func (r *Report) BySource() map[sources.ID]int {
	out := make(map[sources.ID]int)
	for _, s := range r.Subjects {
		for _, f := range s.Fields {
			out[f.Current.Source]++
		}
	}
	return out
}

// String generates a string representation of the provenance report.
func (r *Report) String() string {
	var sb strings.Builder

	sb.WriteString("Provenance Report\n")
	sb.WriteString("=================\n\n")

	ids := make([]string, 0, len(r.Subjects))
	for id := range r.Subjects {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		subject := r.Subjects[id]
		fmt.Fprintf(&sb, "subject: %s\n", subject.ID)
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n")

		fields := make([]string, 0, len(subject.Fields))
		for field := range subject.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			fp := subject.Fields[field]
			fmt.Fprintf(&sb, "  %s: %s (from %s)\n", field, fp.Current.Value, fp.Current.Source)
			if len(fp.History) > 1 {
				for _, h := range fp.History[:len(fp.History)-1] {
					fmt.Fprintf(&sb, "    was %s from %s", h.Value, h.Source)
					if h.Reason != "" {
						fmt.Fprintf(&sb, " (%s)", h.Reason)
					}
					sb.WriteString("\n")
				}
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// File represents a provenance file stored on disk.
type File struct {
	Provenance Map `yaml:"provenance"`
}

// Save writes the map as YAML to path on fs.
func Save(fs afero.Fs, path string, m Map) error {
	data, err := yaml.MarshalWithOptions(File{Provenance: m}, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := afero.WriteFile(fs, path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Load reads provenance data from a YAML file.
// Returns nil, nil if the file doesn't exist.
func Load(fs afero.Fs, path string) (*File, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, errors.WrapIO("stat", path, err)
	}
	if !exists {
		return nil, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var pf File
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &pf, nil
}
