// Package cache memoizes subject document lookups.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/sources"
)

// Compile-time interface check.
var _ sources.SexLookup = (*SexLookup)(nil)

// Stats counts cache traffic.
type Stats struct {
	Hits   int64 `json:"hits" yaml:"hits"`
	Misses int64 `json:"misses" yaml:"misses"`
	Size   int   `json:"size" yaml:"size"`
}

// SexLookup wraps a lookup with a bounded LRU of answers. Errors are not cached.
type SexLookup struct {
	next   sources.SexLookup
	cache  *lru.Cache[string, null.String]
	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps next with a cache of size entries.
func New(next sources.SexLookup, size int) (*SexLookup, error) {
	c, err := lru.New[string, null.String](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup cache: %w", err)
	}
	return &SexLookup{next: next, cache: c}, nil
}

// SexField implements sources.SexLookup.
func (c *SexLookup) SexField(ctx context.Context, subjectID string) (null.String, error) {
	if v, ok := c.cache.Get(subjectID); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)
	v, err := c.next.SexField(ctx, subjectID)
	if err != nil {
		return null.String{}, err
	}
	c.cache.Add(subjectID, v)
	return v, nil
}

// Stats returns the cache counters.
func (c *SexLookup) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: c.cache.Len()}
}

// Purge empties the cache.
func (c *SexLookup) Purge() {
	c.cache.Purge()
}
