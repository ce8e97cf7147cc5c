package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries bounds the in-memory store when no size is configured.
const DefaultMemoryEntries = 500

// MemoryStore keeps the most recent records in a bounded LRU cache. It is
// the default for single-session use and for tests.
type MemoryStore struct {
	cache *lru.Cache[string, *Record]
}

// NewMemoryStore creates a store holding at most maxEntries records.
func NewMemoryStore(maxEntries int) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	cache, err := lru.New[string, *Record](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &MemoryStore{cache: cache}, nil
}

func cloneRecord(rec *Record) *Record {
	c := *rec
	if rec.Features != nil {
		c.Features = make(map[string]float64, len(rec.Features))
		for k, v := range rec.Features {
			c.Features[k] = v
		}
	}
	return &c
}

// Save stores a copy of the record.
func (m *MemoryStore) Save(_ context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.cache.Add(rec.ID, cloneRecord(rec))
	return nil
}

// Get retrieves a copy of the record by ID.
func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	rec, ok := m.cache.Peek(id)
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryStore) matching(filter Filter) []*Record {
	var out []*Record
	for _, id := range m.cache.Keys() {
		rec, ok := m.cache.Peek(id)
		if ok && filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// List returns matching records, newest first.
func (m *MemoryStore) List(_ context.Context, filter Filter) ([]*Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	all := m.matching(filter)
	if filter.Offset >= len(all) {
		return nil, nil
	}
	all = all[filter.Offset:]
	if len(all) > limit {
		all = all[:limit]
	}

	out := make([]*Record, len(all))
	for i, rec := range all {
		out[i] = cloneRecord(rec)
	}
	return out, nil
}

// Count returns the number of matching records.
func (m *MemoryStore) Count(_ context.Context, filter Filter) (int64, error) {
	return int64(len(m.matching(filter))), nil
}

// Delete removes a record by ID.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	if !m.cache.Remove(id) {
		return ErrNotFound
	}
	return nil
}

// Close purges the cache.
func (m *MemoryStore) Close() error {
	m.cache.Purge()
	return nil
}
