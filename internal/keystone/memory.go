package keystone

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryList is an in-process ListAPI for tests and local development.
// CreateOne rejects a second record carrying the same value for any of the
// named unique fields, mirroring the unique indexes on the real store.
// Empty names are ignored.
type MemoryList struct {
	mu           sync.RWMutex
	uniqueFields []string
	records      []Record
}

func NewMemoryList(uniqueFields ...string) *MemoryList {
	m := &MemoryList{}
	for _, f := range uniqueFields {
		if f != "" {
			m.uniqueFields = append(m.uniqueFields, f)
		}
	}
	return m
}

func (m *MemoryList) FindOne(ctx context.Context, where map[string]any, query string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.records {
		if matches(r, where) {
			return project(r, query), nil
		}
	}
	return nil, nil
}

func (m *MemoryList) FindMany(ctx context.Context, where map[string]any, query string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, r := range m.records {
		if matches(r, where) {
			out = append(out, project(r, query))
		}
	}
	return out, nil
}

func (m *MemoryList) CreateOne(ctx context.Context, data map[string]any) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := Record{}
	for k, v := range data {
		rec[k] = v
	}
	if rec["id"] == nil {
		rec["id"] = uuid.NewString()
	}

	for _, field := range m.uniqueFields {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		for _, existing := range m.records {
			if equal(existing[field], v) {
				return nil, ErrDuplicate
			}
		}
	}

	m.records = append(m.records, rec)

	out := Record{}
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

func matches(r Record, where map[string]any) bool {
	for k, v := range where {
		stored, ok := r[k]
		if !ok {
			return false
		}
		if !equal(stored, v) {
			return false
		}
	}
	return true
}

// equal compares loosely across numeric representations: a subject that
// arrives as float64 from JSON must still match an int stored earlier.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	return StringID(a) == StringID(b)
}
