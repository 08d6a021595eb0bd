package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mamadbah2/guardops/internal/repository"
)

// Repository keeps records in process memory. Used for local runs and tests.
type Repository struct {
	mu     sync.RWMutex
	tables map[repository.Table]map[string]repository.Record

	// FailWith, when set, is returned by every write.
	FailWith error
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{tables: make(map[repository.Table]map[string]repository.Record)}
}

// List returns the table's records ordered by id.
func (r *Repository) List(_ context.Context, table repository.Table) ([]repository.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.tables[table]
	out := make([]repository.Record, 0, len(rows))
	for _, rec := range rows {
		out = append(out, clone(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

// Upsert inserts or replaces a record by id.
func (r *Repository) Upsert(_ context.Context, table repository.Table, record repository.Record) error {
	if r.FailWith != nil {
		return r.FailWith
	}
	id := record.ID()
	if id == "" {
		return fmt.Errorf("upsert into %s: %w", table, repository.ErrMissingID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tables[table] == nil {
		r.tables[table] = make(map[string]repository.Record)
	}
	r.tables[table][id] = clone(record)
	return nil
}

// Delete removes a record; deleting an unknown id is not an error.
func (r *Repository) Delete(_ context.Context, table repository.Table, id string) error {
	if r.FailWith != nil {
		return r.FailWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables[table], id)
	return nil
}

// Get returns one record, for assertions in tests.
func (r *Repository) Get(table repository.Table, id string) (repository.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.tables[table][id]
	if !ok {
		return nil, false
	}
	return clone(rec), true
}

func clone(rec repository.Record) repository.Record {
	out := make(repository.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
