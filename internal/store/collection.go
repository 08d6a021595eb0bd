package store

import (
	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/repository"
)

// collection keeps entities in insertion order.
type collection struct {
	order []string
	items map[string]Entity
}

func newCollection() *collection {
	return &collection{items: make(map[string]Entity)}
}

func (c *collection) has(id string) bool {
	_, ok := c.items[id]
	return ok
}

func (c *collection) put(e Entity) {
	id := e.EntityID()
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = e
}

func (c *collection) remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns a snapshot of a table's entities in insertion order.
func All[T Entity](s *Store, table repository.Table) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.tables[table]
	if c == nil {
		return nil
	}
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		if v, ok := c.items[id].(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Get returns one entity by id.
func Get[T Entity](s *Store, table repository.Table, id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	c := s.tables[table]
	if c == nil {
		return zero, false
	}
	v, ok := c.items[id].(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// UpdateWhere rewrites every entity for which fn reports a change, as one
// local unit, and persists each rewritten entity in the background.
func UpdateWhere[T Entity](s *Store, table repository.Table, fn func(T) (T, bool)) ([]Change, error) {
	s.mu.Lock()
	c := s.tables[table]
	var changes []Change
	if c != nil {
		for _, id := range c.order {
			current, ok := c.items[id].(T)
			if !ok {
				continue
			}
			if next, changed := fn(current); changed {
				changes = append(changes, Upsert(table, next))
			}
		}
	}
	applied, err := s.applyLocked(changes)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(applied)
	for _, ch := range applied {
		s.inflight.Add(1)
		go s.persistAsync(ch)
	}
	return applied, nil
}

// Shifts returns every shift.
func (s *Store) Shifts() []models.Shift { return All[models.Shift](s, repository.TableShifts) }

// Staff returns every staff member.
func (s *Store) Staff() []models.Staff { return All[models.Staff](s, repository.TableStaff) }

// Clients returns every client.
func (s *Store) Clients() []models.Client { return All[models.Client](s, repository.TableClients) }

// Suppliers returns every supplier.
func (s *Store) Suppliers() []models.Supplier {
	return All[models.Supplier](s, repository.TableSuppliers)
}

// Transactions returns every real transaction.
func (s *Store) Transactions() []models.Transaction {
	return All[models.Transaction](s, repository.TableTransactions)
}
