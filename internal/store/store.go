package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/repository"
)

// ErrNotFound is returned for lookup misses when the store runs in strict mode.
var ErrNotFound = errors.New("not found")

const persistErrorBuffer = 64

// Entity is anything the store can keep in a table.
type Entity interface {
	EntityID() string
}

// Op is the kind of mutation carried by a Change.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Change is one mutation of one entity.
type Change struct {
	Op     Op
	Table  repository.Table
	ID     string
	Entity Entity
}

// Upsert builds an insert-or-replace change.
func Upsert(table repository.Table, e Entity) Change {
	return Change{Op: OpUpsert, Table: table, ID: e.EntityID(), Entity: e}
}

// Delete builds a removal change.
func Delete(table repository.Table, id string) Change {
	return Change{Op: OpDelete, Table: table, ID: id}
}

// PersistError records a write the backend rejected after the change was applied locally.
type PersistError struct {
	Change Change
	Err    error
	At     time.Time
}

func (e PersistError) Error() string {
	return fmt.Sprintf("persist %s %s/%s: %v", e.Change.Op, e.Change.Table, e.Change.ID, e.Err)
}

// Options tunes store behaviour.
type Options struct {
	StrictLookups  bool
	PersistTimeout time.Duration
}

// Store owns the authoritative in-memory collections. Writes are applied
// locally first and then persisted in the background; persistence failures
// never undo the local change.
type Store struct {
	mu     sync.RWMutex
	tables map[repository.Table]*collection

	repo    repository.Repository
	strict  bool
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	subsMu sync.RWMutex
	subs   map[int]func(Change)
	nextID int

	errs     chan PersistError
	inflight sync.WaitGroup
}

// New creates an empty store backed by repo.
func New(repo repository.Repository, opts Options, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}

	tables := make(map[repository.Table]*collection, len(repository.Tables))
	for _, t := range repository.Tables {
		tables[t] = newCollection()
	}

	return &Store{
		tables:  tables,
		repo:    repo,
		strict:  opts.StrictLookups,
		timeout: opts.PersistTimeout,
		logger:  logger,
		now:     time.Now,
		subs:    make(map[int]func(Change)),
		errs:    make(chan PersistError, persistErrorBuffer),
	}
}

// Load replaces the in-memory collections with the backend contents.
// Records that cannot be decoded are logged and skipped.
func (s *Store) Load(ctx context.Context) error {
	loaded := make(map[repository.Table]*collection, len(repository.Tables))

	for _, table := range repository.Tables {
		records, err := s.repo.List(ctx, table)
		if err != nil {
			return fmt.Errorf("load %s: %w", table, err)
		}

		c := newCollection()
		for _, rec := range records {
			entity, err := decode(table, rec)
			if err == nil && entity.EntityID() == "" {
				err = repository.ErrMissingID
			}
			if err != nil {
				s.logger.Warn("skip undecodable record", zap.String("table", string(table)), zap.String("id", rec.ID()), zap.Error(err))
				continue
			}
			c.put(entity)
		}
		loaded[table] = c
		s.logger.Info("table loaded", zap.String("table", string(table)), zap.Int("records", len(c.order)))
	}

	s.mu.Lock()
	s.tables = loaded
	s.mu.Unlock()
	return nil
}

// Strict reports whether lookup misses are reported as errors.
func (s *Store) Strict() bool { return s.strict }

// Missing turns a lookup miss into ErrNotFound in strict mode and into a
// silent no-op (nil) in lenient mode.
func (s *Store) Missing(kind, id string) error {
	if !s.strict {
		s.logger.Debug("lookup miss ignored", zap.String("kind", kind), zap.String("id", id))
		return nil
	}
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// ApplyLocally applies the changes to the in-memory collections as one unit
// and returns the changes that actually took effect. Deleting an unknown id
// is a lookup miss: in strict mode nothing is applied, in lenient mode the
// change is dropped.
func (s *Store) ApplyLocally(changes ...Change) ([]Change, error) {
	s.mu.Lock()
	applied, err := s.applyLocked(changes)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(applied)
	return applied, nil
}

func (s *Store) applyLocked(changes []Change) ([]Change, error) {
	for _, ch := range changes {
		c, ok := s.tables[ch.Table]
		if !ok {
			return nil, fmt.Errorf("unknown table %q", ch.Table)
		}
		if ch.Op == OpUpsert && ch.Entity == nil {
			return nil, fmt.Errorf("upsert %s/%s without entity", ch.Table, ch.ID)
		}
		if ch.Op == OpDelete && !c.has(ch.ID) {
			if err := s.Missing(string(ch.Table), ch.ID); err != nil {
				return nil, err
			}
		}
	}

	applied := make([]Change, 0, len(changes))
	for _, ch := range changes {
		c := s.tables[ch.Table]
		switch ch.Op {
		case OpUpsert:
			c.put(ch.Entity)
		case OpDelete:
			if !c.remove(ch.ID) {
				continue
			}
		}
		applied = append(applied, ch)
	}
	return applied, nil
}

// Persist writes one change to the backend.
func (s *Store) Persist(ctx context.Context, ch Change) error {
	switch ch.Op {
	case OpUpsert:
		record, err := repository.ToRecord(ch.Entity)
		if err != nil {
			return err
		}
		return s.repo.Upsert(ctx, ch.Table, record)
	case OpDelete:
		return s.repo.Delete(ctx, ch.Table, ch.ID)
	default:
		return fmt.Errorf("unknown op %q", ch.Op)
	}
}

// Commit applies the changes locally and persists each one in the background.
func (s *Store) Commit(changes ...Change) ([]Change, error) {
	applied, err := s.ApplyLocally(changes...)
	if err != nil {
		return nil, err
	}

	for _, ch := range applied {
		s.inflight.Add(1)
		go s.persistAsync(ch)
	}
	return applied, nil
}

func (s *Store) persistAsync(ch Change) {
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.Persist(ctx, ch); err != nil {
		pe := PersistError{Change: ch, Err: err, At: s.now()}
		s.logger.Error("persist failed",
			zap.String("op", string(ch.Op)),
			zap.String("table", string(ch.Table)),
			zap.String("id", ch.ID),
			zap.Error(err))

		select {
		case s.errs <- pe:
		default:
			s.logger.Warn("persist error buffer full, dropping event", zap.String("id", ch.ID))
		}
	}
}

// PersistErrors streams background persistence failures.
func (s *Store) PersistErrors() <-chan PersistError { return s.errs }

// Flush blocks until every background write issued so far has finished.
func (s *Store) Flush() { s.inflight.Wait() }

// Subscribe registers fn for every applied change and returns a cancel func.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) notify(changes []Change) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, ch := range changes {
		for _, fn := range s.subs {
			fn(ch)
		}
	}
}

func decode(table repository.Table, rec repository.Record) (Entity, error) {
	switch table {
	case repository.TableStaff:
		var v models.Staff
		err := repository.FromRecord(rec, &v)
		return v, err
	case repository.TableClients:
		var v models.Client
		err := repository.FromRecord(rec, &v)
		return v, err
	case repository.TableSuppliers:
		var v models.Supplier
		err := repository.FromRecord(rec, &v)
		return v, err
	case repository.TableTransactions:
		var v models.Transaction
		err := repository.FromRecord(rec, &v)
		return v, err
	case repository.TableShifts:
		var v models.Shift
		err := repository.FromRecord(rec, &v)
		return v, err
	}
	return nil, fmt.Errorf("unknown table %q", table)
}
