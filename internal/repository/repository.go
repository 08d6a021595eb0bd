package repository

import (
	"context"
	"errors"
)

// Table names a persisted collection.
type Table string

const (
	TableStaff        Table = "staff"
	TableClients      Table = "clients"
	TableSuppliers    Table = "suppliers"
	TableTransactions Table = "transactions"
	TableShifts       Table = "shifts"
)

// Tables lists every collection loaded at startup.
var Tables = []Table{TableStaff, TableClients, TableSuppliers, TableTransactions, TableShifts}

// Record is the flat, lowercase-keyed row shape stored by every backend.
type Record map[string]any

// ID returns the record primary key.
func (r Record) ID() string {
	if v, ok := r["id"].(string); ok {
		return v
	}
	return ""
}

// ErrMissingID is returned when a record without an id is upserted.
var ErrMissingID = errors.New("record has no id")

// Repository is the persistence collaborator behind the in-memory store.
type Repository interface {
	List(ctx context.Context, table Table) ([]Record, error)
	Upsert(ctx context.Context, table Table, record Record) error
	Delete(ctx context.Context, table Table, id string) error
}
