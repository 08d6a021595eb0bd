package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/repository"
)

// Repository persists flat records into one PostgreSQL table per entity.
// Columns mirror the record keys; slices and maps go to jsonb columns.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return NewRepository(db, logger), nil
}

// NewRepository wraps an existing connection pool.
func NewRepository(db *sql.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger}
}

// List reads every row of the table.
func (r *Repository) List(ctx context.Context, table repository.Table) ([]repository.Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s", pq.QuoteIdentifier(string(table)))
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("list %s columns: %w", table, err)
	}

	var out []repository.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}

		rec := make(repository.Record, len(columns))
		for i, col := range columns {
			rec[col.Name()] = decodeColumn(values[i], col.DatabaseTypeName())
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// Upsert writes the record with INSERT ... ON CONFLICT (id) DO UPDATE.
func (r *Repository) Upsert(ctx context.Context, table repository.Table, record repository.Record) error {
	if record.ID() == "" {
		return fmt.Errorf("upsert into %s: %w", table, repository.ErrMissingID)
	}

	query, args, err := buildUpsert(table, record)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert into %s: %w", table, err)
	}
	r.logger.Debug("record upserted", zap.String("table", string(table)), zap.String("id", record.ID()))
	return nil
}

// Delete removes a row by id.
func (r *Repository) Delete(ctx context.Context, table repository.Table, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", pq.QuoteIdentifier(string(table)))
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

// Close releases the pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

func buildUpsert(table repository.Table, record repository.Record) (string, []any, error) {
	columns := make([]string, 0, len(record))
	for col := range record {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	updates := make([]string, 0, len(columns))
	args := make([]any, len(columns))

	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quoted[i], quoted[i]))
		}

		value, err := encodeColumn(record[col])
		if err != nil {
			return "", nil, fmt.Errorf("encode %s.%s: %w", table, col, err)
		}
		args[i] = value
	}

	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) %s",
		pq.QuoteIdentifier(string(table)),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
		conflict)
	return query, args, nil
}

func encodeColumn(value any) (any, error) {
	switch v := value.(type) {
	case []any, map[string]any:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	default:
		return v, nil
	}
}

// decodeColumn unpacks json and jsonb columns; other byte values stay text.
func decodeColumn(value any, dbType string) any {
	b, ok := value.([]byte)
	if !ok {
		return value
	}
	switch strings.ToUpper(dbType) {
	case "JSON", "JSONB":
		var decoded any
		if err := json.Unmarshal(b, &decoded); err == nil {
			return decoded
		}
	}
	return string(b)
}
