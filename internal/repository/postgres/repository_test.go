package postgres

import (
	"strings"
	"testing"

	"github.com/mamadbah2/guardops/internal/repository"
)

func TestBuildUpsert(t *testing.T) {
	rec := repository.Record{
		"id":       "c1",
		"name":     "Condomínio",
		"stations": []any{"Portaria", "Garagem"},
	}

	query, args, err := buildUpsert(repository.TableClients, rec)
	if err != nil {
		t.Fatalf("buildUpsert: %v", err)
	}

	want := `INSERT INTO "clients" ("id", "name", "stations") VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET "name" = EXCLUDED."name", "stations" = EXCLUDED."stations"`
	if query != want {
		t.Errorf("query =\n%s\nwant\n%s", query, want)
	}
	if len(args) != 3 {
		t.Fatalf("args = %v", args)
	}
	if args[2] != `["Portaria","Garagem"]` {
		t.Errorf("stations encoded as %#v", args[2])
	}
}

func TestBuildUpsertIDOnly(t *testing.T) {
	query, _, err := buildUpsert(repository.TableShifts, repository.Record{"id": "x"})
	if err != nil {
		t.Fatalf("buildUpsert: %v", err)
	}
	if !strings.HasSuffix(query, "ON CONFLICT (id) DO NOTHING") {
		t.Errorf("query = %s", query)
	}
}

func TestDecodeColumn(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		dbType string
		check  func(any) bool
	}{
		{"jsonb array", []byte(`["a","b"]`), "JSONB", func(v any) bool { s, ok := v.([]any); return ok && len(s) == 2 }},
		{"json object", []byte(`{"k":1}`), "JSON", func(v any) bool { _, ok := v.(map[string]any); return ok }},
		{"numeric text", []byte("1000.50"), "NUMERIC", func(v any) bool { return v == "1000.50" }},
		{"bracketed text", []byte("[1]"), "TEXT", func(v any) bool { return v == "[1]" }},
		{"braced varchar", []byte(`{"k":1}`), "VARCHAR", func(v any) bool { return v == `{"k":1}` }},
		{"passthrough", true, "BOOL", func(v any) bool { return v == true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeColumn(tt.value, tt.dbType); !tt.check(got) {
				t.Errorf("decodeColumn(%v, %s) = %#v", tt.value, tt.dbType, got)
			}
		})
	}
}
