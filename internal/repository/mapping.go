package repository

import (
	"encoding/json"
	"fmt"
	"strings"
)

// nestedGroups are the objects spread into sibling columns on write.
var nestedGroups = map[string][]string{
	"address":   {"street", "number", "complement", "neighborhood", "city", "state", "zipcode"},
	"documents": {"cpf", "rg", "cnh", "workcard", "pis", "vigilantreg"},
}

// ToRecord flattens an application entity into the store's row shape:
// keys are lowercased, address/documents objects are spread into sibling
// fields and absent values are written as null.
func ToRecord(entity any) (Record, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}

	record := make(Record, len(doc))
	for key, value := range doc {
		lower := strings.ToLower(key)
		if _, nested := nestedGroups[lower]; nested {
			if inner, ok := value.(map[string]any); ok {
				for k, v := range inner {
					record[strings.ToLower(k)] = v
				}
				continue
			}
		}
		record[lower] = value
	}
	return record, nil
}

// FromRecord rebuilds an entity from a flat row. Field names are matched
// case-insensitively, which is what makes the lowercase columns line up with
// the camelCase json tags.
func FromRecord(record Record, out any) error {
	doc := make(map[string]any, len(record))
	groups := make(map[string]map[string]any)

	for key, value := range record {
		lower := strings.ToLower(key)
		if group := groupOf(lower); group != "" {
			if groups[group] == nil {
				groups[group] = make(map[string]any)
			}
			if value != nil {
				groups[group][lower] = normalizeValue(value)
			}
			continue
		}
		if value == nil {
			continue
		}
		doc[lower] = normalizeValue(value)
	}
	for group, fields := range groups {
		doc[group] = fields
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

func groupOf(key string) string {
	for group, fields := range nestedGroups {
		for _, f := range fields {
			if f == key {
				return group
			}
		}
	}
	return ""
}

// normalizeValue turns driver byte slices (numeric, text) into strings.
func normalizeValue(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}
