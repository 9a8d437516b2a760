package datanorm

import "strings"

// FieldAlias lists the header spellings that carry one metric. Aliases are
// compared case-insensitively.
type FieldAlias struct {
	Field   string
	Aliases []string
}

// ColumnMapping is the result of MapColumns.
type ColumnMapping struct {
	FieldIndex map[string]int // field -> column index
	RawNames   []string
}

// MapColumns resolves each field to at most one column. An exact pass runs
// first over every field; a contains pass then fills the remaining fields
// from headers nobody has claimed. Field order breaks contention in the
// contains pass.
func MapColumns(headers []string, fields []FieldAlias) *ColumnMapping {
	m := &ColumnMapping{
		FieldIndex: make(map[string]int),
		RawNames:   headers,
	}
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}
	claimed := make(map[int]bool)

	for _, f := range fields {
		for _, alias := range f.Aliases {
			idx := indexOf(normalized, strings.ToLower(alias), claimed)
			if idx >= 0 {
				m.FieldIndex[f.Field] = idx
				claimed[idx] = true
				break
			}
		}
	}

	for _, f := range fields {
		if _, ok := m.FieldIndex[f.Field]; ok {
			continue
		}
	search:
		for _, alias := range f.Aliases {
			alias = strings.ToLower(alias)
			for i, h := range normalized {
				if h == "" || claimed[i] {
					continue
				}
				if strings.Contains(h, alias) {
					m.FieldIndex[f.Field] = i
					claimed[i] = true
					break search
				}
			}
		}
	}
	return m
}

func indexOf(normalized []string, want string, claimed map[int]bool) int {
	for i, h := range normalized {
		if h == want && !claimed[i] {
			return i
		}
	}
	return -1
}

func normalizeHeader(h string) string {
	normalized := strings.ToLower(strings.TrimSpace(h))
	return strings.Trim(normalized, "\"'")
}

// Has reports whether the field was resolved.
func (m *ColumnMapping) Has(field string) bool {
	_, ok := m.FieldIndex[field]
	return ok
}

// Value returns the row's cell for a field. Short rows yield nil.
func (m *ColumnMapping) Value(row []Cell, field string) Cell {
	idx, ok := m.FieldIndex[field]
	if !ok || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// FindColumn returns the index of the first header equal, ignoring case and
// surrounding space, to one of the spellings, or -1.
func FindColumn(headers []string, spellings ...string) int {
	for i, h := range headers {
		n := normalizeHeader(h)
		if n == "" {
			continue
		}
		for _, s := range spellings {
			if n == s {
				return i
			}
		}
	}
	return -1
}

// FindColumnContaining returns the index of the first header whose
// lowercased text contains one of the fragments, or -1.
func FindColumnContaining(headers []string, fragments ...string) int {
	for i, h := range headers {
		n := normalizeHeader(h)
		if n == "" {
			continue
		}
		for _, f := range fragments {
			if strings.Contains(n, f) {
				return i
			}
		}
	}
	return -1
}
