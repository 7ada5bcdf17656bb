package schema

import (
	"sort"
	"strings"
)

// ColumnSet is the runtime-discovered set of column names for one table.
// Names are stored lower-cased; lookups are case-insensitive. A nil ColumnSet
// behaves like an empty one, which is how a missing table presents itself.
type ColumnSet map[string]struct{}

func NewColumnSet(names ...string) ColumnSet {
	set := make(ColumnSet, len(names))
	for _, name := range names {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

func (s ColumnSet) Has(column string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(column))]
	return ok
}

func (s ColumnSet) Len() int {
	return len(s)
}

// Names returns the columns in sorted order for deterministic output.
func (s ColumnSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
