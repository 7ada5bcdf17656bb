package recovery

import "school-admin-api/internal/schema"

// PickLabelColumns returns the subset of the entity's label candidates that
// exist in the live schema, in priority order. When none exist it falls back
// to whichever of FallbackLabelColumns are present, in that fixed order.
//
// The result is always drawn from one of the two allow-lists and from the
// live column set, never from user input; that bounds the identifiers that
// can ever appear in generated SQL.
func PickLabelColumns(columns schema.ColumnSet, defaults []string) []string {
	picked := present(columns, defaults)
	if len(picked) > 0 {
		return picked
	}
	return present(columns, FallbackLabelColumns)
}

func present(columns schema.ColumnSet, candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if columns.Has(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}
