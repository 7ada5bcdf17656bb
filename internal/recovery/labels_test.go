package recovery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"school-admin-api/internal/schema"
)

func TestPickLabelColumns(t *testing.T) {
	t.Parallel()

	t.Run("keeps priority order of defaults", func(t *testing.T) {
		cols := schema.NewColumnSet("id", "first_name", "lrn", "email")
		picked := PickLabelColumns(cols, []string{"lrn", "last_name", "first_name", "email"})
		require.Equal(t, []string{"lrn", "first_name", "email"}, picked)
	})

	t.Run("falls back to the fixed generic list", func(t *testing.T) {
		cols := schema.NewColumnSet("id", "title", "username")
		picked := PickLabelColumns(cols, []string{"lrn", "last_name"})
		require.Equal(t, []string{"title", "username"}, picked)
	})

	t.Run("empty when neither list matches", func(t *testing.T) {
		cols := schema.NewColumnSet("id", "created_at")
		require.Empty(t, PickLabelColumns(cols, []string{"lrn"}))
	})

	t.Run("result is always a subset of the live columns", func(t *testing.T) {
		cols := schema.NewColumnSet("name")
		for _, picked := range [][]string{
			PickLabelColumns(cols, []string{"lrn", "name"}),
			PickLabelColumns(cols, nil),
		} {
			for _, col := range picked {
				require.True(t, cols.Has(col), col)
			}
		}
	})
}
