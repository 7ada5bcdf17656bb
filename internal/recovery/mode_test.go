package recovery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModeColumns(t *testing.T) {
	t.Parallel()

	modes := []Mode{DeletedMode{}, ArchivedMode{}, VoidedMode{}}

	t.Run("authoritative column mapping", func(t *testing.T) {
		require.Equal(t, "is_deleted", DeletedMode{}.FlagColumn())
		require.Equal(t, "deleted_at", DeletedMode{}.TimeColumn())
		require.Equal(t, "delete_reason", DeletedMode{}.ReasonColumn())

		require.Equal(t, "is_archived", ArchivedMode{}.FlagColumn())
		require.Equal(t, "archived_at", ArchivedMode{}.TimeColumn())
		require.Equal(t, "reason", ArchivedMode{}.ReasonColumn())

		require.Equal(t, "is_voided", VoidedMode{}.FlagColumn())
		require.Equal(t, "voided_at", VoidedMode{}.TimeColumn())
		require.Equal(t, "void_reason", VoidedMode{}.ReasonColumn())
	})

	t.Run("column names never collide across modes", func(t *testing.T) {
		seen := map[string]string{}
		for _, mode := range modes {
			for _, col := range []string{mode.FlagColumn(), mode.TimeColumn(), mode.ReasonColumn()} {
				owner, dup := seen[col]
				require.False(t, dup, "column %q claimed by both %s and %s", col, owner, mode.Name())
				seen[col] = mode.Name()
			}
		}
		require.Len(t, seen, 9)
	})
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"deleted", " Archived ", "VOIDED"} {
		mode, ok := ParseMode(name)
		require.True(t, ok, name)
		require.NotNil(t, mode)
	}

	_, ok := ParseMode("purged")
	require.False(t, ok)
}
