package schema

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestColumnSet(t *testing.T) {
	t.Parallel()

	t.Run("lookups are case-insensitive and trimmed", func(t *testing.T) {
		set := NewColumnSet("ID", " deleted_at ", "Delete_Reason")
		require.True(t, set.Has("id"))
		require.True(t, set.Has("DELETED_AT"))
		require.True(t, set.Has(" delete_reason"))
		require.False(t, set.Has("is_deleted"))
	})

	t.Run("nil set behaves as empty", func(t *testing.T) {
		var set ColumnSet
		require.False(t, set.Has("id"))
		require.Zero(t, set.Len())
		require.Empty(t, set.Names())
	})

	t.Run("names are sorted and deduplicated", func(t *testing.T) {
		set := NewColumnSet("b", "a", "B", "", "  ")
		require.Equal(t, []string{"a", "b"}, set.Names())
	})
}

type fakeLister struct {
	calls   int
	columns ColumnSet
	err     error
}

func (f *fakeLister) Columns(_ context.Context, _ string) (ColumnSet, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.columns, nil
}

func TestCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("serves repeated lookups from cache", func(t *testing.T) {
		inner := &fakeLister{columns: NewColumnSet("id", "name")}
		cache := NewCache(inner, time.Minute)

		for i := 0; i < 3; i++ {
			cols, err := cache.Columns(ctx, "Students")
			require.NoError(t, err)
			require.True(t, cols.Has("id"))
		}
		require.Equal(t, 1, inner.calls)
	})

	t.Run("caches empty results for missing tables", func(t *testing.T) {
		inner := &fakeLister{columns: NewColumnSet()}
		cache := NewCache(inner, time.Minute)

		cols, err := cache.Columns(ctx, "gone")
		require.NoError(t, err)
		require.Zero(t, cols.Len())

		_, err = cache.Columns(ctx, "gone")
		require.NoError(t, err)
		require.Equal(t, 1, inner.calls)
	})

	t.Run("does not cache failures", func(t *testing.T) {
		inner := &fakeLister{err: errors.New("connection refused")}
		cache := NewCache(inner, time.Minute)

		_, err := cache.Columns(ctx, "students")
		require.Error(t, err)

		inner.err = nil
		inner.columns = NewColumnSet("id")
		cols, err := cache.Columns(ctx, "students")
		require.NoError(t, err)
		require.True(t, cols.Has("id"))
		require.Equal(t, 2, inner.calls)
	})

	t.Run("refetches after the TTL elapses", func(t *testing.T) {
		inner := &fakeLister{columns: NewColumnSet("id")}
		cache := NewCache(inner, time.Nanosecond)

		_, err := cache.Columns(ctx, "students")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
		_, err = cache.Columns(ctx, "students")
		require.NoError(t, err)
		require.Equal(t, 2, inner.calls)
	})

	t.Run("invalidate drops entries", func(t *testing.T) {
		inner := &fakeLister{columns: NewColumnSet("id")}
		cache := NewCache(inner, time.Minute)

		_, err := cache.Columns(ctx, "students")
		require.NoError(t, err)
		cache.Invalidate("STUDENTS")
		_, err = cache.Columns(ctx, "students")
		require.NoError(t, err)
		require.Equal(t, 2, inner.calls)
	})
}
