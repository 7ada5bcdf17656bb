package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Lister reports the live column set of a table. A table that does not exist
// yields an empty ColumnSet and a nil error: callers treat absence as
// "feature missing", not as a failure.
type Lister interface {
	Columns(ctx context.Context, table string) (ColumnSet, error)
}

// Introspector reads column names from information_schema.
type Introspector struct {
	pool *pgxpool.Pool
}

func NewIntrospector(pool *pgxpool.Pool) *Introspector {
	return &Introspector{pool: pool}
}

func (i *Introspector) Columns(ctx context.Context, table string) (ColumnSet, error) {
	rows, err := i.pool.Query(ctx,
		`SELECT column_name
		 FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = $1`,
		strings.ToLower(strings.TrimSpace(table)))
	if err != nil {
		return nil, fmt.Errorf("introspect columns of %q: %w", table, err)
	}
	defer rows.Close()

	set := make(ColumnSet)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name of %q: %w", table, err)
		}
		set[strings.ToLower(name)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect columns of %q: %w", table, err)
	}

	return set, nil
}

type cacheEntry struct {
	columns   ColumnSet
	fetchedAt time.Time
}

// Cache wraps a Lister with a TTL cache. Schema migrations happen out-of-band,
// so a short TTL bounds staleness; empty results (missing tables) expire under
// the same TTL as hits so a later migration becomes visible.
type Cache struct {
	inner Lister
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewCache(inner Lister, ttl time.Duration) *Cache {
	return &Cache{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) Columns(ctx context.Context, table string) (ColumnSet, error) {
	key := strings.ToLower(strings.TrimSpace(table))

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < c.ttl {
		return entry.columns, nil
	}

	columns, err := c.inner.Columns(ctx, key)
	if err != nil {
		// Failures are never cached; the next call retries.
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{columns: columns, fetchedAt: time.Now()}
	c.mu.Unlock()

	return columns, nil
}

// Invalidate drops a single table from the cache, or everything when the
// table name is empty.
func (c *Cache) Invalidate(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(table) == "" {
		c.entries = make(map[string]cacheEntry)
		return
	}
	delete(c.entries, strings.ToLower(strings.TrimSpace(table)))
}
