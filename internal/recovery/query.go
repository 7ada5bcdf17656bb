package recovery

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"school-admin-api/internal/schema"
)

// Query is one parameterized statement. Every identifier in SQL is drawn from
// the static registry or the live column set and quoted; every value travels
// through Args. User-supplied text never reaches the SQL string.
type Query struct {
	SQL  string
	Args []any
}

// Builder constructs the list/count/fetch/restore statements for one
// flag-based entity against its live column set. The count and select for a
// listing share a single WHERE built in one place, so the two can never
// drift apart.
type Builder struct {
	cfg       EntityConfig
	cols      schema.ColumnSet
	hasTime   bool
	hasReason bool
	labels    []string
}

// NewBuilder validates the entity against the live schema. The id and flag
// columns are required; time and reason are optional and degrade to NULL
// projections when absent.
func NewBuilder(cfg EntityConfig, cols schema.ColumnSet) (*Builder, error) {
	if cfg.ArchiveBacked() {
		return nil, fmt.Errorf("entity %q is archive-backed, use ArchiveBuilder", cfg.Key)
	}
	if cols.Len() == 0 {
		return nil, fmt.Errorf("table %q has no columns in the live schema", cfg.Table)
	}
	if !cols.Has(cfg.IDColumn) {
		return nil, fmt.Errorf("table %q is missing id column %q", cfg.Table, cfg.IDColumn)
	}
	if !cols.Has(cfg.Mode.FlagColumn()) {
		return nil, fmt.Errorf("table %q is missing %s flag column %q", cfg.Table, cfg.Mode.Name(), cfg.Mode.FlagColumn())
	}

	return &Builder{
		cfg:       cfg,
		cols:      cols,
		hasTime:   cols.Has(cfg.Mode.TimeColumn()),
		hasReason: cols.Has(cfg.Mode.ReasonColumn()),
		labels:    PickLabelColumns(cols, cfg.LabelColumns),
	}, nil
}

func (b *Builder) LabelColumns() []string {
	return b.labels
}

// ListQueries returns the COUNT and SELECT for one listing page. Both embed
// the identical WHERE clause and argument list.
func (b *Builder) ListQueries(search string, limit int, offset int) (Query, Query) {
	where, args := b.where(search)

	count := Query{
		SQL:  fmt.Sprintf("SELECT COUNT(*) FROM %s %s", quote(b.cfg.Table), where),
		Args: args,
	}

	sel := Query{
		SQL: fmt.Sprintf("SELECT %s FROM %s %s ORDER BY %s LIMIT $%d OFFSET $%d",
			b.projection(), quote(b.cfg.Table), where, b.ordering(), len(args)+1, len(args)+2),
		Args: append(append([]any{}, args...), limit, offset),
	}

	return count, sel
}

// FetchByIDs selects the recoverable-pool rows matching the given ids, using
// the same projection as listings.
func (b *Builder) FetchByIDs(ids []string) Query {
	return Query{
		SQL: fmt.Sprintf("SELECT %s FROM %s WHERE %s = TRUE AND CAST(%s AS TEXT) = ANY($1)",
			b.projection(), quote(b.cfg.Table), quote(b.cfg.Mode.FlagColumn()), quote(b.cfg.IDColumn)),
		Args: []any{ids},
	}
}

// RestoreUpdate flips the mode flag back and clears the bookkeeping columns
// that exist. The flag predicate makes the update idempotent at row level:
// an id that is already live matches nothing and is silently absorbed.
func (b *Builder) RestoreUpdate(ids []string) Query {
	sets := []string{quote(b.cfg.Mode.FlagColumn()) + " = FALSE"}
	if b.hasTime {
		sets = append(sets, quote(b.cfg.Mode.TimeColumn())+" = NULL")
	}
	if b.hasReason {
		sets = append(sets, quote(b.cfg.Mode.ReasonColumn())+" = NULL")
	}

	return Query{
		SQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s = TRUE AND CAST(%s AS TEXT) = ANY($1)",
			quote(b.cfg.Table), strings.Join(sets, ", "),
			quote(b.cfg.Mode.FlagColumn()), quote(b.cfg.IDColumn)),
		Args: []any{ids},
	}
}

// ConflictQuery selects the ids among the candidates whose restoration would
// collide with a live row on the entity's natural key. ok is false when the
// entity has no conflict rule or the live schema lacks one of the key
// columns; the check then degrades to "no conflict".
func (b *Builder) ConflictQuery(ids []string) (Query, bool) {
	if len(b.cfg.ConflictColumns) == 0 {
		return Query{}, false
	}
	for _, col := range b.cfg.ConflictColumns {
		if !b.cols.Has(col) {
			return Query{}, false
		}
	}

	joins := make([]string, 0, len(b.cfg.ConflictColumns)+1)
	for _, col := range b.cfg.ConflictColumns {
		joins = append(joins, fmt.Sprintf("l.%s = d.%s AND d.%s IS NOT NULL", quote(col), quote(col), quote(col)))
	}
	joins = append(joins, fmt.Sprintf("l.%s = FALSE", quote(b.cfg.Mode.FlagColumn())))

	return Query{
		SQL: fmt.Sprintf(
			"SELECT DISTINCT CAST(d.%s AS TEXT) FROM %s d JOIN %s l ON %s WHERE d.%s = TRUE AND CAST(d.%s AS TEXT) = ANY($1)",
			quote(b.cfg.IDColumn), quote(b.cfg.Table), quote(b.cfg.Table),
			strings.Join(joins, " AND "),
			quote(b.cfg.Mode.FlagColumn()), quote(b.cfg.IDColumn)),
		Args: []any{ids},
	}, true
}

func (b *Builder) where(search string) (string, []any) {
	clauses := []string{quote(b.cfg.Mode.FlagColumn()) + " = TRUE"}
	args := make([]any, 0, 1)

	if term := strings.TrimSpace(search); term != "" {
		args = append(args, "%"+term+"%")
		clauses = append(clauses, searchPredicate(b.cfg.IDColumn, b.labels, len(args)))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (b *Builder) projection() string {
	parts := []string{fmt.Sprintf("CAST(%s AS TEXT) AS id", quote(b.cfg.IDColumn))}

	if b.hasTime {
		parts = append(parts, quote(b.cfg.Mode.TimeColumn())+" AS occurred_at")
	} else {
		parts = append(parts, "CAST(NULL AS TIMESTAMPTZ) AS occurred_at")
	}

	if b.hasReason {
		parts = append(parts, fmt.Sprintf("CAST(%s AS TEXT) AS reason", quote(b.cfg.Mode.ReasonColumn())))
	} else {
		parts = append(parts, "CAST(NULL AS TEXT) AS reason")
	}

	for _, label := range b.labels {
		parts = append(parts, fmt.Sprintf("CAST(%s AS TEXT) AS %s", quote(label), quote(label)))
	}

	return strings.Join(parts, ", ")
}

func (b *Builder) ordering() string {
	if b.hasTime {
		return fmt.Sprintf("%s DESC, %s DESC", quote(b.cfg.Mode.TimeColumn()), quote(b.cfg.IDColumn))
	}
	return quote(b.cfg.IDColumn) + " DESC"
}

// searchPredicate ORs a case-insensitive LIKE over the id column and every
// resolved label column, all bound to the same search argument.
func searchPredicate(idColumn string, labels []string, argIdx int) string {
	terms := []string{fmt.Sprintf("CAST(%s AS TEXT) ILIKE $%d", quote(idColumn), argIdx)}
	for _, label := range labels {
		terms = append(terms, fmt.Sprintf("CAST(%s AS TEXT) ILIKE $%d", quote(label), argIdx))
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}

func quote(identifier string) string {
	return pgx.Identifier{identifier}.Sanitize()
}
