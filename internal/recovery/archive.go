package recovery

import (
	"fmt"
	"strings"

	"school-admin-api/internal/model"
	"school-admin-api/internal/schema"
)

// RoleFilterKind says how archived_users rows are attributed to a role.
// Some deployments store the role as an enum string, others as a foreign key
// into the role lookup table; the engine supports both without knowing in
// advance which variant it is running against.
type RoleFilterKind int

const (
	// RoleFilterNone means the archive table has no role concept at all; an
	// account entity then yields zero results rather than an error, because
	// role-scoping cannot be done safely.
	RoleFilterNone RoleFilterKind = iota
	RoleFilterString
	RoleFilterID
)

// RoleLookupTable is consulted when archived_users carries role_id instead of
// a role string.
const RoleLookupTable = "role"

// ArchiveBuilder constructs statements for the three account-type entities
// whose recoverable pool is row-membership in the shared archived_users table.
type ArchiveBuilder struct {
	cfg       EntityConfig
	cols      schema.ColumnSet
	idColumn  string
	filter    RoleFilterKind
	hasTime   bool
	hasReason bool
	labels    []string
}

// NewArchiveBuilder resolves the archive table layout. Unlike flag-based
// entities there is no meaningful empty-schema fallback here: a missing
// archive table or an unresolvable id column is a surfaced error.
func NewArchiveBuilder(cfg EntityConfig, cols schema.ColumnSet) (*ArchiveBuilder, error) {
	if !cfg.ArchiveBacked() {
		return nil, fmt.Errorf("entity %q is not archive-backed", cfg.Key)
	}
	if cols.Len() == 0 {
		return nil, fmt.Errorf("%w: table %q not found in live schema", model.ErrArchiveUnavailable, ArchiveTable)
	}

	var idColumn string
	switch {
	case cols.Has("archived_id"):
		idColumn = "archived_id"
	case cols.Has("archive_id"):
		idColumn = "archive_id"
	default:
		return nil, fmt.Errorf("%w: table %q has neither archived_id nor archive_id", model.ErrArchiveUnavailable, ArchiveTable)
	}

	filter := RoleFilterNone
	switch {
	case cols.Has("role"):
		filter = RoleFilterString
	case cols.Has("role_id"):
		filter = RoleFilterID
	}

	mode := ArchivedMode{}
	return &ArchiveBuilder{
		cfg:       cfg,
		cols:      cols,
		idColumn:  idColumn,
		filter:    filter,
		hasTime:   cols.Has(mode.TimeColumn()),
		hasReason: cols.Has(mode.ReasonColumn()),
		labels:    PickLabelColumns(cols, cfg.LabelColumns),
	}, nil
}

func (b *ArchiveBuilder) RoleFilter() RoleFilterKind { return b.filter }
func (b *ArchiveBuilder) IDColumn() string           { return b.idColumn }
func (b *ArchiveBuilder) LabelColumns() []string     { return b.labels }

// NormalizedRoles returns the entity's accepted role tokens in canonical form.
func (b *ArchiveBuilder) NormalizedRoles() []string {
	tokens := make([]string, 0, len(b.cfg.ArchiveRoles))
	for _, role := range b.cfg.ArchiveRoles {
		tokens = append(tokens, NormalizeRole(role))
	}
	return tokens
}

// RoleIDQuery translates the accepted role tokens into numeric ids via the
// role lookup table. Only used for the RoleFilterID variant.
func (b *ArchiveBuilder) RoleIDQuery() Query {
	return Query{
		SQL: fmt.Sprintf(
			"SELECT id FROM %s WHERE replace(replace(lower(name), '-', '_'), ' ', '_') = ANY($1)",
			quote(RoleLookupTable)),
		Args: []any{b.NormalizedRoles()},
	}
}

// ListQueries returns the lock-step COUNT and SELECT for one listing page.
// roleIDs is consulted only under the RoleFilterID variant.
func (b *ArchiveBuilder) ListQueries(search string, limit int, offset int, roleIDs []int64) (Query, Query) {
	where, args := b.where(search, roleIDs)

	count := Query{
		SQL:  fmt.Sprintf("SELECT COUNT(*) FROM %s %s", quote(ArchiveTable), where),
		Args: args,
	}

	sel := Query{
		SQL: fmt.Sprintf("SELECT %s FROM %s %s ORDER BY %s LIMIT $%d OFFSET $%d",
			b.projection(), quote(ArchiveTable), where, b.ordering(), len(args)+1, len(args)+2),
		Args: append(append([]any{}, args...), limit, offset),
	}

	return count, sel
}

func (b *ArchiveBuilder) FetchByIDs(ids []string, roleIDs []int64) Query {
	where, args := b.where("", roleIDs)
	args = append(args, ids)

	return Query{
		SQL: fmt.Sprintf("SELECT %s FROM %s %s AND CAST(%s AS TEXT) = ANY($%d)",
			b.projection(), quote(ArchiveTable), where, quote(b.idColumn), len(args)),
		Args: args,
	}
}

// InsertLive re-inserts archived rows into the live account table, copying
// the columns both tables share. The archive id column maps onto the live id;
// archive metadata (archived_at, reason) stays behind. Role travels with the
// row whenever the live table can hold it, so a restored principal comes back
// a principal instead of the live table's default role.
func (b *ArchiveBuilder) InsertLive(liveCols schema.ColumnSet, ids []string, roleIDs []int64) (Query, error) {
	if !liveCols.Has("id") {
		return Query{}, fmt.Errorf("live table %q is missing an id column", LiveAccountTable)
	}

	skip := map[string]struct{}{
		b.idColumn:                    {},
		ArchivedMode{}.TimeColumn():   {},
		ArchivedMode{}.ReasonColumn(): {},
	}

	insertCols := []string{quote("id")}
	selectCols := []string{quote(b.idColumn)}
	for _, col := range b.cols.Names() {
		if _, skipped := skip[col]; skipped || col == "id" {
			continue
		}
		if liveCols.Has(col) {
			insertCols = append(insertCols, quote(col))
			selectCols = append(selectCols, quote(col))
		}
	}

	where, args := b.where("", roleIDs)
	args = append(args, ids)

	return Query{
		SQL: fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s %s AND CAST(%s AS TEXT) = ANY($%d)",
			quote(LiveAccountTable), strings.Join(insertCols, ", "),
			strings.Join(selectCols, ", "), quote(ArchiveTable), where,
			quote(b.idColumn), len(args)),
		Args: args,
	}, nil
}

// ConflictQuery selects the archived ids that collide with a live account on
// username or email. Only the identity columns both tables actually carry are
// compared; when neither is shared the check degrades to "no conflict".
func (b *ArchiveBuilder) ConflictQuery(liveCols schema.ColumnSet, ids []string, roleIDs []int64) (Query, bool) {
	var matches []string
	for _, col := range []string{"username", "email"} {
		if b.cols.Has(col) && liveCols.Has(col) {
			matches = append(matches, fmt.Sprintf("lower(u.%s) = lower(a.%s)", quote(col), quote(col)))
		}
	}
	if len(matches) == 0 {
		return Query{}, false
	}

	where, args := b.aliasedWhere("", roleIDs, "a.")
	args = append(args, ids)

	return Query{
		SQL: fmt.Sprintf(
			"SELECT DISTINCT CAST(a.%s AS TEXT) FROM %s a JOIN %s u ON %s %s AND CAST(a.%s AS TEXT) = ANY($%d)",
			quote(b.idColumn), quote(ArchiveTable), quote(LiveAccountTable),
			strings.Join(matches, " OR "),
			where, quote(b.idColumn), len(args)),
		Args: args,
	}, true
}

// DeleteByIDs removes restored rows from the archive.
func (b *ArchiveBuilder) DeleteByIDs(ids []string, roleIDs []int64) Query {
	where, args := b.where("", roleIDs)
	args = append(args, ids)

	return Query{
		SQL: fmt.Sprintf("DELETE FROM %s %s AND CAST(%s AS TEXT) = ANY($%d)",
			quote(ArchiveTable), where, quote(b.idColumn), len(args)),
		Args: args,
	}
}

func (b *ArchiveBuilder) where(search string, roleIDs []int64) (string, []any) {
	return b.aliasedWhere(search, roleIDs, "")
}

func (b *ArchiveBuilder) aliasedWhere(search string, roleIDs []int64, alias string) (string, []any) {
	var clauses []string
	var args []any

	switch b.filter {
	case RoleFilterString:
		args = append(args, b.NormalizedRoles())
		clauses = append(clauses, fmt.Sprintf(
			"replace(replace(lower(%s%s), '-', '_'), ' ', '_') = ANY($%d)", alias, quote("role"), len(args)))
	case RoleFilterID:
		if len(roleIDs) == 0 {
			clauses = append(clauses, "FALSE")
		} else {
			args = append(args, roleIDs)
			clauses = append(clauses, fmt.Sprintf("%s%s = ANY($%d)", alias, quote("role_id"), len(args)))
		}
	case RoleFilterNone:
		clauses = append(clauses, "FALSE")
	}

	if term := strings.TrimSpace(search); term != "" {
		args = append(args, "%"+term+"%")
		clauses = append(clauses, searchPredicate(b.idColumn, b.labels, len(args)))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (b *ArchiveBuilder) projection() string {
	parts := []string{fmt.Sprintf("CAST(%s AS TEXT) AS id", quote(b.idColumn))}

	if b.hasTime {
		parts = append(parts, quote(ArchivedMode{}.TimeColumn())+" AS occurred_at")
	} else {
		parts = append(parts, "CAST(NULL AS TIMESTAMPTZ) AS occurred_at")
	}

	if b.hasReason {
		parts = append(parts, fmt.Sprintf("CAST(%s AS TEXT) AS reason", quote(ArchivedMode{}.ReasonColumn())))
	} else {
		parts = append(parts, "CAST(NULL AS TEXT) AS reason")
	}

	for _, label := range b.labels {
		parts = append(parts, fmt.Sprintf("CAST(%s AS TEXT) AS %s", quote(label), quote(label)))
	}

	return strings.Join(parts, ", ")
}

func (b *ArchiveBuilder) ordering() string {
	if b.hasTime {
		return fmt.Sprintf("%s DESC, %s DESC", quote(ArchivedMode{}.TimeColumn()), quote(b.idColumn))
	}
	return quote(b.idColumn) + " DESC"
}
