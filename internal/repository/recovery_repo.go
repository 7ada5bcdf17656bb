package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"school-admin-api/internal/model"
	"school-admin-api/internal/recovery"
	"school-admin-api/internal/schema"
)

// RecoveryRepository executes the statements produced by the recovery query
// builders against the live database. Every call resolves the entity's
// builder from the current column set first, so the generated SQL always
// matches what the schema actually looks like.
type RecoveryRepository struct {
	pool    *pgxpool.Pool
	columns schema.Lister
	audit   *AuditRepository
}

func NewRecoveryRepository(pool *pgxpool.Pool, columns schema.Lister, audit *AuditRepository) *RecoveryRepository {
	return &RecoveryRepository{pool: pool, columns: columns, audit: audit}
}

// List runs the lock-step COUNT + SELECT pair for one page of an entity's
// recoverable pool.
func (r *RecoveryRepository) List(ctx context.Context, cfg recovery.EntityConfig, search string, limit int, offset int) (int, []model.RecoveryRecord, error) {
	if cfg.ArchiveBacked() {
		builder, roleIDs, err := r.archiveBuilder(ctx, cfg)
		if err != nil {
			return 0, nil, err
		}
		count, sel := builder.ListQueries(search, limit, offset, roleIDs)
		return r.runListPair(ctx, count, sel, builder.LabelColumns())
	}

	builder, err := r.flagBuilder(ctx, cfg)
	if err != nil {
		return 0, nil, err
	}
	count, sel := builder.ListQueries(search, limit, offset)
	return r.runListPair(ctx, count, sel, builder.LabelColumns())
}

// FetchByIDs returns the pool rows matching the candidate ids, in the same
// shape as listings.
func (r *RecoveryRepository) FetchByIDs(ctx context.Context, cfg recovery.EntityConfig, ids []string) ([]model.RecoveryRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var q recovery.Query
	var labels []string
	if cfg.ArchiveBacked() {
		builder, roleIDs, err := r.archiveBuilder(ctx, cfg)
		if err != nil {
			return nil, err
		}
		q = builder.FetchByIDs(ids, roleIDs)
		labels = builder.LabelColumns()
	} else {
		builder, err := r.flagBuilder(ctx, cfg)
		if err != nil {
			return nil, err
		}
		q = builder.FetchByIDs(ids)
		labels = builder.LabelColumns()
	}

	rows, err := r.pool.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s records: %w", cfg.Key, err)
	}
	defer rows.Close()

	return scanRecords(rows, labels)
}

// ConflictIDs returns the subset of candidate ids whose restoration would
// collide with a live row. Entities without an applicable conflict rule
// return an empty set.
func (r *RecoveryRepository) ConflictIDs(ctx context.Context, cfg recovery.EntityConfig, ids []string) (map[string]struct{}, error) {
	if len(ids) == 0 {
		return map[string]struct{}{}, nil
	}

	var q recovery.Query
	var ok bool
	if cfg.ArchiveBacked() {
		builder, roleIDs, err := r.archiveBuilder(ctx, cfg)
		if err != nil {
			return nil, err
		}
		liveCols, err := r.columns.Columns(ctx, recovery.LiveAccountTable)
		if err != nil {
			return nil, err
		}
		q, ok = builder.ConflictQuery(liveCols, ids, roleIDs)
	} else {
		builder, err := r.flagBuilder(ctx, cfg)
		if err != nil {
			return nil, err
		}
		q, ok = builder.ConflictQuery(ids)
	}
	if !ok {
		return map[string]struct{}{}, nil
	}

	rows, err := r.pool.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("check %s conflicts: %w", cfg.Key, err)
	}
	defer rows.Close()

	conflicts := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conflict id: %w", err)
		}
		conflicts[id] = struct{}{}
	}
	return conflicts, rows.Err()
}

// Restore un-deletes the given ids and writes the audit entry in a single
// transaction; any failure rolls both back. The returned count is the number
// of rows actually transitioned, which is less than len(ids) when some were
// already live (a legitimate, silently absorbed outcome).
func (r *RecoveryRepository) Restore(ctx context.Context, cfg recovery.EntityConfig, ids []string, entry model.AuditEntry) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin restore transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var restored int
	if cfg.ArchiveBacked() {
		restored, err = r.restoreArchived(ctx, tx, cfg, ids)
	} else {
		restored, err = r.restoreFlagged(ctx, tx, cfg, ids)
	}
	if err != nil {
		return 0, err
	}

	if after, isMap := entry.After.(map[string]any); isMap {
		after["restored_count"] = restored
	}
	if err := r.audit.LogTx(ctx, tx, entry); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit restore transaction: %w", err)
	}
	return restored, nil
}

func (r *RecoveryRepository) restoreFlagged(ctx context.Context, tx pgx.Tx, cfg recovery.EntityConfig, ids []string) (int, error) {
	builder, err := r.flagBuilder(ctx, cfg)
	if err != nil {
		return 0, err
	}

	q := builder.RestoreUpdate(ids)
	tag, err := tx.Exec(ctx, q.SQL, q.Args...)
	if err != nil {
		return 0, fmt.Errorf("restore %s records: %w", cfg.Key, err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *RecoveryRepository) restoreArchived(ctx context.Context, tx pgx.Tx, cfg recovery.EntityConfig, ids []string) (int, error) {
	builder, roleIDs, err := r.archiveBuilder(ctx, cfg)
	if err != nil {
		return 0, err
	}

	liveCols, err := r.columns.Columns(ctx, recovery.LiveAccountTable)
	if err != nil {
		return 0, err
	}

	insert, err := builder.InsertLive(liveCols, ids, roleIDs)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, insert.SQL, insert.Args...)
	if err != nil {
		return 0, fmt.Errorf("reinsert %s accounts: %w", cfg.Key, err)
	}

	del := builder.DeleteByIDs(ids, roleIDs)
	if _, err := tx.Exec(ctx, del.SQL, del.Args...); err != nil {
		return 0, fmt.Errorf("clear %s archive rows: %w", cfg.Key, err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *RecoveryRepository) flagBuilder(ctx context.Context, cfg recovery.EntityConfig) (*recovery.Builder, error) {
	cols, err := r.columns.Columns(ctx, cfg.Table)
	if err != nil {
		return nil, err
	}
	return recovery.NewBuilder(cfg, cols)
}

func (r *RecoveryRepository) archiveBuilder(ctx context.Context, cfg recovery.EntityConfig) (*recovery.ArchiveBuilder, []int64, error) {
	cols, err := r.columns.Columns(ctx, recovery.ArchiveTable)
	if err != nil {
		return nil, nil, err
	}

	builder, err := recovery.NewArchiveBuilder(cfg, cols)
	if err != nil {
		return nil, nil, err
	}

	var roleIDs []int64
	if builder.RoleFilter() == recovery.RoleFilterID {
		q := builder.RoleIDQuery()
		rows, err := r.pool.Query(ctx, q.SQL, q.Args...)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve role ids: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return nil, nil, fmt.Errorf("scan role id: %w", err)
			}
			roleIDs = append(roleIDs, id)
		}
		if err := rows.Err(); err != nil {
			return nil, nil, fmt.Errorf("resolve role ids: %w", err)
		}
	}

	return builder, roleIDs, nil
}

func (r *RecoveryRepository) runListPair(ctx context.Context, count recovery.Query, sel recovery.Query, labels []string) (int, []model.RecoveryRecord, error) {
	var total int
	if err := r.pool.QueryRow(ctx, count.SQL, count.Args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count recoverable records: %w", err)
	}

	rows, err := r.pool.Query(ctx, sel.SQL, sel.Args...)
	if err != nil {
		return 0, nil, fmt.Errorf("list recoverable records: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows, labels)
	if err != nil {
		return 0, nil, err
	}
	return total, records, nil
}

// scanRecords maps query rows onto RecoveryRecords. The projection is always
// id, occurred_at, reason, then the resolved label columns in order.
func scanRecords(rows pgx.Rows, labels []string) ([]model.RecoveryRecord, error) {
	records := make([]model.RecoveryRecord, 0)
	for rows.Next() {
		var id string
		var occurredAt *time.Time
		var reason *string
		labelVals := make([]*string, len(labels))

		dest := make([]any, 0, 3+len(labels))
		dest = append(dest, &id, &occurredAt, &reason)
		for i := range labelVals {
			dest = append(dest, &labelVals[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan recovery record: %w", err)
		}

		rec := model.RecoveryRecord{ID: id, Reason: reason, Fields: make(map[string]any, len(labels))}
		if occurredAt != nil {
			formatted := occurredAt.UTC().Format(time.RFC3339Nano)
			rec.OccurredAt = &formatted
		}
		for i, label := range labels {
			if labelVals[i] == nil {
				rec.Fields[label] = nil
				continue
			}
			rec.Fields[label] = *labelVals[i]
			if rec.Label == nil && strings.TrimSpace(*labelVals[i]) != "" {
				rec.Label = labelVals[i]
			}
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}
