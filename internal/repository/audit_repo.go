package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"school-admin-api/internal/model"
)

// execer is satisfied by both *pgxpool.Pool and pgx.Tx, so audit writes can
// ride inside a restore transaction or stand alone.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditRepository persists the append-only audit log.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Log writes an entry in its own statement.
func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	return r.insert(ctx, r.pool, entry)
}

// LogTx writes an entry inside the caller's transaction.
func (r *AuditRepository) LogTx(ctx context.Context, tx execer, entry model.AuditEntry) error {
	return r.insert(ctx, tx, entry)
}

func (r *AuditRepository) insert(ctx context.Context, db execer, entry model.AuditEntry) error {
	before, err := marshalPayload(entry.Before)
	if err != nil {
		return fmt.Errorf("encode audit before payload: %w", err)
	}
	after, err := marshalPayload(entry.After)
	if err != nil {
		return fmt.Errorf("encode audit after payload: %w", err)
	}

	occurredAt := time.Now().UTC()
	if entry.OccurredAt != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, entry.OccurredAt); err == nil {
			occurredAt = parsed
		}
	}

	_, err = db.Exec(ctx, `
		INSERT INTO audit_entries
			(action, occurred_at, actor_user_id, actor_username, actor_role, actor_ip,
			 status, entity, before_data, after_data, error_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.Action, occurredAt,
		entry.Actor.UserID, entry.Actor.Username, entry.Actor.Role, entry.Actor.IP,
		entry.Status, entry.Entity, before, after, entry.Error)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns a filtered, newest-first page of the log.
func (r *AuditRepository) Query(ctx context.Context, q model.AuditQuery) ([]model.AuditEntry, *model.Meta, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	where := "WHERE 1=1"
	args := []any{}
	addFilter := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(" AND %s $%d", clause, len(args))
	}

	if q.Action != "" {
		addFilter("action =", q.Action)
	}
	if q.ActorID != "" {
		addFilter("actor_user_id =", q.ActorID)
	}
	if q.Status != "" {
		addFilter("status =", q.Status)
	}
	if q.Entity != "" {
		addFilter("entity =", q.Entity)
	}
	if q.From != "" {
		if from, err := time.Parse(time.RFC3339, q.From); err == nil {
			addFilter("occurred_at >=", from)
		}
	}
	if q.To != "" {
		if to, err := time.Parse(time.RFC3339, q.To); err == nil {
			addFilter("occurred_at <=", to)
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_entries "+where, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("count audit entries: %w", err)
	}

	selectSQL := fmt.Sprintf(`
		SELECT action, occurred_at, actor_user_id, actor_username, actor_role, actor_ip,
		       status, entity, before_data, after_data, error_text
		FROM audit_entries %s
		ORDER BY occurred_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var e model.AuditEntry
		var occurredAt time.Time
		var before, after []byte
		if err := rows.Scan(&e.Action, &occurredAt,
			&e.Actor.UserID, &e.Actor.Username, &e.Actor.Role, &e.Actor.IP,
			&e.Status, &e.Entity, &before, &after, &e.Error); err != nil {
			return nil, nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.OccurredAt = occurredAt.UTC().Format(time.RFC3339Nano)
		e.Before = unmarshalPayload(before)
		e.After = unmarshalPayload(after)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	totalPages := (total + limit - 1) / limit
	meta := &model.Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
	return entries, meta, nil
}

func marshalPayload(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalPayload(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
