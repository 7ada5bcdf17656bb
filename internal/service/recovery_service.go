package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"school-admin-api/internal/event"
	"school-admin-api/internal/model"
	"school-admin-api/internal/recovery"
	"school-admin-api/internal/repository"
	"school-admin-api/pkg/apierror"
)

const (
	confirmPhrase   = "RESTORE"
	defaultPageSize = 20
	maxPageSize     = 100
)

// RecoveryService drives the recovery center: entity catalog, paged listings
// of recoverable rows, preview partitioning and the guarded restore itself.
type RecoveryService struct {
	repo  *repository.RecoveryRepository
	audit *repository.AuditRepository
	bus   event.Bus
}

func NewRecoveryService(repo *repository.RecoveryRepository, audit *repository.AuditRepository, bus event.Bus) *RecoveryService {
	return &RecoveryService{repo: repo, audit: audit, bus: bus}
}

// Entities returns the catalog of recoverable entity types.
func (s *RecoveryService) Entities() []model.RecoveryEntityInfo {
	configs := recovery.Entities()
	infos := make([]model.RecoveryEntityInfo, 0, len(configs))
	for _, cfg := range configs {
		table := cfg.Table
		if cfg.ArchiveBacked() {
			table = recovery.ArchiveTable
		}
		infos = append(infos, model.RecoveryEntityInfo{
			Key:           cfg.Key,
			Table:         table,
			Mode:          cfg.ModeName(),
			ArchiveBacked: cfg.ArchiveBacked(),
		})
	}
	return infos
}

// List returns one page of an entity's recoverable records.
func (s *RecoveryService) List(ctx context.Context, entityKey string, search string, page int, pageSize int) (model.RecoveryListData, *model.Meta, error) {
	cfg, ok := recovery.FindEntity(entityKey)
	if !ok {
		return model.RecoveryListData{}, nil, fmt.Errorf("%w: %s", model.ErrUnknownEntity, entityKey)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	total, records, err := s.repo.List(ctx, cfg, strings.TrimSpace(search), pageSize, (page-1)*pageSize)
	if err != nil {
		return model.RecoveryListData{}, nil, err
	}

	meta := &model.Meta{
		Page:       page,
		Limit:      pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	return model.RecoveryListData{Entity: cfg.Key, Records: records}, meta, nil
}

// Preview partitions a candidate id set into recoverable, not-recoverable and
// not-found. The partitions are disjoint and cover every distinct input id.
func (s *RecoveryService) Preview(ctx context.Context, entityKey string, ids []string) (model.PreviewResult, error) {
	cfg, ok := recovery.FindEntity(entityKey)
	if !ok {
		return model.PreviewResult{}, fmt.Errorf("%w: %s", model.ErrUnknownEntity, entityKey)
	}

	candidates := dedupeIDs(ids)
	if len(candidates) == 0 {
		return model.PreviewResult{}, apierror.BadRequest("at least one id is required", "")
	}

	records, err := s.repo.FetchByIDs(ctx, cfg, candidates)
	if err != nil {
		return model.PreviewResult{}, err
	}

	found := make(map[string]model.RecoveryRecord, len(records))
	foundIDs := make([]string, 0, len(records))
	for _, rec := range records {
		found[rec.ID] = rec
		foundIDs = append(foundIDs, rec.ID)
	}

	conflicts, err := s.repo.ConflictIDs(ctx, cfg, foundIDs)
	if err != nil {
		return model.PreviewResult{}, err
	}

	result := model.PreviewResult{
		Recoverable:    make([]model.RecoveryRecord, 0, len(candidates)),
		NotRecoverable: make([]string, 0),
		NotFound:       make([]string, 0),
	}
	for _, id := range candidates {
		rec, exists := found[id]
		switch {
		case !exists:
			result.NotFound = append(result.NotFound, id)
		case hasConflict(conflicts, id):
			result.NotRecoverable = append(result.NotRecoverable, id)
		default:
			result.Recoverable = append(result.Recoverable, rec)
		}
	}
	return result, nil
}

// Restore validates the request, re-checks recoverability and flips the
// surviving ids back to live in one transaction. Ids that are no longer in the
// pool are silently dropped, so repeating a restore is a harmless no-op.
func (s *RecoveryService) Restore(ctx context.Context, req model.RestoreRequest, actor model.AuditActor) (model.RestoreResult, error) {
	if err := validateRestoreRequest(req); err != nil {
		return model.RestoreResult{}, err
	}

	preview, err := s.Preview(ctx, req.Entity, req.IDs)
	if err != nil {
		return model.RestoreResult{}, err
	}
	cfg, _ := recovery.FindEntity(req.Entity)

	if len(preview.NotRecoverable) > 0 {
		entry := s.auditEntry(cfg.Key, actor, req, "rejected")
		entry.Error = fmt.Sprintf("%d record(s) conflict with live data", len(preview.NotRecoverable))
		if logErr := s.audit.Log(ctx, entry); logErr != nil {
			return model.RestoreResult{}, logErr
		}
		s.publish(event.TypeRestoreRejected, actor.UserID, map[string]any{
			"entity":          cfg.Key,
			"not_recoverable": preview.NotRecoverable,
		})
		return model.RestoreResult{}, apierror.Conflict(
			fmt.Sprintf("%d record(s) cannot be restored", len(preview.NotRecoverable)),
			strings.Join(preview.NotRecoverable, ", "))
	}

	restorable := make([]string, 0, len(preview.Recoverable))
	for _, rec := range preview.Recoverable {
		restorable = append(restorable, rec.ID)
	}

	if len(restorable) == 0 {
		entry := s.auditEntry(cfg.Key, actor, req, "success")
		entry.After = map[string]any{"restored_count": 0, "not_found": preview.NotFound}
		if logErr := s.audit.Log(ctx, entry); logErr != nil {
			return model.RestoreResult{}, logErr
		}
		return model.RestoreResult{Entity: cfg.Key, RestoredCount: 0}, nil
	}

	entry := s.auditEntry(cfg.Key, actor, req, "success")
	entry.After = map[string]any{"restored_ids": restorable, "not_found": preview.NotFound}

	restored, err := s.repo.Restore(ctx, cfg, restorable, entry)
	if err != nil {
		failure := s.auditEntry(cfg.Key, actor, req, "failure")
		failure.Error = err.Error()
		_ = s.audit.Log(ctx, failure)
		s.publish(event.TypeRestoreFailed, actor.UserID, map[string]any{
			"entity": cfg.Key,
			"error":  err.Error(),
		})
		return model.RestoreResult{}, err
	}

	s.publish(event.TypeRecordRestored, actor.UserID, map[string]any{
		"entity":         cfg.Key,
		"restored_count": restored,
		"ids":            restorable,
	})
	return model.RestoreResult{Entity: cfg.Key, RestoredCount: restored}, nil
}

// validateRestoreRequest runs every request-shape check before any database
// work, so a malformed request is rejected without touching the pool.
func validateRestoreRequest(req model.RestoreRequest) error {
	if _, ok := recovery.FindEntity(req.Entity); !ok {
		return fmt.Errorf("%w: %s", model.ErrUnknownEntity, req.Entity)
	}
	if len(dedupeIDs(req.IDs)) == 0 {
		return apierror.BadRequest("at least one id is required", "")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return apierror.BadRequest("a restore reason is required", "")
	}
	if strings.TrimSpace(req.ApprovalNote) == "" {
		return apierror.BadRequest("an approval note is required", "")
	}
	if !strings.EqualFold(strings.TrimSpace(req.Confirm), confirmPhrase) {
		return fmt.Errorf("%w: type %q to confirm", model.ErrConfirmMismatch, confirmPhrase)
	}
	return nil
}

func (s *RecoveryService) auditEntry(entity string, actor model.AuditActor, req model.RestoreRequest, status string) model.AuditEntry {
	return model.AuditEntry{
		Action:     "recovery.restore",
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Actor:      actor,
		Status:     status,
		Entity:     entity,
		Before: map[string]any{
			"ids":           dedupeIDs(req.IDs),
			"reason":        strings.TrimSpace(req.Reason),
			"approval_note": strings.TrimSpace(req.ApprovalNote),
		},
	}
}

func (s *RecoveryService) publish(t event.Type, actorID string, payload map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   actorID,
	})
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func hasConflict(conflicts map[string]struct{}, id string) bool {
	_, ok := conflicts[id]
	return ok
}
