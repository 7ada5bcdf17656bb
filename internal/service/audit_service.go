package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"school-admin-api/internal/model"
	"school-admin-api/internal/repository"
	"school-admin-api/pkg/apierror"
)

// AuditService exposes the append-only audit log for the admin UI.
type AuditService struct {
	repo *repository.AuditRepository
}

func NewAuditService(repo *repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) Log(ctx context.Context, action string, actor model.AuditActor, status string, entity string, before any, after any, errText string) error {
	return s.repo.Log(ctx, model.AuditEntry{
		Action:     action,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Actor:      actor,
		Status:     status,
		Entity:     entity,
		Before:     before,
		After:      after,
		Error:      errText,
	})
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, *model.Meta, error) {
	if err := validateAuditTime(query.From); err != nil {
		return nil, nil, apierror.New("BAD_REQUEST", "invalid 'from' datetime format", query.From, http.StatusBadRequest)
	}
	if err := validateAuditTime(query.To); err != nil {
		return nil, nil, apierror.New("BAD_REQUEST", "invalid 'to' datetime format", query.To, http.StatusBadRequest)
	}

	query.Action = strings.TrimSpace(query.Action)
	query.Status = strings.TrimSpace(query.Status)
	query.ActorID = strings.TrimSpace(query.ActorID)
	query.Entity = strings.TrimSpace(query.Entity)

	return s.repo.Query(ctx, query)
}

func validateAuditTime(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if _, err := time.Parse(time.RFC3339, trimmed); err != nil {
		return err
	}
	return nil
}
