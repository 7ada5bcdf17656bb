package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"school-admin-api/internal/model"
	"school-admin-api/pkg/apierror"
)

func validRestoreRequest() model.RestoreRequest {
	return model.RestoreRequest{
		Entity:       "student",
		IDs:          []string{"7"},
		Reason:       "deleted by mistake during cleanup",
		ApprovalNote: "approved by the registrar",
		Confirm:      "RESTORE",
	}
}

func TestValidateRestoreRequest(t *testing.T) {
	t.Parallel()

	t.Run("accepts a complete request", func(t *testing.T) {
		require.NoError(t, validateRestoreRequest(validRestoreRequest()))
	})

	t.Run("confirmation phrase is case-insensitive and trimmed", func(t *testing.T) {
		for _, confirm := range []string{"restore", "Restore", "RESTORE", "  restore  "} {
			req := validRestoreRequest()
			req.Confirm = confirm
			require.NoError(t, validateRestoreRequest(req), "confirm=%q", confirm)
		}
	})

	t.Run("near-miss confirmation is rejected", func(t *testing.T) {
		for _, confirm := range []string{"Restoree", "RESTOR", "yes", ""} {
			req := validRestoreRequest()
			req.Confirm = confirm
			err := validateRestoreRequest(req)
			require.ErrorIs(t, err, model.ErrConfirmMismatch, "confirm=%q", confirm)
		}
	})

	t.Run("unknown entity is rejected", func(t *testing.T) {
		req := validRestoreRequest()
		req.Entity = "invoice"
		require.ErrorIs(t, validateRestoreRequest(req), model.ErrUnknownEntity)
	})

	t.Run("blank reason is rejected", func(t *testing.T) {
		req := validRestoreRequest()
		req.Reason = "   "
		var apiErr *apierror.APIError
		require.ErrorAs(t, validateRestoreRequest(req), &apiErr)
		require.Equal(t, "BAD_REQUEST", apiErr.Code)
	})

	t.Run("blank approval note is rejected", func(t *testing.T) {
		req := validRestoreRequest()
		req.ApprovalNote = ""
		var apiErr *apierror.APIError
		require.ErrorAs(t, validateRestoreRequest(req), &apiErr)
		require.Equal(t, "BAD_REQUEST", apiErr.Code)
	})

	t.Run("empty or whitespace-only id set is rejected", func(t *testing.T) {
		req := validRestoreRequest()
		req.IDs = []string{"  ", ""}
		require.Error(t, validateRestoreRequest(req))
	})
}

// A nil repository would panic on first use, so these prove validation runs
// before any database work.
func TestRestoreValidatesBeforeTouchingStorage(t *testing.T) {
	t.Parallel()

	svc := NewRecoveryService(nil, nil, nil)

	req := validRestoreRequest()
	req.Confirm = "Restoree"
	_, err := svc.Restore(context.Background(), req, model.AuditActor{UserID: "u1"})
	require.ErrorIs(t, err, model.ErrConfirmMismatch)

	req = validRestoreRequest()
	req.Reason = ""
	_, err = svc.Restore(context.Background(), req, model.AuditActor{UserID: "u1"})
	require.Error(t, err)

	req = validRestoreRequest()
	req.Entity = "nope"
	_, err = svc.Restore(context.Background(), req, model.AuditActor{UserID: "u1"})
	require.ErrorIs(t, err, model.ErrUnknownEntity)
}

func TestListRejectsUnknownEntity(t *testing.T) {
	t.Parallel()

	svc := NewRecoveryService(nil, nil, nil)
	_, _, err := svc.List(context.Background(), "not-a-thing", "", 1, 20)
	require.ErrorIs(t, err, model.ErrUnknownEntity)
}

func TestEntitiesCatalog(t *testing.T) {
	t.Parallel()

	svc := NewRecoveryService(nil, nil, nil)
	infos := svc.Entities()
	require.Len(t, infos, 15)

	byKey := make(map[string]model.RecoveryEntityInfo, len(infos))
	for _, info := range infos {
		byKey[info.Key] = info
	}

	require.Equal(t, "deleted", byKey["student"].Mode)
	require.Equal(t, "archived", byKey["quiz"].Mode)
	require.Equal(t, "voided", byKey["payment_record"].Mode)

	require.True(t, byKey["principal"].ArchiveBacked)
	require.Equal(t, "archived_users", byKey["principal"].Table)
	require.False(t, byKey["student"].ArchiveBacked)
}

func TestDedupeIDs(t *testing.T) {
	t.Parallel()

	got := dedupeIDs([]string{" 7", "9", "7 ", "", "  ", "9", "11"})
	require.Equal(t, []string{"7", "9", "11"}, got)
}
