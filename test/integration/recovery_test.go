//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

type listResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Entity  string `json:"entity"`
		Records []struct {
			ID     string         `json:"id"`
			Label  *string        `json:"label"`
			Reason *string        `json:"reason"`
			Fields map[string]any `json:"fields"`
		} `json:"records"`
	} `json:"data"`
	Meta *struct {
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	} `json:"meta"`
}

type previewResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Recoverable []struct {
			ID string `json:"id"`
		} `json:"recoverable"`
		NotRecoverable []string `json:"not_recoverable"`
		NotFound       []string `json:"not_found"`
	} `json:"data"`
}

type restoreResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Entity        string `json:"entity"`
		RestoredCount int    `json:"restored_count"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func seedDeletedStudents(t *testing.T, pool *pgxpool.Pool, n int) {
	t.Helper()

	for i := 1; i <= n; i++ {
		_, err := pool.Exec(context.Background(), `
			INSERT INTO students (lrn, first_name, last_name, is_deleted, deleted_at, delete_reason)
			VALUES ($1, $2, $3, TRUE, now() - ($4 || ' minutes')::interval, 'test cleanup')`,
			fmt.Sprintf("1086%05d", i), fmt.Sprintf("Student%d", i), "Reyes", fmt.Sprintf("%d", i))
		require.NoError(t, err)
	}
}

func TestRecoveryListPagination(t *testing.T) {
	server, token, pool := newTestServer(t)
	seedDeletedStudents(t, pool, 45)

	t.Run("first page of twenty", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodGet, server.URL+"/api/v1/recovery/list?entity=student&page=1&page_size=20", nil, token)
		var parsed listResponse
		decodeBody(t, resp, &parsed)

		require.True(t, parsed.Success)
		require.Len(t, parsed.Data.Records, 20)
		require.Equal(t, 45, parsed.Meta.Total)
		require.Equal(t, 3, parsed.Meta.TotalPages)
	})

	t.Run("page past the end is empty but keeps the total", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodGet, server.URL+"/api/v1/recovery/list?entity=student&page=4&page_size=20", nil, token)
		var parsed listResponse
		decodeBody(t, resp, &parsed)

		require.Empty(t, parsed.Data.Records)
		require.Equal(t, 45, parsed.Meta.Total)
	})

	t.Run("live rows are never listed", func(t *testing.T) {
		_, err := pool.Exec(context.Background(), `
			INSERT INTO students (lrn, first_name, last_name) VALUES ('10899999', 'Live', 'Santos')`)
		require.NoError(t, err)

		resp := doAuthJSON(t, http.MethodGet, server.URL+"/api/v1/recovery/list?entity=student&page_size=100", nil, token)
		var parsed listResponse
		decodeBody(t, resp, &parsed)
		require.Equal(t, 45, parsed.Meta.Total)
	})

	t.Run("search narrows by label columns", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodGet, server.URL+"/api/v1/recovery/list?entity=student&query=Student7&page_size=100", nil, token)
		var parsed listResponse
		decodeBody(t, resp, &parsed)
		// Student7 matches only itself; the padded LRNs do not contain the text.
		require.Equal(t, 1, parsed.Meta.Total)
	})

	t.Run("unknown entity is a 400", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodGet, server.URL+"/api/v1/recovery/list?entity=invoice", nil, token)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRecoveryPreviewPartitions(t *testing.T) {
	server, token, pool := newTestServer(t)

	var deletedID, liveID int64
	require.NoError(t, pool.QueryRow(context.Background(), `
		INSERT INTO students (lrn, first_name, last_name, is_deleted, deleted_at)
		VALUES ('10811111', 'Ana', 'Cruz', TRUE, now()) RETURNING id`).Scan(&deletedID))
	require.NoError(t, pool.QueryRow(context.Background(), `
		INSERT INTO students (lrn, first_name, last_name) VALUES ('10822222', 'Ben', 'Cruz') RETURNING id`).Scan(&liveID))

	// A second deleted student whose LRN collides with a live row.
	var conflictID int64
	require.NoError(t, pool.QueryRow(context.Background(), `
		INSERT INTO students (lrn, first_name, last_name, is_deleted, deleted_at)
		VALUES ('10822222', 'Carla', 'Cruz', TRUE, now()) RETURNING id`).Scan(&conflictID))

	resp := doAuthJSON(t, http.MethodPost, server.URL+"/api/v1/recovery/preview", map[string]any{
		"entity": "student",
		"ids": []string{
			fmt.Sprintf("%d", deletedID),
			fmt.Sprintf("%d", conflictID),
			fmt.Sprintf("%d", liveID), // live, not in the pool
			"999999",                  // nonexistent
		},
	}, token)
	var parsed previewResponse
	decodeBody(t, resp, &parsed)

	require.True(t, parsed.Success)
	require.Len(t, parsed.Data.Recoverable, 1)
	require.Equal(t, fmt.Sprintf("%d", deletedID), parsed.Data.Recoverable[0].ID)
	require.Equal(t, []string{fmt.Sprintf("%d", conflictID)}, parsed.Data.NotRecoverable)
	require.ElementsMatch(t, []string{fmt.Sprintf("%d", liveID), "999999"}, parsed.Data.NotFound)
}

func TestRestoreRoundTrip(t *testing.T) {
	server, token, pool := newTestServer(t)

	var id int64
	require.NoError(t, pool.QueryRow(context.Background(), `
		INSERT INTO students (lrn, first_name, last_name, is_deleted, deleted_at, delete_reason)
		VALUES ('10833333', 'Dina', 'Lopez', TRUE, now(), 'mistake') RETURNING id`).Scan(&id))

	payload := map[string]any{
		"entity":        "student",
		"ids":           []string{fmt.Sprintf("%d", id)},
		"reason":        "deleted by mistake",
		"approval_note": "registrar approved",
		"confirm":       "restore",
	}

	t.Run("restore succeeds with a lowercase confirm", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodPost, server.URL+"/api/v1/recovery/restore", payload, token)
		var parsed restoreResponse
		decodeBody(t, resp, &parsed)

		require.True(t, parsed.Success)
		require.Equal(t, 1, parsed.Data.RestoredCount)

		var isDeleted bool
		var deletedAt *string
		require.NoError(t, pool.QueryRow(context.Background(),
			`SELECT is_deleted, CAST(deleted_at AS TEXT) FROM students WHERE id = $1`, id).
			Scan(&isDeleted, &deletedAt))
		require.False(t, isDeleted)
		require.Nil(t, deletedAt)
	})

	t.Run("second restore is an idempotent zero", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodPost, server.URL+"/api/v1/recovery/restore", payload, token)
		var parsed restoreResponse
		decodeBody(t, resp, &parsed)

		require.True(t, parsed.Success)
		require.Equal(t, 0, parsed.Data.RestoredCount)
	})

	t.Run("audit log has the restore entry", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodGet, server.URL+"/api/v1/audit?action=recovery.restore", nil, token)
		var parsed struct {
			Success bool `json:"success"`
			Data    struct {
				Items []struct {
					Action string `json:"action"`
					Status string `json:"status"`
					Entity string `json:"entity"`
				} `json:"items"`
			} `json:"data"`
		}
		decodeBody(t, resp, &parsed)

		require.True(t, parsed.Success)
		require.NotEmpty(t, parsed.Data.Items)
		require.Equal(t, "student", parsed.Data.Items[0].Entity)
	})
}

func TestRestoreRejectsConflictBatch(t *testing.T) {
	server, token, pool := newTestServer(t)

	var deletedID int64
	require.NoError(t, pool.QueryRow(context.Background(), `
		INSERT INTO students (lrn, first_name, last_name, is_deleted, deleted_at)
		VALUES ('10844444', 'Elsa', 'Tan', TRUE, now()) RETURNING id`).Scan(&deletedID))
	_, err := pool.Exec(context.Background(), `
		INSERT INTO students (lrn, first_name, last_name) VALUES ('10844444', 'Elsa2', 'Tan')`)
	require.NoError(t, err)

	resp := doAuthJSON(t, http.MethodPost, server.URL+"/api/v1/recovery/restore", map[string]any{
		"entity":        "student",
		"ids":           []string{fmt.Sprintf("%d", deletedID)},
		"reason":        "bring back",
		"approval_note": "ok",
		"confirm":       "RESTORE",
	}, token)
	var parsed restoreResponse
	decodeBody(t, resp, &parsed)

	require.False(t, parsed.Success)
	require.Equal(t, "CONFLICT", parsed.Error.Code)

	var isDeleted bool
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT is_deleted FROM students WHERE id = $1`, deletedID).Scan(&isDeleted))
	require.True(t, isDeleted, "a rejected batch must not mutate anything")
}

func TestRestoreConfirmGuard(t *testing.T) {
	server, token, pool := newTestServer(t)

	var id int64
	require.NoError(t, pool.QueryRow(context.Background(), `
		INSERT INTO students (lrn, first_name, last_name, is_deleted, deleted_at)
		VALUES ('10855555', 'Faye', 'Uy', TRUE, now()) RETURNING id`).Scan(&id))

	resp := doAuthJSON(t, http.MethodPost, server.URL+"/api/v1/recovery/restore", map[string]any{
		"entity":        "student",
		"ids":           []string{fmt.Sprintf("%d", id)},
		"reason":        "bring back",
		"approval_note": "ok",
		"confirm":       "Restoree",
	}, token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var isDeleted bool
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT is_deleted FROM students WHERE id = $1`, id).Scan(&isDeleted))
	require.True(t, isDeleted)
}

func TestArchivedAccountRecovery(t *testing.T) {
	server, token, pool := newTestServer(t)

	_, err := pool.Exec(context.Background(), `
		INSERT INTO archived_users (archived_id, username, email, full_name, password_hash, role, reason)
		VALUES
			('p-100', 'principal.reyes', 'reyes@school.ph', 'Mila Reyes', 'x', 'Principal', 'retired'),
			('t-200', 'teacher.cruz', 'cruz@school.ph', 'Juan Cruz', 'x', 'teacher', 'resigned'),
			('mt-300', 'head.santos', 'santos@school.ph', 'Lia Santos', 'x', 'Head Teacher', 'transferred')`)
	require.NoError(t, err)

	t.Run("principal listing filters by role despite casing", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodGet, server.URL+"/api/v1/recovery/list?entity=principal", nil, token)
		var parsed listResponse
		decodeBody(t, resp, &parsed)

		require.Equal(t, 1, parsed.Meta.Total)
		require.Equal(t, "p-100", parsed.Data.Records[0].ID)
	})

	t.Run("master teacher accepts the head_teacher alias", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodGet, server.URL+"/api/v1/recovery/list?entity=master_teacher", nil, token)
		var parsed listResponse
		decodeBody(t, resp, &parsed)

		require.Equal(t, 1, parsed.Meta.Total)
		require.Equal(t, "mt-300", parsed.Data.Records[0].ID)
	})

	t.Run("restore moves the row back into users", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodPost, server.URL+"/api/v1/recovery/restore", map[string]any{
			"entity":        "teacher",
			"ids":           []string{"t-200"},
			"reason":        "rehired",
			"approval_note": "principal approved",
			"confirm":       "RESTORE",
		}, token)
		var parsed restoreResponse
		decodeBody(t, resp, &parsed)

		require.True(t, parsed.Success)
		require.Equal(t, 1, parsed.Data.RestoredCount)

		var username, role string
		require.NoError(t, pool.QueryRow(context.Background(),
			`SELECT username, role FROM users WHERE id = 't-200'`).Scan(&username, &role))
		require.Equal(t, "teacher.cruz", username)
		require.Equal(t, "teacher", role, "the archived role must survive the restore")

		var archived int
		require.NoError(t, pool.QueryRow(context.Background(),
			`SELECT COUNT(*) FROM archived_users WHERE archived_id = 't-200'`).Scan(&archived))
		require.Zero(t, archived)
	})

	t.Run("username collision blocks the restore", func(t *testing.T) {
		_, err := pool.Exec(context.Background(), `
			INSERT INTO users (id, username, email, password_hash, role)
			VALUES ('u-live', 'principal.reyes', 'other@school.ph', 'x', 'viewer')`)
		require.NoError(t, err)

		resp := doAuthJSON(t, http.MethodPost, server.URL+"/api/v1/recovery/restore", map[string]any{
			"entity":        "principal",
			"ids":           []string{"p-100"},
			"reason":        "back from leave",
			"approval_note": "ok",
			"confirm":       "RESTORE",
		}, token)
		var parsed restoreResponse
		decodeBody(t, resp, &parsed)

		require.False(t, parsed.Success)
		require.Equal(t, "CONFLICT", parsed.Error.Code)
	})
}

func TestVoidedAndArchivedModes(t *testing.T) {
	server, token, pool := newTestServer(t)

	var paymentID, quizID int64
	require.NoError(t, pool.QueryRow(context.Background(), `
		INSERT INTO payment_records (receipt_number, payer_name, amount, is_voided, voided_at, void_reason)
		VALUES ('OR-551', 'G. Ramos', 1500.00, TRUE, now(), 'duplicate payment') RETURNING id`).Scan(&paymentID))
	require.NoError(t, pool.QueryRow(context.Background(), `
		INSERT INTO quizzes (title, subject, is_archived, archived_at, reason)
		VALUES ('Unit 3 Quiz', 'Math', TRUE, now(), 'term ended') RETURNING id`).Scan(&quizID))

	t.Run("voided payments list with their reason", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodGet, server.URL+"/api/v1/recovery/list?entity=payment_record", nil, token)
		var parsed listResponse
		decodeBody(t, resp, &parsed)

		require.Equal(t, 1, parsed.Meta.Total)
		require.NotNil(t, parsed.Data.Records[0].Reason)
		require.Equal(t, "duplicate payment", *parsed.Data.Records[0].Reason)
	})

	t.Run("archived quiz restores cleanly", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodPost, server.URL+"/api/v1/recovery/restore", map[string]any{
			"entity":        "quiz",
			"ids":           []string{fmt.Sprintf("%d", quizID)},
			"reason":        "new term reuses it",
			"approval_note": "subject head approved",
			"confirm":       "RESTORE",
		}, token)
		var parsed restoreResponse
		decodeBody(t, resp, &parsed)

		require.True(t, parsed.Success)
		require.Equal(t, 1, parsed.Data.RestoredCount)

		var isArchived bool
		require.NoError(t, pool.QueryRow(context.Background(),
			`SELECT is_archived FROM quizzes WHERE id = $1`, quizID).Scan(&isArchived))
		require.False(t, isArchived)
	})
}

func TestRecoveryEndpointsRequireAdmin(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/recovery/entities")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
