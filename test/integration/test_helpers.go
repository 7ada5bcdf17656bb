//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"school-admin-api/internal/config"
	"school-admin-api/internal/database"
	"school-admin-api/internal/event"
	"school-admin-api/internal/handler"
	"school-admin-api/internal/middleware"
	"school-admin-api/internal/repository"
	"school-admin-api/internal/router"
	"school-admin-api/internal/schema"
	"school-admin-api/internal/service"
)

// newTestServer brings up the full HTTP stack against the database named by
// TEST_DATABASE_URL and returns the server, an admin access token and the
// underlying pool for seeding. Tests are skipped when the variable is unset.
func newTestServer(t *testing.T) (*httptest.Server, string, *pgxpool.Pool) {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL, 5, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	truncateAll(t, db.Pool)

	pool := db.Pool
	columns := schema.NewCache(schema.NewIntrospector(pool), time.Second)

	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	recoveryRepo := repository.NewRecoveryRepository(pool, columns, auditRepo)

	authService := service.NewAuthService(userRepo, tokenRepo, "test-secret", 15*time.Minute, 24*time.Hour)
	require.NoError(t, authService.EnsureAdmin(ctx, "admin", "admin123"))
	authMiddleware := middleware.NewAuthMiddleware(authService)

	recoveryService := service.NewRecoveryService(recoveryRepo, auditRepo, event.NewBus())
	auditService := service.NewAuditService(auditRepo)

	cfg := &config.Config{
		ServerPort:       "8080",
		RequestTimeout:   30 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	server := httptest.NewServer(router.New(cfg, authMiddleware, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Recovery: handler.NewRecoveryHandler(recoveryService),
		Audit:    handler.NewAuditHandler(auditService),
	}, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	return server, login(t, server, "admin", "admin123"), pool
}

func truncateAll(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE users, refresh_tokens, audit_entries, archived_users,
			students, enrollments, activities, guardians,
			class_sections, subjects, quizzes, announcements, school_years,
			attendance_records, grade_entries, payment_records`)
	require.NoError(t, err)
}

func login(t *testing.T, server *httptest.Server, username string, password string) string {
	t.Helper()

	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.True(t, parsed.Success)
	require.NotEmpty(t, parsed.Data.AccessToken)

	return parsed.Data.AccessToken
}

func doAuthJSON(t *testing.T, method string, url string, payload any, accessToken string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if payload == nil {
		reader = bytes.NewReader([]byte{})
	} else {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}
