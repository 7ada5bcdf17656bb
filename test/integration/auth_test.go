//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthFlow(t *testing.T) {
	server, token, _ := newTestServer(t)

	t.Run("me returns the admin identity", func(t *testing.T) {
		resp := doAuthJSON(t, http.MethodGet, server.URL+"/api/v1/auth/me", nil, token)
		var parsed struct {
			Success bool `json:"success"`
			Data    struct {
				Username string `json:"username"`
				Role     string `json:"role"`
			} `json:"data"`
		}
		decodeBody(t, resp, &parsed)

		require.True(t, parsed.Success)
		require.Equal(t, "admin", parsed.Data.Username)
		require.Equal(t, "admin", parsed.Data.Role)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		body, err := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
		require.NoError(t, err)

		resp, err := http.Post(server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("refresh rotates the token pair", func(t *testing.T) {
		body, err := json.Marshal(map[string]string{"username": "admin", "password": "admin123"})
		require.NoError(t, err)

		resp, err := http.Post(server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		var loginParsed struct {
			Data struct {
				RefreshToken string `json:"refresh_token"`
			} `json:"data"`
		}
		decodeBody(t, resp, &loginParsed)
		require.NotEmpty(t, loginParsed.Data.RefreshToken)

		refreshBody, err := json.Marshal(map[string]string{"refresh_token": loginParsed.Data.RefreshToken})
		require.NoError(t, err)
		resp, err = http.Post(server.URL+"/api/v1/auth/refresh", "application/json", bytes.NewReader(refreshBody))
		require.NoError(t, err)
		var refreshParsed struct {
			Success bool `json:"success"`
			Data    struct {
				AccessToken  string `json:"access_token"`
				RefreshToken string `json:"refresh_token"`
			} `json:"data"`
		}
		decodeBody(t, resp, &refreshParsed)
		require.True(t, refreshParsed.Success)
		require.NotEqual(t, loginParsed.Data.RefreshToken, refreshParsed.Data.RefreshToken)

		// The old refresh token is single use.
		resp, err = http.Post(server.URL+"/api/v1/auth/refresh", "application/json", bytes.NewReader(refreshBody))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
