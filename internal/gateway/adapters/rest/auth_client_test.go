package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnet/internal/gateway/config"
	"alumnet/internal/gateway/ports/api"
	"alumnet/internal/gateway/session"
)

func newTestAuthClient(t *testing.T, handler http.Handler) (*AuthClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(&config.APIConfig{
		BaseURL:  srv.URL,
		TenantID: "tenant-42",
		Timeout:  5 * time.Second,
	})
	return NewAuthClient(client), srv
}

func TestAuthClientLogin(t *testing.T) {
	var gotTenant string
	var gotBody map[string]any

	authClient, _ := newTestAuthClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		gotTenant = r.Header.Get(HeaderTenantID)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":      true,
			"accessToken":  "access-1",
			"refreshToken": "refresh-1",
			"user":         map[string]any{"id": 1, "email": "a@b.c"},
		})
	}))

	result, err := authClient.Login(context.Background(), api.Credentials{Email: "a@b.c", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "access-1", result.AccessToken)
	assert.Equal(t, "refresh-1", result.RefreshToken)
	assert.Equal(t, "a@b.c", result.User.Email)

	assert.Equal(t, "tenant-42", gotTenant)
	assert.Equal(t, "tenant-42", gotBody["tenant_id"])
}

func TestAuthClientLoginRejectedWithoutToken(t *testing.T) {
	authClient, _ := newTestAuthClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "bad credentials"})
	}))

	_, err := authClient.Login(context.Background(), api.Credentials{Email: "a@b.c", Password: "wrong"})
	require.Error(t, err)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestAuthClientRefreshBothSpellings(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "camelCase", body: map[string]any{"accessToken": "new-access"}},
		{name: "snake_case", body: map[string]any{"access_token": "new-access"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authClient, _ := newTestAuthClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(tt.body)
			}))

			result, err := authClient.Refresh(context.Background(), "refresh-1")
			require.NoError(t, err)
			assert.Equal(t, "new-access", result.AccessToken)
		})
	}
}

func TestAuthClientRefreshOmitsBodyForCookieFlow(t *testing.T) {
	var gotLength int64
	authClient, _ := newTestAuthClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLength = r.ContentLength
		_ = json.NewEncoder(w).Encode(map[string]any{"accessToken": "new-access"})
	}))

	_, err := authClient.Refresh(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, gotLength)
}

func TestAuthClientRefreshTerminalErrorCode(t *testing.T) {
	authClient, _ := newTestAuthClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":    false,
			"error_code": "INVALID_REFRESH_TOKEN",
			"message":    "refresh token is invalid",
		})
	}))

	_, err := authClient.Refresh(context.Background(), "stale-refresh")
	require.Error(t, err)

	class := session.Classify(err)
	assert.Equal(t, session.KindAuthTerminal, class.Kind)
	assert.False(t, class.Recoverable)
}

func TestAuthClientRefreshServerErrorIsRecoverable(t *testing.T) {
	authClient, _ := newTestAuthClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := authClient.Refresh(context.Background(), "refresh-1")
	require.Error(t, err)
	assert.True(t, session.Classify(err).Recoverable)
}

func TestAuthClientVerify(t *testing.T) {
	var gotAuth string
	authClient, _ := newTestAuthClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(HeaderAuthorization)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"valid": true,
			"user":  map[string]any{"id": 7, "email": "a@b.c"},
		})
	}))

	user, err := authClient.Verify(context.Background(), "access-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "Bearer access-1", gotAuth)
}

func TestAuthClientVerifyInvalidIsTerminal(t *testing.T) {
	authClient, _ := newTestAuthClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"valid": false, "message": "token expired"})
	}))

	_, err := authClient.Verify(context.Background(), "stale-access")
	require.Error(t, err)
	assert.Equal(t, session.KindAuthTerminal, session.Classify(err).Kind)
}

func TestAuthClientTimeoutClassifiedAsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(&config.APIConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	authClient := NewAuthClient(client)

	_, err := authClient.Verify(context.Background(), "access-1")
	require.Error(t, err)

	class := session.Classify(err)
	assert.Equal(t, session.KindTimeout, class.Kind)
	assert.True(t, class.Recoverable)
}

func TestAuthClientConnectionRefusedIsNetwork(t *testing.T) {
	// Закрытый заранее сервер гарантирует отказ в соединении.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(&config.APIConfig{BaseURL: url, Timeout: time.Second})
	authClient := NewAuthClient(client)

	_, err := authClient.Me(context.Background(), "access-1")
	require.Error(t, err)
	assert.Equal(t, session.KindNetwork, session.Classify(err).Kind)
}
