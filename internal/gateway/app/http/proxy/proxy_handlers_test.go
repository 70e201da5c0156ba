package proxy_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnet/internal/gateway/adapters/rest"
	"alumnet/internal/gateway/adapters/store"
	"alumnet/internal/gateway/app/http/proxy"
	"alumnet/internal/gateway/config"
	"alumnet/internal/gateway/domain"
)

type fakeRefresher struct {
	token string
}

func (r *fakeRefresher) EnsureFreshToken(context.Context) (string, error) {
	return r.token, nil
}

func newProxyApp(t *testing.T, backendURL string) *fiber.App {
	t.Helper()

	tokenStore := store.NewMemoryStore()
	require.NoError(t, tokenStore.Save(context.Background(), &domain.Session{
		AccessToken: "access-1",
		User:        domain.UserSnapshot{ID: 1, Email: "a@b.c"},
	}))

	client := rest.NewClient(&config.APIConfig{BaseURL: backendURL, TenantID: "tenant-42", Timeout: 5 * time.Second})
	authed := rest.NewAuthedClient(client, tokenStore, &fakeRefresher{token: "access-1"})

	app := fiber.New()
	app.All("/api/*", proxy.NewHandler(authed).Forward)
	return app
}

func TestProxyForwardsRequestAndResponse(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)

		w.Header().Set("X-Backend", "alumnet")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	t.Cleanup(backend.Close)

	app := newProxyApp(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "alumnet", resp.Header.Get("X-Backend"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"id":42}`, string(raw))

	assert.Equal(t, "/api/posts", gotPath)
	assert.Equal(t, "Bearer access-1", gotAuth)
	assert.Equal(t, `{"text":"hi"}`, gotBody)
}

func TestProxyPreservesQueryString(t *testing.T) {
	var gotQuery string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(backend.Close)

	app := newProxyApp(t, backend.URL)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/feed?page=2&limit=10", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "page=2&limit=10", gotQuery)
}

func TestProxyDomainErrorsPassThrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"post not found"}`))
	}))
	t.Cleanup(backend.Close)

	app := newProxyApp(t, backend.URL)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/999", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProxyUnavailableBackendIsBadGateway(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := backend.URL
	backend.Close()

	app := newProxyApp(t, url)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/feed", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
