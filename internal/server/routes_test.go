package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/cache"
	"github.com/marcogenualdo/upload-gate/internal/config"
	"github.com/marcogenualdo/upload-gate/internal/upload"
)

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) AuthCodeURL(state, redirectURL string) string {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state)
}

func (stubProvider) Exchange(context.Context, string, string) (string, error) {
	return "tok_xyz", nil
}

func (stubProvider) Resolve(_ context.Context, token string) (*auth.Identity, error) {
	if token != "tok_xyz" {
		return nil, nil
	}
	return &auth.Identity{Login: "alice", IsMember: true}, nil
}

func testServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := config.Config{
		Server: config.ServerConfig{
			BaseURL:    "https://gate.example.com",
			Secret:     "routes-test-secret-0123456789",
			CookieName: "gate",
			SessionTTL: time.Hour,
			StateTTL:   10 * time.Minute,
		},
		GitHub: config.GitHubConfig{Org: "openaddresses"},
		Storage: config.StorageConfig{
			Bucket:  "data.example.com",
			KeyRoot: "cache/uploads",
			Window:  5 * time.Minute,
			MinSize: 16,
			MaxSize: 600 * 1024 * 1024,
		},
		Cache: config.CacheConfig{Type: "memory"},
	}

	mc := cache.NewMemoryCache()
	t.Cleanup(func() { mc.Close() })

	issuer := upload.NewIssuer(cfg.Storage, credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""))
	srv, err := New(cfg, mc, stubProvider{}, issuer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	h, err := srv.Handler()
	require.NoError(t, err)
	return h
}

var csrfPattern = `name="csrf_token" value="`

func csrfToken(t *testing.T, body string) string {
	t.Helper()
	i := strings.Index(body, csrfPattern)
	require.NotEqual(t, -1, i, "page carries no csrf token")
	rest := body[i+len(csrfPattern):]
	return rest[:strings.Index(rest, `"`)]
}

func TestRoutes_Health(t *testing.T) {
	h := testServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "stub", resp["provider"])
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRoutes_LoginRequiresCSRF(t *testing.T) {
	h := testServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoutes_FullLoginAndUpload(t *testing.T) {
	h := testServer(t)

	page := httptest.NewRecorder()
	h.ServeHTTP(page, httptest.NewRequest(http.MethodGet, "/auth", nil))
	require.Equal(t, http.StatusOK, page.Code)
	token := csrfToken(t, page.Body.String())

	form := url.Values{"csrf_token": {token}}
	login := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	login.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	login.Header.Set("Referer", "https://gate.example.com/upload-cache")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, login)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	authorize, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := authorize.Query().Get("state")
	loginCookies := rec.Result().Cookies()
	require.NotEmpty(t, loginCookies)

	// Without the cookie set at login the state is refused.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123&state="+url.QueryEscape(state), nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	callback := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123&state="+url.QueryEscape(state), nil)
	for _, c := range loginCookies {
		callback.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, callback)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://gate.example.com/upload-cache", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	uploadReq := httptest.NewRequest(http.MethodGet, "/upload-cache", nil)
	for _, c := range cookies {
		uploadReq.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadReq)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, `name="policy"`)
	assert.Contains(t, body, "cache/uploads/alice/")

	// The login token was single use.
	replay := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	replay.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, replay)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
