package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/cache"
	"github.com/marcogenualdo/upload-gate/internal/config"
)

func testStore(t *testing.T) (*Store, cache.Cache) {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { mc.Close() })

	cfg := config.ServerConfig{
		Secret:         "session-signing-secret-0123456789",
		CookieName:     "gate",
		CookieSameSite: "lax",
		SessionTTL:     time.Hour,
	}
	return NewStore(cfg, mc), mc
}

func requestWith(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/auth", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestStore_RoundTrip(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	h, err := store.Load(ctx, requestWith(nil))
	require.NoError(t, err)
	assert.Empty(t, h.ID)

	h.AccessToken = "tok_xyz"
	h.Identity = &auth.Identity{Login: "alice", AvatarURL: "https://a"}

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(ctx, rec, h))
	require.NotEmpty(t, h.ID)

	loaded, err := store.Load(ctx, requestWith(rec.Result().Cookies()))
	require.NoError(t, err)
	assert.Equal(t, h.ID, loaded.ID)
	assert.Equal(t, "tok_xyz", loaded.AccessToken)
	require.NotNil(t, loaded.Identity)
	assert.Equal(t, "alice", loaded.Identity.Login)
}

func TestStore_EmptyAnonymousSessionNotPersisted(t *testing.T) {
	store, _ := testStore(t)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(context.Background(), rec, &Handle{}))
	assert.Empty(t, rec.Result().Cookies())
}

func TestStore_ClearedSessionIsDeleted(t *testing.T) {
	store, mc := testStore(t)
	ctx := context.Background()

	h := &Handle{Session: auth.Session{AccessToken: "tok"}}
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(ctx, rec, h))
	id := h.ID
	cookies := rec.Result().Cookies()

	h.ClearToken()
	rec = httptest.NewRecorder()
	require.NoError(t, store.Save(ctx, rec, h))

	_, err := mc.Get(ctx, keyPrefix+id)
	assert.ErrorIs(t, err, cache.ErrNotFound)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	loaded, err := store.Load(ctx, requestWith(cookies))
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}

func TestStore_ForgedCookieIgnored(t *testing.T) {
	store, mc := testStore(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, keyPrefix+"victim", []byte(`{"access_token":"stolen"}`), time.Hour))

	other := NewStore(config.ServerConfig{
		Secret:     "attacker-secret-abcdefghijklmnop",
		CookieName: "gate",
		SessionTTL: time.Hour,
	}, mc)
	h := &Handle{ID: "victim", Session: auth.Session{AccessToken: "stolen"}}
	rec := httptest.NewRecorder()
	require.NoError(t, other.Save(ctx, rec, h))

	loaded, err := store.Load(ctx, requestWith(rec.Result().Cookies()))
	require.NoError(t, err)
	assert.Empty(t, loaded.ID)
	assert.True(t, loaded.IsEmpty())
}

func TestStore_ExpiredCacheEntryStartsEmpty(t *testing.T) {
	store, mc := testStore(t)
	ctx := context.Background()

	h := &Handle{Session: auth.Session{AccessToken: "tok"}}
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(ctx, rec, h))
	require.NoError(t, mc.Delete(ctx, keyPrefix+h.ID))

	loaded, err := store.Load(ctx, requestWith(rec.Result().Cookies()))
	require.NoError(t, err)
	assert.Equal(t, h.ID, loaded.ID)
	assert.True(t, loaded.IsEmpty())
}

func TestStore_RenewDropsPreviousID(t *testing.T) {
	store, mc := testStore(t)
	ctx := context.Background()

	old := &Handle{Session: auth.Session{AccessToken: "attacker"}}
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(ctx, rec, old))
	planted := rec.Result().Cookies()

	loaded, err := store.Load(ctx, requestWith(planted))
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	renewed, err := store.Renew(ctx, rec, loaded, auth.Session{AccessToken: "tok_xyz"})
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, renewed.ID)

	_, err = mc.Get(ctx, keyPrefix+old.ID)
	assert.ErrorIs(t, err, cache.ErrNotFound)

	again, err := store.Load(ctx, requestWith(planted))
	require.NoError(t, err)
	assert.True(t, again.IsEmpty())

	fresh, err := store.Load(ctx, requestWith(rec.Result().Cookies()))
	require.NoError(t, err)
	assert.Equal(t, "tok_xyz", fresh.AccessToken)
}

func TestStore_RenewWithoutPreviousSession(t *testing.T) {
	store, _ := testStore(t)

	rec := httptest.NewRecorder()
	h, err := store.Renew(context.Background(), rec, &Handle{}, auth.Session{AccessToken: "tok_xyz"})
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	assert.Len(t, rec.Result().Cookies(), 1)
}
