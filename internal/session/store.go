package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/cache"
	"github.com/marcogenualdo/upload-gate/internal/config"
	"github.com/marcogenualdo/upload-gate/pkg/security"
)

const keyPrefix = "session:"

// Handle is a loaded session plus the id it is stored under. ID is empty
// until the first Save of a non-empty session.
type Handle struct {
	ID string
	auth.Session
}

// Store keeps session contents in the cache and hands the browser a signed
// cookie naming them.
type Store struct {
	cfg    config.ServerConfig
	cache  cache.Cache
	signer *security.Signer
}

func NewStore(cfg config.ServerConfig, c cache.Cache) *Store {
	return &Store{
		cfg:    cfg,
		cache:  c,
		signer: security.NewSigner(cfg.Secret),
	}
}

// Load never fails on a bad or missing cookie; the caller simply gets an
// empty session. Errors are reserved for cache failures.
func (s *Store) Load(ctx context.Context, r *http.Request) (*Handle, error) {
	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return &Handle{}, nil
	}

	var claims jwt.RegisteredClaims
	if err := s.signer.Parse(cookie.Value, &claims); err != nil || claims.ID == "" {
		return &Handle{}, nil
	}

	h := &Handle{ID: claims.ID}

	data, err := s.cache.Get(ctx, keyPrefix+h.ID)
	if errors.Is(err, cache.ErrNotFound) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	if err := json.Unmarshal(data, &h.Session); err != nil {
		return h, nil
	}

	return h, nil
}

// Save writes the whole session back in one step. Empty sessions are removed
// from the cache and their cookie cleared.
func (s *Store) Save(ctx context.Context, w http.ResponseWriter, h *Handle) error {
	if h.IsEmpty() {
		if h.ID == "" {
			return nil
		}
		if err := s.cache.Delete(ctx, keyPrefix+h.ID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		http.SetCookie(w, security.ClearSessionCookie(s.cfg))
		h.ID = ""
		return nil
	}

	if h.ID == "" {
		h.ID = uuid.New().String()
	}

	data, err := json.Marshal(h.Session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.cache.Set(ctx, keyPrefix+h.ID, data, s.cfg.SessionTTL); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	now := time.Now()
	value, err := s.signer.Sign(jwt.RegisteredClaims{
		ID:        h.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL)),
	})
	if err != nil {
		return err
	}

	http.SetCookie(w, security.CreateSessionCookie(s.cfg, value, s.cfg.SessionTTL))
	return nil
}

// Renew discards the session old was loaded from and saves s under a fresh
// id, so an id chosen before login never carries an authenticated session.
func (s *Store) Renew(ctx context.Context, w http.ResponseWriter, old *Handle, sess auth.Session) (*Handle, error) {
	if old != nil && old.ID != "" {
		if err := s.cache.Delete(ctx, keyPrefix+old.ID); err != nil {
			return nil, fmt.Errorf("failed to delete session: %w", err)
		}
	}

	h := &Handle{Session: sess}
	if err := s.Save(ctx, w, h); err != nil {
		return nil, err
	}
	return h, nil
}
