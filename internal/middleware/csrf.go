package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/marcogenualdo/upload-gate/internal/cache"
	"github.com/marcogenualdo/upload-gate/pkg/security"
)

const csrfTTL = 10 * time.Minute

type CSRFMiddleware struct {
	cache  cache.Cache
	logger *slog.Logger
}

func NewCSRFMiddleware(cache cache.Cache, logger *slog.Logger) *CSRFMiddleware {
	return &CSRFMiddleware{
		cache:  cache,
		logger: logger,
	}
}

// ValidateCSRF consumes a one-time token on state-changing requests.
func (cm *CSRFMiddleware) ValidateCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodDelete {
			token := r.FormValue("csrf_token")
			if token == "" {
				token = r.Header.Get("X-CSRF-Token")
			}

			if token == "" {
				cm.logger.Warn("missing CSRF token", "path", r.URL.Path)
				http.Error(w, "Missing CSRF token", http.StatusForbidden)
				return
			}

			_, err := cm.cache.Take(r.Context(), "csrf:"+token)
			if errors.Is(err, cache.ErrNotFound) {
				cm.logger.Warn("invalid CSRF token", "path", r.URL.Path)
				http.Error(w, "Invalid or expired CSRF token", http.StatusForbidden)
				return
			}
			if err != nil {
				cm.logger.Error("failed to check CSRF token", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (cm *CSRFMiddleware) GenerateCSRFToken(ctx context.Context) (string, error) {
	token, err := security.RandomToken(security.TokenBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	if err := cm.cache.Set(ctx, "csrf:"+token, []byte("1"), csrfTTL); err != nil {
		return "", err
	}

	return token, nil
}
