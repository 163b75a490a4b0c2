package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/session"
)

type contextKey string

const SessionContextKey contextKey = "session"

// DenialRenderer writes the login-required page for a denied request.
type DenialRenderer func(w http.ResponseWriter, r *http.Request, outcome auth.Outcome)

// Gate re-verifies the session's access token and organization membership on
// every request it wraps.
type Gate struct {
	store    *session.Store
	resolver auth.Resolver
	deny     DenialRenderer
	logger   *slog.Logger
}

func NewGate(store *session.Store, resolver auth.Resolver, deny DenialRenderer, logger *slog.Logger) *Gate {
	return &Gate{
		store:    store,
		resolver: resolver,
		deny:     deny,
		logger:   logger,
	}
}

// Wrap only calls next when the request is anonymous or belongs to a verified
// member. The session is written back exactly once, before any response body.
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		h, err := g.store.Load(ctx, r)
		if err != nil {
			g.logger.Error("failed to load session", "error", err, "path", r.URL.Path)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		verified, outcome, err := auth.Verify(ctx, g.resolver, h.Session)
		if err != nil {
			g.logger.Warn("identity lookup failed", "error", err)
		}
		h.Session = verified

		if err := g.store.Save(ctx, w, h); err != nil {
			g.logger.Error("failed to save session", "error", err, "path", r.URL.Path)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if outcome.Denied() {
			g.logger.Info("access denied", "reason", outcome.String(), "path", r.URL.Path)
			g.deny(w, r, outcome)
			return
		}

		if outcome == auth.OutcomeAuthenticated {
			g.logger.Debug("member verified", "login", h.Identity.Login)
		}

		ctx = context.WithValue(ctx, SessionContextKey, h)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetSession(ctx context.Context) (*session.Handle, bool) {
	h, ok := ctx.Value(SessionContextKey).(*session.Handle)
	return h, ok
}
