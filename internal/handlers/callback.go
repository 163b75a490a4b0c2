package handlers

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/config"
	"github.com/marcogenualdo/upload-gate/internal/session"
	"github.com/marcogenualdo/upload-gate/pkg/security"
)

const (
	homePath     = "/auth"
	callbackPath = "/auth/callback"
)

type CallbackHandler struct {
	cfg      config.Config
	provider auth.Provider
	states   *auth.StateCodec
	sessions *session.Store
	render   *Renderer
	logger   *slog.Logger
}

func NewCallbackHandler(cfg config.Config, provider auth.Provider, states *auth.StateCodec, sessions *session.Store, render *Renderer, logger *slog.Logger) *CallbackHandler {
	return &CallbackHandler{
		cfg:      cfg,
		provider: provider,
		states:   states,
		sessions: sessions,
		render:   render,
		logger:   logger,
	}
}

// ServeHTTP finishes the flow. A state that fails verification aborts the
// request before the code is spent or the session touched. A successful
// login always starts a new session id.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	code, rawState := query.Get("code"), query.Get("state")
	if code == "" || rawState == "" {
		http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
		return
	}

	state, err := h.states.Decode(rawState)
	if err != nil {
		h.logger.Warn("rejected login state", "error", err)
		http.Error(w, "Invalid login state", http.StatusBadRequest)
		return
	}

	if !h.startedHere(r, state) {
		h.logger.Warn("login state not issued to this browser")
		http.Error(w, "Invalid login state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, security.ClearLoginCookie(h.cfg.Server, callbackPath))

	token, err := h.provider.Exchange(r.Context(), code, callbackURL(h.cfg.Server))
	if err != nil {
		status := http.StatusBadGateway
		var pe *auth.ProviderError
		if errors.As(err, &pe) {
			status = http.StatusUnauthorized
			h.logger.Warn("provider rejected code exchange", "provider", h.provider.Name(), "code", pe.Code)
		} else {
			h.logger.Error("code exchange failed", "provider", h.provider.Name(), "error", err)
		}

		h.render.Render(w, r, status, "auth.html", PageData{
			Title:        "Log in",
			UserRequired: true,
			Error:        ErrorLoginFailed,
		})
		return
	}

	previous, err := h.sessions.Load(r.Context(), r)
	if err != nil {
		h.logger.Error("failed to load session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if _, err := h.sessions.Renew(r.Context(), w, previous, auth.Session{AccessToken: token}); err != nil {
		h.logger.Error("failed to save session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("login completed", "provider", h.provider.Name())
	http.Redirect(w, r, safeRedirect(h.cfg.Server.BaseURL, state.RedirectURL), http.StatusFound)
}

// startedHere matches the state nonce against the cookie the login handler
// set, so a code and state obtained by someone else cannot be replayed into
// this browser.
func (h *CallbackHandler) startedHere(r *http.Request, state auth.State) bool {
	cookie, err := r.Cookie(security.LoginCookieName(h.cfg.Server))
	if err != nil || cookie.Value == "" || state.Nonce == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state.Nonce)) == 1
}

func callbackURL(cfg config.ServerConfig) string {
	return strings.TrimRight(cfg.BaseURL, "/") + callbackPath
}

// safeRedirect keeps post-login redirects on the gateway's own origin.
func safeRedirect(baseURL, target string) string {
	if target == "" {
		return homePath
	}

	u, err := url.Parse(target)
	if err != nil {
		return homePath
	}

	if u.Scheme == "" && u.Host == "" {
		if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\") {
			return target
		}
		return homePath
	}

	base, err := url.Parse(baseURL)
	if err != nil || !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return homePath
	}

	return u.String()
}
