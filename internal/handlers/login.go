package handlers

import (
	"log/slog"
	"net/http"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/config"
	"github.com/marcogenualdo/upload-gate/pkg/security"
)

// LoginHandler starts the authorization-code flow. The page the user came
// from travels through the provider inside the signed state, next to a nonce
// that is also left in a cookie for the callback to match.
type LoginHandler struct {
	cfg      config.Config
	provider auth.Provider
	states   *auth.StateCodec
	logger   *slog.Logger
}

func NewLoginHandler(cfg config.Config, provider auth.Provider, states *auth.StateCodec, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{
		cfg:      cfg,
		provider: provider,
		states:   states,
		logger:   logger,
	}
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	nonce, err := security.RandomToken(security.TokenBytes)
	if err != nil {
		h.logger.Error("failed to generate login nonce", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	state, err := h.states.Encode(auth.State{RedirectURL: r.Referer(), Nonce: nonce})
	if err != nil {
		h.logger.Error("failed to encode login state", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, security.CreateLoginCookie(h.cfg.Server, callbackPath, nonce, h.cfg.Server.StateTTL))

	authURL := h.provider.AuthCodeURL(state, callbackURL(h.cfg.Server))

	h.logger.Debug("redirecting to provider", "provider", h.provider.Name())
	http.Redirect(w, r, authURL, http.StatusSeeOther)
}
