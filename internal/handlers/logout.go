package handlers

import (
	"log/slog"
	"net/http"

	"github.com/marcogenualdo/upload-gate/internal/session"
)

type LogoutHandler struct {
	sessions *session.Store
	logger   *slog.Logger
}

func NewLogoutHandler(sessions *session.Store, logger *slog.Logger) *LogoutHandler {
	return &LogoutHandler{
		sessions: sessions,
		logger:   logger,
	}
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, err := h.sessions.Load(r.Context(), r)
	if err != nil {
		h.logger.Error("failed to load session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	sess.ClearToken()

	if err := h.sessions.Save(r.Context(), w, sess); err != nil {
		h.logger.Error("failed to clear session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user logged out")

	http.Redirect(w, r, homePath, http.StatusFound)
}
