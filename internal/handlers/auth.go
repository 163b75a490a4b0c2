package handlers

import (
	"net/http"

	"github.com/marcogenualdo/upload-gate/internal/middleware"
)

// AuthHandler serves the login status page. It sits behind the gate.
type AuthHandler struct {
	render *Renderer
}

func NewAuthHandler(render *Renderer) *AuthHandler {
	return &AuthHandler{render: render}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data := PageData{Title: "Log in", UserRequired: true}
	if sess, ok := middleware.GetSession(r.Context()); ok && sess.Authenticated() {
		data.User = sess.Identity
	}

	h.render.Render(w, r, http.StatusOK, "auth.html", data)
}
