package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/config"
	"github.com/marcogenualdo/upload-gate/internal/middleware"
	"github.com/marcogenualdo/upload-gate/internal/upload"
)

const uploadPath = "/upload-cache"

// CredentialIssuer produces signed browser-upload forms.
type CredentialIssuer interface {
	Issue(ctx context.Context, identity *auth.Identity, redirectURL string) (*upload.Form, error)
}

// UploadHandler renders the direct-to-bucket upload form. The bucket
// redirects back here with bucket, key and etag once an upload succeeds.
type UploadHandler struct {
	cfg    config.Config
	issuer CredentialIssuer
	render *Renderer
	logger *slog.Logger
}

func NewUploadHandler(cfg config.Config, issuer CredentialIssuer, render *Renderer, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		cfg:    cfg,
		issuer: issuer,
		render: render,
		logger: logger,
	}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data := PageData{Title: "Upload", UserRequired: true}

	sess, ok := middleware.GetSession(r.Context())
	if !ok || !sess.Authenticated() {
		h.render.Render(w, r, http.StatusOK, "upload.html", data)
		return
	}
	data.User = sess.Identity

	redirectURL := strings.TrimRight(h.cfg.Server.BaseURL, "/") + uploadPath
	form, err := h.issuer.Issue(r.Context(), sess.Identity, redirectURL)
	if err != nil {
		h.logger.Error("failed to issue upload credentials", "login", sess.Identity.Login, "error", err)
		http.Error(w, "Could not prepare the upload form", http.StatusInternalServerError)
		return
	}
	data.Upload = form

	query := r.URL.Query()
	if key := query.Get("key"); key != "" {
		data.Uploaded = &UploadResult{
			Bucket: query.Get("bucket"),
			Key:    key,
			ETag:   strings.Trim(query.Get("etag"), `"`),
		}
		h.logger.Info("upload completed", "login", sess.Identity.Login, "key", key)
	}

	h.render.Render(w, r, http.StatusOK, "upload.html", data)
}
