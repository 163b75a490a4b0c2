package handlers

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/middleware"
	"github.com/marcogenualdo/upload-gate/internal/upload"
)

//go:embed templates/*
var templatesFS embed.FS

// Error keys shown on the login page.
const (
	ErrorBadLogin    = "bad_login"
	ErrorNotMember   = "not_member"
	ErrorLoginFailed = "login_failed"
)

type PageData struct {
	Title        string
	User         *auth.Identity
	UserRequired bool
	Error        string
	Org          string
	CSRFToken    string

	Upload   *upload.Form
	Uploaded *UploadResult
}

// UploadResult is what the bucket appends to the success redirect.
type UploadResult struct {
	Bucket string
	Key    string
	ETag   string
}

type Renderer struct {
	org       string
	csrf      *middleware.CSRFMiddleware
	logger    *slog.Logger
	templates map[string]*template.Template
}

func NewRenderer(org string, csrf *middleware.CSRFMiddleware, logger *slog.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template)
	for _, name := range []string{"auth.html", "upload.html"} {
		tmpl, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, err
		}
		templates[name] = tmpl
	}

	return &Renderer{
		org:       org,
		csrf:      csrf,
		logger:    logger,
		templates: templates,
	}, nil
}

func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	tmpl, ok := rd.templates[name]
	if !ok {
		rd.logger.Error("unknown template", "name", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	token, err := rd.csrf.GenerateCSRFToken(r.Context())
	if err != nil {
		rd.logger.Error("failed to generate CSRF token", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	data.CSRFToken = token
	data.Org = rd.org

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		rd.logger.Error("failed to render template", "name", name, "error", err)
	}
}

// Denied renders the login page for a request the gate stopped.
func (rd *Renderer) Denied(w http.ResponseWriter, r *http.Request, outcome auth.Outcome) {
	errKey := ErrorBadLogin
	if outcome == auth.OutcomeNotMember {
		errKey = ErrorNotMember
	}

	rd.Render(w, r, http.StatusForbidden, "auth.html", PageData{
		Title:        "Log in",
		UserRequired: true,
		Error:        errKey,
	})
}
