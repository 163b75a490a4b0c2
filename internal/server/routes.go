package server

import (
	"net/http"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/handlers"
	"github.com/marcogenualdo/upload-gate/internal/middleware"
	"github.com/marcogenualdo/upload-gate/internal/session"
)

// Handler assembles the routing tree with its middleware chain.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	csrfMiddleware := middleware.NewCSRFMiddleware(s.cache, s.logger)
	sessions := session.NewStore(s.cfg.Server, s.cache)
	states := auth.NewStateCodec(s.cfg.Server.Secret, s.cfg.Server.StateTTL)

	render, err := handlers.NewRenderer(s.cfg.GitHub.Org, csrfMiddleware, s.logger)
	if err != nil {
		return nil, err
	}

	gate := middleware.NewGate(sessions, s.provider, render.Denied, s.logger)

	authHandler := handlers.NewAuthHandler(render)
	loginHandler := handlers.NewLoginHandler(s.cfg, s.provider, states, s.logger)
	callbackHandler := handlers.NewCallbackHandler(s.cfg, s.provider, states, sessions, render, s.logger)
	logoutHandler := handlers.NewLogoutHandler(sessions, s.logger)
	uploadHandler := handlers.NewUploadHandler(s.cfg, s.issuer, render, s.logger)
	healthHandler := handlers.NewHealthHandler(s.cfg, s.cache, s.provider)

	mux.Handle("/auth", gate.Wrap(authHandler))
	mux.Handle("/auth/login", csrfMiddleware.ValidateCSRF(loginHandler))
	mux.Handle("/auth/callback", callbackHandler)
	mux.Handle("/auth/logout", csrfMiddleware.ValidateCSRF(logoutHandler))
	mux.Handle("/upload-cache", gate.Wrap(uploadHandler))
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/auth", http.StatusFound)
	})

	handler := middleware.Recovery(s.logger)(
		middleware.Logging(s.logger)(
			addSecurityHeaders(mux),
		),
	)

	return handler, nil
}

func addSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		// The login handler reads the Referer to find its way back, so keep
		// same-origin paths in it.
		w.Header().Set("Referrer-Policy", "same-origin")

		next.ServeHTTP(w, r)
	})
}
