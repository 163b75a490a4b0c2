package security

import (
	"net/http"
	"strings"
	"time"

	"github.com/marcogenualdo/upload-gate/internal/config"
)

func CreateSessionCookie(cfg config.ServerConfig, value string, maxAge time.Duration) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(cfg.CookieSameSite) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	return &http.Cookie{
		Name:     cfg.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   int(maxAge.Seconds()),
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: sameSite,
	}
}

func ClearSessionCookie(cfg config.ServerConfig) *http.Cookie {
	cookie := CreateSessionCookie(cfg, "", 0)
	cookie.MaxAge = -1
	return cookie
}

// LoginCookieName names the cookie binding a login attempt to the browser
// that started it.
func LoginCookieName(cfg config.ServerConfig) string {
	return cfg.CookieName + "-login"
}

// CreateLoginCookie is scoped to the callback path and is always Lax so it
// survives the top-level redirect back from the provider.
func CreateLoginCookie(cfg config.ServerConfig, path, nonce string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     LoginCookieName(cfg),
		Value:    nonce,
		Path:     path,
		Domain:   cfg.CookieDomain,
		MaxAge:   int(maxAge.Seconds()),
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func ClearLoginCookie(cfg config.ServerConfig, path string) *http.Cookie {
	cookie := CreateLoginCookie(cfg, path, "", 0)
	cookie.MaxAge = -1
	return cookie
}
