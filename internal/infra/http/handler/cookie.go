package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/northstarhq/api/internal/config"
)

// CookieConfig carries the auth cookie settings handlers share.
type CookieConfig struct {
	Secure                 bool
	Domain                 string
	SameSite               http.SameSite
	Path                   string
	AccessTokenCookieName  string
	RefreshTokenCookieName string
	TenantCookieName       string
}

// NewCookieConfig derives cookie settings from AuthConfig, filling in
// the default cookie names when the config leaves them blank.
func NewCookieConfig(cfg config.AuthConfig) CookieConfig {
	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(cfg.CookieSameSite) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	c := CookieConfig{
		Secure:   cfg.CookieSecure,
		Domain:   cfg.CookieDomain,
		SameSite: sameSite,
		// Root path so the frontend can clear cookies itself.
		Path:                   "/",
		AccessTokenCookieName:  cfg.AccessTokenCookieName,
		RefreshTokenCookieName: cfg.RefreshTokenCookieName,
		TenantCookieName:       cfg.TenantCookieName,
	}
	if c.AccessTokenCookieName == "" {
		c.AccessTokenCookieName = "auth_token"
	}
	if c.RefreshTokenCookieName == "" {
		c.RefreshTokenCookieName = "refresh_token"
	}
	if c.TenantCookieName == "" {
		c.TenantCookieName = "app_tenant"
	}
	return c
}

// SetRefreshTokenCookie stores the refresh token httpOnly, keeping it
// out of reach of page scripts.
func SetRefreshTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.RefreshTokenCookieName,
		Value:    token,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

// ClearRefreshTokenCookie expires the refresh token cookie.
func ClearRefreshTokenCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.RefreshTokenCookieName,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

// GetRefreshTokenFromCookie reads the refresh token cookie, returning
// "" when absent so callers can fall back to the request body.
func GetRefreshTokenFromCookie(r *http.Request, cfg CookieConfig) string {
	cookie, err := r.Cookie(cfg.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// tenantCookiePayload is what the frontend's workspace provider
// parses out of the cookie.
type tenantCookiePayload struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Role string `json:"role"`
}

// SetTenantCookie records the active workspace as URL-encoded JSON.
// Deliberately not httpOnly: the frontend reads it to restore the
// workspace selection without a round trip.
func SetTenantCookie(w http.ResponseWriter, tenantID, tenantSlug, role string, cfg CookieConfig) {
	raw, err := json.Marshal(tenantCookiePayload{ID: tenantID, Slug: tenantSlug, Role: role})
	if err != nil {
		raw = []byte(tenantID)
	}

	const maxAge = 30 * 24 * time.Hour
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.TenantCookieName,
		Value:    url.QueryEscape(string(raw)),
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  time.Now().Add(maxAge),
		MaxAge:   int(maxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: false,
		SameSite: cfg.SameSite,
	})
}

// ClearTenantCookie expires the workspace cookie.
func ClearTenantCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.TenantCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   cfg.Secure,
		HttpOnly: false,
		SameSite: cfg.SameSite,
	})
}
