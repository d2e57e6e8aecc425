package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spotlog/backend/internal/config"
	"github.com/spotlog/backend/internal/services"
)

// CredentialTransport is the only writer of credential cookies. The access
// cookie is sent everywhere for the access TTL; the refresh cookie is bound to
// the refresh path with SameSite=Strict for the refresh TTL.
type CredentialTransport struct {
	accessName  string
	refreshName string
	refreshPath string
	domain      string
	secure      bool
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewCredentialTransport(cfg *config.Config) *CredentialTransport {
	return &CredentialTransport{
		accessName:  cfg.Auth.Cookies.AccessName,
		refreshName: cfg.Auth.Cookies.RefreshName,
		refreshPath: cfg.Auth.Cookies.RefreshPath,
		domain:      cfg.Auth.Cookies.Domain,
		secure:      cfg.SecureCookies(),
		accessTTL:   cfg.JWT.AccessTTL,
		refreshTTL:  cfg.JWT.RefreshTTL,
	}
}

// AccessCookieName is read by the auth middleware.
func (t *CredentialTransport) AccessCookieName() string { return t.accessName }

// RefreshCredential returns the raw refresh cookie, or "" when absent.
func (t *CredentialTransport) RefreshCredential(c *gin.Context) string {
	raw, err := c.Cookie(t.refreshName)
	if err != nil {
		return ""
	}
	return raw
}

// Set writes both credential cookies for bundle.
func (t *CredentialTransport) Set(c *gin.Context, bundle *services.CredentialBundle) {
	http.SetCookie(c.Writer, t.accessCookie(bundle.AccessToken, bundle.AccessExpiresAt, int(t.accessTTL.Seconds())))
	http.SetCookie(c.Writer, t.refreshCookie(bundle.RefreshToken, bundle.RefreshExpiresAt, int(t.refreshTTL.Seconds())))
}

// Clear expires both credential cookies on the client.
func (t *CredentialTransport) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, t.accessCookie("", time.Unix(0, 0), -1))
	http.SetCookie(c.Writer, t.refreshCookie("", time.Unix(0, 0), -1))
}

func (t *CredentialTransport) accessCookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     t.accessName,
		Value:    value,
		Path:     "/",
		Domain:   t.domain,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   t.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (t *CredentialTransport) refreshCookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     t.refreshName,
		Value:    value,
		Path:     t.refreshPath,
		Domain:   t.domain,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   t.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
