package auth

import (
	"net/http"
	"strings"
	"time"

	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// CookieConfig controls the attributes of both session cookies.
type CookieConfig struct {
	Domain   string `mapstructure:"domain"`
	Path     string `mapstructure:"path"`
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
}

func (c CookieConfig) sameSite() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

func (c CookieConfig) cookie(name, value string, expires time.Time) *http.Cookie {
	path := c.Path
	if path == "" {
		path = "/"
	}
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	}
	if value == "" {
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0).UTC()
		return ck
	}
	ck.Expires = expires.UTC()
	if maxAge := int(time.Until(expires).Seconds()); maxAge > 0 {
		ck.MaxAge = maxAge
	}
	return ck
}

// SetSession writes both tokens of pair as cookies.
func (c CookieConfig) SetSession(w http.ResponseWriter, pair domainauth.TokenPair) {
	http.SetCookie(w, c.cookie(AccessCookie, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, c.cookie(RefreshCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

// ClearSession tells the client to drop both cookies.
func (c CookieConfig) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookie, "", time.Time{}))
	http.SetCookie(w, c.cookie(RefreshCookie, "", time.Time{}))
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func bearer(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
