package httpx

import (
	"net/http"
	"time"
)

const RefreshCookieName = "refresh_token"

// CookiePolicy controls the attributes of the refresh token cookie.
type CookiePolicy struct {
	Path   string
	Secure bool
}

// SetRefreshCookie delivers the refresh token. It is HttpOnly and
// SameSite=Strict, scoped to the auth routes only.
func (p CookiePolicy) SetRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     p.path(),
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearRefreshCookie instructs the client to drop the refresh token.
func (p CookiePolicy) ClearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     p.path(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (p CookiePolicy) path() string {
	if p.Path == "" {
		return "/auth"
	}
	return p.Path
}

// RefreshCookie returns the refresh token sent by the client, or "".
func RefreshCookie(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
