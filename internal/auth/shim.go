package auth

import (
	"net/http"
	"strings"
)

// AuthCookieName carries a login token across the redirect that completes a federated login.
const AuthCookieName = "dsAuthInfo"

// AuthCookieShim promotes the one-time auth cookie into a standard Bearer
// Authorization header and expires the cookie on the response, so the token
// survives exactly one request in cookie form. Requests that already present
// an Authorization header are left untouched.
func AuthCookieShim(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := tokenFromAuthCookie(r); token != "" {
			if r.Header.Get("Authorization") == "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
			http.SetCookie(w, &http.Cookie{
				Name:     AuthCookieName,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
			})
		}

		next.ServeHTTP(w, r)
	})
}

func tokenFromAuthCookie(r *http.Request) string {
	if r == nil {
		return ""
	}
	cookie, err := r.Cookie(AuthCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(cookie.Value, "Bearer "))
}
