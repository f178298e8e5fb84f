package authn

import (
	"net/http"
	"strings"

	"github.com/dspace/dspace-rest/internal/auth"
)

// AuthRequest carries the parts of an HTTP request the authentication
// service looks at.
type AuthRequest struct {
	// Headers contains HTTP headers (Authorization and federated identity headers).
	Headers http.Header

	// Cookies contains parsed cookies.
	Cookies []*http.Cookie

	// RemoteAddr is the client address, "host:port" or a bare IP.
	RemoteAddr string
}

// NewAuthRequest captures r.
func NewAuthRequest(r *http.Request) AuthRequest {
	return AuthRequest{Headers: r.Header, Cookies: r.Cookies(), RemoteAddr: r.RemoteAddr}
}

// BearerToken returns the token from the Authorization header, or "".
func (r AuthRequest) BearerToken() string {
	header := r.Headers.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// CookieToken returns the token carried by the one-time login cookie, or "".
func (r AuthRequest) CookieToken() string {
	for _, c := range r.Cookies {
		if c.Name == auth.AuthCookieName {
			return strings.TrimSpace(c.Value)
		}
	}
	return ""
}
