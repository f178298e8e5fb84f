package csrf

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dspace/dspace-rest/internal/config"
)

// ErrTokenMismatch is returned when a state-changing request does not echo the stored token.
var ErrTokenMismatch = errors.New("invalid CSRF token")

// Token is a CSRF token and the names under which clients must submit it.
type Token struct {
	HeaderName    string
	ParameterName string
	Value         string
}

// CookieTokenRepository keeps the CSRF token in a cookie. The token is echoed
// in a response header so that cross-origin clients, which cannot read the
// cookie, still learn its value.
type CookieTokenRepository struct {
	CookieName         string
	HeaderName         string
	ResponseHeaderName string
	ParameterName      string
	// CrossSite marks the cookie Secure with SameSite=None; otherwise SameSite=Lax.
	CrossSite  bool
	CookiePath string
}

// NewCookieTokenRepository builds a repository from configuration.
func NewCookieTokenRepository(cfg config.CSRFConfig) *CookieTokenRepository {
	return &CookieTokenRepository{
		CookieName:         cfg.CookieName,
		HeaderName:         cfg.HeaderName,
		ResponseHeaderName: cfg.ResponseHeaderName,
		ParameterName:      cfg.ParameterName,
		CrossSite:          cfg.CrossSite,
		CookiePath:         "/",
	}
}

// GenerateToken creates a new random token. It is not stored until SaveToken.
func (r *CookieTokenRepository) GenerateToken() *Token {
	return r.token(uuid.NewString())
}

// SaveToken stores token in the cookie and echoes it in the response header.
// A nil token voids the cookie.
func (r *CookieTokenRepository) SaveToken(w http.ResponseWriter, token *Token) {
	cookie := &http.Cookie{
		Name:     r.CookieName,
		Path:     r.cookiePath(),
		HttpOnly: true,
	}
	if r.CrossSite {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	} else {
		cookie.SameSite = http.SameSiteLaxMode
	}

	if token == nil {
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
		w.Header().Del(r.ResponseHeaderName)
		return
	}

	cookie.Value = token.Value
	http.SetCookie(w, cookie)
	w.Header().Set(r.ResponseHeaderName, token.Value)
}

// LoadToken returns the token stored in the request's cookie, or nil.
func (r *CookieTokenRepository) LoadToken(req *http.Request) *Token {
	cookie, err := req.Cookie(r.CookieName)
	if err != nil {
		return nil
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return nil
	}
	return r.token(value)
}

// Rotate voids the current token and issues a new one. The void comes first
// so the old and new values are never valid together.
func (r *CookieTokenRepository) Rotate(w http.ResponseWriter) *Token {
	r.SaveToken(w, nil)
	token := r.GenerateToken()
	r.SaveToken(w, token)
	return token
}

func (r *CookieTokenRepository) token(value string) *Token {
	return &Token{HeaderName: r.HeaderName, ParameterName: r.ParameterName, Value: value}
}

func (r *CookieTokenRepository) cookiePath() string {
	if r.CookiePath == "" {
		return "/"
	}
	return r.CookiePath
}
