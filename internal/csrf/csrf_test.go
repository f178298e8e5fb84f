package csrf

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dspace/dspace-rest/internal/config"
)

func newRepo() *CookieTokenRepository {
	return NewCookieTokenRepository(config.CSRFConfig{
		CookieName:         "DSPACE-XSRF-COOKIE",
		HeaderName:         "X-XSRF-TOKEN",
		ResponseHeaderName: "DSPACE-XSRF-TOKEN",
		ParameterName:      "_csrf",
		CrossSite:          true,
	})
}

// carryCookies copies the final value of every cookie set on rec into req.
func carryCookies(rec *httptest.ResponseRecorder, req *http.Request) {
	final := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		final[c.Name] = c
	}
	for _, c := range final {
		if c.MaxAge >= 0 && c.Value != "" {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
}

func TestRepository_SaveLoadRoundTrip(t *testing.T) {
	repo := newRepo()
	token := repo.GenerateToken()
	assert.Equal(t, "X-XSRF-TOKEN", token.HeaderName)
	assert.Equal(t, "_csrf", token.ParameterName)

	rec := httptest.NewRecorder()
	repo.SaveToken(rec, token)
	assert.Equal(t, token.Value, rec.Header().Get("DSPACE-XSRF-TOKEN"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	carryCookies(rec, req)
	loaded := repo.LoadToken(req)
	require.NotNil(t, loaded)
	assert.Equal(t, token.Value, loaded.Value)
}

func TestRepository_SaveNilClears(t *testing.T) {
	repo := newRepo()
	rec := httptest.NewRecorder()
	repo.SaveToken(rec, repo.GenerateToken())
	repo.SaveToken(rec, nil)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Empty(t, cookies[1].Value)
	assert.Negative(t, cookies[1].MaxAge)
	assert.Empty(t, rec.Header().Get("DSPACE-XSRF-TOKEN"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	carryCookies(rec, req)
	assert.Nil(t, repo.LoadToken(req))
}

func TestRepository_SameSiteLax(t *testing.T) {
	repo := newRepo()
	repo.CrossSite = false
	rec := httptest.NewRecorder()
	repo.SaveToken(rec, repo.GenerateToken())

	c := rec.Result().Cookies()[0]
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestRepository_Rotate(t *testing.T) {
	repo := newRepo()
	rec := httptest.NewRecorder()
	token := repo.Rotate(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Negative(t, cookies[0].MaxAge, "old token is voided first")
	assert.Equal(t, token.Value, cookies[1].Value)
	assert.Equal(t, token.Value, rec.Header().Get("DSPACE-XSRF-TOKEN"))
}

func protected(repo *CookieTokenRepository) http.Handler {
	return Protect(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

// bootstrap performs a GET and returns the issued token value and its cookie.
func bootstrap(t *testing.T, h http.Handler) (string, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/core/items", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	value := rec.Header().Get("DSPACE-XSRF-TOKEN")
	require.NotEmpty(t, value)
	return value, rec
}

func TestProtect_EchoesTokenOnSafeRequests(t *testing.T) {
	h := protected(newRepo())
	value, first := bootstrap(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/core/items", nil)
	carryCookies(first, req)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, value, rec.Header().Get("DSPACE-XSRF-TOKEN"), "token is not rotated per request")
	assert.Empty(t, rec.Result().Cookies(), "existing cookie is left alone")
}

func TestProtect_HeaderChannel(t *testing.T) {
	h := protected(newRepo())
	value, first := bootstrap(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/authn/login", nil)
	carryCookies(first, req)
	req.Header.Set("X-XSRF-TOKEN", value)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, value, rec.Header().Get("DSPACE-XSRF-TOKEN"))
}

func TestProtect_Mismatch(t *testing.T) {
	h := protected(newRepo())
	_, first := bootstrap(t, h)

	tests := []struct {
		name   string
		header string
		cookie bool
	}{
		{"wrong header", "forged", true},
		{"missing header", "", true},
		{"no cookie", "anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/eperson/epersons/x", nil)
			if tt.cookie {
				carryCookies(first, req)
			}
			if tt.header != "" {
				req.Header.Set("X-XSRF-TOKEN", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, "invalid CSRF token", strings.TrimSpace(rec.Body.String()))
		})
	}
}

func TestProtect_ParameterChannelRotates(t *testing.T) {
	h := protected(newRepo())
	value, first := bootstrap(t, h)

	form := url.Values{"_csrf": {value}}
	req := httptest.NewRequest(http.MethodPost, "/api/authn/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	carryCookies(first, req)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	rotated := rec.Header().Get("DSPACE-XSRF-TOKEN")
	assert.NotEmpty(t, rotated)
	assert.NotEqual(t, value, rotated)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Negative(t, cookies[0].MaxAge)
	assert.Equal(t, rotated, cookies[1].Value)

	t.Run("query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/authn/logout?_csrf="+url.QueryEscape(rotated), nil)
		carryCookies(rec, req)
		next := httptest.NewRecorder()
		h.ServeHTTP(next, req)
		require.Equal(t, http.StatusNoContent, next.Code)
		assert.NotEqual(t, rotated, next.Header().Get("DSPACE-XSRF-TOKEN"))
	})
}
