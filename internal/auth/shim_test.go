package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCookieShim(t *testing.T) {
	var seen string
	handler := AuthCookieShim(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
	}))

	t.Run("promotes cookie and expires it", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/authn/status", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "Bearer abc.def.ghi"})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "Bearer abc.def.ghi", seen)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, AuthCookieName, cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.Less(t, cookies[0].MaxAge, 0)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/authn/status", nil)
		req.Header.Set("Authorization", "Bearer from-header")
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "from-cookie"})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "Bearer from-header", seen)
		assert.Len(t, rec.Result().Cookies(), 1, "cookie is still destroyed")
	})

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/authn/status", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Empty(t, seen)
		assert.Empty(t, rec.Result().Cookies())
	})
}
