package csrf

import (
	"crypto/subtle"
	"log"
	"net/http"
)

// Protect enforces the double-submit check on state-changing requests.
//
// Every response carries the current token in the response header; a token is
// created when the request has none. POST, PUT, PATCH and DELETE must send the
// token in the request header. Sending it as a request parameter is accepted
// once and triggers a rotation.
func Protect(repo *CookieTokenRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := repo.LoadToken(r)
			if token == nil {
				token = repo.GenerateToken()
				repo.SaveToken(w, token)
				// A freshly minted token cannot have been echoed by the client.
				if requiresCheck(r.Method) {
					reject(w, r)
					return
				}
			} else {
				w.Header().Set(repo.ResponseHeaderName, token.Value)
			}

			if !requiresCheck(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if sent := r.Header.Get(repo.HeaderName); sent != "" {
				if !equal(sent, token.Value) {
					reject(w, r)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			sent := parameterToken(r, repo.ParameterName)
			if sent == "" || !equal(sent, token.Value) {
				reject(w, r)
				return
			}
			repo.Rotate(w)
			next.ServeHTTP(w, r)
		})
	}
}

func requiresCheck(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func parameterToken(r *http.Request, name string) string {
	if name == "" {
		return ""
	}
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return r.PostFormValue(name)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func reject(w http.ResponseWriter, r *http.Request) {
	log.Printf("csrf: rejected %s %s", r.Method, r.URL.Path)
	http.Error(w, ErrTokenMismatch.Error(), http.StatusForbidden)
}
