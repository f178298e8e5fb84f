package middleware

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/permission"
)

// RequirePermission guards a route with a permission check on the object
// named by the idParam URL parameter. Anonymous callers that are denied get
// 401 with the challenge so they can log in; authenticated ones get 403.
func RequirePermission(checker PermissionChecker, challenge string, kind permission.Kind, action permission.Action, idParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := auth.CallerFromContext(r.Context())
			id := chi.URLParam(r, idParam)

			if checker.HasPermission(r.Context(), caller, id, kind, action) {
				next.ServeHTTP(w, r)
				return
			}

			log.Printf("permission denied: caller=%q kind=%s id=%s action=%s", caller.ID(), kind, id, action)
			if caller.Anonymous() {
				Unauthorized(w, challenge)
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}
