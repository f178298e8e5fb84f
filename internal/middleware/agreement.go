package middleware

import (
	"log"
	"net/http"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/config"
)

// UserAgreementMiddleware blocks authenticated users who have not accepted
// the end-user agreement. Anonymous callers and exempt paths (doublestar
// patterns) pass through.
func UserAgreementMiddleware(cfg config.UserAgreementConfig, epersons EPersonLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Required {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok || exempt(cfg.ExemptPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			eperson, err := epersons.GetByID(r.Context(), principal.ID)
			if err != nil {
				log.Printf("user agreement lookup for %s failed: %v", principal.ID, err)
				http.Error(w, "authentication error", http.StatusInternalServerError)
				return
			}
			if !eperson.HasAcceptedAgreement() {
				http.Error(w, "user agreement not accepted", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func exempt(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}
