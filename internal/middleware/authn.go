package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/services/authn"
	"github.com/dspace/dspace-rest/internal/telemetry"
)

// StatelessAuthMiddleware resolves the caller of every request.
//
// Flow:
//  1. Special groups are derived from the client address.
//  2. A presented login token is resolved to a Principal. An invalid token
//     degrades the request to anonymous unless impersonation was requested.
//  3. X-On-Behalf-Of swaps the Principal for the named EPerson when the
//     caller is an administrator (403 otherwise, 400 for a bad target).
//  4. A stale token is silently replaced; the new token goes out in the
//     Authorization response header.
//
// The resolved auth.Caller is stored in the request context.
func StatelessAuthMiddleware(svc Authenticator, serverURL string) func(http.Handler) http.Handler {
	challenge := WWWAuthenticate(svc.Methods(), serverURL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			req := authn.NewAuthRequest(r)
			onBehalfOf := strings.TrimSpace(r.Header.Get(HeaderOnBehalfOf))

			special := svc.SpecialGroups(ctx, req)

			principal, err := svc.AuthenticateRequest(ctx, req)
			if err != nil {
				log.Printf("authentication failed for %s %s: %v", r.Method, r.URL.Path, err)
				if onBehalfOf != "" {
					Unauthorized(w, challenge)
					return
				}
				principal = nil
			}

			if onBehalfOf != "" {
				if principal == nil {
					Unauthorized(w, challenge)
					return
				}
				target, err := svc.Impersonate(ctx, principal, onBehalfOf)
				switch {
				case errors.Is(err, authn.ErrImpersonationForbidden):
					log.Printf("impersonation denied: %s is not an administrator", principal.ID)
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				case errors.Is(err, authn.ErrImpersonationTarget):
					http.Error(w, "invalid "+HeaderOnBehalfOf+" header", http.StatusBadRequest)
					return
				case err != nil:
					log.Printf("impersonation of %s failed: %v", onBehalfOf, err)
					http.Error(w, "authentication error", http.StatusInternalServerError)
					return
				}
				principal = target
			}

			if principal != nil {
				token, refreshed, err := svc.RefreshIfStale(ctx, principal)
				if err != nil {
					log.Printf("token refresh failed for %s: %v", principal.ID, err)
				} else if refreshed {
					w.Header().Set("Authorization", "Bearer "+token)
				}

				span := trace.SpanFromContext(ctx)
				span.SetAttributes(attribute.String(telemetry.AttrPrincipalID, principal.ID))
				if principal.ImpersonatedBy != "" {
					span.SetAttributes(attribute.String(telemetry.AttrImpersonatedBy, principal.ImpersonatedBy))
				}
			}

			ctx = auth.SetCaller(ctx, auth.Caller{Principal: principal, SpecialGroups: special})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthentication rejects anonymous callers with a 401 challenge.
func RequireAuthentication(methods []string, serverURL string) func(http.Handler) http.Handler {
	challenge := WWWAuthenticate(methods, serverURL)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.CallerFromContext(r.Context()).Anonymous() {
				Unauthorized(w, challenge)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
