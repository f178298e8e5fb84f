package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/config"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/repository"
	"github.com/dspace/dspace-rest/internal/services/authn"
)

const (
	adminID  = "0190c6a4-0000-7000-8000-0000000000ad"
	userID   = "0190c6a4-0000-7000-8000-0000000000a1"
	targetID = "0190c6a4-0000-7000-8000-0000000000b2"
)

// fakeAuthenticator maps bearer tokens to principals.
type fakeAuthenticator struct {
	tokens    map[string]*auth.Principal
	epersons  map[string]*auth.Principal
	special   []string
	refreshed string
}

func (f *fakeAuthenticator) AuthenticateRequest(_ context.Context, req authn.AuthRequest) (*auth.Principal, error) {
	raw := req.BearerToken()
	if raw == "" {
		return nil, nil
	}
	p, ok := f.tokens[raw]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return p, nil
}

func (f *fakeAuthenticator) SpecialGroups(context.Context, authn.AuthRequest) []string {
	return f.special
}

func (f *fakeAuthenticator) RefreshIfStale(_ context.Context, p *auth.Principal) (string, bool, error) {
	if f.refreshed == "" || p.ImpersonatedBy != "" {
		return "", false, nil
	}
	return f.refreshed, true, nil
}

func (f *fakeAuthenticator) Impersonate(_ context.Context, admin *auth.Principal, id string) (*auth.Principal, error) {
	if !admin.IsAdmin() {
		return nil, authn.ErrImpersonationForbidden
	}
	target, ok := f.epersons[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", authn.ErrImpersonationTarget, id)
	}
	clone := *target
	clone.ImpersonatedBy = admin.ID
	return &clone, nil
}

func (f *fakeAuthenticator) Methods() []string { return []string{"password", "shibboleth"} }

func newFakeAuthenticator() *fakeAuthenticator {
	return &fakeAuthenticator{
		tokens: map[string]*auth.Principal{
			"admin-token": {ID: adminID, Authorities: auth.AuthoritiesFor(true, false)},
			"user-token":  {ID: userID, Authorities: auth.AuthoritiesFor(false, false)},
		},
		epersons: map[string]*auth.Principal{
			targetID: {ID: targetID, Authorities: auth.AuthoritiesFor(false, false)},
		},
	}
}

// captureCaller records the caller seen by the downstream handler.
func captureCaller(seen *auth.Caller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = auth.CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, token, onBehalfOf string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/core/items", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if onBehalfOf != "" {
		req.Header.Set(HeaderOnBehalfOf, onBehalfOf)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatelessAuth_Anonymous(t *testing.T) {
	svc := newFakeAuthenticator()
	svc.special = []string{"Campus"}
	var seen auth.Caller
	h := StatelessAuthMiddleware(svc, "http://localhost:8080/server")(captureCaller(&seen))

	rec := serve(h, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, seen.Anonymous())
	assert.True(t, seen.InGroup("Campus"))
}

func TestStatelessAuth_InvalidTokenSoftFails(t *testing.T) {
	var seen auth.Caller
	h := StatelessAuthMiddleware(newFakeAuthenticator(), "")(captureCaller(&seen))

	rec := serve(h, "expired", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, seen.Anonymous())

	rec = serve(h, "expired", targetID)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `password realm="DSpace REST API"`)
}

func TestStatelessAuth_Impersonation(t *testing.T) {
	var seen auth.Caller
	h := StatelessAuthMiddleware(newFakeAuthenticator(), "")(captureCaller(&seen))

	t.Run("admin acts as target", func(t *testing.T) {
		rec := serve(h, "admin-token", targetID)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, targetID, seen.ID())
		assert.False(t, seen.IsAdmin(), "authorities reflect the target")
		assert.Equal(t, adminID, seen.Principal.ImpersonatedBy)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		rec := serve(h, "user-token", targetID)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown or malformed target", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, serve(h, "admin-token", "not-a-uuid").Code)
		assert.Equal(t, http.StatusBadRequest, serve(h, "admin-token", "0190c6a4-0000-7000-8000-00000000ffff").Code)
	})

	t.Run("anonymous impersonation", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(h, "", targetID).Code)
	})
}

func TestStatelessAuth_Refresh(t *testing.T) {
	svc := newFakeAuthenticator()
	svc.refreshed = "fresh-token"

	var seen auth.Caller
	h := StatelessAuthMiddleware(svc, "")(captureCaller(&seen))

	rec := serve(h, "user-token", "")
	assert.Equal(t, "Bearer fresh-token", rec.Header().Get("Authorization"))
	assert.Equal(t, userID, seen.ID())

	rec = serve(h, "admin-token", targetID)
	assert.Empty(t, rec.Header().Get("Authorization"), "impersonated sessions are not refreshed")
}

func TestWWWAuthenticate(t *testing.T) {
	got := WWWAuthenticate([]string{"password", "shibboleth", "ip"}, "https://repo.example.org/server/")
	assert.Equal(t,
		`password realm="DSpace REST API", shibboleth realm="DSpace REST API", location="https://repo.example.org/server/api/authn/shibboleth"`,
		got)
}

type allowList map[string]bool

func (a allowList) HasPermission(_ context.Context, caller auth.Caller, id string, kind permission.Kind, action permission.Action) bool {
	return a[caller.ID()+"|"+string(kind)+"|"+id+"|"+string(action)]
}

func TestRequirePermission(t *testing.T) {
	checker := allowList{userID + "|eperson|" + userID + "|READ": true}

	r := chi.NewRouter()
	challenge := WWWAuthenticate([]string{"password"}, "")
	r.With(RequirePermission(checker, challenge, permission.KindEPerson, permission.ActionRead, "id")).
		Get("/epersons/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	call := func(caller auth.Caller, id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/epersons/"+id, nil)
		req = req.WithContext(auth.SetCaller(req.Context(), caller))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	user := auth.Caller{Principal: &auth.Principal{ID: userID}}
	assert.Equal(t, http.StatusOK, call(user, userID).Code)

	rec := call(user, targetID)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("WWW-Authenticate"))

	rec = call(auth.Caller{}, userID)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, challenge, rec.Header().Get("WWW-Authenticate"))
}

func TestRequireAuthentication(t *testing.T) {
	h := RequireAuthentication([]string{"password", "shibboleth"}, "https://repo.example.org/server")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	call := func(caller auth.Caller) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/authn/logout", nil)
		req = req.WithContext(auth.SetCaller(req.Context(), caller))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := call(auth.Caller{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `password realm="DSpace REST API"`)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `location="https://repo.example.org/server/api/authn/shibboleth"`)

	assert.Equal(t, http.StatusNoContent, call(auth.Caller{Principal: &auth.Principal{ID: userID}}).Code)
}

type fakeEPersons map[string]*models.EPerson

func (f fakeEPersons) GetByID(_ context.Context, id string) (*models.EPerson, error) {
	if e, ok := f[id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("eperson %s: %w", id, repository.ErrNotFound)
}

func TestUserAgreementMiddleware(t *testing.T) {
	accepted := time.Now()
	epersons := fakeEPersons{
		userID:   {ID: userID},
		targetID: {ID: targetID, AgreementAcceptedAt: &accepted},
	}
	cfg := config.UserAgreementConfig{Required: true, ExemptPaths: config.DefaultExemptPaths}
	h := UserAgreementMiddleware(cfg, epersons)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(caller auth.Caller, path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req = req.WithContext(auth.SetCaller(req.Context(), caller))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	pending := auth.Caller{Principal: &auth.Principal{ID: userID}}
	agreed := auth.Caller{Principal: &auth.Principal{ID: targetID}}

	assert.Equal(t, http.StatusForbidden, call(pending, "/api/core/items"))
	assert.Equal(t, http.StatusOK, call(pending, "/api/authn/status"))
	assert.Equal(t, http.StatusOK, call(pending, "/api/eperson/epersons/"+userID))
	assert.Equal(t, http.StatusOK, call(agreed, "/api/core/items"))
	assert.Equal(t, http.StatusOK, call(auth.Caller{}, "/api/core/items"))

	ghost := auth.Caller{Principal: &auth.Principal{ID: "missing"}}
	assert.Equal(t, http.StatusInternalServerError, call(ghost, "/api/core/items"))

	disabled := UserAgreementMiddleware(config.UserAgreementConfig{}, epersons)(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

