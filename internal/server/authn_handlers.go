package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/services/authn"
)

// StatusResponse describes the caller of GET /api/authn/status.
type StatusResponse struct {
	Type                 string           `json:"type"`
	Okay                 bool             `json:"okay"`
	Authenticated        bool             `json:"authenticated"`
	AuthenticationMethod string           `json:"authenticationMethod,omitempty"`
	EPerson              *EPersonResponse `json:"eperson,omitempty"`
	Authorities          []string         `json:"authorities,omitempty"`
	SpecialGroups        []string         `json:"specialGroups,omitempty"`
	ImpersonatedBy       string           `json:"impersonatedBy,omitempty"`
}

// MountAuthnHandlers registers the /authn endpoints on the API router.
func MountAuthnHandlers(r chi.Router, h *Handlers) {
	r.Post("/authn/login", h.Login)
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		r.MethodFunc(method, "/authn/login", loginMethodNotAllowed)
	}
	r.Get("/authn/status", h.Status)
	r.With(h.authenticated).Post("/authn/logout", h.Logout)
	r.Get("/authn/{method}", h.CompleteLogin)
}

// Login handles POST /api/authn/login. Credentials arrive as form fields
// "user" and "password"; federated identities arrive as upstream headers.
// The token is returned in the Authorization response header.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed login request")
		return
	}

	result, err := h.authn.Login(r.Context(), authn.LoginRequest{
		Email:      r.PostFormValue("user"),
		Password:   r.PostFormValue("password"),
		Headers:    r.Header,
		RemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		h.loginFailed(w, r, err)
		return
	}

	h.csrf.Rotate(w)
	w.Header().Set("Authorization", "Bearer "+result.Token)
	writeJSON(w, http.StatusOK, newStatus(auth.Caller{Principal: result.Principal}))
}

func loginMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, r, http.StatusMethodNotAllowed, "only POST is supported for login")
}

// Status handles GET /api/authn/status. Anonymous callers also receive the
// login challenge.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())
	if caller.Anonymous() {
		w.Header().Set("WWW-Authenticate", h.challenge)
	}
	writeJSON(w, http.StatusOK, newStatus(caller))
}

// Logout handles POST /api/authn/logout. The session salt is rotated so every
// token issued to the EPerson stops verifying. An administrator acting on
// behalf of someone else logs out their own session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	if principal.ImpersonatedBy != "" {
		principal = &auth.Principal{ID: principal.ImpersonatedBy}
	}

	if err := h.authn.Logout(r.Context(), principal); err != nil {
		log.Printf("logout of %s failed: %v", principal.ID, err)
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}

	h.csrf.Rotate(w)
	w.WriteHeader(http.StatusNoContent)
}

// CompleteLogin handles GET /api/authn/{method} for federated methods. The
// upstream identity provider has already populated the request headers; the
// minted token travels to the UI in the one-time auth cookie across a 302.
func (h *Handlers) CompleteLogin(w http.ResponseWriter, r *http.Request) {
	method := strings.ToLower(chi.URLParam(r, "method"))
	if !authn.IsFederated(method) || !h.cfg.Auth.MethodEnabled(method) {
		writeError(w, r, http.StatusNotFound, "unknown login method")
		return
	}

	target, err := h.redirectTarget(r.URL.Query().Get("redirectUrl"))
	if err != nil {
		log.Printf("rejected %s login redirect: %v", method, err)
		writeError(w, r, http.StatusBadRequest, "invalid redirect URL")
		return
	}

	result, err := h.authn.Login(r.Context(), authn.LoginRequest{
		Method:     method,
		Headers:    r.Header,
		RemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		h.loginFailed(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.AuthCookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.cfg.JWT.AuthCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.cfg.ServerURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handlers) loginFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, authn.ErrInvalidCredentials) || errors.Is(err, authn.ErrMethodDisabled) {
		h.unauthorized(w, r)
		return
	}
	log.Printf("login failed: %v", err)
	writeError(w, r, http.StatusInternalServerError, "authentication error")
}

func (h *Handlers) unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", h.challenge)
	writeError(w, r, http.StatusUnauthorized, "authentication failed")
}

func newStatus(caller auth.Caller) StatusResponse {
	status := StatusResponse{
		Type:          "status",
		Okay:          true,
		Authenticated: !caller.Anonymous(),
		Authorities:   auth.AuthorityStrings(caller.Authorities()),
	}
	p := caller.Principal
	if p == nil {
		return status
	}
	status.AuthenticationMethod = p.Method
	status.EPerson = &EPersonResponse{
		Type:  "eperson",
		ID:    p.ID,
		Email: p.Email,
		Name:  p.Name,
	}
	if p.NetID != "" {
		status.EPerson.NetID = &p.NetID
	}
	status.SpecialGroups = append(append(status.SpecialGroups, p.SpecialGroups...), caller.SpecialGroups...)
	status.ImpersonatedBy = p.ImpersonatedBy
	return status
}
