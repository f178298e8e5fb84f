package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/config"
	"github.com/dspace/dspace-rest/internal/csrf"
	"github.com/dspace/dspace-rest/internal/middleware"
	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/repository"
	"github.com/dspace/dspace-rest/internal/services/validation"
	"github.com/dspace/dspace-rest/internal/telemetry"
)

// RouterOptions controls the construction of the REST router.
// Cfg, Authn, Evaluator and the repositories are required.
type RouterOptions struct {
	Cfg           *config.Config
	Authn         authnService
	Evaluator     permissionEvaluator
	EPersons      repository.EPersonRepository
	Registrations repository.RegistrationRepository
	Content       repository.ContentRepository
	Workflow      repository.WorkflowRepository

	// CSRF defaults to a cookie repository built from Cfg.CSRF.
	CSRF *csrf.CookieTokenRepository
	// PatchValidator defaults to the JSON Patch schema validator.
	PatchValidator *validation.PatchValidator

	Metrics       *telemetry.ServerMetrics
	CORSOptions   *cors.Options
	HealthHandler http.HandlerFunc
	ExtraRoutes   func(chi.Router)
}

// DefaultCORSOptions allows the configured UI origins to call the API with
// credentials and to read the login and CSRF response headers.
func DefaultCORSOptions(cfg *config.Config) cors.Options {
	return cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"Origin",
			"X-Requested-With",
			middleware.HeaderOnBehalfOf,
			cfg.CSRF.HeaderName,
		},
		ExposedHeaders: []string{
			"Authorization",
			"WWW-Authenticate",
			"Location",
			cfg.CSRF.ResponseHeaderName,
		},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles the filter chain and mounts the REST handlers.
//
// Filter order: CORS, metrics, auth cookie shim, stateless authentication
// (including impersonation), CSRF, user agreement.
func NewRouter(opts RouterOptions) chi.Router {
	cfg := opts.Cfg
	csrfRepo := opts.CSRF
	if csrfRepo == nil {
		csrfRepo = csrf.NewCookieTokenRepository(cfg.CSRF)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	corsCfg := DefaultCORSOptions(cfg)
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	patches := opts.PatchValidator
	if patches == nil {
		patches = validation.MustNewPatchValidator()
	}

	h := &Handlers{
		cfg:           cfg,
		authn:         opts.Authn,
		evaluator:     opts.Evaluator,
		epersons:      opts.EPersons,
		registrations: opts.Registrations,
		content:       opts.Content,
		workflow:      opts.Workflow,
		csrf:          csrfRepo,
		patches:       patches,
		challenge:     middleware.WWWAuthenticate(opts.Authn.Methods(), cfg.ServerURL),
	}
	h.authenticated = middleware.RequireAuthentication(opts.Authn.Methods(), cfg.ServerURL)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Metrics(opts.Metrics))
		api.Use(auth.AuthCookieShim)
		api.Use(middleware.StatelessAuthMiddleware(opts.Authn, cfg.ServerURL))
		api.Use(csrf.Protect(csrfRepo))
		api.Use(middleware.UserAgreementMiddleware(cfg.UserAgreement, opts.EPersons))

		MountAuthnHandlers(api, h)
		MountAuthzHandlers(api, h)
		MountEPersonHandlers(api, h)
		MountWorkflowHandlers(api, h)

		if opts.ExtraRoutes != nil {
			opts.ExtraRoutes(api)
		}
	})

	return r
}

// NewH2CHandler wraps the router with an h2c server to provide HTTP/2 over
// cleartext behind TLS-terminating proxies.
func NewH2CHandler(opts RouterOptions) http.Handler {
	return h2c.NewHandler(NewRouter(opts), &http2.Server{})
}

// Handlers carries the dependencies shared by the REST handlers.
type Handlers struct {
	cfg           *config.Config
	authn         authnService
	evaluator     permissionEvaluator
	epersons      repository.EPersonRepository
	registrations repository.RegistrationRepository
	content       repository.ContentRepository
	workflow      repository.WorkflowRepository
	csrf          *csrf.CookieTokenRepository
	patches       *validation.PatchValidator
	challenge     string
	authenticated func(http.Handler) http.Handler
}

func (h *Handlers) require(w http.ResponseWriter, r *http.Request, targetID string, kind permission.Kind, action permission.Action) bool {
	caller := auth.CallerFromContext(r.Context())
	if h.evaluator.HasPermission(r.Context(), caller, targetID, kind, action) {
		return true
	}
	h.denied(w, r, caller.Anonymous())
	return false
}

// permitted guards a route with a permission check on its {id} parameter.
func (h *Handlers) permitted(kind permission.Kind, action permission.Action) func(http.Handler) http.Handler {
	return middleware.RequirePermission(h.evaluator, h.challenge, kind, action, "id")
}
