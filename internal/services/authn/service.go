package authn

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/config"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/dspace/dspace-rest/internal/repository"
	"github.com/dspace/dspace-rest/internal/telemetry"
)

const tracerName = "dspace-rest/authn"

// Login method names.
const (
	MethodPassword   = "password"
	MethodShibboleth = "shibboleth"
	MethodOIDC       = "oidc"
	MethodOrcid      = "orcid"
	MethodSAML       = "saml"
	MethodCAS        = "cas"
	MethodIP         = "ip"
)

// federatedMethods trust identity headers set by an upstream identity provider.
var federatedMethods = []string{MethodShibboleth, MethodOIDC, MethodOrcid, MethodSAML, MethodCAS}

// IsFederated reports whether method completes login from upstream headers.
func IsFederated(method string) bool {
	return slices.Contains(federatedMethods, method)
}

// EPersonStore is the subset of the EPerson repository used for authentication.
type EPersonStore interface {
	GetByID(ctx context.Context, id string) (*models.EPerson, error)
	GetByEmail(ctx context.Context, email string) (*models.EPerson, error)
	GetByNetID(ctx context.Context, netID string) (*models.EPerson, error)
	SetSessionSalt(ctx context.Context, id string, salt string) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

// Service authenticates requests, performs logins and issues login tokens.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	cfg      config.AuthConfig
	epersons EPersonStore
	groups   *GroupCache
	tokens   *auth.TokenService
	special  *SpecialGroupMatcher
	metrics  *telemetry.AuthMetrics

	refreshThreshold time.Duration
	now              func() time.Time
}

// Options configures a Service.
type Options struct {
	Auth             config.AuthConfig
	RefreshThreshold time.Duration
	EPersons         EPersonStore
	Groups           GroupLister
	Tokens           *auth.TokenService
	Metrics          *telemetry.AuthMetrics
	Now              func() time.Time
}

// NewService builds the authentication service.
func NewService(opts Options) (*Service, error) {
	if opts.EPersons == nil || opts.Groups == nil || opts.Tokens == nil {
		return nil, fmt.Errorf("authn: epersons, groups and tokens are required")
	}
	special, err := NewSpecialGroupMatcher(opts.Auth.SpecialGroups)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		cfg:              opts.Auth,
		epersons:         opts.EPersons,
		groups:           NewGroupCache(opts.Groups, opts.Auth.GroupCacheTTL),
		tokens:           opts.Tokens,
		special:          special,
		metrics:          opts.Metrics,
		refreshThreshold: opts.RefreshThreshold,
		now:              now,
	}, nil
}

// Methods returns the enabled login methods in configured order.
func (s *Service) Methods() []string {
	return slices.Clone(s.cfg.Methods)
}

// AuthenticateRequest resolves the login token carried by the request.
//
// Returns:
//   - (principal, nil): a valid token was presented
//   - (nil, nil): no token was presented
//   - (nil, error): a token was presented but is invalid or its EPerson cannot log in
func (s *Service) AuthenticateRequest(ctx context.Context, req AuthRequest) (*auth.Principal, error) {
	raw := req.BearerToken()
	if raw == "" {
		raw = req.CookieToken()
	}
	if raw == "" {
		return nil, nil
	}

	ctx, span := telemetry.StartSpan(ctx, tracerName, "authn.AuthenticateRequest")
	defer span.End()

	claims, err := s.tokens.Parse(ctx, raw, s.sessionSalt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	eperson, err := s.epersons.GetByID(ctx, claims.EPersonID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	if !eperson.CanLogIn {
		return nil, fmt.Errorf("%w: eperson %s cannot log in", auth.ErrInvalidToken, eperson.ID)
	}

	principal, err := s.buildPrincipal(ctx, eperson, claims.Method, claims.SpecialGroups)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	principal.TokenIssuedAt = claims.Issued()

	if err := s.epersons.TouchLastActive(ctx, eperson.ID, s.now()); err != nil {
		log.Printf("authn: failed to record activity for %s: %v", eperson.ID, err)
	}

	span.SetAttributes(
		attribute.String(telemetry.AttrPrincipalID, principal.ID),
		attribute.String(telemetry.AttrAuthMethod, principal.Method),
	)
	return principal, nil
}

// SpecialGroups returns the groups granted to the request by client address.
func (s *Service) SpecialGroups(_ context.Context, req AuthRequest) []string {
	return s.special.MatchRemote(req.RemoteAddr)
}

// RefreshIfStale issues a new token when the presented one is older than the
// refresh threshold. Impersonated principals are never refreshed since the
// token belongs to the administrator.
func (s *Service) RefreshIfStale(ctx context.Context, p *auth.Principal) (string, bool, error) {
	if p == nil || p.ImpersonatedBy != "" || p.TokenIssuedAt.IsZero() {
		return "", false, nil
	}
	if s.now().Sub(p.TokenIssuedAt) < s.refreshThreshold {
		return "", false, nil
	}

	salt, err := s.sessionSalt(ctx, p.ID)
	if err != nil {
		return "", false, err
	}
	token, err := s.tokens.Mint(p.ID, salt, p.Method, p.SpecialGroups)
	if err != nil {
		return "", false, err
	}
	s.metrics.RecordRefresh(ctx)
	return token, true, nil
}

// Logout rotates the EPerson's session salt so every token issued so far stops verifying.
func (s *Service) Logout(ctx context.Context, p *auth.Principal) error {
	if p == nil {
		return nil
	}
	salt, err := auth.GenerateSessionSalt()
	if err != nil {
		return err
	}
	if err := s.epersons.SetSessionSalt(ctx, p.ID, salt); err != nil {
		return fmt.Errorf("rotate session salt: %w", err)
	}
	s.groups.Invalidate(p.ID)
	return nil
}

// Impersonate returns the principal of targetID acting under admin's session.
func (s *Service) Impersonate(ctx context.Context, admin *auth.Principal, targetID string) (*auth.Principal, error) {
	if !admin.IsAdmin() {
		return nil, ErrImpersonationForbidden
	}
	id, err := uuid.Parse(strings.TrimSpace(targetID))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a UUID", ErrImpersonationTarget, targetID)
	}

	target, err := s.epersons.GetByID(ctx, id.String())
	if repository.IsNotFound(err) {
		return nil, fmt.Errorf("%w: eperson %s not found", ErrImpersonationTarget, id)
	}
	if err != nil {
		return nil, err
	}

	principal, err := s.buildPrincipal(ctx, target, admin.Method, nil)
	if err != nil {
		return nil, err
	}
	principal.TokenIssuedAt = admin.TokenIssuedAt
	principal.ImpersonatedBy = admin.ID
	log.Printf("authn: administrator %s acting on behalf of %s", admin.ID, principal.ID)
	return principal, nil
}

// buildPrincipal resolves memberships and authorities for an EPerson.
func (s *Service) buildPrincipal(ctx context.Context, e *models.EPerson, method string, specialGroups []string) (*auth.Principal, error) {
	groups, err := s.groups.Groups(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve groups for %s: %w", e.ID, err)
	}

	admin := slices.Contains(groups, auth.GroupAdministrator)
	accessManager := false
	for _, g := range s.cfg.AccessManagerGroups {
		if slices.Contains(groups, g) {
			accessManager = true
			break
		}
	}

	p := &auth.Principal{
		ID:             e.ID,
		Email:          e.Email,
		Name:           e.FullName(),
		Authorities:    auth.AuthoritiesFor(admin, accessManager),
		Groups:         groups,
		PreviousActive: e.LastActive,
		Method:         method,
		SpecialGroups:  slices.Clone(specialGroups),
	}
	if e.NetID != nil {
		p.NetID = *e.NetID
	}
	return p, nil
}

func (s *Service) sessionSalt(ctx context.Context, epersonID string) (string, error) {
	e, err := s.epersons.GetByID(ctx, epersonID)
	if err != nil {
		return "", err
	}
	return e.SessionSalt, nil
}
