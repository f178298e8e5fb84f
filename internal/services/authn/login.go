package authn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/dspace/dspace-rest/internal/repository"
	"github.com/dspace/dspace-rest/internal/telemetry"
)

// LoginRequest is one login attempt. Method may name a single method;
// otherwise every enabled method is tried in configured order.
type LoginRequest struct {
	Method   string
	Email    string
	Password string

	// Headers carry identity attributes set by an upstream identity provider.
	Headers    http.Header
	RemoteAddr string
}

// LoginResult is a successful login.
type LoginResult struct {
	Principal *auth.Principal
	Token     string
	Method    string
}

// Login authenticates the request with the first method that accepts it and
// mints a token. Nothing is changed when every method declines.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "authn.Login")
	defer span.End()
	start := s.now()

	methods := s.cfg.Methods
	if req.Method != "" {
		method := strings.ToLower(req.Method)
		if !s.cfg.MethodEnabled(method) {
			return nil, fmt.Errorf("%w: %s", ErrMethodDisabled, method)
		}
		methods = []string{method}
	}

	for _, method := range methods {
		eperson, specialGroups, err := s.attempt(ctx, method, req)
		if errors.Is(err, errNoCredentials) {
			continue
		}
		if err != nil {
			s.metrics.RecordAuth(ctx, method, false, elapsedMs(s.now(), start))
			if errors.Is(err, ErrInvalidCredentials) {
				continue
			}
			telemetry.RecordError(span, err)
			return nil, err
		}

		result, err := s.complete(ctx, eperson, method, specialGroups)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		s.metrics.RecordAuth(ctx, method, true, elapsedMs(s.now(), start))
		span.SetAttributes(
			attribute.String(telemetry.AttrPrincipalID, result.Principal.ID),
			attribute.String(telemetry.AttrAuthMethod, method),
		)
		return result, nil
	}

	return nil, ErrInvalidCredentials
}

// attempt runs one method. errNoCredentials means the request carries
// nothing for this method.
func (s *Service) attempt(ctx context.Context, method string, req LoginRequest) (*models.EPerson, []string, error) {
	switch {
	case method == MethodPassword:
		e, err := s.passwordLogin(ctx, req.Email, req.Password)
		return e, nil, err
	case IsFederated(method):
		return s.federatedLogin(ctx, req.Headers)
	default:
		return nil, nil, errNoCredentials
	}
}

func (s *Service) passwordLogin(ctx context.Context, email, password string) (*models.EPerson, error) {
	if email == "" || password == "" {
		return nil, errNoCredentials
	}
	e, err := s.epersons.GetByEmail(ctx, email)
	if repository.IsNotFound(err) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !e.CanLogIn || e.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*e.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return e, nil
}

// federatedLogin trusts identity headers populated upstream. EPersons are
// matched by NetID first, then by email; unknown identities are rejected.
func (s *Service) federatedLogin(ctx context.Context, headers http.Header) (*models.EPerson, []string, error) {
	fed := s.cfg.Federated
	netID := headerValue(headers, fed.NetIDHeader)
	email := headerValue(headers, fed.EmailHeader)
	if netID == "" && email == "" {
		return nil, nil, errNoCredentials
	}

	var e *models.EPerson
	var err error
	if netID != "" {
		e, err = s.epersons.GetByNetID(ctx, netID)
	}
	if (netID == "" || repository.IsNotFound(err)) && email != "" {
		e, err = s.epersons.GetByEmail(ctx, email)
	}
	if repository.IsNotFound(err) {
		log.Printf("authn: federated login for unknown identity (netid=%q, email=%q)", netID, email)
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if !e.CanLogIn {
		return nil, nil, ErrInvalidCredentials
	}

	var groups []string
	if raw := headerValue(headers, fed.GroupsHeader); raw != "" {
		groups, err = auth.ParseGroupHeader(raw, fed.GroupsPath)
		if err != nil {
			log.Printf("authn: ignoring malformed group header for %s: %v", e.ID, err)
			groups = nil
		}
	}
	return e, groups, nil
}

func (s *Service) complete(ctx context.Context, e *models.EPerson, method string, specialGroups []string) (*LoginResult, error) {
	salt := e.SessionSalt
	if salt == "" {
		var err error
		if salt, err = auth.GenerateSessionSalt(); err != nil {
			return nil, err
		}
		if err := s.epersons.SetSessionSalt(ctx, e.ID, salt); err != nil {
			return nil, fmt.Errorf("store session salt: %w", err)
		}
		e.SessionSalt = salt
	}

	principal, err := s.buildPrincipal(ctx, e, method, specialGroups)
	if err != nil {
		return nil, err
	}
	principal.TokenIssuedAt = s.now()

	token, err := s.tokens.Mint(e.ID, salt, method, specialGroups)
	if err != nil {
		return nil, err
	}
	if err := s.epersons.TouchLastActive(ctx, e.ID, s.now()); err != nil {
		log.Printf("authn: failed to record activity for %s: %v", e.ID, err)
	}
	return &LoginResult{Principal: principal, Token: token, Method: method}, nil
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// dummyHash is compared against when the email is unknown so both paths cost one bcrypt round.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("dspace-dummy-password"), bcrypt.DefaultCost)
	return hash
})

var errNoCredentials = errors.New("no credentials for method")

func headerValue(h http.Header, name string) string {
	if h == nil || name == "" {
		return ""
	}
	return strings.TrimSpace(h.Get(name))
}

func elapsedMs(now, start time.Time) float64 {
	return float64(now.Sub(start).Microseconds()) / 1000
}
