package middleware

import (
	"context"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/services/authn"
)

// HeaderOnBehalfOf names the EPerson an administrator wants to act as.
const HeaderOnBehalfOf = "X-On-Behalf-Of"

// Authenticator is the slice of the authentication service used per request.
type Authenticator interface {
	AuthenticateRequest(ctx context.Context, req authn.AuthRequest) (*auth.Principal, error)
	SpecialGroups(ctx context.Context, req authn.AuthRequest) []string
	RefreshIfStale(ctx context.Context, p *auth.Principal) (string, bool, error)
	Impersonate(ctx context.Context, admin *auth.Principal, targetID string) (*auth.Principal, error)
	Methods() []string
}

// PermissionChecker answers permission questions.
type PermissionChecker interface {
	HasPermission(ctx context.Context, caller auth.Caller, targetID string, kind permission.Kind, action permission.Action) bool
}

// EPersonLookup loads EPersons.
type EPersonLookup interface {
	GetByID(ctx context.Context, id string) (*models.EPerson, error)
}
