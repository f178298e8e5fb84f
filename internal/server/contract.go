package server

import (
	"context"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/middleware"
	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/services/authn"
)

// authnService defines the authentication methods used by the router and
// the /api/authn handlers. authn.Service satisfies it; tests may substitute
// a fake.
type authnService interface {
	middleware.Authenticator

	Login(ctx context.Context, req authn.LoginRequest) (*authn.LoginResult, error)
	Logout(ctx context.Context, p *auth.Principal) error
}

// permissionEvaluator answers the permission questions asked by handlers.
type permissionEvaluator interface {
	HasPermission(ctx context.Context, caller auth.Caller, targetID string, kind permission.Kind, action permission.Action) bool
	HasPatchPermission(ctx context.Context, caller auth.Caller, targetID string, kind permission.Kind, patch permission.Patch) bool
}

var (
	_ authnService        = (*authn.Service)(nil)
	_ permissionEvaluator = (*permission.Evaluator)(nil)
)
