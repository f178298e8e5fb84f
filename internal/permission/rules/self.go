package rules

import (
	"context"
	"strings"
	"time"

	"github.com/dspace/dspace-rest/internal/permission"
)

const passwordPath = "/password"

// SelfAccessRule lets a principal read, change and delete their own EPerson
// and researcher profile. Profiles share their owner's UUID.
type SelfAccessRule struct {
	EPersons      EPersonLookup
	Registrations RegistrationLookup
}

func (r *SelfAccessRule) Name() string { return "self-access" }

func (r *SelfAccessRule) Supports(kind permission.Kind, action permission.Action) bool {
	return (kind == permission.KindEPerson || kind == permission.KindResearcherProfile) &&
		action.In(permission.ActionRead, permission.ActionWrite, permission.ActionDelete)
}

func (r *SelfAccessRule) Evaluate(ctx context.Context, req permission.Request) (bool, error) {
	if req.Caller.Anonymous() {
		return false, nil
	}
	target, ok := parseUUID(req.TargetID)
	if !ok {
		return false, nil
	}
	return strings.EqualFold(target, req.Caller.ID()), nil
}

// EvaluatePatch allows an EPerson patch only when every operation changes the
// password. An anonymous caller may set a password with a valid registration
// token issued to that EPerson's email address.
func (r *SelfAccessRule) EvaluatePatch(ctx context.Context, req permission.Request, patch permission.Patch) (bool, error) {
	if req.Kind != permission.KindEPerson {
		return r.Evaluate(ctx, req)
	}

	if isTokenPasswordReset(patch) {
		return r.tokenMatches(ctx, req.TargetID, patch.Token)
	}

	if req.Caller.Anonymous() || !patch.OnlyPaths(passwordPath) {
		return false, nil
	}
	return r.Evaluate(ctx, req)
}

func isTokenPasswordReset(patch permission.Patch) bool {
	if patch.Token == "" || len(patch.Operations) != 1 {
		return false
	}
	op := patch.Operations[0]
	return strings.EqualFold(op.Op, "add") && strings.EqualFold(op.Path, passwordPath)
}

func (r *SelfAccessRule) tokenMatches(ctx context.Context, targetID, token string) (bool, error) {
	if r.EPersons == nil || r.Registrations == nil {
		return false, nil
	}
	id, ok := parseUUID(targetID)
	if !ok {
		return false, nil
	}

	eperson, err := r.EPersons.GetByID(ctx, id)
	if ok, err := found(err); !ok {
		return err == nil, err
	}

	registration, err := r.Registrations.GetByToken(ctx, token)
	if ok, err := found(err); !ok {
		return false, err
	}
	if time.Now().After(registration.ExpiresAt) {
		return false, nil
	}
	return strings.EqualFold(registration.Email, eperson.Email), nil
}
