package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/services/authz"
)

// ResourcePolicyAdminRule lets administrators of a policy's object manage
// that policy. Unlike the other rules it reports a missing policy as an error,
// which the evaluator logs and treats as a denial.
type ResourcePolicyAdminRule struct {
	Policies PolicyStore
	Admin    *AdminRule
}

func (r *ResourcePolicyAdminRule) Name() string { return "resource-policy-admin" }

func (r *ResourcePolicyAdminRule) Supports(kind permission.Kind, _ permission.Action) bool {
	return kind == permission.KindResourcePolicy
}

func (r *ResourcePolicyAdminRule) Evaluate(ctx context.Context, req permission.Request) (bool, error) {
	if req.Caller.Anonymous() || req.TargetID == "" {
		return false, nil
	}
	if req.Caller.IsAdmin() {
		return true, nil
	}

	policy, err := r.Policies.FindPolicy(ctx, req.TargetID)
	if errors.Is(err, authz.ErrPolicyNotFound) {
		return false, fmt.Errorf("resource policy %s: %w", req.TargetID, err)
	}
	if err != nil {
		return false, err
	}

	kind, id, _ := strings.Cut(policy.Object, ":")
	return r.Admin.Evaluate(ctx, permission.Request{
		Caller:   req.Caller,
		TargetID: id,
		Kind:     permission.ParseKind(kind),
		Action:   permission.ActionAdmin,
	})
}
