package rules

import (
	"context"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/permission"
)

// GroupReadRule lets members read their own groups. Access managers may read
// any group. Groups are addressed by name.
type GroupReadRule struct {
	Groups GroupLookup
}

func (r *GroupReadRule) Name() string { return "group-read" }

func (r *GroupReadRule) Supports(kind permission.Kind, action permission.Action) bool {
	return kind == permission.KindGroup && action == permission.ActionRead
}

func (r *GroupReadRule) Evaluate(ctx context.Context, req permission.Request) (bool, error) {
	if req.Caller.Anonymous() || req.TargetID == "" {
		return false, nil
	}

	group, err := r.Groups.GetByName(ctx, req.TargetID)
	if ok, err := found(err); !ok {
		return err == nil, err
	}

	if req.Caller.Principal.HasAuthority(auth.AuthorityManageAccessGroup) {
		return true, nil
	}
	return req.Caller.InGroup(group.Name), nil
}
