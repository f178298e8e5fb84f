package rules

import (
	"context"

	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/dspace/dspace-rest/internal/permission"
)

// VersionHistoryRule lets authenticated users read a version when they can
// read its item, and a version history when they can read the item of its
// latest version. When AdminOnly is set it grants nothing and leaves the
// decision to AdminRule.
type VersionHistoryRule struct {
	Versions  VersionLookup
	Content   ContentResolver
	Policies  PolicyStore
	AdminOnly bool
}

func (r *VersionHistoryRule) Name() string { return "version-history" }

func (r *VersionHistoryRule) Supports(kind permission.Kind, action permission.Action) bool {
	return (kind == permission.KindVersion || kind == permission.KindVersionHistory) &&
		action == permission.ActionRead
}

func (r *VersionHistoryRule) Evaluate(ctx context.Context, req permission.Request) (bool, error) {
	if req.Caller.Anonymous() || r.AdminOnly {
		return false, nil
	}
	id, ok := parseInt64(req.TargetID)
	if !ok {
		return false, nil
	}

	var version *models.Version
	var err error
	if req.Kind == permission.KindVersion {
		version, err = r.Versions.GetVersion(ctx, id)
	} else {
		if _, err = r.Versions.GetHistory(ctx, id); err == nil {
			version, err = r.Versions.LatestVersion(ctx, id)
		}
	}
	// missing targets fall through so the handler answers 404
	if ok, err := found(err); !ok {
		return err == nil, err
	}

	item, err := r.Content.Resolve(ctx, permission.KindItem.String(), version.ItemID)
	if ok, err := found(err); !ok {
		return err == nil, err
	}
	return r.Policies.Authorize(ctx, req.Caller.Subjects(), item.Ref.String(), permission.ActionRead.String(), item.Attributes)
}
