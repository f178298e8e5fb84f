package rules

import (
	"context"
	"strings"

	"github.com/dspace/dspace-rest/internal/permission"
)

// ResourcePolicyRule delegates content objects to their resource policies.
// It is one of the two rules that can allow anonymous callers, who act as the
// Anonymous group plus any special groups. Items that are still in submission
// or workflow only accept READ through this rule.
type ResourcePolicyRule struct {
	Content  ContentResolver
	Policies PolicyStore
}

func (r *ResourcePolicyRule) Name() string { return "resource-policy" }

func (r *ResourcePolicyRule) Supports(kind permission.Kind, _ permission.Action) bool {
	return kind.IsContent()
}

func (r *ResourcePolicyRule) Evaluate(ctx context.Context, req permission.Request) (bool, error) {
	id, ok := contentID(req.Kind, req.TargetID)
	if !ok {
		return false, nil
	}

	obj, err := r.Content.Resolve(ctx, req.Kind.String(), id)
	if ok, err := found(err); !ok {
		return err == nil, err
	}

	if !obj.Archived && req.Action != permission.ActionRead {
		switch req.Kind {
		case permission.KindItem, permission.KindBundle, permission.KindBitstream:
			return false, nil
		}
	}

	return r.Policies.Authorize(ctx, req.Caller.Subjects(), obj.Ref.String(), req.Action.String(), obj.Attributes)
}

// contentID normalises a content target id. Bundles use "<itemUUID>:<bundle>";
// the site accepts any non-empty id.
func contentID(kind permission.Kind, id string) (string, bool) {
	switch kind {
	case permission.KindSite:
		return id, id != ""
	case permission.KindBundle:
		itemID, bundle, ok := strings.Cut(id, ":")
		if !ok || bundle == "" {
			return "", false
		}
		itemID, ok = parseUUID(itemID)
		return itemID + ":" + strings.ToUpper(bundle), ok
	default:
		return parseUUID(id)
	}
}
