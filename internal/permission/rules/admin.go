package rules

import (
	"context"
	"fmt"

	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/repository"
)

// AdminRule grants every action on every kind to repository administrators.
// Administrators of a community or collection are granted the content,
// submissions, tasks and versions it contains.
type AdminRule struct {
	Content  ContentResolver
	Workflow WorkflowLookup
	Versions VersionLookup
	Policies PolicyStore
}

func (r *AdminRule) Name() string { return "admin" }

func (r *AdminRule) Supports(kind permission.Kind, _ permission.Action) bool {
	return kind.Valid()
}

func (r *AdminRule) Evaluate(ctx context.Context, req permission.Request) (bool, error) {
	if req.Caller.Anonymous() {
		return false, nil
	}
	if req.Caller.IsAdmin() {
		return true, nil
	}

	scopes, ok, err := r.scopes(ctx, req.Kind, req.TargetID)
	if err != nil || !ok {
		return false, err
	}
	if scopes == nil {
		return true, nil
	}

	keys := make([]string, 0, len(scopes))
	for _, s := range scopes {
		keys = append(keys, s.String())
	}
	return r.Policies.IsAdmin(ctx, req.Caller.Subjects(), keys)
}

// scopes returns the administrative scopes of the target. ok=false means the
// id could not be parsed; a nil slice with ok=true means the target is missing.
func (r *AdminRule) scopes(ctx context.Context, kind permission.Kind, targetID string) ([]repository.ObjectRef, bool, error) {
	if kind.IsContent() {
		id, ok := contentID(kind, targetID)
		if !ok {
			return nil, false, nil
		}
		return r.resolve(ctx, kind.String(), id)
	}

	switch kind {
	case permission.KindVersion, permission.KindWorkspaceItem, permission.KindWorkflowItem,
		permission.KindPoolTask, permission.KindClaimedTask:
	default:
		// version histories span items; only repository administrators manage them
		return nil, false, nil
	}

	if kind == permission.KindVersion {
		id, ok := parseInt64(targetID)
		if !ok {
			return nil, false, nil
		}
		version, err := r.Versions.GetVersion(ctx, id)
		if ok, err := found(err); !ok {
			return nil, err == nil, err
		}
		return r.resolve(ctx, permission.KindItem.String(), version.ItemID)
	}

	id, ok := parseInt64(targetID)
	if !ok {
		return nil, false, nil
	}

	collectionID, err := r.collectionOf(ctx, kind, id)
	if ok, err := found(err); !ok {
		return nil, err == nil, err
	}
	scopes, err := r.Content.CollectionScopes(ctx, collectionID)
	if ok, err := found(err); !ok {
		return nil, err == nil, err
	}
	return scopes, true, nil
}

func (r *AdminRule) resolve(ctx context.Context, kind, id string) ([]repository.ObjectRef, bool, error) {
	obj, err := r.Content.Resolve(ctx, kind, id)
	if ok, err := found(err); !ok {
		return nil, err == nil, err
	}
	return obj.Scopes, true, nil
}

// collectionOf follows tasks and submissions to the collection they belong to.
func (r *AdminRule) collectionOf(ctx context.Context, kind permission.Kind, id int64) (string, error) {
	var workflowItemID int64
	switch kind {
	case permission.KindWorkspaceItem:
		ws, err := r.Workflow.GetWorkspaceItem(ctx, id)
		if err != nil {
			return "", err
		}
		return ws.CollectionID, nil
	case permission.KindWorkflowItem:
		workflowItemID = id
	case permission.KindPoolTask:
		task, err := r.Workflow.GetPoolTask(ctx, id)
		if err != nil {
			return "", err
		}
		workflowItemID = task.WorkflowItemID
	case permission.KindClaimedTask:
		task, err := r.Workflow.GetClaimedTask(ctx, id)
		if err != nil {
			return "", err
		}
		workflowItemID = task.WorkflowItemID
	default:
		return "", fmt.Errorf("admin scopes: unsupported kind %s", kind)
	}

	wf, err := r.Workflow.GetWorkflowItem(ctx, workflowItemID)
	if err != nil {
		return "", err
	}
	return wf.CollectionID, nil
}
