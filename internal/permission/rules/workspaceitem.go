package rules

import (
	"context"
	"strings"

	"github.com/dspace/dspace-rest/internal/permission"
)

// WorkspaceItemRule lets submitters manage their in-progress submissions and
// follow them once they enter review.
type WorkspaceItemRule struct {
	Workflow WorkflowLookup
}

func (r *WorkspaceItemRule) Name() string { return "workspace-submitter" }

func (r *WorkspaceItemRule) Supports(kind permission.Kind, action permission.Action) bool {
	switch kind {
	case permission.KindWorkspaceItem:
		return action.In(permission.ActionRead, permission.ActionWrite, permission.ActionDelete)
	case permission.KindWorkflowItem:
		return action == permission.ActionRead
	}
	return false
}

func (r *WorkspaceItemRule) Evaluate(ctx context.Context, req permission.Request) (bool, error) {
	if req.Caller.Anonymous() {
		return false, nil
	}
	id, ok := parseInt64(req.TargetID)
	if !ok {
		return false, nil
	}

	var submitter string
	if req.Kind == permission.KindWorkspaceItem {
		ws, err := r.Workflow.GetWorkspaceItem(ctx, id)
		if ok, err := found(err); !ok {
			return err == nil, err
		}
		submitter = ws.SubmitterID
	} else {
		wf, err := r.Workflow.GetWorkflowItem(ctx, id)
		if ok, err := found(err); !ok {
			return err == nil, err
		}
		submitter = wf.SubmitterID
	}
	return strings.EqualFold(submitter, req.Caller.ID()), nil
}
