package rules

import (
	"context"
	"strings"

	"github.com/dspace/dspace-rest/internal/permission"
)

// TaskClaimRule lets reviewers act on workflow tasks. A claimed task belongs
// to its owner alone. A pool task is open to the EPerson or group it was
// offered to until someone claims that step.
type TaskClaimRule struct {
	Workflow WorkflowLookup
}

func (r *TaskClaimRule) Name() string { return "task-claim" }

func (r *TaskClaimRule) Supports(kind permission.Kind, _ permission.Action) bool {
	return kind == permission.KindPoolTask || kind == permission.KindClaimedTask
}

func (r *TaskClaimRule) Evaluate(ctx context.Context, req permission.Request) (bool, error) {
	if req.Caller.Anonymous() {
		return false, nil
	}
	id, ok := parseInt64(req.TargetID)
	if !ok {
		return false, nil
	}

	if req.Kind == permission.KindClaimedTask {
		task, err := r.Workflow.GetClaimedTask(ctx, id)
		if ok, err := found(err); !ok {
			return err == nil, err
		}
		return strings.EqualFold(task.OwnerID, req.Caller.ID()), nil
	}

	task, err := r.Workflow.GetPoolTask(ctx, id)
	if ok, err := found(err); !ok {
		return err == nil, err
	}

	claimed, err := r.Workflow.IsClaimed(ctx, task.WorkflowItemID, task.StepID)
	if err != nil {
		return false, err
	}
	if claimed {
		return false, nil
	}

	if task.EPersonID != nil && strings.EqualFold(*task.EPersonID, req.Caller.ID()) {
		return true, nil
	}
	return task.GroupName != nil && req.Caller.InGroup(*task.GroupName), nil
}
