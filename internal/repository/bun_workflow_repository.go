package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/uptrace/bun"
)

// BunWorkflowRepository implements WorkflowRepository using Bun ORM
type BunWorkflowRepository struct {
	db *bun.DB
}

// NewBunWorkflowRepository creates a new Bun-based workflow repository
func NewBunWorkflowRepository(db *bun.DB) *BunWorkflowRepository {
	return &BunWorkflowRepository{db: db}
}

// CreateWorkspaceItem inserts an in-progress submission
func (r *BunWorkflowRepository) CreateWorkspaceItem(ctx context.Context, ws *models.WorkspaceItem) error {
	if _, err := r.db.NewInsert().Model(ws).Exec(ctx); err != nil {
		return fmt.Errorf("create workspace item: %w", err)
	}
	return nil
}

// GetWorkspaceItem retrieves a workspace item by id
func (r *BunWorkflowRepository) GetWorkspaceItem(ctx context.Context, id int64) (*models.WorkspaceItem, error) {
	ws := new(models.WorkspaceItem)
	if err := r.db.NewSelect().Model(ws).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "workspace item", strconv.FormatInt(id, 10))
	}
	return ws, nil
}

// CreateWorkflowItem inserts a submission under review
func (r *BunWorkflowRepository) CreateWorkflowItem(ctx context.Context, wf *models.WorkflowItem) error {
	if _, err := r.db.NewInsert().Model(wf).Exec(ctx); err != nil {
		return fmt.Errorf("create workflow item: %w", err)
	}
	return nil
}

// GetWorkflowItem retrieves a workflow item by id
func (r *BunWorkflowRepository) GetWorkflowItem(ctx context.Context, id int64) (*models.WorkflowItem, error) {
	wf := new(models.WorkflowItem)
	if err := r.db.NewSelect().Model(wf).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "workflow item", strconv.FormatInt(id, 10))
	}
	return wf, nil
}

// CreatePoolTask offers a workflow step to an EPerson or group
func (r *BunWorkflowRepository) CreatePoolTask(ctx context.Context, task *models.PoolTask) error {
	if task.EPersonID == nil && task.GroupName == nil {
		return fmt.Errorf("pool task needs an eperson or a group")
	}
	if _, err := r.db.NewInsert().Model(task).Exec(ctx); err != nil {
		return fmt.Errorf("create pool task: %w", err)
	}
	return nil
}

// GetPoolTask retrieves a pool task by id
func (r *BunWorkflowRepository) GetPoolTask(ctx context.Context, id int64) (*models.PoolTask, error) {
	task := new(models.PoolTask)
	if err := r.db.NewSelect().Model(task).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "pool task", strconv.FormatInt(id, 10))
	}
	return task, nil
}

// GetClaimedTask retrieves a claimed task by id
func (r *BunWorkflowRepository) GetClaimedTask(ctx context.Context, id int64) (*models.ClaimedTask, error) {
	task := new(models.ClaimedTask)
	if err := r.db.NewSelect().Model(task).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, notFoundOr(err, "claimed task", strconv.FormatInt(id, 10))
	}
	return task, nil
}

// IsClaimed reports whether any reviewer holds the step
func (r *BunWorkflowRepository) IsClaimed(ctx context.Context, workflowItemID int64, stepID string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.ClaimedTask)(nil)).
		Where("workflowitem_id = ?", workflowItemID).
		Where("step_id = ?", stepID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check claimed task: %w", err)
	}
	return exists, nil
}

// ClaimPoolTask claims the pool task's step for epersonID. The pool task row is
// kept so later checks see it as claimed rather than missing.
func (r *BunWorkflowRepository) ClaimPoolTask(ctx context.Context, poolTaskID int64, epersonID string) (*models.ClaimedTask, error) {
	var claimed *models.ClaimedTask
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		pool := new(models.PoolTask)
		if err := tx.NewSelect().Model(pool).Where("id = ?", poolTaskID).Scan(ctx); err != nil {
			return notFoundOr(err, "pool task", strconv.FormatInt(poolTaskID, 10))
		}

		exists, err := tx.NewSelect().
			Model((*models.ClaimedTask)(nil)).
			Where("workflowitem_id = ?", pool.WorkflowItemID).
			Where("step_id = ?", pool.StepID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check claimed task: %w", err)
		}
		if exists {
			return ErrAlreadyClaimed
		}

		claimed = &models.ClaimedTask{
			WorkflowItemID: pool.WorkflowItemID,
			StepID:         pool.StepID,
			OwnerID:        epersonID,
			ClaimedAt:      time.Now(),
		}
		if _, err := tx.NewInsert().Model(claimed).Returning("id").Exec(ctx); err != nil {
			// The unique index on (workflowitem_id, step_id) catches concurrent claims.
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %v", ErrAlreadyClaimed, err)
			}
			return fmt.Errorf("insert claimed task: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyClaimed) || IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("claim pool task: %w", err)
	}
	return claimed, nil
}
