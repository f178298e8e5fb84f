package models

import (
	"time"

	"github.com/uptrace/bun"
)

// WorkspaceItem is a submission still being edited by its submitter.
type WorkspaceItem struct {
	bun.BaseModel `bun:"table:workspaceitems,alias:ws"`

	ID           int64     `bun:"id,pk,autoincrement"`
	ItemID       string    `bun:"item_id,notnull,type:uuid"`
	CollectionID string    `bun:"collection_id,notnull,type:uuid"`
	SubmitterID  string    `bun:"submitter_id,notnull,type:uuid"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// WorkflowItem is a submission under review.
type WorkflowItem struct {
	bun.BaseModel `bun:"table:workflowitems,alias:wf"`

	ID           int64     `bun:"id,pk,autoincrement"`
	ItemID       string    `bun:"item_id,notnull,type:uuid"`
	CollectionID string    `bun:"collection_id,notnull,type:uuid"`
	SubmitterID  string    `bun:"submitter_id,notnull,type:uuid"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PoolTask offers a workflow step to an EPerson or to every member of a group.
type PoolTask struct {
	bun.BaseModel `bun:"table:pooltasks,alias:pt"`

	ID             int64   `bun:"id,pk,autoincrement"`
	WorkflowItemID int64   `bun:"workflowitem_id,notnull"`
	StepID         string  `bun:"step_id,notnull"`
	EPersonID      *string `bun:"eperson_id,type:uuid"`
	GroupName      *string `bun:"group_name"`
}

// ClaimedTask is a workflow step taken by a single reviewer.
type ClaimedTask struct {
	bun.BaseModel `bun:"table:claimedtasks,alias:ct"`

	ID             int64     `bun:"id,pk,autoincrement"`
	WorkflowItemID int64     `bun:"workflowitem_id,notnull"`
	StepID         string    `bun:"step_id,notnull"`
	OwnerID        string    `bun:"owner_id,notnull,type:uuid"`
	ClaimedAt      time.Time `bun:"claimed_at,notnull,default:current_timestamp"`
}
