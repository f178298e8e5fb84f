package rules

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"

	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/dspace/dspace-rest/internal/repository"
	"github.com/dspace/dspace-rest/internal/services/authz"
)

// ContentResolver resolves content objects and their containing scopes.
type ContentResolver interface {
	Resolve(ctx context.Context, kind, id string) (*repository.ResolvedObject, error)
	CollectionScopes(ctx context.Context, collectionID string) ([]repository.ObjectRef, error)
}

// ItemLookup loads items.
type ItemLookup interface {
	GetItem(ctx context.Context, id string) (*models.Item, error)
}

// PolicyStore is the resource-policy service.
type PolicyStore interface {
	Authorize(ctx context.Context, subjects []string, object, action string, attrs map[string]any) (bool, error)
	IsAdmin(ctx context.Context, subjects []string, scopes []string) (bool, error)
	FindPolicy(ctx context.Context, id string) (*authz.Policy, error)
}

// EPersonLookup loads EPersons.
type EPersonLookup interface {
	GetByID(ctx context.Context, id string) (*models.EPerson, error)
}

// GroupLookup loads groups by name.
type GroupLookup interface {
	GetByName(ctx context.Context, name string) (*models.Group, error)
}

// RegistrationLookup validates registration tokens.
type RegistrationLookup interface {
	GetByToken(ctx context.Context, token string) (*models.RegistrationData, error)
}

// WorkflowLookup loads submissions and review tasks.
type WorkflowLookup interface {
	GetWorkspaceItem(ctx context.Context, id int64) (*models.WorkspaceItem, error)
	GetWorkflowItem(ctx context.Context, id int64) (*models.WorkflowItem, error)
	GetPoolTask(ctx context.Context, id int64) (*models.PoolTask, error)
	GetClaimedTask(ctx context.Context, id int64) (*models.ClaimedTask, error)
	IsClaimed(ctx context.Context, workflowItemID int64, stepID string) (bool, error)
}

// VersionLookup loads versions and version histories.
type VersionLookup interface {
	GetVersion(ctx context.Context, id int64) (*models.Version, error)
	GetHistory(ctx context.Context, id int64) (*models.VersionHistory, error)
	LatestVersion(ctx context.Context, historyID int64) (*models.Version, error)
}

// SubscriptionLookup loads subscriptions.
type SubscriptionLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Subscription, error)
}

// OrcidLookup loads ORCID queue and history entries.
type OrcidLookup interface {
	GetQueueEntry(ctx context.Context, id int64) (*models.OrcidQueueEntry, error)
	GetHistoryEntry(ctx context.Context, id int64) (*models.OrcidHistoryEntry, error)
}

// found turns a lookup error into (found, err): a not-found error is a clean miss.
func found(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if repository.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func parseUUID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

func parseInt64(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// errNotApplicable marks a target id the rule cannot parse.
var errNotApplicable = errors.New("target id not applicable")
