package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dspace/dspace-rest/internal/db/models"
)

// ErrNotFound is returned (wrapped) when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrAlreadyClaimed is returned when a pool task has already been claimed.
var ErrAlreadyClaimed = errors.New("task already claimed")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// EPersonRepository exposes persistence operations for EPersons.
type EPersonRepository interface {
	Create(ctx context.Context, eperson *models.EPerson) error
	GetByID(ctx context.Context, id string) (*models.EPerson, error)
	GetByEmail(ctx context.Context, email string) (*models.EPerson, error)
	GetByNetID(ctx context.Context, netID string) (*models.EPerson, error)
	Update(ctx context.Context, eperson *models.EPerson) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.EPerson, error)

	SetPasswordHash(ctx context.Context, id string, passwordHash string) error
	SetSessionSalt(ctx context.Context, id string, salt string) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

// GroupRepository exposes group and membership operations. Groups are addressed by name.
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByName(ctx context.Context, name string) (*models.Group, error)
	List(ctx context.Context) ([]models.Group, error)

	AddMember(ctx context.Context, groupName, epersonID string) error
	RemoveMember(ctx context.Context, groupName, epersonID string) error
	GroupNamesForEPerson(ctx context.Context, epersonID string) ([]string, error)
}

// RegistrationRepository stores single-use registration and password-reset tokens.
type RegistrationRepository interface {
	Create(ctx context.Context, data *models.RegistrationData) error
	GetByToken(ctx context.Context, token string) (*models.RegistrationData, error)
	Delete(ctx context.Context, token string) error
}

// ObjectRef identifies a DSpace object by REST kind name and id.
type ObjectRef struct {
	Kind string
	ID   string
}

// String renders the ref as "<kind>:<id>", the form used as a policy object.
func (o ObjectRef) String() string {
	return o.Kind + ":" + o.ID
}

// ResolvedObject is a content object together with its containing scopes.
type ResolvedObject struct {
	Ref ObjectRef
	// Archived is false for items still in submission or workflow.
	Archived bool
	// Attributes are exposed to policy conditions.
	Attributes map[string]any
	// Scopes lists the object itself followed by its containers, nearest first.
	Scopes []ObjectRef
}

// ContentRepository exposes the community/collection/item/bitstream hierarchy.
type ContentRepository interface {
	CreateCommunity(ctx context.Context, community *models.Community) error
	CreateCollection(ctx context.Context, collection *models.Collection) error
	CreateItem(ctx context.Context, item *models.Item) error
	CreateBitstream(ctx context.Context, bitstream *models.Bitstream) error

	GetItem(ctx context.Context, id string) (*models.Item, error)
	GetBitstream(ctx context.Context, id string) (*models.Bitstream, error)
	UpdateItem(ctx context.Context, item *models.Item) error

	// Resolve loads a content object of the given kind. Bundles use "<itemUUID>:<BUNDLE>".
	Resolve(ctx context.Context, kind, id string) (*ResolvedObject, error)
	// CollectionScopes returns the collection followed by its community chain.
	CollectionScopes(ctx context.Context, collectionID string) ([]ObjectRef, error)
}

// WorkflowRepository exposes submissions and review tasks.
type WorkflowRepository interface {
	CreateWorkspaceItem(ctx context.Context, ws *models.WorkspaceItem) error
	GetWorkspaceItem(ctx context.Context, id int64) (*models.WorkspaceItem, error)
	CreateWorkflowItem(ctx context.Context, wf *models.WorkflowItem) error
	GetWorkflowItem(ctx context.Context, id int64) (*models.WorkflowItem, error)

	CreatePoolTask(ctx context.Context, task *models.PoolTask) error
	GetPoolTask(ctx context.Context, id int64) (*models.PoolTask, error)
	GetClaimedTask(ctx context.Context, id int64) (*models.ClaimedTask, error)
	// IsClaimed reports whether the step of the workflow item has been claimed by anyone.
	IsClaimed(ctx context.Context, workflowItemID int64, stepID string) (bool, error)
	// ClaimPoolTask turns a pool task into a claimed task owned by epersonID.
	ClaimPoolTask(ctx context.Context, poolTaskID int64, epersonID string) (*models.ClaimedTask, error)
}

// VersionRepository exposes item version histories.
type VersionRepository interface {
	CreateHistory(ctx context.Context, history *models.VersionHistory) error
	CreateVersion(ctx context.Context, version *models.Version) error
	GetVersion(ctx context.Context, id int64) (*models.Version, error)
	GetHistory(ctx context.Context, id int64) (*models.VersionHistory, error)
	// LatestVersion returns the newest version of a history.
	LatestVersion(ctx context.Context, historyID int64) (*models.Version, error)
}

// SubscriptionRepository exposes notification subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id int64) (*models.Subscription, error)
}

// OrcidRepository exposes the ORCID synchronisation queue and history.
type OrcidRepository interface {
	CreateQueueEntry(ctx context.Context, entry *models.OrcidQueueEntry) error
	GetQueueEntry(ctx context.Context, id int64) (*models.OrcidQueueEntry, error)
	CreateHistoryEntry(ctx context.Context, entry *models.OrcidHistoryEntry) error
	GetHistoryEntry(ctx context.Context, id int64) (*models.OrcidHistoryEntry, error)
}
