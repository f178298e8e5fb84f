package rules

import (
	"context"
	"fmt"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/dspace/dspace-rest/internal/repository"
	"github.com/dspace/dspace-rest/internal/services/authz"
)

const (
	aliceID = "0190c6a4-0000-7000-8000-0000000000a1"
	bobID   = "0190c6a4-0000-7000-8000-0000000000b2"
	carolID = "0190c6a4-0000-7000-8000-0000000000c3"
	adminID = "0190c6a4-0000-7000-8000-0000000000ad"

	communityID  = "0190c6a4-0000-7000-8000-00000000c001"
	collectionID = "0190c6a4-0000-7000-8000-00000000c002"
	itemID       = "0190c6a4-0000-7000-8000-00000000c003"
	draftID      = "0190c6a4-0000-7000-8000-00000000c004"
	missingID    = "0190c6a4-0000-7000-8000-00000000dead"
)

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, repository.ErrNotFound)
}

func user(id string, groups ...string) auth.Caller {
	return auth.Caller{Principal: &auth.Principal{
		ID:          id,
		Authorities: auth.AuthoritiesFor(false, false),
		Groups:      groups,
	}}
}

func siteAdmin() auth.Caller {
	return auth.Caller{Principal: &auth.Principal{
		ID:          adminID,
		Authorities: auth.AuthoritiesFor(true, false),
		Groups:      []string{auth.GroupAdministrator},
	}}
}

var anonymous = auth.Caller{}

// fakeContent resolves objects from a map keyed by "kind:id".
type fakeContent struct {
	objects     map[string]*repository.ResolvedObject
	collections map[string][]repository.ObjectRef
	items       map[string]*models.Item
	err         error
}

func (f *fakeContent) Resolve(_ context.Context, kind, id string) (*repository.ResolvedObject, error) {
	if f.err != nil {
		return nil, f.err
	}
	obj, ok := f.objects[kind+":"+id]
	if !ok {
		return nil, notFound(kind, id)
	}
	return obj, nil
}

func (f *fakeContent) CollectionScopes(_ context.Context, id string) ([]repository.ObjectRef, error) {
	scopes, ok := f.collections[id]
	if !ok {
		return nil, notFound("collection", id)
	}
	return scopes, nil
}

func (f *fakeContent) GetItem(_ context.Context, id string) (*models.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, notFound("item", id)
	}
	return item, nil
}

// newFakeContent seeds a community > collection > {archived item, draft item} tree.
func newFakeContent() *fakeContent {
	chain := []repository.ObjectRef{{Kind: "collection", ID: collectionID}, {Kind: "community", ID: communityID}}
	itemScopes := append([]repository.ObjectRef{{Kind: "item", ID: itemID}}, chain...)
	draftScopes := append([]repository.ObjectRef{{Kind: "item", ID: draftID}}, chain...)
	return &fakeContent{
		objects: map[string]*repository.ResolvedObject{
			"item:" + itemID: {
				Ref: repository.ObjectRef{Kind: "item", ID: itemID}, Archived: true,
				Attributes: map[string]any{"in_archive": true}, Scopes: itemScopes,
			},
			"item:" + draftID: {
				Ref: repository.ObjectRef{Kind: "item", ID: draftID}, Archived: false,
				Attributes: map[string]any{"in_archive": false}, Scopes: draftScopes,
			},
			"collection:" + collectionID: {
				Ref: chain[0], Archived: true, Attributes: map[string]any{}, Scopes: chain,
			},
		},
		collections: map[string][]repository.ObjectRef{collectionID: chain},
		items: map[string]*models.Item{
			itemID: {ID: itemID, Metadata: models.Metadata{
				models.MetadataOwnerField: {{Value: "Alice", Authority: aliceID}},
			}},
		},
	}
}

// fakePolicies grants actions by "subject|object|action" and admin by "subject|scope".
type fakePolicies struct {
	grants   map[string]bool
	admins   map[string]bool
	policies map[string]*authz.Policy
	err      error
}

func newFakePolicies() *fakePolicies {
	return &fakePolicies{grants: map[string]bool{}, admins: map[string]bool{}, policies: map[string]*authz.Policy{}}
}

func (f *fakePolicies) grant(subject, object, action string) { f.grants[subject+"|"+object+"|"+action] = true }
func (f *fakePolicies) admin(subject, scope string)          { f.admins[subject+"|"+scope] = true }

func (f *fakePolicies) Authorize(_ context.Context, subjects []string, object, action string, _ map[string]any) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, s := range subjects {
		if f.grants[s+"|"+object+"|"+action] || f.grants[s+"|"+object+"|ADMIN"] {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePolicies) IsAdmin(_ context.Context, subjects []string, scopes []string) (bool, error) {
	for _, s := range subjects {
		for _, scope := range scopes {
			if f.admins[s+"|"+scope] {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakePolicies) FindPolicy(_ context.Context, id string) (*authz.Policy, error) {
	p, ok := f.policies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", authz.ErrPolicyNotFound, id)
	}
	return p, nil
}

type fakeEPersons map[string]*models.EPerson

func (f fakeEPersons) GetByID(_ context.Context, id string) (*models.EPerson, error) {
	e, ok := f[id]
	if !ok {
		return nil, notFound("eperson", id)
	}
	return e, nil
}

type fakeRegistrations map[string]*models.RegistrationData

func (f fakeRegistrations) GetByToken(_ context.Context, token string) (*models.RegistrationData, error) {
	r, ok := f[token]
	if !ok {
		return nil, notFound("registration", token)
	}
	return r, nil
}

type fakeGroups map[string]*models.Group

func (f fakeGroups) GetByName(_ context.Context, name string) (*models.Group, error) {
	g, ok := f[name]
	if !ok {
		return nil, notFound("group", name)
	}
	return g, nil
}

type fakeWorkflow struct {
	workspace map[int64]*models.WorkspaceItem
	workflow  map[int64]*models.WorkflowItem
	pool      map[int64]*models.PoolTask
	claimed   map[int64]*models.ClaimedTask
	err       error
}

func newFakeWorkflow() *fakeWorkflow {
	return &fakeWorkflow{
		workspace: map[int64]*models.WorkspaceItem{},
		workflow:  map[int64]*models.WorkflowItem{},
		pool:      map[int64]*models.PoolTask{},
		claimed:   map[int64]*models.ClaimedTask{},
	}
}

func (f *fakeWorkflow) GetWorkspaceItem(_ context.Context, id int64) (*models.WorkspaceItem, error) {
	if ws, ok := f.workspace[id]; ok {
		return ws, nil
	}
	return nil, notFound("workspaceitem", id)
}

func (f *fakeWorkflow) GetWorkflowItem(_ context.Context, id int64) (*models.WorkflowItem, error) {
	if wf, ok := f.workflow[id]; ok {
		return wf, nil
	}
	return nil, notFound("workflowitem", id)
}

func (f *fakeWorkflow) GetPoolTask(_ context.Context, id int64) (*models.PoolTask, error) {
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.pool[id]; ok {
		return t, nil
	}
	return nil, notFound("pooltask", id)
}

func (f *fakeWorkflow) GetClaimedTask(_ context.Context, id int64) (*models.ClaimedTask, error) {
	if t, ok := f.claimed[id]; ok {
		return t, nil
	}
	return nil, notFound("claimedtask", id)
}

func (f *fakeWorkflow) IsClaimed(_ context.Context, workflowItemID int64, stepID string) (bool, error) {
	for _, t := range f.claimed {
		if t.WorkflowItemID == workflowItemID && t.StepID == stepID {
			return true, nil
		}
	}
	return false, nil
}

// claim mimics the repository: the pool task stays, a claimed task is added.
func (f *fakeWorkflow) claim(poolID int64, owner string) int64 {
	pool := f.pool[poolID]
	id := int64(len(f.claimed) + 100)
	f.claimed[id] = &models.ClaimedTask{ID: id, WorkflowItemID: pool.WorkflowItemID, StepID: pool.StepID, OwnerID: owner}
	return id
}

type fakeVersions struct {
	versions  map[int64]*models.Version
	histories map[int64]*models.VersionHistory
}

func (f fakeVersions) GetVersion(_ context.Context, id int64) (*models.Version, error) {
	if v, ok := f.versions[id]; ok {
		return v, nil
	}
	return nil, notFound("version", id)
}

func (f fakeVersions) GetHistory(_ context.Context, id int64) (*models.VersionHistory, error) {
	if h, ok := f.histories[id]; ok {
		return h, nil
	}
	return nil, notFound("versionhistory", id)
}

func (f fakeVersions) LatestVersion(_ context.Context, historyID int64) (*models.Version, error) {
	var latest *models.Version
	for _, v := range f.versions {
		if v.HistoryID == historyID && (latest == nil || v.Number > latest.Number) {
			latest = v
		}
	}
	if latest == nil {
		return nil, notFound("versionhistory", historyID)
	}
	return latest, nil
}

type fakeSubscriptions map[int64]*models.Subscription

func (f fakeSubscriptions) GetByID(_ context.Context, id int64) (*models.Subscription, error) {
	if s, ok := f[id]; ok {
		return s, nil
	}
	return nil, notFound("subscription", id)
}

type fakeOrcid struct {
	queue   map[int64]*models.OrcidQueueEntry
	history map[int64]*models.OrcidHistoryEntry
}

func (f fakeOrcid) GetQueueEntry(_ context.Context, id int64) (*models.OrcidQueueEntry, error) {
	if e, ok := f.queue[id]; ok {
		return e, nil
	}
	return nil, notFound("orcidqueue", id)
}

func (f fakeOrcid) GetHistoryEntry(_ context.Context, id int64) (*models.OrcidHistoryEntry, error) {
	if e, ok := f.history[id]; ok {
		return e, nil
	}
	return nil, notFound("orcidhistory", id)
}

func ptr[T any](v T) *T { return &v }

