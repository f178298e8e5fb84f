package rules

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/services/authz"
)

func req(caller auth.Caller, kind permission.Kind, id string, action permission.Action) permission.Request {
	return permission.Request{Caller: caller, Kind: kind, TargetID: id, Action: action}
}

func eval(t *testing.T, rule permission.Rule, r permission.Request) bool {
	t.Helper()
	if !rule.Supports(r.Kind, r.Action) {
		return false
	}
	ok, err := rule.Evaluate(context.Background(), r)
	require.NoError(t, err)
	return ok
}

func TestSelfAccessRule(t *testing.T) {
	rule := &SelfAccessRule{}
	alice := user(aliceID)

	for _, action := range []permission.Action{permission.ActionRead, permission.ActionWrite, permission.ActionDelete} {
		assert.True(t, eval(t, rule, req(alice, permission.KindEPerson, aliceID, action)), action)
		assert.True(t, eval(t, rule, req(alice, permission.KindResearcherProfile, aliceID, action)), action)
		assert.False(t, eval(t, rule, req(alice, permission.KindEPerson, bobID, action)), action)
	}

	assert.False(t, rule.Supports(permission.KindEPerson, permission.ActionAdmin))
	assert.False(t, eval(t, rule, req(anonymous, permission.KindEPerson, aliceID, permission.ActionRead)))
	assert.False(t, eval(t, rule, req(alice, permission.KindEPerson, "not-a-uuid", permission.ActionRead)))
}

func TestSelfAccessRule_Patch(t *testing.T) {
	rule := &SelfAccessRule{
		EPersons: fakeEPersons{aliceID: {ID: aliceID, Email: "alice@example.org"}},
		Registrations: fakeRegistrations{
			"good":    {Token: "good", Email: "ALICE@example.org", ExpiresAt: time.Now().Add(time.Hour)},
			"other":   {Token: "other", Email: "bob@example.org", ExpiresAt: time.Now().Add(time.Hour)},
			"expired": {Token: "expired", Email: "alice@example.org", ExpiresAt: time.Now().Add(-time.Hour)},
		},
	}
	ctx := context.Background()
	alice := user(aliceID)

	password := permission.Patch{Operations: []permission.PatchOperation{{Op: "add", Path: "/password", Value: "s3cret"}}}
	email := permission.Patch{Operations: []permission.PatchOperation{{Op: "replace", Path: "/email"}}}

	ok, err := rule.EvaluatePatch(ctx, req(alice, permission.KindEPerson, aliceID, permission.ActionWrite), password)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rule.EvaluatePatch(ctx, req(alice, permission.KindEPerson, aliceID, permission.ActionWrite), email)
	require.NoError(t, err)
	assert.False(t, ok, "only password changes are allowed on self")

	ok, err = rule.EvaluatePatch(ctx, req(anonymous, permission.KindEPerson, aliceID, permission.ActionWrite), password)
	require.NoError(t, err)
	assert.False(t, ok, "anonymous without token")

	tests := []struct {
		token string
		want  bool
	}{
		{"good", true},
		{"other", false},
		{"expired", false},
		{"unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			p := password
			p.Token = tt.token
			ok, err := rule.EvaluatePatch(ctx, req(anonymous, permission.KindEPerson, aliceID, permission.ActionWrite), p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestResourcePolicyRule(t *testing.T) {
	content := newFakeContent()
	policies := newFakePolicies()
	policies.grant("group:Anonymous", "item:"+itemID, "READ")
	policies.grant("eperson:"+aliceID, "item:"+itemID, "WRITE")
	policies.grant("eperson:"+aliceID, "item:"+draftID, "ADMIN")
	policies.grant("group:Campus", "collection:"+collectionID, "READ")
	rule := &ResourcePolicyRule{Content: content, Policies: policies}

	alice := user(aliceID)
	assert.True(t, eval(t, rule, req(anonymous, permission.KindItem, itemID, permission.ActionRead)))
	assert.False(t, eval(t, rule, req(anonymous, permission.KindItem, itemID, permission.ActionWrite)))
	assert.True(t, eval(t, rule, req(alice, permission.KindItem, itemID, permission.ActionWrite)))

	t.Run("in-progress items are read only", func(t *testing.T) {
		assert.True(t, eval(t, rule, req(alice, permission.KindItem, draftID, permission.ActionRead)))
		assert.False(t, eval(t, rule, req(alice, permission.KindItem, draftID, permission.ActionWrite)))
	})

	t.Run("special groups count for anonymous callers", func(t *testing.T) {
		campus := auth.Caller{SpecialGroups: []string{"Campus"}}
		assert.True(t, eval(t, rule, req(campus, permission.KindCollection, collectionID, permission.ActionRead)))
		assert.False(t, eval(t, rule, req(anonymous, permission.KindCollection, collectionID, permission.ActionRead)))
	})

	t.Run("missing object defers", func(t *testing.T) {
		assert.True(t, eval(t, rule, req(anonymous, permission.KindItem, missingID, permission.ActionDelete)))
	})

	t.Run("malformed id is not applicable", func(t *testing.T) {
		assert.False(t, eval(t, rule, req(alice, permission.KindItem, "42", permission.ActionRead)))
		assert.False(t, eval(t, rule, req(alice, permission.KindBundle, itemID, permission.ActionRead)))
	})

	t.Run("datastore errors surface", func(t *testing.T) {
		broken := &ResourcePolicyRule{Content: &fakeContent{err: errors.New("connection refused")}, Policies: policies}
		ok, err := broken.Evaluate(context.Background(), req(alice, permission.KindItem, itemID, permission.ActionRead))
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestAdminRule(t *testing.T) {
	content := newFakeContent()
	policies := newFakePolicies()
	policies.admin("group:CollectionAdmins", "collection:"+collectionID)

	workflow := newFakeWorkflow()
	workflow.workspace[1] = &models.WorkspaceItem{ID: 1, ItemID: draftID, CollectionID: collectionID, SubmitterID: aliceID}
	workflow.workflow[2] = &models.WorkflowItem{ID: 2, ItemID: draftID, CollectionID: collectionID, SubmitterID: aliceID}
	workflow.pool[3] = &models.PoolTask{ID: 3, WorkflowItemID: 2, StepID: "review", GroupName: ptr("Reviewers")}

	versions := fakeVersions{versions: map[int64]*models.Version{7: {ID: 7, HistoryID: 1, ItemID: itemID}}}
	rule := &AdminRule{Content: content, Workflow: workflow, Versions: versions, Policies: policies}

	collAdmin := user(bobID, "CollectionAdmins")
	stranger := user(carolID)

	tests := []struct {
		name string
		kind permission.Kind
		id   string
	}{
		{"item", permission.KindItem, itemID},
		{"collection", permission.KindCollection, collectionID},
		{"workspace item", permission.KindWorkspaceItem, "1"},
		{"workflow item", permission.KindWorkflowItem, "2"},
		{"pool task", permission.KindPoolTask, "3"},
		{"version", permission.KindVersion, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, eval(t, rule, req(siteAdmin(), tt.kind, tt.id, permission.ActionDelete)))
			assert.True(t, eval(t, rule, req(collAdmin, tt.kind, tt.id, permission.ActionDelete)))
			assert.False(t, eval(t, rule, req(stranger, tt.kind, tt.id, permission.ActionDelete)))
			assert.False(t, eval(t, rule, req(anonymous, tt.kind, tt.id, permission.ActionRead)))
		})
	}

	assert.True(t, eval(t, rule, req(stranger, permission.KindItem, missingID, permission.ActionWrite)))
	assert.True(t, eval(t, rule, req(stranger, permission.KindWorkspaceItem, "99", permission.ActionWrite)))
	assert.False(t, eval(t, rule, req(collAdmin, permission.KindVersionHistory, "1", permission.ActionRead)))
	assert.True(t, eval(t, rule, req(siteAdmin(), permission.KindVersionHistory, "1", permission.ActionRead)))

	assert.True(t, rule.Supports(permission.KindEPerson, permission.ActionRead))
	assert.True(t, eval(t, rule, req(siteAdmin(), permission.KindEPerson, aliceID, permission.ActionDelete)))
	assert.False(t, eval(t, rule, req(collAdmin, permission.KindEPerson, aliceID, permission.ActionRead)))
	assert.False(t, eval(t, rule, req(collAdmin, permission.KindGroup, "Reviewers", permission.ActionRead)))
}

func TestTaskClaimRule(t *testing.T) {
	workflow := newFakeWorkflow()
	workflow.pool[1] = &models.PoolTask{ID: 1, WorkflowItemID: 10, StepID: "review", GroupName: ptr("Reviewers")}
	workflow.pool[2] = &models.PoolTask{ID: 2, WorkflowItemID: 11, StepID: "edit", EPersonID: ptr(carolID)}
	rule := &TaskClaimRule{Workflow: workflow}

	reviewerA := user(aliceID, "Reviewers")
	reviewerB := user(bobID, "Reviewers")
	outsider := user(carolID)

	assert.True(t, eval(t, rule, req(reviewerA, permission.KindPoolTask, "1", permission.ActionWrite)))
	assert.True(t, eval(t, rule, req(reviewerB, permission.KindPoolTask, "1", permission.ActionWrite)))
	assert.False(t, eval(t, rule, req(outsider, permission.KindPoolTask, "1", permission.ActionWrite)))
	assert.True(t, eval(t, rule, req(outsider, permission.KindPoolTask, "2", permission.ActionWrite)))
	assert.False(t, eval(t, rule, req(anonymous, permission.KindPoolTask, "1", permission.ActionRead)))

	t.Run("special groups reach the pool", func(t *testing.T) {
		viaIP := auth.Caller{Principal: outsider.Principal, SpecialGroups: []string{"Reviewers"}}
		assert.True(t, eval(t, rule, req(viaIP, permission.KindPoolTask, "1", permission.ActionRead)))
	})

	t.Run("claim transfers the task to one reviewer", func(t *testing.T) {
		claimedID := strconv.FormatInt(workflow.claim(1, aliceID), 10)

		assert.True(t, eval(t, rule, req(reviewerA, permission.KindClaimedTask, claimedID, permission.ActionWrite)))
		assert.False(t, eval(t, rule, req(reviewerB, permission.KindClaimedTask, claimedID, permission.ActionWrite)))
		assert.False(t, eval(t, rule, req(reviewerA, permission.KindPoolTask, "1", permission.ActionWrite)))
		assert.False(t, eval(t, rule, req(reviewerB, permission.KindPoolTask, "1", permission.ActionWrite)))
	})

	assert.True(t, eval(t, rule, req(outsider, permission.KindPoolTask, "404", permission.ActionRead)))
	assert.False(t, eval(t, rule, req(outsider, permission.KindPoolTask, "abc", permission.ActionRead)))

	workflow.err = errors.New("timeout")
	_, err := rule.Evaluate(context.Background(), req(reviewerA, permission.KindPoolTask, "1", permission.ActionRead))
	assert.Error(t, err)
}

func TestAlwaysAllowRule(t *testing.T) {
	rule := AlwaysAllowRule{}
	for _, kind := range []permission.Kind{permission.KindSubmissionDefinition, permission.KindSubmissionForm, permission.KindSubmissionSection} {
		assert.True(t, eval(t, rule, req(anonymous, kind, "traditional", permission.ActionRead)), kind)
		assert.False(t, eval(t, rule, req(siteAdmin(), kind, "traditional", permission.ActionWrite)), kind)
	}
	assert.False(t, eval(t, rule, req(anonymous, permission.KindItem, itemID, permission.ActionRead)))
}

func TestVersionHistoryRule(t *testing.T) {
	versions := fakeVersions{
		versions: map[int64]*models.Version{
			7: {ID: 7, HistoryID: 1, ItemID: itemID, Number: 1},
			8: {ID: 8, HistoryID: 2, ItemID: draftID, Number: 1},
			9: {ID: 9, HistoryID: 3, ItemID: missingID, Number: 1},
		},
		histories: map[int64]*models.VersionHistory{1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3}, 4: {ID: 4}},
	}
	policies := newFakePolicies()
	policies.grant("eperson:"+aliceID, "item:"+itemID, "READ")
	alice, bob := user(aliceID), user(bobID)

	open := &VersionHistoryRule{Versions: versions, Content: newFakeContent(), Policies: policies}
	assert.True(t, eval(t, open, req(alice, permission.KindVersion, "7", permission.ActionRead)))
	assert.True(t, eval(t, open, req(alice, permission.KindVersionHistory, "1", permission.ActionRead)))
	assert.False(t, eval(t, open, req(bob, permission.KindVersion, "7", permission.ActionRead)))
	assert.False(t, eval(t, open, req(bob, permission.KindVersionHistory, "1", permission.ActionRead)))
	assert.False(t, eval(t, open, req(alice, permission.KindVersion, "8", permission.ActionRead)))
	assert.False(t, eval(t, open, req(alice, permission.KindVersionHistory, "2", permission.ActionRead)))
	assert.False(t, eval(t, open, req(anonymous, permission.KindVersion, "7", permission.ActionRead)))
	assert.False(t, eval(t, open, req(alice, permission.KindVersion, "7", permission.ActionWrite)))

	// Missing versions, empty histories and dangling items are left to the 404.
	assert.True(t, eval(t, open, req(bob, permission.KindVersion, "99", permission.ActionRead)))
	assert.True(t, eval(t, open, req(bob, permission.KindVersionHistory, "4", permission.ActionRead)))
	assert.True(t, eval(t, open, req(bob, permission.KindVersion, "9", permission.ActionRead)))

	adminOnly := &VersionHistoryRule{Versions: versions, Content: newFakeContent(), Policies: policies, AdminOnly: true}
	assert.False(t, eval(t, adminOnly, req(alice, permission.KindVersion, "7", permission.ActionRead)))
}

func TestWorkspaceItemRule(t *testing.T) {
	workflow := newFakeWorkflow()
	workflow.workspace[1] = &models.WorkspaceItem{ID: 1, CollectionID: collectionID, SubmitterID: aliceID}
	workflow.workflow[2] = &models.WorkflowItem{ID: 2, CollectionID: collectionID, SubmitterID: aliceID}
	rule := &WorkspaceItemRule{Workflow: workflow}

	alice, bob := user(aliceID), user(bobID)
	assert.True(t, eval(t, rule, req(alice, permission.KindWorkspaceItem, "1", permission.ActionDelete)))
	assert.False(t, eval(t, rule, req(bob, permission.KindWorkspaceItem, "1", permission.ActionRead)))
	assert.True(t, eval(t, rule, req(alice, permission.KindWorkflowItem, "2", permission.ActionRead)))
	assert.False(t, eval(t, rule, req(alice, permission.KindWorkflowItem, "2", permission.ActionWrite)))
	assert.True(t, eval(t, rule, req(bob, permission.KindWorkspaceItem, "50", permission.ActionRead)))
	assert.False(t, eval(t, rule, req(anonymous, permission.KindWorkspaceItem, "50", permission.ActionRead)))
}

func TestGroupReadRule(t *testing.T) {
	groups := fakeGroups{"Reviewers": {Name: "Reviewers"}}
	rule := &GroupReadRule{Groups: groups}

	manager := user(carolID)
	manager.Principal.Authorities = auth.AuthoritiesFor(false, true)

	assert.True(t, eval(t, rule, req(user(aliceID, "Reviewers"), permission.KindGroup, "Reviewers", permission.ActionRead)))
	assert.False(t, eval(t, rule, req(user(bobID), permission.KindGroup, "Reviewers", permission.ActionRead)))
	assert.True(t, eval(t, rule, req(manager, permission.KindGroup, "Reviewers", permission.ActionRead)))
	assert.True(t, eval(t, rule, req(user(bobID), permission.KindGroup, "Ghosts", permission.ActionRead)))
	assert.False(t, eval(t, rule, req(anonymous, permission.KindGroup, "Reviewers", permission.ActionRead)))
}

func TestOwnerRules(t *testing.T) {
	content := newFakeContent()
	alice, bob := user(aliceID), user(bobID)

	t.Run("suggestions", func(t *testing.T) {
		rule := NewSuggestionOwnerRule(content)
		target := "openaire:" + itemID
		assert.True(t, eval(t, rule, req(alice, permission.KindSuggestionTarget, target, permission.ActionRead)))
		assert.True(t, eval(t, rule, req(alice, permission.KindSuggestion, target+":oai-1", permission.ActionDelete)))
		assert.False(t, eval(t, rule, req(bob, permission.KindSuggestion, target+":oai-1", permission.ActionRead)))
		assert.True(t, eval(t, rule, req(bob, permission.KindSuggestion, "openaire:"+missingID+":x", permission.ActionRead)))
		assert.False(t, eval(t, rule, req(alice, permission.KindSuggestion, "garbage", permission.ActionRead)))
	})

	t.Run("orcid", func(t *testing.T) {
		orcid := fakeOrcid{
			queue:   map[int64]*models.OrcidQueueEntry{5: {ID: 5, ProfileItemID: itemID}},
			history: map[int64]*models.OrcidHistoryEntry{6: {ID: 6, ProfileItemID: itemID}},
		}
		rule := NewOrcidOwnerRule(orcid, content)
		assert.True(t, eval(t, rule, req(alice, permission.KindOrcidQueue, "5", permission.ActionDelete)))
		assert.False(t, eval(t, rule, req(bob, permission.KindOrcidQueue, "5", permission.ActionRead)))
		assert.True(t, eval(t, rule, req(alice, permission.KindOrcidHistory, "6", permission.ActionRead)))
		assert.False(t, eval(t, rule, req(alice, permission.KindOrcidHistory, "6", permission.ActionDelete)))
		assert.True(t, eval(t, rule, req(bob, permission.KindOrcidQueue, "6", permission.ActionRead)), "missing queue entry defers")
	})

	t.Run("subscriptions", func(t *testing.T) {
		rule := NewSubscriptionOwnerRule(fakeSubscriptions{9: {ID: 9, EPersonID: aliceID}})
		assert.True(t, eval(t, rule, req(alice, permission.KindSubscription, "9", permission.ActionWrite)))
		assert.False(t, eval(t, rule, req(bob, permission.KindSubscription, "9", permission.ActionWrite)))
		assert.False(t, eval(t, rule, req(anonymous, permission.KindSubscription, "9", permission.ActionRead)))
		assert.False(t, eval(t, rule, req(alice, permission.KindSubscription, "-1", permission.ActionRead)))
	})
}

func TestResourcePolicyAdminRule(t *testing.T) {
	content := newFakeContent()
	policies := newFakePolicies()
	policies.admin("eperson:"+bobID, "collection:"+collectionID)

	policy := authz.Policy{Subject: "group:Anonymous", Object: "item:" + itemID, Action: "READ"}
	policies.policies[policy.ID()] = &policy

	admin := &AdminRule{Content: content, Workflow: newFakeWorkflow(), Versions: fakeVersions{}, Policies: policies}
	rule := &ResourcePolicyAdminRule{Policies: policies, Admin: admin}

	assert.True(t, eval(t, rule, req(user(bobID), permission.KindResourcePolicy, policy.ID(), permission.ActionWrite)))
	assert.False(t, eval(t, rule, req(user(aliceID), permission.KindResourcePolicy, policy.ID(), permission.ActionWrite)))
	assert.True(t, eval(t, rule, req(siteAdmin(), permission.KindResourcePolicy, "anything", permission.ActionDelete)))

	ok, err := rule.Evaluate(context.Background(), req(user(bobID), permission.KindResourcePolicy, "0000000000000000", permission.ActionRead))
	assert.ErrorIs(t, err, authz.ErrPolicyNotFound)
	assert.False(t, ok)
}

func TestDefaultRegistry(t *testing.T) {
	content := newFakeContent()
	policies := newFakePolicies()
	policies.grant("group:Anonymous", "item:"+itemID, "READ")

	workflow := newFakeWorkflow()
	workflow.pool[1] = &models.PoolTask{ID: 1, WorkflowItemID: 10, StepID: "review", GroupName: ptr("Reviewers")}

	registry := Default(Deps{
		Content:       content,
		Items:         content,
		Policies:      policies,
		EPersons:      fakeEPersons{},
		Groups:        fakeGroups{},
		Registrations: fakeRegistrations{},
		Workflow:      workflow,
		Versions:      fakeVersions{},
		Subscriptions: fakeSubscriptions{},
		Orcid:         fakeOrcid{},
	})
	require.Equal(t, 12, registry.Len())

	e := permission.NewEvaluator(registry, nil)
	ctx := context.Background()

	t.Run("anonymous denied outside the open set", func(t *testing.T) {
		for _, kind := range []permission.Kind{permission.KindEPerson, permission.KindWorkspaceItem, permission.KindPoolTask, permission.KindSubscription, permission.KindGroup} {
			assert.False(t, e.HasPermission(ctx, anonymous, "1", kind, permission.ActionRead), kind)
		}
		assert.True(t, e.HasPermission(ctx, anonymous, itemID, permission.KindItem, permission.ActionRead))
		assert.True(t, e.HasPermission(ctx, anonymous, "traditional", permission.KindSubmissionForm, permission.ActionRead))
	})

	t.Run("self access", func(t *testing.T) {
		assert.True(t, e.HasPermission(ctx, user(aliceID), aliceID, permission.KindEPerson, permission.ActionWrite))
	})

	t.Run("claimed pool is closed to other reviewers", func(t *testing.T) {
		a, b := user(aliceID, "Reviewers"), user(bobID, "Reviewers")
		require.True(t, e.HasPermission(ctx, b, "1", permission.KindPoolTask, permission.ActionRead))
		claimedID := strconv.FormatInt(workflow.claim(1, aliceID), 10)

		assert.True(t, e.HasPermission(ctx, a, claimedID, permission.KindClaimedTask, permission.ActionWrite))
		assert.False(t, e.HasPermission(ctx, b, claimedID, permission.KindClaimedTask, permission.ActionWrite))
		assert.False(t, e.HasPermission(ctx, b, "1", permission.KindPoolTask, permission.ActionWrite))
	})

	t.Run("missing resource policy denies", func(t *testing.T) {
		assert.False(t, e.HasPermission(ctx, user(aliceID), "feedfacefeedface", permission.KindResourcePolicy, permission.ActionRead))
	})
}

