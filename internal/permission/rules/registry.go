package rules

import "github.com/dspace/dspace-rest/internal/permission"

// Deps are the collaborators shared by the default rule set.
type Deps struct {
	Content       ContentResolver
	Items         ItemLookup
	Policies      PolicyStore
	EPersons      EPersonLookup
	Groups        GroupLookup
	Registrations RegistrationLookup
	Workflow      WorkflowLookup
	Versions      VersionLookup
	Subscriptions SubscriptionLookup
	Orcid         OrcidLookup

	// VersionHistoryAdminOnly hides versions from everyone but administrators.
	VersionHistoryAdminOnly bool
}

// Default assembles the standard rule set. Cheap rules come first so the
// evaluator can short-circuit before touching the database.
func Default(d Deps) *permission.Registry {
	admin := &AdminRule{
		Content:  d.Content,
		Workflow: d.Workflow,
		Versions: d.Versions,
		Policies: d.Policies,
	}

	return permission.NewRegistry(
		AlwaysAllowRule{},
		&SelfAccessRule{EPersons: d.EPersons, Registrations: d.Registrations},
		admin,
		&ResourcePolicyRule{Content: d.Content, Policies: d.Policies},
		&WorkspaceItemRule{Workflow: d.Workflow},
		&TaskClaimRule{Workflow: d.Workflow},
		&VersionHistoryRule{Versions: d.Versions, Content: d.Content, Policies: d.Policies, AdminOnly: d.VersionHistoryAdminOnly},
		&GroupReadRule{Groups: d.Groups},
		NewSuggestionOwnerRule(d.Items),
		NewOrcidOwnerRule(d.Orcid, d.Items),
		NewSubscriptionOwnerRule(d.Subscriptions),
		&ResourcePolicyAdminRule{Policies: d.Policies, Admin: admin},
	)
}
