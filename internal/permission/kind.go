package permission

import "strings"

// Kind is a closed set of REST resource kinds that can be the target of a permission check.
type Kind string

const (
	KindUnknown              Kind = ""
	KindSite                 Kind = "site"
	KindCommunity            Kind = "community"
	KindCollection           Kind = "collection"
	KindItem                 Kind = "item"
	KindBundle               Kind = "bundle"
	KindBitstream            Kind = "bitstream"
	KindEPerson              Kind = "eperson"
	KindGroup                Kind = "group"
	KindResearcherProfile    Kind = "researcherprofile"
	KindWorkspaceItem        Kind = "workspaceitem"
	KindWorkflowItem         Kind = "workflowitem"
	KindPoolTask             Kind = "pooltask"
	KindClaimedTask          Kind = "claimedtask"
	KindVersion              Kind = "version"
	KindVersionHistory       Kind = "versionhistory"
	KindSuggestion           Kind = "suggestion"
	KindSuggestionTarget     Kind = "suggestiontarget"
	KindOrcidQueue           Kind = "orcidqueue"
	KindOrcidHistory         Kind = "orcidhistory"
	KindSubscription         Kind = "subscription"
	KindSubmissionDefinition Kind = "submissiondefinition"
	KindSubmissionForm       Kind = "submissionform"
	KindSubmissionSection    Kind = "submissionsection"
	KindResourcePolicy       Kind = "resourcepolicy"
)

var knownKinds = map[string]Kind{}

// aliases accepted on the wire in addition to the canonical names
var kindAliases = map[string]Kind{
	"submissiondefinitions": KindSubmissionDefinition,
	"submissionforms":       KindSubmissionForm,
	"submissionsections":    KindSubmissionSection,
	"profile":               KindResearcherProfile,
	"orcidqueues":           KindOrcidQueue,
	"workflowtask":          KindClaimedTask,
}

func init() {
	for _, k := range AllKinds() {
		knownKinds[string(k)] = k
	}
	for alias, k := range kindAliases {
		knownKinds[alias] = k
	}
}

// AllKinds lists every known kind.
func AllKinds() []Kind {
	return []Kind{
		KindSite, KindCommunity, KindCollection, KindItem, KindBundle, KindBitstream,
		KindEPerson, KindGroup, KindResearcherProfile,
		KindWorkspaceItem, KindWorkflowItem, KindPoolTask, KindClaimedTask,
		KindVersion, KindVersionHistory,
		KindSuggestion, KindSuggestionTarget, KindOrcidQueue, KindOrcidHistory, KindSubscription,
		KindSubmissionDefinition, KindSubmissionForm, KindSubmissionSection,
		KindResourcePolicy,
	}
}

// ParseKind maps a REST type name to a Kind, ignoring case, underscores and
// hyphens. Unrecognised names yield KindUnknown.
func ParseKind(s string) Kind {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("_", "", "-", "").Replace(normalized)
	return knownKinds[normalized]
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := knownKinds[string(k)]
	return ok && k != KindUnknown
}

func (k Kind) String() string {
	return string(k)
}

// IsContent reports whether k belongs to the community/collection/item hierarchy.
func (k Kind) IsContent() bool {
	switch k {
	case KindSite, KindCommunity, KindCollection, KindItem, KindBundle, KindBitstream:
		return true
	}
	return false
}
