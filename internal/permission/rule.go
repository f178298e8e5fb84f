package permission

import (
	"context"

	"github.com/dspace/dspace-rest/internal/auth"
)

// Request is one permission question. TargetID is opaque: the rule that
// handles Kind is solely responsible for parsing it (UUID, integer or a
// composite "<uuid>:<suffix>" form).
type Request struct {
	Caller   auth.Caller
	TargetID string
	Kind     Kind
	Action   Action
}

// Rule is a single predicate contributing to an OR-composed decision.
//
// Evaluate must return true when the target cannot be found, so that callers
// can answer 404 rather than 403. A target id the rule cannot parse is not
// its business: it returns false. Errors are reserved for failures such as a
// datastore outage and count as false.
type Rule interface {
	Name() string
	Supports(kind Kind, action Action) bool
	Evaluate(ctx context.Context, req Request) (bool, error)
}

// PatchRule is a Rule with its own policy for patch requests. Rules that do
// not implement it see patches as WRITE requests.
type PatchRule interface {
	Rule
	EvaluatePatch(ctx context.Context, req Request, patch Patch) (bool, error)
}

// Identifiable is a resolved domain object that knows its own kind and id.
type Identifiable interface {
	PermissionKind() Kind
	PermissionID() string
}

// Object adapts an explicit (kind, id) pair to Identifiable.
type Object struct {
	Kind Kind
	ID   string
}

func (o Object) PermissionKind() Kind { return o.Kind }
func (o Object) PermissionID() string { return o.ID }
