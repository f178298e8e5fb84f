package rules

import (
	"context"

	"github.com/dspace/dspace-rest/internal/permission"
)

// AlwaysAllowRule opens read access to configuration documents that carry
// no data of their own.
type AlwaysAllowRule struct{}

func (AlwaysAllowRule) Name() string { return "always-allow" }

func (AlwaysAllowRule) Supports(kind permission.Kind, action permission.Action) bool {
	switch kind {
	case permission.KindSubmissionDefinition, permission.KindSubmissionForm, permission.KindSubmissionSection:
		return action == permission.ActionRead
	}
	return false
}

func (AlwaysAllowRule) Evaluate(context.Context, permission.Request) (bool, error) {
	return true, nil
}
