package permission

import (
	"fmt"
	"strings"
)

// Action is an operation requested on a target.
type Action string

const (
	ActionRead   Action = "READ"
	ActionWrite  Action = "WRITE"
	ActionDelete Action = "DELETE"
	ActionAdd    Action = "ADD"
	ActionAdmin  Action = "ADMIN"
)

// ParseAction parses an action name case-insensitively.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionRead, ActionWrite, ActionDelete, ActionAdd, ActionAdmin:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

func (a Action) String() string {
	return string(a)
}

// In reports whether a is one of actions.
func (a Action) In(actions ...Action) bool {
	for _, candidate := range actions {
		if a == candidate {
			return true
		}
	}
	return false
}
