package auth

import (
	"fmt"
	"strings"
)

// Prefixes for Casbin subjects. Policies name an EPerson by UUID and a group by name.
const (
	PrefixEPerson = "eperson:"
	PrefixGroup   = "group:"
)

// EPersonSubject creates a Casbin subject for an EPerson.
// Example: EPersonSubject("0190...") → "eperson:0190..."
func EPersonSubject(id string) string {
	return PrefixEPerson + id
}

// GroupSubject creates a Casbin subject for a group.
// Example: GroupSubject("Anonymous") → "group:Anonymous"
func GroupSubject(name string) string {
	return PrefixGroup + name
}

// ObjectKey creates a Casbin object identifier, e.g. "item:<uuid>".
func ObjectKey(kind, id string) string {
	return kind + ":" + id
}

// ParseSubject splits a subject into its type ("eperson" or "group") and value.
func ParseSubject(subject string) (string, string, error) {
	switch {
	case strings.HasPrefix(subject, PrefixEPerson):
		return "eperson", strings.TrimPrefix(subject, PrefixEPerson), nil
	case strings.HasPrefix(subject, PrefixGroup):
		return "group", strings.TrimPrefix(subject, PrefixGroup), nil
	default:
		return "", "", fmt.Errorf("invalid subject %q (expected %s or %s prefix)", subject, PrefixEPerson, PrefixGroup)
	}
}
