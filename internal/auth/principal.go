package auth

import (
	"context"
	"slices"
	"time"

	"github.com/dspace/dspace-rest/internal/db/models"
)

// Principal is an authenticated EPerson. Anonymous requests carry no Principal.
// A Principal is built once per request and never mutated afterwards.
type Principal struct {
	// ID is the EPerson UUID.
	ID    string
	Email string
	NetID string
	// Name is the display name.
	Name        string
	Authorities []Authority
	// Groups lists the names of groups the EPerson belongs to.
	Groups []string
	// PreviousActive is the last-active timestamp recorded before this request.
	PreviousActive *time.Time
	// TokenIssuedAt is when the presented login token was minted.
	TokenIssuedAt time.Time
	// Method is the login mechanism that produced the token, when known.
	Method string
	// SpecialGroups were granted at login (e.g. federated group attributes) and travel in the token.
	SpecialGroups []string
	// ImpersonatedBy holds the administrator's EPerson ID when acting on behalf of another user.
	ImpersonatedBy string
}

// HasAuthority reports whether the principal was granted a.
func (p *Principal) HasAuthority(a Authority) bool {
	return p != nil && slices.Contains(p.Authorities, a)
}

// IsAdmin reports whether the principal is a repository-wide administrator.
func (p *Principal) IsAdmin() bool {
	return p.HasAuthority(AuthorityAdmin)
}

// InGroup reports whether the principal belongs to the named group.
func (p *Principal) InGroup(name string) bool {
	return p != nil && slices.Contains(p.Groups, name)
}

// Caller is the acting identity of a request: an optional Principal plus
// special groups granted from request attributes (e.g. client IP).
type Caller struct {
	Principal     *Principal
	SpecialGroups []string
}

// Anonymous reports whether no Principal is present.
func (c Caller) Anonymous() bool {
	return c.Principal == nil
}

// ID returns the principal's EPerson ID, or "" for anonymous callers.
func (c Caller) ID() string {
	if c.Principal == nil {
		return ""
	}
	return c.Principal.ID
}

// IsAdmin reports whether the caller holds the ADMIN authority.
func (c Caller) IsAdmin() bool {
	return c.Principal.IsAdmin()
}

// Authorities returns the principal's authorities, or ANONYMOUS.
func (c Caller) Authorities() []Authority {
	if c.Principal == nil {
		return []Authority{AuthorityAnonymous}
	}
	return slices.Clone(c.Principal.Authorities)
}

// GroupNames returns stored and special group names, deduplicated.
// Every caller is a member of the Anonymous group.
func (c Caller) GroupNames() []string {
	names := []string{GroupAnonymous}
	if c.Principal != nil {
		names = append(names, c.Principal.Groups...)
		names = append(names, c.Principal.SpecialGroups...)
	}
	names = append(names, c.SpecialGroups...)
	slices.Sort(names)
	return slices.Compact(names)
}

// InGroup reports whether the caller is a member of the named group,
// directly or through a special group.
func (c Caller) InGroup(name string) bool {
	return slices.Contains(c.GroupNames(), name)
}

// Subjects returns the policy subjects the caller acts as: its EPerson followed by its groups.
func (c Caller) Subjects() []string {
	groups := c.GroupNames()
	subjects := make([]string, 0, len(groups)+1)
	if c.Principal != nil {
		subjects = append(subjects, EPersonSubject(c.Principal.ID))
	}
	for _, g := range groups {
		subjects = append(subjects, GroupSubject(g))
	}
	return subjects
}

// GroupAnonymous is the group every caller implicitly belongs to.
const GroupAnonymous = models.GroupAnonymous

// GroupAdministrator grants the ADMIN authority to its members.
const GroupAdministrator = models.GroupAdministrator

type callerContextKey struct{}

// SetCaller stores the acting caller on the context.
func SetCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext returns the caller stored on the context, or an anonymous caller.
func CallerFromContext(ctx context.Context) Caller {
	caller, _ := ctx.Value(callerContextKey{}).(Caller)
	return caller
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p := CallerFromContext(ctx).Principal
	return p, p != nil
}
