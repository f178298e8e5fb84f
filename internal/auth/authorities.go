package auth

// Authority is a coarse role granted at authentication time.
type Authority string

const (
	AuthorityAdmin             Authority = "ADMIN"
	AuthorityAuthenticated     Authority = "AUTHENTICATED"
	AuthorityAnonymous         Authority = "ANONYMOUS"
	AuthorityManageAccessGroup Authority = "MANAGE_ACCESS_GROUP"
)

// AuthoritiesFor derives the authority set of an authenticated EPerson.
// MANAGE_ACCESS_GROUP is reserved for access managers who are not administrators.
func AuthoritiesFor(admin, accessManager bool) []Authority {
	authorities := make([]Authority, 0, 3)
	if admin {
		authorities = append(authorities, AuthorityAdmin)
	}
	authorities = append(authorities, AuthorityAuthenticated)
	if accessManager && !admin {
		authorities = append(authorities, AuthorityManageAccessGroup)
	}
	return authorities
}

// AuthorityStrings converts authorities for JSON responses and logs.
func AuthorityStrings(authorities []Authority) []string {
	out := make([]string, len(authorities))
	for i, a := range authorities {
		out[i] = string(a)
	}
	return out
}
