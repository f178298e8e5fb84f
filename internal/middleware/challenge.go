package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dspace/dspace-rest/internal/services/authn"
)

// Realm is advertised in every WWW-Authenticate challenge.
const Realm = "DSpace REST API"

// WWWAuthenticate lists every enabled login method so that clients can pick
// one. Federated methods carry the location that starts their login flow.
func WWWAuthenticate(methods []string, serverURL string) string {
	parts := make([]string, 0, len(methods))
	for _, m := range methods {
		if m == authn.MethodIP {
			continue
		}
		challenge := fmt.Sprintf("%s realm=%q", m, Realm)
		if authn.IsFederated(m) && serverURL != "" {
			challenge += fmt.Sprintf(", location=%q", strings.TrimRight(serverURL, "/")+"/api/authn/"+m)
		}
		parts = append(parts, challenge)
	}
	return strings.Join(parts, ", ")
}

// Unauthorized writes a 401 with the login challenge.
func Unauthorized(w http.ResponseWriter, challenge string) {
	if challenge != "" {
		w.Header().Set("WWW-Authenticate", challenge)
	}
	http.Error(w, "authentication required", http.StatusUnauthorized)
}
