package server

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/repository"
)

// Feature is a named capability answered by a permission check on one object.
type Feature struct {
	Name   string
	Kinds  []permission.Kind
	Action permission.Action
}

// Features lists the authorization features exposed by the search endpoint.
var Features = []Feature{
	{Name: "canDownload", Kinds: []permission.Kind{permission.KindBitstream}, Action: permission.ActionRead},
	{Name: "canView", Kinds: []permission.Kind{permission.KindCommunity, permission.KindCollection, permission.KindItem, permission.KindBundle, permission.KindBitstream}, Action: permission.ActionRead},
	{Name: "canEditMetadata", Kinds: []permission.Kind{permission.KindCommunity, permission.KindCollection, permission.KindItem, permission.KindBitstream}, Action: permission.ActionWrite},
	{Name: "canDelete", Kinds: []permission.Kind{permission.KindCommunity, permission.KindCollection, permission.KindItem, permission.KindBitstream}, Action: permission.ActionDelete},
	{Name: "administratorOf", Kinds: []permission.Kind{permission.KindSite, permission.KindCommunity, permission.KindCollection, permission.KindItem}, Action: permission.ActionAdmin},
	{Name: "canChangePassword", Kinds: []permission.Kind{permission.KindEPerson}, Action: permission.ActionWrite},
}

// objectPaths maps REST collection names to kinds.
var objectPaths = map[string]permission.Kind{
	"sites":       permission.KindSite,
	"communities": permission.KindCommunity,
	"collections": permission.KindCollection,
	"items":       permission.KindItem,
	"bundles":     permission.KindBundle,
	"bitstreams":  permission.KindBitstream,
	"epersons":    permission.KindEPerson,
}

// AuthorizationResponse is one granted feature.
type AuthorizationResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	FeatureName string `json:"featureName"`
	ObjectType  string `json:"objectType"`
	ObjectID    string `json:"objectId"`
	EPersonID   string `json:"epersonId,omitempty"`
}

// AuthorizationPage wraps the search result the way paged REST collections are returned.
type AuthorizationPage struct {
	Embedded struct {
		Authorizations []AuthorizationResponse `json:"authorizations"`
	} `json:"_embedded"`
	Page PageInfo `json:"page"`
}

// PageInfo describes a single result page.
type PageInfo struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}

// MountAuthzHandlers registers the authorization search endpoint.
func MountAuthzHandlers(r chi.Router, h *Handlers) {
	r.Get("/authz/authorizations/search/object", h.SearchAuthorizations)
}

// SearchAuthorizations handles GET /api/authz/authorizations/search/object.
// The uri parameter names the object by its REST URL; feature optionally
// restricts the answer to a single feature. Only granted features are listed.
func (h *Handlers) SearchAuthorizations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := auth.CallerFromContext(ctx)

	kind, id, err := parseObjectURI(r.URL.Query().Get("uri"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid object uri")
		return
	}

	features, err := selectFeatures(kind, r.URL.Query().Get("feature"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Rules allow on a missing object, so existence is settled first.
	if err := h.objectExists(r, kind, id); err != nil {
		if repository.IsNotFound(err) {
			writeError(w, r, http.StatusNotFound, "object not found")
			return
		}
		log.Printf("authorization search on %s %s: %v", kind, id, err)
		writeError(w, r, http.StatusInternalServerError, "lookup failed")
		return
	}

	page := AuthorizationPage{}
	page.Embedded.Authorizations = []AuthorizationResponse{}
	for _, f := range features {
		if !h.evaluator.HasPermission(ctx, caller, id, kind, f.Action) {
			continue
		}
		page.Embedded.Authorizations = append(page.Embedded.Authorizations, AuthorizationResponse{
			ID:          authorizationID(caller.ID(), f.Name, kind, id),
			Type:        "authorization",
			FeatureName: f.Name,
			ObjectType:  string(kind),
			ObjectID:    id,
			EPersonID:   caller.ID(),
		})
	}

	n := len(page.Embedded.Authorizations)
	page.Page = PageInfo{Size: n, TotalElements: n, TotalPages: 1, Number: 0}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) objectExists(r *http.Request, kind permission.Kind, id string) error {
	if kind == permission.KindEPerson {
		_, err := h.epersons.GetByID(r.Context(), id)
		return err
	}
	_, err := h.content.Resolve(r.Context(), string(kind), id)
	return err
}

// parseObjectURI extracts the kind and id from ".../api/<category>/<collection>/<id>".
func parseObjectURI(raw string) (permission.Kind, string, error) {
	if raw == "" {
		return permission.KindUnknown, "", fmt.Errorf("uri is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return permission.KindUnknown, "", err
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return permission.KindUnknown, "", fmt.Errorf("uri %q does not name an object", raw)
	}
	collection, id := segments[len(segments)-2], segments[len(segments)-1]
	kind, ok := objectPaths[collection]
	if !ok || id == "" {
		return permission.KindUnknown, "", fmt.Errorf("uri %q does not name a supported object", raw)
	}
	return kind, id, nil
}

func selectFeatures(kind permission.Kind, name string) ([]Feature, error) {
	var out []Feature
	for _, f := range Features {
		if name != "" && f.Name != name {
			continue
		}
		if slices.Contains(f.Kinds, kind) {
			out = append(out, f)
		}
	}
	if name != "" && !slices.ContainsFunc(Features, func(f Feature) bool { return f.Name == name }) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, name)
	}
	return out, nil
}

func authorizationID(epersonID, feature string, kind permission.Kind, id string) string {
	parts := []string{feature, string(kind), id}
	if epersonID != "" {
		parts = append([]string{epersonID}, parts...)
	}
	return strings.Join(parts, "_")
}
