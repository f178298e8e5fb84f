package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/repository"
	"github.com/dspace/dspace-rest/internal/services/authn"
)

const maxPatchBytes = 64 << 10

// EPersonResponse is the REST representation of an EPerson.
type EPersonResponse struct {
	Type       string     `json:"type"`
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	NetID      *string    `json:"netid"`
	Name       string     `json:"name"`
	CanLogIn   bool       `json:"canLogIn"`
	LastActive *time.Time `json:"lastActive,omitempty"`
}

func newEPersonResponse(e *models.EPerson) EPersonResponse {
	return EPersonResponse{
		Type:       "eperson",
		ID:         e.ID,
		Email:      e.Email,
		NetID:      e.NetID,
		Name:       e.FullName(),
		CanLogIn:   e.CanLogIn,
		LastActive: e.LastActive,
	}
}

// MountEPersonHandlers registers /eperson/epersons/{id}.
func MountEPersonHandlers(r chi.Router, h *Handlers) {
	r.With(h.permitted(permission.KindEPerson, permission.ActionRead)).Get("/eperson/epersons/{id}", h.GetEPerson)
	r.Patch("/eperson/epersons/{id}", h.PatchEPerson)
	r.With(h.permitted(permission.KindEPerson, permission.ActionDelete)).Delete("/eperson/epersons/{id}", h.DeleteEPerson)
}

// GetEPerson handles GET /api/eperson/epersons/{id}. READ is checked by the route.
func (h *Handlers) GetEPerson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	eperson, ok := h.loadEPerson(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newEPersonResponse(eperson))
}

// PatchEPerson handles PATCH /api/eperson/epersons/{id}. The body is a JSON
// Patch document. An anonymous password reset passes the emailed
// registration token as the "token" query parameter; the token is consumed.
func (h *Handlers) PatchEPerson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPatchBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unreadable patch document")
		return
	}
	if err := h.patches.Validate(body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var ops []permission.PatchOperation
	if err := json.Unmarshal(body, &ops); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed patch document")
		return
	}
	patch := permission.Patch{Operations: ops, Token: r.URL.Query().Get("token")}

	caller := auth.CallerFromContext(r.Context())
	if !h.evaluator.HasPatchPermission(r.Context(), caller, id, permission.KindEPerson, patch) {
		h.denied(w, r, caller.Anonymous())
		return
	}

	eperson, ok := h.loadEPerson(w, r, id)
	if !ok {
		return
	}

	if err := h.applyEPersonPatch(r, eperson, patch); err != nil {
		if errors.Is(err, ErrUnsupportedPatch) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.Printf("patch eperson %s: %v", id, err)
		writeError(w, r, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, newEPersonResponse(eperson))
}

// DeleteEPerson handles DELETE /api/eperson/epersons/{id}. DELETE is checked by the route.
func (h *Handlers) DeleteEPerson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.epersons.Delete(r.Context(), id); err != nil {
		if repository.IsNotFound(err) {
			writeError(w, r, http.StatusNotFound, "eperson not found")
			return
		}
		log.Printf("delete eperson %s: %v", id, err)
		writeError(w, r, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) loadEPerson(w http.ResponseWriter, r *http.Request, id string) (*models.EPerson, bool) {
	eperson, err := h.epersons.GetByID(r.Context(), id)
	if err != nil {
		if repository.IsNotFound(err) {
			writeError(w, r, http.StatusNotFound, "eperson not found")
		} else {
			log.Printf("load eperson %s: %v", id, err)
			writeError(w, r, http.StatusInternalServerError, "lookup failed")
		}
		return nil, false
	}
	return eperson, true
}

// applyEPersonPatch validates every operation before writing anything.
func (h *Handlers) applyEPersonPatch(r *http.Request, e *models.EPerson, patch permission.Patch) error {
	ctx := r.Context()
	var newPassword string
	fieldsChanged := false

	for _, op := range patch.Operations {
		verb := strings.ToLower(op.Op)
		switch strings.ToLower(op.Path) {
		case "/password":
			if verb != "add" && verb != "replace" {
				return fmt.Errorf("%w: %s %s", ErrUnsupportedPatch, op.Op, op.Path)
			}
			pw, ok := passwordValue(op.Value)
			if !ok {
				return fmt.Errorf("%w: password value must be a non-empty string", ErrUnsupportedPatch)
			}
			newPassword = pw
		case "/email":
			email, ok := op.Value.(string)
			if verb != "replace" || !ok || email == "" {
				return fmt.Errorf("%w: %s %s", ErrUnsupportedPatch, op.Op, op.Path)
			}
			e.Email = strings.ToLower(strings.TrimSpace(email))
			fieldsChanged = true
		case "/canlogin":
			enabled, ok := op.Value.(bool)
			if verb != "replace" || !ok {
				return fmt.Errorf("%w: %s %s", ErrUnsupportedPatch, op.Op, op.Path)
			}
			e.CanLogIn = enabled
			fieldsChanged = true
		case "/netid":
			switch verb {
			case "remove":
				e.NetID = nil
			case "add", "replace":
				netID, ok := op.Value.(string)
				if !ok || netID == "" {
					return fmt.Errorf("%w: netid value must be a non-empty string", ErrUnsupportedPatch)
				}
				e.NetID = &netID
			default:
				return fmt.Errorf("%w: %s %s", ErrUnsupportedPatch, op.Op, op.Path)
			}
			fieldsChanged = true
		default:
			return fmt.Errorf("%w: %s %s", ErrUnsupportedPatch, op.Op, op.Path)
		}
	}

	if fieldsChanged {
		if err := h.epersons.Update(ctx, e); err != nil {
			return err
		}
	}
	if newPassword != "" {
		hash, err := authn.HashPassword(newPassword)
		if err != nil {
			return err
		}
		if err := h.epersons.SetPasswordHash(ctx, e.ID, hash); err != nil {
			return err
		}
		if patch.Token != "" && h.registrations != nil {
			if err := h.registrations.Delete(ctx, patch.Token); err != nil {
				log.Printf("consume registration token for %s: %v", e.ID, err)
			}
		}
	}
	return nil
}

// passwordValue accepts either a bare string or {"new_password": "..."}.
func passwordValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case map[string]any:
		pw, ok := val["new_password"].(string)
		return pw, ok && pw != ""
	}
	return "", false
}
