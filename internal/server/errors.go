package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"
)

var (
	// ErrRedirectNotAllowed is returned when a login completion names a redirect
	// target outside the configured hosts.
	ErrRedirectNotAllowed = errors.New("redirect target not allowed")

	// ErrUnknownFeature is returned for an authorization search on an unregistered feature.
	ErrUnknownFeature = errors.New("unknown authorization feature")

	// ErrUnsupportedPatch is returned for a patch operation the resource does not accept.
	ErrUnsupportedPatch = errors.New("unsupported patch operation")
)

// ErrorResponse is the body of every error answered by the API handlers.
// Messages stay terse: no internal identifiers beyond what the request named.
type ErrorResponse struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// denied answers a negative permission decision: anonymous callers are asked
// to log in, authenticated ones are refused.
func (h *Handlers) denied(w http.ResponseWriter, r *http.Request, anonymous bool) {
	if anonymous {
		w.Header().Set("WWW-Authenticate", h.challenge)
		writeError(w, r, http.StatusUnauthorized, "authentication is required")
		return
	}
	writeError(w, r, http.StatusForbidden, "access is denied")
}
