package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/repository"
)

// ClaimedTaskResponse is the REST representation of a claimed workflow step.
type ClaimedTaskResponse struct {
	Type           string    `json:"type"`
	ID             int64     `json:"id"`
	WorkflowItemID int64     `json:"workflowitem"`
	Step           string    `json:"step"`
	Owner          string    `json:"owner"`
	ClaimedAt      time.Time `json:"claimedAt"`
}

// MountWorkflowHandlers registers the workflow task endpoints.
func MountWorkflowHandlers(r chi.Router, h *Handlers) {
	r.With(h.authenticated).Post("/workflow/claimedtasks", h.ClaimTask)
}

// ClaimTask handles POST /api/workflow/claimedtasks?poolTask={id}. Only
// reviewers offered the task may claim it, and only while nobody else has.
func (h *Handlers) ClaimTask(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("poolTask")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "poolTask must be a task id")
		return
	}

	if !h.require(w, r, raw, permission.KindPoolTask, permission.ActionWrite) {
		return
	}

	caller := auth.CallerFromContext(r.Context())
	task, err := h.workflow.ClaimPoolTask(r.Context(), id, caller.ID())
	switch {
	case repository.IsNotFound(err):
		writeError(w, r, http.StatusNotFound, "pool task not found")
		return
	case errors.Is(err, repository.ErrAlreadyClaimed):
		writeError(w, r, http.StatusUnprocessableEntity, "task already claimed")
		return
	case err != nil:
		log.Printf("claim pool task %d: %v", id, err)
		writeError(w, r, http.StatusInternalServerError, "claim failed")
		return
	}

	writeJSON(w, http.StatusCreated, ClaimedTaskResponse{
		Type:           "claimedtask",
		ID:             task.ID,
		WorkflowItemID: task.WorkflowItemID,
		Step:           task.StepID,
		Owner:          task.OwnerID,
		ClaimedAt:      task.ClaimedAt,
	})
}
