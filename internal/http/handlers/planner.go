package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepdesk/server/internal/middleware"
	"github.com/prepdesk/server/internal/repo"
)

// PlannerHandler handles planner task endpoints (all protected)
type PlannerHandler struct {
	planner repo.PlannerRepo
}

// NewPlannerHandler creates a new planner handler
func NewPlannerHandler(planner repo.PlannerRepo) *PlannerHandler {
	return &PlannerHandler{planner: planner}
}

// HandleList handles GET /api/planner: the current ordered snapshot.
func (h *PlannerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tasks, err := h.planner.Tasks(r.Context(), userID)
	if err != nil {
		respondDataError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

// HandleAdd handles POST /api/planner
func (h *PlannerHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.planner.Add(r.Context(), userID, fields)
	if err != nil {
		respondDataError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// HandleUpdate handles PATCH /api/planner/{id}
func (h *PlannerHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		respondWithError(w, http.StatusBadRequest, "task id is required")
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.planner.Update(r.Context(), userID, taskID, updates); err != nil {
		respondDataError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "task updated"})
}

// HandleDelete handles DELETE /api/planner/{id}. Deleting an absent task
// still succeeds.
func (h *PlannerHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		respondWithError(w, http.StatusBadRequest, "task id is required")
		return
	}

	if err := h.planner.Delete(r.Context(), userID, taskID); err != nil {
		respondDataError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
}
