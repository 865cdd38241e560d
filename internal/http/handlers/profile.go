package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/prepdesk/server/internal/auth"
	"github.com/prepdesk/server/internal/middleware"
	"github.com/prepdesk/server/internal/model"
)

// ProfileHandler handles profile endpoints (all protected)
type ProfileHandler struct {
	sessions *auth.SessionManager
	log      *zap.Logger
}

// NewProfileHandler creates a new profile handler. Profile operations are
// keyed purely by the authenticated identity id, so a single shared
// session manager serves them.
func NewProfileHandler(sessions *auth.SessionManager, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{sessions: sessions, log: log}
}

// HandleGet handles GET /api/profile
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.sessions.GetProfile(r.Context(), identityID)
	if err != nil {
		respondDataError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// HandleExists handles GET /api/profile/exists
func (h *ProfileHandler) HandleExists(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result := h.sessions.CheckProfileExists(r.Context(), identityID)
	body := map[string]interface{}{"exists": result.Exists}
	if result.Profile != nil {
		body["profile"] = result.Profile
	}
	if result.Err != "" {
		body["error"] = result.Err
	}
	respondJSON(w, http.StatusOK, body)
}

// HandleSave handles POST /api/profile
func (h *ProfileHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var profile model.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.sessions.SaveProfile(r.Context(), identityID, profile)
	if err != nil {
		respondDataError(w, err)
		return
	}
	if !result.Valid {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "validation failed",
			"errors":  result.Errors,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "profile saved"})
}

// HandleUpdate handles PATCH /api/profile. Unknown fields are rejected at
// the boundary rather than silently merged.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var update model.ProfileUpdate
	if err := decoder.Decode(&update); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.sessions.UpdateProfile(r.Context(), identityID, update); err != nil {
		respondDataError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "profile updated"})
}
