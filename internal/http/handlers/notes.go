package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepdesk/server/internal/repo"
)

// NotesHandler serves single note documents
type NotesHandler struct {
	notes repo.NotesRepo
}

// NewNotesHandler creates a new notes handler
func NewNotesHandler(notes repo.NotesRepo) *NotesHandler {
	return &NotesHandler{notes: notes}
}

// HandleGet handles GET /api/notes/{id}
func (h *NotesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "id")
	if noteID == "" {
		respondWithError(w, http.StatusBadRequest, "note id is required")
		return
	}

	note, err := h.notes.GetNote(r.Context(), noteID)
	if err != nil {
		respondDataError(w, err)
		return
	}

	body := make(map[string]interface{}, len(note.Fields)+1)
	for k, v := range note.Fields {
		body[k] = v
	}
	body["id"] = note.ID

	respondJSON(w, http.StatusOK, body)
}
