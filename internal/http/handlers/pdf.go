package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/prepdesk/server/internal/repo"
)

// PDFHandler serves the aggregated PDF catalogue
type PDFHandler struct {
	notes repo.NotesRepo
	log   *zap.Logger
}

// NewPDFHandler creates a new PDF handler
func NewPDFHandler(notes repo.NotesRepo, log *zap.Logger) *PDFHandler {
	return &PDFHandler{notes: notes, log: log}
}

// HandleList handles GET /api/pdf
func (h *PDFHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pdfs, err := h.notes.ListAllPDFs(r.Context())
	if err != nil {
		h.log.Error("pdf listing failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "failed to list PDFs",
			"error":   err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, pdfs)
}
