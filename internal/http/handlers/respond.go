package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prepdesk/server/internal/errcode"
)

// respondJSON writes a JSON body with the given status code
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// respondAuthError maps a classified auth error to an HTTP status
func respondAuthError(w http.ResponseWriter, err error) {
	var authErr *errcode.AuthError
	if !errors.As(err, &authErr) {
		respondWithError(w, http.StatusInternalServerError, errcode.GenericAuthMessage)
		return
	}

	status := http.StatusUnauthorized
	switch authErr.Code {
	case "invalid-phone-number", "missing-phone-number":
		status = http.StatusBadRequest
	case "too-many-requests", "quota-exceeded":
		status = http.StatusTooManyRequests
	case "internal-error":
		status = http.StatusInternalServerError
	}

	respondJSON(w, status, map[string]string{"error": authErr.Message, "code": authErr.Code})
}

// respondDataError maps a classified data error to an HTTP status
func respondDataError(w http.ResponseWriter, err error) {
	var dataErr *errcode.DataError
	if !errors.As(err, &dataErr) {
		respondWithError(w, http.StatusInternalServerError, errcode.GenericDataMessage)
		return
	}

	status := http.StatusInternalServerError
	switch dataErr.Code {
	case "not-found":
		status = http.StatusNotFound
	case "permission-denied":
		status = http.StatusForbidden
	case "already-exists":
		status = http.StatusConflict
	case "failed-precondition":
		status = http.StatusPreconditionFailed
	case "unavailable":
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, map[string]string{"error": dataErr.Message, "code": dataErr.Code})
}
