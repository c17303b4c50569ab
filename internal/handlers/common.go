package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"health-companion-backend/internal/middleware"
	"health-companion-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends body with the given status
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// decodeJSON reads the request body into dst, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// respondServiceError maps a service error to its HTTP status and logs it.
// Storage failures are reported without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	userID := middleware.GetUserID(r.Context())

	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Field: verr.Field})
		return
	case errors.Is(err, services.ErrDuplicate), errors.Is(err, services.ErrAlreadyLinked):
		respondError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, services.ErrNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, services.ErrUnauthorized):
		log.Warn().
			Str("user_id", userID).
			Str("path", r.URL.Path).
			Msg(msg + ": access denied")
		respondError(w, err.Error(), http.StatusForbidden)
		return
	}

	log.Error().
		Err(err).
		Str("user_id", userID).
		Str("path", r.URL.Path).
		Msg(msg)
	respondError(w, "Internal server error", http.StatusInternalServerError)
}

// idParam returns a path parameter if it is a well-formed uuid
func idParam(r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// patientParam resolves {patient_id}, where "me" is the caller
func patientParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	if chi.URLParam(r, "patient_id") == "me" {
		return middleware.GetUserID(r.Context()), true
	}
	id, ok := idParam(r, "patient_id")
	if !ok {
		respondServiceError(w, r, services.ErrNotFound, "Invalid patient id")
		return "", false
	}
	return id, true
}

// recordParam reads an id-addressed resource. Malformed ids look like unknown ones.
func recordParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id, ok := idParam(r, name)
	if !ok {
		respondServiceError(w, r, services.ErrUnauthorized, "Invalid "+name)
		return "", false
	}
	return id, true
}
