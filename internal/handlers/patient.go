package handlers

import (
	"net/http"

	"health-companion-backend/internal/middleware"
	"health-companion-backend/internal/services"
)

// PatientHandler serves the companion's view of linked patients
type PatientHandler struct {
	connections *services.ConnectionService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(connections *services.ConnectionService) *PatientHandler {
	return &PatientHandler{
		connections: connections,
	}
}

// ListPatients handles GET /api/v1/patients
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	links, err := h.connections.ListPatients(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list patients")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"patients": links})
}

// GetPatient handles GET /api/v1/patients/{patient_id}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientParam(w, r)
	if !ok {
		return
	}

	view, err := h.connections.GetPatientView(r.Context(), middleware.GetUserID(r.Context()), patientID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get patient")
		return
	}
	respondJSON(w, http.StatusOK, view)
}
