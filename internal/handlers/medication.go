package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"health-companion-backend/internal/middleware"
	"health-companion-backend/internal/services"
)

// MedicationHandler handles medications and their dose log
type MedicationHandler struct {
	medications *services.MedicationService
}

// NewMedicationHandler creates a new medication handler
func NewMedicationHandler(medications *services.MedicationService) *MedicationHandler {
	return &MedicationHandler{
		medications: medications,
	}
}

// LogDoseRequest represents the request body for recording a dose. An empty body means now.
type LogDoseRequest struct {
	TakenAt *time.Time `json:"taken_at,omitempty"`
}

// ListMedications handles GET /api/v1/patients/{patient_id}/medications
func (h *MedicationHandler) ListMedications(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientParam(w, r)
	if !ok {
		return
	}

	meds, err := h.medications.ListMedications(r.Context(), middleware.GetUserID(r.Context()), patientID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list medications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"medications": meds})
}

// CreateMedication handles POST /api/v1/patients/{patient_id}/medications
func (h *MedicationHandler) CreateMedication(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientParam(w, r)
	if !ok {
		return
	}

	var req services.MedicationInput
	if !decodeJSON(w, r, &req) {
		return
	}

	med, err := h.medications.CreateMedication(r.Context(), middleware.GetUserID(r.Context()), patientID, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create medication")
		return
	}
	respondJSON(w, http.StatusCreated, med)
}

// UpdateMedication handles PUT /api/v1/medications/{medication_id}
func (h *MedicationHandler) UpdateMedication(w http.ResponseWriter, r *http.Request) {
	medicationID, ok := recordParam(w, r, "medication_id")
	if !ok {
		return
	}

	var req services.MedicationInput
	if !decodeJSON(w, r, &req) {
		return
	}

	med, err := h.medications.UpdateMedication(r.Context(), middleware.GetUserID(r.Context()), medicationID, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update medication")
		return
	}
	respondJSON(w, http.StatusOK, med)
}

// DeleteMedication handles DELETE /api/v1/medications/{medication_id}
func (h *MedicationHandler) DeleteMedication(w http.ResponseWriter, r *http.Request) {
	medicationID, ok := recordParam(w, r, "medication_id")
	if !ok {
		return
	}

	if err := h.medications.DeleteMedication(r.Context(), middleware.GetUserID(r.Context()), medicationID); err != nil {
		respondServiceError(w, r, err, "Failed to delete medication")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogDose handles POST /api/v1/medications/{medication_id}/logs
func (h *MedicationHandler) LogDose(w http.ResponseWriter, r *http.Request) {
	medicationID, ok := recordParam(w, r, "medication_id")
	if !ok {
		return
	}

	var req LogDoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	var takenAt time.Time
	if req.TakenAt != nil {
		takenAt = *req.TakenAt
	}

	entry, err := h.medications.LogDose(r.Context(), middleware.GetUserID(r.Context()), medicationID, takenAt)
	if err != nil {
		respondServiceError(w, r, err, "Failed to log dose")
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}
