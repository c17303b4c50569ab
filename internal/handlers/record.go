package handlers

import (
	"net/http"

	"health-companion-backend/internal/middleware"
	"health-companion-backend/internal/services"
)

// RecordHandler handles glucose and blood pressure readings
type RecordHandler struct {
	records *services.HealthRecordService
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(records *services.HealthRecordService) *RecordHandler {
	return &RecordHandler{
		records: records,
	}
}

// ListGlucose handles GET /api/v1/patients/{patient_id}/glucose?from=&to=
func (h *RecordHandler) ListGlucose(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	records, err := h.records.ListGlucoseRecords(r.Context(), middleware.GetUserID(r.Context()), patientID, q.Get("from"), q.Get("to"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list glucose records")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": records})
}

// AddGlucose handles POST /api/v1/patients/{patient_id}/glucose
func (h *RecordHandler) AddGlucose(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientParam(w, r)
	if !ok {
		return
	}

	var req services.GlucoseInput
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.records.AddGlucoseRecord(r.Context(), middleware.GetUserID(r.Context()), patientID, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to add glucose record")
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

// UpdateGlucose handles PUT /api/v1/glucose/{record_id}
func (h *RecordHandler) UpdateGlucose(w http.ResponseWriter, r *http.Request) {
	recordID, ok := recordParam(w, r, "record_id")
	if !ok {
		return
	}

	var req services.GlucoseInput
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.records.UpdateGlucoseRecord(r.Context(), middleware.GetUserID(r.Context()), recordID, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update glucose record")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// DeleteGlucose handles DELETE /api/v1/glucose/{record_id}
func (h *RecordHandler) DeleteGlucose(w http.ResponseWriter, r *http.Request) {
	recordID, ok := recordParam(w, r, "record_id")
	if !ok {
		return
	}

	if err := h.records.DeleteGlucoseRecord(r.Context(), middleware.GetUserID(r.Context()), recordID); err != nil {
		respondServiceError(w, r, err, "Failed to delete glucose record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBloodPressure handles GET /api/v1/patients/{patient_id}/blood-pressure?from=&to=
func (h *RecordHandler) ListBloodPressure(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	records, err := h.records.ListBloodPressureRecords(r.Context(), middleware.GetUserID(r.Context()), patientID, q.Get("from"), q.Get("to"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list blood pressure records")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": records})
}

// AddBloodPressure handles POST /api/v1/patients/{patient_id}/blood-pressure
func (h *RecordHandler) AddBloodPressure(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientParam(w, r)
	if !ok {
		return
	}

	var req services.BloodPressureInput
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.records.AddBloodPressureRecord(r.Context(), middleware.GetUserID(r.Context()), patientID, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to add blood pressure record")
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

// UpdateBloodPressure handles PUT /api/v1/blood-pressure/{record_id}
func (h *RecordHandler) UpdateBloodPressure(w http.ResponseWriter, r *http.Request) {
	recordID, ok := recordParam(w, r, "record_id")
	if !ok {
		return
	}

	var req services.BloodPressureInput
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.records.UpdateBloodPressureRecord(r.Context(), middleware.GetUserID(r.Context()), recordID, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update blood pressure record")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// DeleteBloodPressure handles DELETE /api/v1/blood-pressure/{record_id}
func (h *RecordHandler) DeleteBloodPressure(w http.ResponseWriter, r *http.Request) {
	recordID, ok := recordParam(w, r, "record_id")
	if !ok {
		return
	}

	if err := h.records.DeleteBloodPressureRecord(r.Context(), middleware.GetUserID(r.Context()), recordID); err != nil {
		respondServiceError(w, r, err, "Failed to delete blood pressure record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
