package handlers

import (
	"net/http"

	"health-companion-backend/internal/middleware"
	"health-companion-backend/internal/services"
)

// ExportHandler starts data exports
type ExportHandler struct {
	exports *services.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(exports *services.ExportService) *ExportHandler {
	return &ExportHandler{
		exports: exports,
	}
}

// CreateExport handles POST /api/v1/patients/{patient_id}/exports
func (h *ExportHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientParam(w, r)
	if !ok {
		return
	}

	res, err := h.exports.Export(r.Context(), middleware.GetUserID(r.Context()), patientID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to export data")
		return
	}
	respondJSON(w, http.StatusCreated, res)
}
