package handlers

import (
	"net/http"

	"health-companion-backend/internal/access"
	"health-companion-backend/internal/middleware"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/services"
)

// LinkHandler handles companion access links
type LinkHandler struct {
	connections *services.ConnectionService
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(connections *services.ConnectionService) *LinkHandler {
	return &LinkHandler{
		connections: connections,
	}
}

// CreateLinkRequest represents the request body for asking a patient for access
type CreateLinkRequest struct {
	PatientEmail string `json:"patient_email"`
}

// SetAccessRequest replaces the levels of a link. Export access is left alone when omitted.
type SetAccessRequest struct {
	Medication    models.AccessLevel `json:"medication"`
	Glucose       models.AccessLevel `json:"glucose"`
	BloodPressure models.AccessLevel `json:"blood_pressure"`
	ExportAccess  *bool              `json:"export_access,omitempty"`
}

// ListLinks handles GET /api/v1/links.
// Patients get their companions and requests, companions their own links.
func (h *LinkHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := middleware.GetPrincipal(ctx)

	if p.Role == models.RolePatient {
		partition, err := h.connections.ListConnections(ctx, p.UserID)
		if err != nil {
			respondServiceError(w, r, err, "Failed to list links")
			return
		}
		respondJSON(w, http.StatusOK, partition)
		return
	}

	partition, err := h.connections.ListCompanionLinks(ctx, p.UserID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list links")
		return
	}
	respondJSON(w, http.StatusOK, partition)
}

// CreateLink handles POST /api/v1/links
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	link, err := h.connections.RequestLink(r.Context(), middleware.GetUserID(r.Context()), req.PatientEmail)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create link")
		return
	}

	respondJSON(w, http.StatusCreated, link)
}

// GetLink handles GET /api/v1/links/{link_id}
func (h *LinkHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	linkID, ok := recordParam(w, r, "link_id")
	if !ok {
		return
	}

	link, err := h.connections.GetLink(r.Context(), linkID, middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get link")
		return
	}
	respondJSON(w, http.StatusOK, link)
}

// ApproveLink handles POST /api/v1/links/{link_id}/approve
func (h *LinkHandler) ApproveLink(w http.ResponseWriter, r *http.Request) {
	linkID, ok := recordParam(w, r, "link_id")
	if !ok {
		return
	}

	link, err := h.connections.Approve(r.Context(), linkID, middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Failed to approve link")
		return
	}
	respondJSON(w, http.StatusOK, link)
}

// RejectLink handles POST /api/v1/links/{link_id}/reject
func (h *LinkHandler) RejectLink(w http.ResponseWriter, r *http.Request) {
	linkID, ok := recordParam(w, r, "link_id")
	if !ok {
		return
	}

	if err := h.connections.Reject(r.Context(), linkID, middleware.GetUserID(r.Context())); err != nil {
		respondServiceError(w, r, err, "Failed to reject link")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetAccess handles PUT /api/v1/links/{link_id}/access
func (h *LinkHandler) SetAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID := middleware.GetUserID(ctx)
	linkID, ok := recordParam(w, r, "link_id")
	if !ok {
		return
	}

	var req SetAccessRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	levels := access.Levels{
		Medication:    req.Medication,
		Glucose:       req.Glucose,
		BloodPressure: req.BloodPressure,
	}
	link, err := h.connections.SetAccess(ctx, linkID, patientID, levels, req.ExportAccess)
	if err != nil {
		respondServiceError(w, r, err, "Failed to set access levels")
		return
	}

	respondJSON(w, http.StatusOK, link)
}

// DeleteLink handles DELETE /api/v1/links/{link_id}.
// The patient removes the link; the companion withdraws it.
func (h *LinkHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := middleware.GetPrincipal(ctx)
	linkID, ok := recordParam(w, r, "link_id")
	if !ok {
		return
	}

	var err error
	if p.Role == models.RolePatient {
		err = h.connections.Remove(ctx, linkID, p.UserID)
	} else {
		err = h.connections.Withdraw(ctx, linkID, p.UserID)
	}
	if err != nil {
		respondServiceError(w, r, err, "Failed to delete link")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
