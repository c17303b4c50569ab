package handlers

import (
	"net/http"

	"health-companion-backend/internal/middleware"
	"health-companion-backend/internal/services"
)

// NotificationHandler serves a companion's stored alerts
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
	}
}

// ListNotifications handles GET /api/v1/notifications?unread=true
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.notifications.List(ctx, userID, unreadOnly)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list notifications")
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to count notifications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": list,
		"unread_count":  unread,
	})
}

// MarkRead handles POST /api/v1/notifications/{notification_id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID, ok := recordParam(w, r, "notification_id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), notificationID, middleware.GetUserID(r.Context())); err != nil {
		respondServiceError(w, r, err, "Failed to mark notification read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.MarkAllRead(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Failed to mark notifications read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
