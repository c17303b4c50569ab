package services

import (
	"context"

	"health-companion-backend/internal/models"
	"health-companion-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// NotificationService is the read side of stored alerts
type NotificationService struct {
	store *repository.Store
}

// NewNotificationService creates a new notification service
func NewNotificationService(store *repository.Store) *NotificationService {
	return &NotificationService{store: store}
}

// List returns the recipient's notifications, newest first
func (s *NotificationService) List(ctx context.Context, recipientID string, unreadOnly bool) ([]*models.Notification, error) {
	notifications, err := s.store.Repos().Notifications.ListByRecipient(ctx, recipientID, unreadOnly)
	if err != nil {
		return nil, storageError("list notifications", err)
	}
	return notifications, nil
}

// UnreadCount returns how many notifications the recipient has not read
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	count, err := s.store.Repos().Notifications.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, storageError("count notifications", err)
	}
	return count, nil
}

// MarkRead flags a notification as read. Only its recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		n, err := r.Notifications.GetByID(ctx, notificationID)
		if err != nil {
			return hiddenNotFound(err)
		}
		if n.RecipientID != recipientID {
			return ErrUnauthorized
		}
		if n.IsRead {
			return nil
		}
		return r.Notifications.MarkRead(ctx, notificationID)
	})
	return storageError("mark notification read", err)
}

// MarkAllRead flags every unread notification of the recipient and returns how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	n, err := s.store.Repos().Notifications.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, storageError("mark notifications read", err)
	}

	log.Debug().
		Str("recipient_id", recipientID).
		Int64("count", n).
		Msg("Notifications marked read")

	return n, nil
}
