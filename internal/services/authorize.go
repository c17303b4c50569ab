package services

import (
	"context"
	"errors"
	"fmt"

	"health-companion-backend/internal/access"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/repository"
)

// linkFor loads the link joining companionID to patientID, or nil when there is none
func linkFor(ctx context.Context, r *repository.Repositories, patientID, companionID string) (*models.CompanionAccessLink, error) {
	link, err := r.Links.GetByPair(ctx, patientID, companionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load link: %w", err)
	}
	return link, nil
}

// authorize re-reads the link on every call and applies the access policy
func authorize(ctx context.Context, r *repository.Repositories, actorID, patientID string, category models.Category, required models.AccessLevel) error {
	var link *models.CompanionAccessLink
	if actorID != patientID {
		var err error
		if link, err = linkFor(ctx, r, patientID, actorID); err != nil {
			return err
		}
	}
	if !access.CanAccess(actorID, patientID, link, category, required) {
		return ErrUnauthorized
	}
	return nil
}

// patientAccount loads the account that owns health data. Missing users and
// non-patients are reported as ErrUnauthorized.
func patientAccount(ctx context.Context, r *repository.Repositories, patientID string) (*models.User, error) {
	user, err := r.Users.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if user.Role != models.RolePatient {
		return nil, ErrUnauthorized
	}
	return user, nil
}
