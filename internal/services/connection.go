package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"health-companion-backend/internal/access"
	"health-companion-backend/internal/database"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// ConnectionService manages the lifecycle of companion access links
type ConnectionService struct {
	store *repository.Store
	clock Clock
	ids   IDGenerator
}

// NewConnectionService creates a new connection service
func NewConnectionService(store *repository.Store, clock Clock, ids IDGenerator) *ConnectionService {
	return &ConnectionService{
		store: store,
		clock: clock,
		ids:   ids,
	}
}

// PatientView is what a linked companion sees of one patient.
// Categories the companion may not view are empty, never nil.
type PatientView struct {
	PatientID     string                        `json:"patient_id"`
	Username      string                        `json:"username"`
	Link          *models.CompanionAccessLink   `json:"link,omitempty"`
	Medications   []*models.Medication          `json:"medications"`
	Glucose       []*models.GlucoseRecord       `json:"glucose"`
	BloodPressure []*models.BloodPressureRecord `json:"blood_pressure"`
}

// RequestLink creates a pending link from a companion to the patient with the given email
func (s *ConnectionService) RequestLink(ctx context.Context, companionID, patientEmail string) (*models.CompanionAccessLink, error) {
	patientEmail = strings.ToLower(strings.TrimSpace(patientEmail))
	if patientEmail == "" {
		return nil, invalid("patient_email", "is required")
	}

	var link *models.CompanionAccessLink
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		requester, err := r.Users.GetByID(ctx, companionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUnauthorized
			}
			return fmt.Errorf("failed to load requester: %w", err)
		}
		if requester.Role != models.RoleCompanion {
			return ErrUnauthorized
		}

		patient, err := r.Users.GetByEmail(ctx, patientEmail)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load patient: %w", err)
		}
		if patient.Role != models.RolePatient {
			return ErrNotFound
		}

		exists, err := r.Links.Exists(ctx, patient.ID, companionID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyLinked
		}

		now := s.clock.Now()
		link = &models.CompanionAccessLink{
			ID:                  s.ids.New(),
			PatientID:           patient.ID,
			CompanionID:         companionID,
			MedicationAccess:    models.AccessNone,
			GlucoseAccess:       models.AccessNone,
			BloodPressureAccess: models.AccessNone,
			CreatedAt:           now,
			UpdatedAt:           now,
			PatientUsername:     patient.Username,
		}
		if err := r.Links.Create(ctx, link); err != nil {
			if errors.Is(err, database.ErrUniqueViolation) {
				return ErrAlreadyLinked
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storageError("request link", err)
	}

	log.Info().
		Str("link_id", link.ID).
		Str("patient_id", link.PatientID).
		Str("companion_id", companionID).
		Msg("Link requested")

	return link, nil
}

// ownedLink loads a link and checks that patientID owns it.
// A missing link and someone else's link are both ErrUnauthorized.
func ownedLink(ctx context.Context, r *repository.Repositories, linkID, patientID string) (*models.CompanionAccessLink, error) {
	link, err := r.Links.GetByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if link.PatientID != patientID {
		return nil, ErrUnauthorized
	}
	return link, nil
}

// Approve accepts a pending request. It grants nothing: all categories are set
// to NONE and export access is cleared until the patient assigns levels.
func (s *ConnectionService) Approve(ctx context.Context, linkID, patientID string) (*models.CompanionAccessLink, error) {
	var link *models.CompanionAccessLink
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var err error
		if link, err = ownedLink(ctx, r, linkID, patientID); err != nil {
			return err
		}
		access.Levels{}.Apply(link)
		link.ExportAccess = false
		link.UpdatedAt = s.clock.Now()
		return r.Links.Update(ctx, link)
	})
	if err != nil {
		return nil, storageError("approve link", err)
	}

	log.Info().
		Str("link_id", linkID).
		Str("patient_id", patientID).
		Msg("Link approved")

	return link, nil
}

// SetAccessLevels replaces all three category levels of a link at once
func (s *ConnectionService) SetAccessLevels(ctx context.Context, linkID, patientID string, levels access.Levels) (*models.CompanionAccessLink, error) {
	return s.SetAccess(ctx, linkID, patientID, levels, nil)
}

// SetAccess replaces the category levels and, when exportAccess is non-nil, the
// export flag of a link in one transaction. The write is skipped when nothing changes.
func (s *ConnectionService) SetAccess(ctx context.Context, linkID, patientID string, levels access.Levels, exportAccess *bool) (*models.CompanionAccessLink, error) {
	if !levels.Valid() {
		return nil, invalid("levels", "must be NONE, VIEW or EDIT")
	}

	var link *models.CompanionAccessLink
	changed := false
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var err error
		if link, err = ownedLink(ctx, r, linkID, patientID); err != nil {
			return err
		}
		if access.LevelsOf(link) != levels {
			levels.Apply(link)
			changed = true
		}
		if exportAccess != nil && link.ExportAccess != *exportAccess {
			link.ExportAccess = *exportAccess
			changed = true
		}
		if !changed {
			return nil
		}
		link.UpdatedAt = s.clock.Now()
		return r.Links.Update(ctx, link)
	})
	if err != nil {
		return nil, storageError("set access levels", err)
	}

	if changed {
		log.Info().
			Str("link_id", linkID).
			Str("medication", levels.Medication.String()).
			Str("glucose", levels.Glucose.String()).
			Str("blood_pressure", levels.BloodPressure.String()).
			Bool("export_access", link.ExportAccess).
			Msg("Access levels updated")
	}

	return link, nil
}

// SetExportAccess allows or forbids the companion to export the patient's data
func (s *ConnectionService) SetExportAccess(ctx context.Context, linkID, patientID string, enabled bool) (*models.CompanionAccessLink, error) {
	var link *models.CompanionAccessLink
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var err error
		if link, err = ownedLink(ctx, r, linkID, patientID); err != nil {
			return err
		}
		if link.ExportAccess == enabled {
			return nil
		}
		link.ExportAccess = enabled
		link.UpdatedAt = s.clock.Now()
		return r.Links.Update(ctx, link)
	})
	if err != nil {
		return nil, storageError("set export access", err)
	}
	return link, nil
}

// Reject deletes a request the patient does not want
func (s *ConnectionService) Reject(ctx context.Context, linkID, patientID string) error {
	if err := s.deleteOwned(ctx, linkID, patientID); err != nil {
		return storageError("reject link", err)
	}
	log.Info().Str("link_id", linkID).Str("patient_id", patientID).Msg("Link rejected")
	return nil
}

// Remove deletes a link at the patient's request, revoking all access at once
func (s *ConnectionService) Remove(ctx context.Context, linkID, patientID string) error {
	if err := s.deleteOwned(ctx, linkID, patientID); err != nil {
		return storageError("remove link", err)
	}
	log.Info().Str("link_id", linkID).Str("patient_id", patientID).Msg("Link removed")
	return nil
}

func (s *ConnectionService) deleteOwned(ctx context.Context, linkID, patientID string) error {
	return s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		if _, err := ownedLink(ctx, r, linkID, patientID); err != nil {
			return err
		}
		return r.Links.Delete(ctx, linkID)
	})
}

// Withdraw deletes a link at the companion's request
func (s *ConnectionService) Withdraw(ctx context.Context, linkID, companionID string) error {
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		link, err := r.Links.GetByID(ctx, linkID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUnauthorized
			}
			return err
		}
		if link.CompanionID != companionID {
			return ErrUnauthorized
		}
		return r.Links.Delete(ctx, linkID)
	})
	if err != nil {
		return storageError("withdraw link", err)
	}
	log.Info().Str("link_id", linkID).Str("companion_id", companionID).Msg("Link withdrawn")
	return nil
}

// GetLink returns a link to either of its two parties
func (s *ConnectionService) GetLink(ctx context.Context, linkID, actorID string) (*models.CompanionAccessLink, error) {
	link, err := s.store.Repos().Links.GetByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, storageError("get link", err)
	}
	if link.PatientID != actorID && link.CompanionID != actorID {
		return nil, ErrUnauthorized
	}
	return link, nil
}

// ListConnections returns a patient's links split into pending requests and active companions
func (s *ConnectionService) ListConnections(ctx context.Context, patientID string) (access.Partition, error) {
	links, err := s.store.Repos().Links.ListByPatient(ctx, patientID)
	if err != nil {
		return access.Partition{}, storageError("list connections", err)
	}
	return access.PartitionLinks(links), nil
}

// ListPatients returns the links through which a companion can see at least one category
func (s *ConnectionService) ListPatients(ctx context.Context, companionID string) ([]*models.CompanionAccessLink, error) {
	partition, err := s.ListCompanionLinks(ctx, companionID)
	if err != nil {
		return nil, err
	}
	return partition.Active, nil
}

// ListRequests returns a companion's own links that are still pending
func (s *ConnectionService) ListRequests(ctx context.Context, companionID string) ([]*models.CompanionAccessLink, error) {
	partition, err := s.ListCompanionLinks(ctx, companionID)
	if err != nil {
		return nil, err
	}
	return partition.Pending, nil
}

// ListCompanionLinks returns a companion's links split into pending requests and
// patients with at least one category granted, from a single read
func (s *ConnectionService) ListCompanionLinks(ctx context.Context, companionID string) (access.Partition, error) {
	links, err := s.store.Repos().Links.ListByCompanion(ctx, companionID)
	if err != nil {
		return access.Partition{}, storageError("list companion links", err)
	}
	return access.PartitionLinks(links), nil
}

// GetPatientView collects the records of a patient that viewerID may see.
// A patient viewing their own data sees everything.
func (s *ConnectionService) GetPatientView(ctx context.Context, viewerID, patientID string) (*PatientView, error) {
	var view *PatientView
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var link *models.CompanionAccessLink
		if viewerID != patientID {
			var err error
			if link, err = linkFor(ctx, r, patientID, viewerID); err != nil {
				return err
			}
			if link == nil {
				return ErrNotFound
			}
		}

		patient, err := r.Users.GetByID(ctx, patientID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if patient.Role != models.RolePatient {
			return ErrNotFound
		}

		view = &PatientView{
			PatientID:     patient.ID,
			Username:      patient.Username,
			Link:          link,
			Medications:   []*models.Medication{},
			Glucose:       []*models.GlucoseRecord{},
			BloodPressure: []*models.BloodPressureRecord{},
		}

		canView := func(c models.Category) bool {
			return access.CanAccess(viewerID, patientID, link, c, models.AccessView)
		}
		if canView(models.CategoryMedication) {
			if view.Medications, err = r.Medications.ListByUser(ctx, patientID); err != nil {
				return err
			}
		}
		if canView(models.CategoryGlucose) {
			if view.Glucose, err = r.Glucose.ListByUser(ctx, patientID, repository.DateRange{}); err != nil {
				return err
			}
		}
		if canView(models.CategoryBloodPressure) {
			if view.BloodPressure, err = r.BloodPressure.ListByUser(ctx, patientID, repository.DateRange{}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageError("get patient view", err)
	}
	return view, nil
}
