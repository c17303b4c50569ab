package services

import (
	"context"
	"strings"
	"time"

	"health-companion-backend/internal/models"
	"health-companion-backend/internal/repository"
)

// MedicationService manages a patient's medications and dose log
type MedicationService struct {
	store *repository.Store
	clock Clock
	ids   IDGenerator
}

// NewMedicationService creates a new medication service
func NewMedicationService(store *repository.Store, clock Clock, ids IDGenerator) *MedicationService {
	return &MedicationService{
		store: store,
		clock: clock,
		ids:   ids,
	}
}

// MedicationInput is a medication as submitted
type MedicationInput struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	TimeOfDay string `json:"time_of_day"`
}

func (in *MedicationInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Dosage = strings.TrimSpace(in.Dosage)
	in.Frequency = strings.TrimSpace(in.Frequency)

	if in.Name == "" {
		return invalid("name", "is required")
	}
	if len(in.Name) > 200 {
		return invalid("name", "must be at most 200 characters")
	}
	if len(in.Dosage) > 100 {
		return invalid("dosage", "must be at most 100 characters")
	}
	if len(in.Frequency) > 100 {
		return invalid("frequency", "must be at most 100 characters")
	}
	if strings.TrimSpace(in.TimeOfDay) != "" {
		var err error
		if in.TimeOfDay, err = normalizeTime("time_of_day", in.TimeOfDay); err != nil {
			return err
		}
	} else {
		in.TimeOfDay = ""
	}
	return nil
}

// CreateMedication adds a medication for patientID. Needs EDIT on medication for companions.
func (s *MedicationService) CreateMedication(ctx context.Context, actorID, patientID string, in MedicationInput) (*models.Medication, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	med := &models.Medication{
		ID:        s.ids.New(),
		UserID:    patientID,
		Name:      in.Name,
		Dosage:    in.Dosage,
		Frequency: in.Frequency,
		TimeOfDay: in.TimeOfDay,
		CreatedAt: s.clock.Now(),
		Logs:      []models.MedicationLog{},
	}

	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := authorize(ctx, r, actorID, patientID, models.CategoryMedication, models.AccessEdit); err != nil {
			return err
		}
		if _, err := patientAccount(ctx, r, patientID); err != nil {
			return err
		}
		return r.Medications.Create(ctx, med)
	})
	if err != nil {
		return nil, storageError("create medication", err)
	}
	return med, nil
}

// UpdateMedication replaces the descriptive fields of a medication
func (s *MedicationService) UpdateMedication(ctx context.Context, actorID, medicationID string, in MedicationInput) (*models.Medication, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var med *models.Medication
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var err error
		if med, err = r.Medications.GetByID(ctx, medicationID); err != nil {
			return hiddenNotFound(err)
		}
		if err := authorize(ctx, r, actorID, med.UserID, models.CategoryMedication, models.AccessEdit); err != nil {
			return err
		}
		med.Name, med.Dosage, med.Frequency, med.TimeOfDay = in.Name, in.Dosage, in.Frequency, in.TimeOfDay
		return r.Medications.Update(ctx, med)
	})
	if err != nil {
		return nil, storageError("update medication", err)
	}
	return med, nil
}

// DeleteMedication removes a medication together with its dose log
func (s *MedicationService) DeleteMedication(ctx context.Context, actorID, medicationID string) error {
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		med, err := r.Medications.GetByID(ctx, medicationID)
		if err != nil {
			return hiddenNotFound(err)
		}
		if err := authorize(ctx, r, actorID, med.UserID, models.CategoryMedication, models.AccessEdit); err != nil {
			return err
		}
		return r.Medications.Delete(ctx, medicationID)
	})
	return storageError("delete medication", err)
}

// LogDose records that a dose was taken. A zero takenAt means now.
func (s *MedicationService) LogDose(ctx context.Context, actorID, medicationID string, takenAt time.Time) (*models.MedicationLog, error) {
	now := s.clock.Now()
	if takenAt.IsZero() {
		takenAt = now
	}
	if takenAt.After(now.Add(time.Minute)) {
		return nil, invalid("taken_at", "must not be in the future")
	}

	entry := &models.MedicationLog{
		ID:           s.ids.New(),
		MedicationID: medicationID,
		TakenAt:      takenAt.UTC(),
	}

	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		med, err := r.Medications.GetByID(ctx, medicationID)
		if err != nil {
			return hiddenNotFound(err)
		}
		if err := authorize(ctx, r, actorID, med.UserID, models.CategoryMedication, models.AccessEdit); err != nil {
			return err
		}
		return r.Medications.CreateLog(ctx, entry)
	})
	if err != nil {
		return nil, storageError("log dose", err)
	}
	return entry, nil
}

// ListMedications returns a patient's medications with their dose logs
func (s *MedicationService) ListMedications(ctx context.Context, actorID, patientID string) ([]*models.Medication, error) {
	var meds []*models.Medication
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := authorize(ctx, r, actorID, patientID, models.CategoryMedication, models.AccessView); err != nil {
			return err
		}
		var err error
		meds, err = r.Medications.ListByUser(ctx, patientID)
		return err
	})
	if err != nil {
		return nil, storageError("list medications", err)
	}
	return meds, nil
}
