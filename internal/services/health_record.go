package services

import (
	"context"
	"errors"
	"fmt"

	"health-companion-backend/internal/database"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/repository"
	"health-companion-backend/internal/risk"

	"github.com/rs/zerolog/log"
)

// Accepted measurement ranges
const (
	MinGlucoseLevel = 50
	MaxGlucoseLevel = 350
	MinSystolic     = 50
	MaxSystolic     = 300
	MinDiastolic    = 30
	MaxDiastolic    = 200
)

// Data types named in alert text
const (
	dataTypeGlucose       = "glucose"
	dataTypeBloodPressure = "blood pressure"
)

// HealthRecordService records readings, evaluates them and alerts companions
type HealthRecordService struct {
	store     *repository.Store
	evaluator *risk.Evaluator
	clock     Clock
	ids       IDGenerator
}

// NewHealthRecordService creates a new health record service
func NewHealthRecordService(store *repository.Store, evaluator *risk.Evaluator, clock Clock, ids IDGenerator) *HealthRecordService {
	return &HealthRecordService{
		store:     store,
		evaluator: evaluator,
		clock:     clock,
		ids:       ids,
	}
}

// GlucoseInput is a glucose reading as submitted
type GlucoseInput struct {
	Level int                `json:"glucose_level"`
	Type  models.GlucoseType `json:"glucose_type"`
	Date  string             `json:"date"`
	Time  string             `json:"time"`
}

func (in *GlucoseInput) normalize() error {
	if in.Level < MinGlucoseLevel || in.Level > MaxGlucoseLevel {
		return invalid("glucose_level", "must be between %d and %d mg/dL", MinGlucoseLevel, MaxGlucoseLevel)
	}
	if !in.Type.Valid() {
		return invalid("glucose_type", "must be FASTING or POSTPRANDIAL")
	}
	var err error
	if in.Date, err = normalizeDate("date", in.Date); err != nil {
		return err
	}
	if in.Time, err = normalizeTime("time", in.Time); err != nil {
		return err
	}
	return nil
}

// BloodPressureInput is a blood pressure reading as submitted
type BloodPressureInput struct {
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

func (in *BloodPressureInput) normalize() error {
	if in.Systolic < MinSystolic || in.Systolic > MaxSystolic {
		return invalid("systolic", "must be between %d and %d mmHg", MinSystolic, MaxSystolic)
	}
	if in.Diastolic < MinDiastolic || in.Diastolic > MaxDiastolic {
		return invalid("diastolic", "must be between %d and %d mmHg", MinDiastolic, MaxDiastolic)
	}
	var err error
	if in.Date, err = normalizeDate("date", in.Date); err != nil {
		return err
	}
	if in.Time, err = normalizeTime("time", in.Time); err != nil {
		return err
	}
	return nil
}

// AddGlucoseRecord stores a reading for patientID. The patient or a companion with
// EDIT access to glucose may add. A risky reading alerts every linked companion
// in the same transaction as the write.
func (s *HealthRecordService) AddGlucoseRecord(ctx context.Context, actorID, patientID string, in GlucoseInput) (*models.GlucoseRecord, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	rec := &models.GlucoseRecord{
		ID:        s.ids.New(),
		UserID:    patientID,
		Level:     in.Level,
		Type:      in.Type,
		Date:      in.Date,
		Time:      in.Time,
		CreatedAt: s.clock.Now(),
	}

	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := authorize(ctx, r, actorID, patientID, models.CategoryGlucose, models.AccessEdit); err != nil {
			return err
		}
		patient, err := patientAccount(ctx, r, patientID)
		if err != nil {
			return err
		}

		taken, err := r.Glucose.SlotTaken(ctx, patientID, rec.Date, rec.Time, "")
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicate
		}
		if err := r.Glucose.Create(ctx, rec); err != nil {
			return duplicateOr(err)
		}

		return s.evaluateGlucose(ctx, r, patient, rec)
	})
	if err != nil {
		return nil, storageError("add glucose record", err)
	}
	return rec, nil
}

// UpdateGlucoseRecord replaces a reading and evaluates it again
func (s *HealthRecordService) UpdateGlucoseRecord(ctx context.Context, actorID, recordID string, in GlucoseInput) (*models.GlucoseRecord, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var rec *models.GlucoseRecord
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var err error
		if rec, err = r.Glucose.GetByID(ctx, recordID); err != nil {
			return hiddenNotFound(err)
		}
		if err := authorize(ctx, r, actorID, rec.UserID, models.CategoryGlucose, models.AccessEdit); err != nil {
			return err
		}
		patient, err := patientAccount(ctx, r, rec.UserID)
		if err != nil {
			return err
		}

		taken, err := r.Glucose.SlotTaken(ctx, rec.UserID, in.Date, in.Time, rec.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicate
		}

		rec.Level, rec.Type, rec.Date, rec.Time = in.Level, in.Type, in.Date, in.Time
		if err := r.Glucose.Update(ctx, rec); err != nil {
			return duplicateOr(err)
		}

		return s.evaluateGlucose(ctx, r, patient, rec)
	})
	if err != nil {
		return nil, storageError("update glucose record", err)
	}
	return rec, nil
}

// DeleteGlucoseRecord removes a reading
func (s *HealthRecordService) DeleteGlucoseRecord(ctx context.Context, actorID, recordID string) error {
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		rec, err := r.Glucose.GetByID(ctx, recordID)
		if err != nil {
			return hiddenNotFound(err)
		}
		if err := authorize(ctx, r, actorID, rec.UserID, models.CategoryGlucose, models.AccessEdit); err != nil {
			return err
		}
		return r.Glucose.Delete(ctx, recordID)
	})
	return storageError("delete glucose record", err)
}

// ListGlucoseRecords returns a patient's readings, newest first, optionally bounded by date
func (s *HealthRecordService) ListGlucoseRecords(ctx context.Context, actorID, patientID, from, to string) ([]*models.GlucoseRecord, error) {
	from, to, err := normalizeDateRange(from, to)
	if err != nil {
		return nil, err
	}

	var records []*models.GlucoseRecord
	err = s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := authorize(ctx, r, actorID, patientID, models.CategoryGlucose, models.AccessView); err != nil {
			return err
		}
		var err error
		records, err = r.Glucose.ListByUser(ctx, patientID, repository.DateRange{From: from, To: to})
		return err
	})
	if err != nil {
		return nil, storageError("list glucose records", err)
	}
	return records, nil
}

// AddBloodPressureRecord stores a reading for patientID with the same rules as glucose
func (s *HealthRecordService) AddBloodPressureRecord(ctx context.Context, actorID, patientID string, in BloodPressureInput) (*models.BloodPressureRecord, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	rec := &models.BloodPressureRecord{
		ID:        s.ids.New(),
		UserID:    patientID,
		Systolic:  in.Systolic,
		Diastolic: in.Diastolic,
		Date:      in.Date,
		Time:      in.Time,
		CreatedAt: s.clock.Now(),
	}

	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := authorize(ctx, r, actorID, patientID, models.CategoryBloodPressure, models.AccessEdit); err != nil {
			return err
		}
		patient, err := patientAccount(ctx, r, patientID)
		if err != nil {
			return err
		}

		taken, err := r.BloodPressure.SlotTaken(ctx, patientID, rec.Date, rec.Time, "")
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicate
		}
		if err := r.BloodPressure.Create(ctx, rec); err != nil {
			return duplicateOr(err)
		}

		return s.evaluateBloodPressure(ctx, r, patient, rec)
	})
	if err != nil {
		return nil, storageError("add blood pressure record", err)
	}
	return rec, nil
}

// UpdateBloodPressureRecord replaces a reading and evaluates it again
func (s *HealthRecordService) UpdateBloodPressureRecord(ctx context.Context, actorID, recordID string, in BloodPressureInput) (*models.BloodPressureRecord, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var rec *models.BloodPressureRecord
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var err error
		if rec, err = r.BloodPressure.GetByID(ctx, recordID); err != nil {
			return hiddenNotFound(err)
		}
		if err := authorize(ctx, r, actorID, rec.UserID, models.CategoryBloodPressure, models.AccessEdit); err != nil {
			return err
		}
		patient, err := patientAccount(ctx, r, rec.UserID)
		if err != nil {
			return err
		}

		taken, err := r.BloodPressure.SlotTaken(ctx, rec.UserID, in.Date, in.Time, rec.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicate
		}

		rec.Systolic, rec.Diastolic, rec.Date, rec.Time = in.Systolic, in.Diastolic, in.Date, in.Time
		if err := r.BloodPressure.Update(ctx, rec); err != nil {
			return duplicateOr(err)
		}

		return s.evaluateBloodPressure(ctx, r, patient, rec)
	})
	if err != nil {
		return nil, storageError("update blood pressure record", err)
	}
	return rec, nil
}

// DeleteBloodPressureRecord removes a reading
func (s *HealthRecordService) DeleteBloodPressureRecord(ctx context.Context, actorID, recordID string) error {
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		rec, err := r.BloodPressure.GetByID(ctx, recordID)
		if err != nil {
			return hiddenNotFound(err)
		}
		if err := authorize(ctx, r, actorID, rec.UserID, models.CategoryBloodPressure, models.AccessEdit); err != nil {
			return err
		}
		return r.BloodPressure.Delete(ctx, recordID)
	})
	return storageError("delete blood pressure record", err)
}

// ListBloodPressureRecords returns a patient's readings, newest first, optionally bounded by date
func (s *HealthRecordService) ListBloodPressureRecords(ctx context.Context, actorID, patientID, from, to string) ([]*models.BloodPressureRecord, error) {
	from, to, err := normalizeDateRange(from, to)
	if err != nil {
		return nil, err
	}

	var records []*models.BloodPressureRecord
	err = s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := authorize(ctx, r, actorID, patientID, models.CategoryBloodPressure, models.AccessView); err != nil {
			return err
		}
		var err error
		records, err = r.BloodPressure.ListByUser(ctx, patientID, repository.DateRange{From: from, To: to})
		return err
	})
	if err != nil {
		return nil, storageError("list blood pressure records", err)
	}
	return records, nil
}

func (s *HealthRecordService) evaluateGlucose(ctx context.Context, r *repository.Repositories, patient *models.User, rec *models.GlucoseRecord) error {
	assessment := s.evaluator.EvaluateGlucose(rec.Level, rec.Type)
	if !assessment.Risky {
		return nil
	}
	_, err := s.notifyCompanions(ctx, r, patient, dataTypeGlucose, fmt.Sprintf("%d mg/dL", rec.Level), assessment)
	return err
}

func (s *HealthRecordService) evaluateBloodPressure(ctx context.Context, r *repository.Repositories, patient *models.User, rec *models.BloodPressureRecord) error {
	assessment := s.evaluator.EvaluateBloodPressure(rec.Systolic, rec.Diastolic)
	if !assessment.Risky {
		return nil
	}
	value := fmt.Sprintf("%d/%d mmHg", rec.Systolic, rec.Diastolic)
	_, err := s.notifyCompanions(ctx, r, patient, dataTypeBloodPressure, value, assessment)
	return err
}

// notifyCompanions writes one notification per companion linked to the patient,
// pending links included and regardless of category level. It runs on the
// caller's transaction so alerts commit or roll back with the reading.
func (s *HealthRecordService) notifyCompanions(ctx context.Context, r *repository.Repositories, patient *models.User, dataType, value string, assessment risk.Assessment) (int, error) {
	companionIDs, err := r.Links.ListCompanionIDs(ctx, patient.ID)
	if err != nil {
		return 0, err
	}

	message := AlertMessage(patient.Username, dataType, value, assessment)
	now := s.clock.Now()
	for _, companionID := range companionIDs {
		n := &models.Notification{
			ID:          s.ids.New(),
			RecipientID: companionID,
			Message:     message,
			Timestamp:   now,
		}
		if err := r.Notifications.Create(ctx, n); err != nil {
			return 0, err
		}
	}

	log.Info().
		Str("patient_id", patient.ID).
		Str("data_type", dataType).
		Int("recipients", len(companionIDs)).
		Msg("Risk alert fanned out")

	return len(companionIDs), nil
}

// AlertMessage formats the notification text for a risky reading
func AlertMessage(username, dataType, value string, assessment risk.Assessment) string {
	return fmt.Sprintf("%s logged a risky %s reading (%s): %s", username, dataType, value, assessment.Message())
}

// hiddenNotFound reports a missing record as ErrUnauthorized
func hiddenNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUnauthorized
	}
	return err
}

// duplicateOr maps a unique violation that slipped past the slot check to ErrDuplicate
func duplicateOr(err error) error {
	if errors.Is(err, database.ErrUniqueViolation) {
		return ErrDuplicate
	}
	return err
}
