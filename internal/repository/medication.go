package repository

import (
	"context"
	"fmt"

	"health-companion-backend/internal/database"
	"health-companion-backend/internal/models"
)

// MedicationRepository handles database operations for medications and their dose logs
type MedicationRepository struct {
	db database.Querier
}

// NewMedicationRepository creates a new medication repository
func NewMedicationRepository(db database.Querier) *MedicationRepository {
	return &MedicationRepository{db: db}
}

const medicationColumns = `id, user_id, name, dosage, frequency, time_of_day, created_at`

func scanMedication(row database.Row) (*models.Medication, error) {
	var med models.Medication
	if err := row.Scan(&med.ID, &med.UserID, &med.Name, &med.Dosage, &med.Frequency, &med.TimeOfDay, &med.CreatedAt); err != nil {
		return nil, err
	}
	med.Logs = []models.MedicationLog{}
	return &med, nil
}

// Create inserts a medication
func (r *MedicationRepository) Create(ctx context.Context, med *models.Medication) error {
	query := `
		INSERT INTO medications (id, user_id, name, dosage, frequency, time_of_day, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, med.ID, med.UserID, med.Name, med.Dosage, med.Frequency, med.TimeOfDay, med.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}
	return nil
}

// GetByID retrieves a medication by ID without its logs
func (r *MedicationRepository) GetByID(ctx context.Context, id string) (*models.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = $1`
	med, err := scanMedication(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "get medication")
	}
	return med, nil
}

// Update overwrites the descriptive fields of a medication
func (r *MedicationRepository) Update(ctx context.Context, med *models.Medication) error {
	query := `
		UPDATE medications
		SET name = $1, dosage = $2, frequency = $3, time_of_day = $4
		WHERE id = $5
	`
	n, err := r.db.Exec(ctx, query, med.Name, med.Dosage, med.Frequency, med.TimeOfDay, med.ID)
	if err != nil {
		return fmt.Errorf("failed to update medication: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a medication; its logs go with it through ON DELETE CASCADE
func (r *MedicationRepository) Delete(ctx context.Context, id string) error {
	n, err := r.db.Exec(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns a user's medications with their logs, newest log first
func (r *MedicationRepository) ListByUser(ctx context.Context, userID string) ([]*models.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE user_id = $1 ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	meds := []*models.Medication{}
	byID := make(map[string]*models.Medication)
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		meds = append(meds, med)
		byID[med.ID] = med
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	if len(meds) == 0 {
		return meds, nil
	}

	logs, err := r.listLogsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, l := range logs {
		if med, ok := byID[l.MedicationID]; ok {
			med.Logs = append(med.Logs, l)
		}
	}
	return meds, nil
}

func (r *MedicationRepository) listLogsByUser(ctx context.Context, userID string) ([]models.MedicationLog, error) {
	query := `
		SELECT ml.id, ml.medication_id, ml.taken_at
		FROM medication_logs ml
		JOIN medications m ON m.id = ml.medication_id
		WHERE m.user_id = $1
		ORDER BY ml.taken_at DESC, ml.id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medication logs: %w", err)
	}
	defer rows.Close()

	var logs []models.MedicationLog
	for rows.Next() {
		var l models.MedicationLog
		if err := rows.Scan(&l.ID, &l.MedicationID, &l.TakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan medication log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list medication logs: %w", err)
	}
	return logs, nil
}

// CreateLog records a dose for a medication
func (r *MedicationRepository) CreateLog(ctx context.Context, entry *models.MedicationLog) error {
	query := `INSERT INTO medication_logs (id, medication_id, taken_at) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, query, entry.ID, entry.MedicationID, entry.TakenAt); err != nil {
		return fmt.Errorf("failed to create medication log: %w", err)
	}
	return nil
}
