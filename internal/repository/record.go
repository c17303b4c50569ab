package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"health-companion-backend/internal/database"
	"health-companion-backend/internal/models"
)

// DateRange restricts a listing to records whose date falls in [From, To].
// Empty bounds are open.
type DateRange struct {
	From string
	To   string
}

// where appends the range conditions to conds, numbering placeholders after args
func (d DateRange) where(conds []string, args []any) ([]string, []any) {
	if d.From != "" {
		args = append(args, d.From)
		conds = append(conds, "record_date >= $"+strconv.Itoa(len(args)))
	}
	if d.To != "" {
		args = append(args, d.To)
		conds = append(conds, "record_date <= $"+strconv.Itoa(len(args)))
	}
	return conds, args
}

// slotTaken checks the (user, date, time) uniqueness rule, optionally ignoring one record
func slotTaken(ctx context.Context, db database.Querier, table, userID, date, clock, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM ` + table + ` WHERE user_id = $1 AND record_date = $2 AND record_time = $3`
	args := []any{userID, date, clock}
	if excludeID != "" {
		query += ` AND id <> $4`
		args = append(args, excludeID)
	}
	query += `)`

	var exists bool
	if err := db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check %s slot: %w", table, err)
	}
	return exists, nil
}

// GlucoseRepository handles database operations for glucose readings
type GlucoseRepository struct {
	db database.Querier
}

// NewGlucoseRepository creates a new glucose repository
func NewGlucoseRepository(db database.Querier) *GlucoseRepository {
	return &GlucoseRepository{db: db}
}

const glucoseColumns = `id, user_id, glucose_level, glucose_type, record_date, record_time, created_at`

func scanGlucose(row database.Row) (*models.GlucoseRecord, error) {
	var rec models.GlucoseRecord
	var glucoseType string
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Level, &glucoseType, &rec.Date, &rec.Time, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Type = models.GlucoseType(glucoseType)
	return &rec, nil
}

// Create inserts a glucose record
func (r *GlucoseRepository) Create(ctx context.Context, rec *models.GlucoseRecord) error {
	query := `
		INSERT INTO glucose_records (id, user_id, glucose_level, glucose_type, record_date, record_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, rec.ID, rec.UserID, rec.Level, string(rec.Type), rec.Date, rec.Time, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create glucose record: %w", err)
	}
	return nil
}

// GetByID retrieves a glucose record by ID
func (r *GlucoseRepository) GetByID(ctx context.Context, id string) (*models.GlucoseRecord, error) {
	query := `SELECT ` + glucoseColumns + ` FROM glucose_records WHERE id = $1`
	rec, err := scanGlucose(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "get glucose record")
	}
	return rec, nil
}

// SlotTaken reports whether userID already has a glucose record at date and time.
// excludeID, when set, is ignored so a record can keep its own slot on update.
func (r *GlucoseRepository) SlotTaken(ctx context.Context, userID, date, clock, excludeID string) (bool, error) {
	return slotTaken(ctx, r.db, "glucose_records", userID, date, clock, excludeID)
}

// Update overwrites the reading fields of a glucose record
func (r *GlucoseRepository) Update(ctx context.Context, rec *models.GlucoseRecord) error {
	query := `
		UPDATE glucose_records
		SET glucose_level = $1, glucose_type = $2, record_date = $3, record_time = $4
		WHERE id = $5
	`
	n, err := r.db.Exec(ctx, query, rec.Level, string(rec.Type), rec.Date, rec.Time, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update glucose record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a glucose record by ID
func (r *GlucoseRepository) Delete(ctx context.Context, id string) error {
	n, err := r.db.Exec(ctx, `DELETE FROM glucose_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete glucose record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns a user's glucose records, newest first
func (r *GlucoseRepository) ListByUser(ctx context.Context, userID string, dates DateRange) ([]*models.GlucoseRecord, error) {
	conds, args := dates.where([]string{"user_id = $1"}, []any{userID})
	query := `SELECT ` + glucoseColumns + ` FROM glucose_records WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY record_date DESC, record_time DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list glucose records: %w", err)
	}
	defer rows.Close()

	records := []*models.GlucoseRecord{}
	for rows.Next() {
		rec, err := scanGlucose(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan glucose record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list glucose records: %w", err)
	}
	return records, nil
}

// BloodPressureRepository handles database operations for blood pressure readings
type BloodPressureRepository struct {
	db database.Querier
}

// NewBloodPressureRepository creates a new blood pressure repository
func NewBloodPressureRepository(db database.Querier) *BloodPressureRepository {
	return &BloodPressureRepository{db: db}
}

const bloodPressureColumns = `id, user_id, systolic, diastolic, record_date, record_time, created_at`

func scanBloodPressure(row database.Row) (*models.BloodPressureRecord, error) {
	var rec models.BloodPressureRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Systolic, &rec.Diastolic, &rec.Date, &rec.Time, &rec.CreatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a blood pressure record
func (r *BloodPressureRepository) Create(ctx context.Context, rec *models.BloodPressureRecord) error {
	query := `
		INSERT INTO blood_pressure_records (id, user_id, systolic, diastolic, record_date, record_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, rec.ID, rec.UserID, rec.Systolic, rec.Diastolic, rec.Date, rec.Time, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create blood pressure record: %w", err)
	}
	return nil
}

// GetByID retrieves a blood pressure record by ID
func (r *BloodPressureRepository) GetByID(ctx context.Context, id string) (*models.BloodPressureRecord, error) {
	query := `SELECT ` + bloodPressureColumns + ` FROM blood_pressure_records WHERE id = $1`
	rec, err := scanBloodPressure(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "get blood pressure record")
	}
	return rec, nil
}

// SlotTaken reports whether userID already has a blood pressure record at date and time
func (r *BloodPressureRepository) SlotTaken(ctx context.Context, userID, date, clock, excludeID string) (bool, error) {
	return slotTaken(ctx, r.db, "blood_pressure_records", userID, date, clock, excludeID)
}

// Update overwrites the reading fields of a blood pressure record
func (r *BloodPressureRepository) Update(ctx context.Context, rec *models.BloodPressureRecord) error {
	query := `
		UPDATE blood_pressure_records
		SET systolic = $1, diastolic = $2, record_date = $3, record_time = $4
		WHERE id = $5
	`
	n, err := r.db.Exec(ctx, query, rec.Systolic, rec.Diastolic, rec.Date, rec.Time, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update blood pressure record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a blood pressure record by ID
func (r *BloodPressureRepository) Delete(ctx context.Context, id string) error {
	n, err := r.db.Exec(ctx, `DELETE FROM blood_pressure_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blood pressure record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns a user's blood pressure records, newest first
func (r *BloodPressureRepository) ListByUser(ctx context.Context, userID string, dates DateRange) ([]*models.BloodPressureRecord, error) {
	conds, args := dates.where([]string{"user_id = $1"}, []any{userID})
	query := `SELECT ` + bloodPressureColumns + ` FROM blood_pressure_records WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY record_date DESC, record_time DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list blood pressure records: %w", err)
	}
	defer rows.Close()

	records := []*models.BloodPressureRecord{}
	for rows.Next() {
		rec, err := scanBloodPressure(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blood pressure record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list blood pressure records: %w", err)
	}
	return records, nil
}
