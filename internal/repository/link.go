package repository

import (
	"context"
	"fmt"

	"health-companion-backend/internal/database"
	"health-companion-backend/internal/models"
)

// LinkRepository handles database operations for companion access links
type LinkRepository struct {
	db database.Querier
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db database.Querier) *LinkRepository {
	return &LinkRepository{db: db}
}

const linkColumns = `l.id, l.patient_id, l.companion_id, l.medication_access, l.glucose_access,
	l.blood_pressure_access, l.export_access, l.created_at, l.updated_at`

// scanLink reads linkColumns followed by any extra destinations
func scanLink(row database.Row, extra ...any) (*models.CompanionAccessLink, error) {
	var link models.CompanionAccessLink
	var medication, glucose, bloodPressure string

	dest := []any{
		&link.ID, &link.PatientID, &link.CompanionID, &medication, &glucose,
		&bloodPressure, &link.ExportAccess, &link.CreatedAt, &link.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	var err error
	if link.MedicationAccess, err = models.ParseAccessLevel(medication); err != nil {
		return nil, fmt.Errorf("link %s: %w", link.ID, err)
	}
	if link.GlucoseAccess, err = models.ParseAccessLevel(glucose); err != nil {
		return nil, fmt.Errorf("link %s: %w", link.ID, err)
	}
	if link.BloodPressureAccess, err = models.ParseAccessLevel(bloodPressure); err != nil {
		return nil, fmt.Errorf("link %s: %w", link.ID, err)
	}
	return &link, nil
}

// Create inserts a link. An existing link for the same pair surfaces as database.ErrUniqueViolation.
func (r *LinkRepository) Create(ctx context.Context, link *models.CompanionAccessLink) error {
	query := `
		INSERT INTO companion_access_links (
			id, patient_id, companion_id, medication_access, glucose_access,
			blood_pressure_access, export_access, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		link.ID, link.PatientID, link.CompanionID,
		link.MedicationAccess.String(), link.GlucoseAccess.String(), link.BloodPressureAccess.String(),
		link.ExportAccess, link.CreatedAt, link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// GetByID retrieves a link by ID
func (r *LinkRepository) GetByID(ctx context.Context, id string) (*models.CompanionAccessLink, error) {
	query := `SELECT ` + linkColumns + ` FROM companion_access_links l WHERE l.id = $1`
	link, err := scanLink(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "get link")
	}
	return link, nil
}

// GetByPair retrieves the link between a patient and a companion
func (r *LinkRepository) GetByPair(ctx context.Context, patientID, companionID string) (*models.CompanionAccessLink, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM companion_access_links l
		WHERE l.patient_id = $1 AND l.companion_id = $2
	`
	link, err := scanLink(r.db.QueryRow(ctx, query, patientID, companionID))
	if err != nil {
		return nil, notFound(err, "get link by pair")
	}
	return link, nil
}

// Exists reports whether a link between the pair exists
func (r *LinkRepository) Exists(ctx context.Context, patientID, companionID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM companion_access_links WHERE patient_id = $1 AND companion_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, patientID, companionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check link existence: %w", err)
	}
	return exists, nil
}

// ListByPatient returns every link of a patient with the companion's username and email, oldest first
func (r *LinkRepository) ListByPatient(ctx context.Context, patientID string) ([]*models.CompanionAccessLink, error) {
	query := `
		SELECT ` + linkColumns + `, u.username, u.email
		FROM companion_access_links l
		JOIN users u ON u.id = l.companion_id
		WHERE l.patient_id = $1
		ORDER BY l.created_at, l.id
	`
	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links by patient: %w", err)
	}
	defer rows.Close()

	links := []*models.CompanionAccessLink{}
	for rows.Next() {
		var username, email string
		link, err := scanLink(rows, &username, &email)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		link.CompanionUsername = username
		link.CompanionEmail = email
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list links by patient: %w", err)
	}
	return links, nil
}

// ListByCompanion returns every link of a companion with the patient's username, oldest first
func (r *LinkRepository) ListByCompanion(ctx context.Context, companionID string) ([]*models.CompanionAccessLink, error) {
	query := `
		SELECT ` + linkColumns + `, u.username
		FROM companion_access_links l
		JOIN users u ON u.id = l.patient_id
		WHERE l.companion_id = $1
		ORDER BY l.created_at, l.id
	`
	rows, err := r.db.Query(ctx, query, companionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links by companion: %w", err)
	}
	defer rows.Close()

	links := []*models.CompanionAccessLink{}
	for rows.Next() {
		var username string
		link, err := scanLink(rows, &username)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		link.PatientUsername = username
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list links by companion: %w", err)
	}
	return links, nil
}

// ListCompanionIDs returns the companion of every link of a patient, pending links included
func (r *LinkRepository) ListCompanionIDs(ctx context.Context, patientID string) ([]string, error) {
	query := `SELECT companion_id FROM companion_access_links WHERE patient_id = $1 ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list companions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan companion id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list companions: %w", err)
	}
	return ids, nil
}

// Update overwrites the access levels and export flag of a link
func (r *LinkRepository) Update(ctx context.Context, link *models.CompanionAccessLink) error {
	query := `
		UPDATE companion_access_links
		SET medication_access = $1, glucose_access = $2, blood_pressure_access = $3,
			export_access = $4, updated_at = $5
		WHERE id = $6
	`
	n, err := r.db.Exec(ctx, query,
		link.MedicationAccess.String(), link.GlucoseAccess.String(), link.BloodPressureAccess.String(),
		link.ExportAccess, link.UpdatedAt, link.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a link by ID
func (r *LinkRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM companion_access_links WHERE id = $1`
	n, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
