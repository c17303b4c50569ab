package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"health-companion-backend/internal/access"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// ObjectStore receives export files
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ExportService writes a patient's data to CSV in object storage
type ExportService struct {
	store   *repository.Store
	objects ObjectStore
	urlTTL  time.Duration
	clock   Clock
	ids     IDGenerator
}

// NewExportService creates a new export service
func NewExportService(store *repository.Store, objects ObjectStore, urlTTL time.Duration, clock Clock, ids IDGenerator) *ExportService {
	return &ExportService{
		store:   store,
		objects: objects,
		urlTTL:  urlTTL,
		clock:   clock,
		ids:     ids,
	}
}

// ExportResult points at a finished export
type ExportResult struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expires_at"`
}

var exportHeader = []string{"category", "date", "time", "value", "detail"}

type exportData struct {
	medications   []*models.Medication
	glucose       []*models.GlucoseRecord
	bloodPressure []*models.BloodPressureRecord
}

// Export writes every category actorID may view to a CSV file and returns a download link.
// Companions also need export access on their link.
func (s *ExportService) Export(ctx context.Context, actorID, patientID string) (*ExportResult, error) {
	var data exportData
	err := s.store.WithinTx(ctx, func(r *repository.Repositories) error {
		var link *models.CompanionAccessLink
		if actorID != patientID {
			var err error
			if link, err = linkFor(ctx, r, patientID, actorID); err != nil {
				return err
			}
			if link == nil || !link.ExportAccess {
				return ErrUnauthorized
			}
		}
		if _, err := patientAccount(ctx, r, patientID); err != nil {
			return err
		}

		canView := func(c models.Category) bool {
			return access.CanAccess(actorID, patientID, link, c, models.AccessView)
		}
		var err error
		if canView(models.CategoryMedication) {
			if data.medications, err = r.Medications.ListByUser(ctx, patientID); err != nil {
				return err
			}
		}
		if canView(models.CategoryGlucose) {
			if data.glucose, err = r.Glucose.ListByUser(ctx, patientID, repository.DateRange{}); err != nil {
				return err
			}
		}
		if canView(models.CategoryBloodPressure) {
			if data.bloodPressure, err = r.BloodPressure.ListByUser(ctx, patientID, repository.DateRange{}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageError("export", err)
	}

	body, rows, err := encodeExport(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	id := s.ids.New()
	key := fmt.Sprintf("exports/%s/%s.csv", patientID, id)
	if err := s.objects.Put(ctx, key, "text/csv", body); err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}

	url, err := s.objects.PresignGet(ctx, key, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign export url: %w", err)
	}

	log.Info().
		Str("actor_id", actorID).
		Str("patient_id", patientID).
		Str("key", key).
		Int("rows", rows).
		Msg("Export created")

	return &ExportResult{
		ID:        id,
		Key:       key,
		URL:       url,
		Rows:      rows,
		ExpiresAt: s.clock.Now().Add(s.urlTTL),
	}, nil
}

// encodeExport renders one CSV row per reading, medication and dose
func encodeExport(data exportData) ([]byte, int, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, 0, err
	}

	var records [][]string
	for _, rec := range data.glucose {
		records = append(records, []string{string(models.CategoryGlucose), rec.Date, rec.Time, strconv.Itoa(rec.Level), string(rec.Type)})
	}
	for _, rec := range data.bloodPressure {
		records = append(records, []string{string(models.CategoryBloodPressure), rec.Date, rec.Time,
			fmt.Sprintf("%d/%d", rec.Systolic, rec.Diastolic), ""})
	}
	for _, med := range data.medications {
		records = append(records, []string{string(models.CategoryMedication), med.CreatedAt.Format(dateLayout), med.TimeOfDay,
			med.Name, joinNonEmpty(med.Dosage, med.Frequency)})
		for _, dose := range med.Logs {
			records = append(records, []string{"medication_dose", dose.TakenAt.Format(dateLayout), dose.TakenAt.Format("15:04"), med.Name, ""})
		}
	}

	for _, record := range records {
		if err := w.Write(record); err != nil {
			return nil, 0, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(records), nil
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += p
	}
	return out
}
