package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"health-companion-backend/internal/access"
	"health-companion-backend/internal/database"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/repository"
	"health-companion-backend/internal/testutil"

	"github.com/google/uuid"
)

var now = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	users := store.Repos().Users

	alice := testutil.CreatePatient(t, store, "alice")

	t.Run("GetByID", func(t *testing.T) {
		got, err := users.GetByID(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Username != "alice" || got.Role != models.RolePatient {
			t.Errorf("GetByID() = %+v", got)
		}
	})

	t.Run("GetByLogin accepts email or username", func(t *testing.T) {
		for _, login := range []string{"alice", "alice@example.com"} {
			got, err := users.GetByLogin(ctx, login)
			if err != nil {
				t.Fatalf("GetByLogin(%q) error = %v", login, err)
			}
			if got.ID != alice.ID {
				t.Errorf("GetByLogin(%q).ID = %s, want %s", login, got.ID, alice.ID)
			}
		}
	})

	t.Run("missing user", func(t *testing.T) {
		if _, err := users.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("GetByEmail() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := users.Create(ctx, &models.User{
			ID: uuid.New().String(), Email: "alice@example.com", Username: "alice2",
			PasswordHash: "x", Role: models.RolePatient, CreatedAt: now,
		})
		if !errors.Is(err, database.ErrUniqueViolation) {
			t.Errorf("Create() error = %v, want ErrUniqueViolation", err)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		exists, err := users.Exists(ctx, "other@example.com", "alice")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if !exists {
			t.Error("Exists() = false, want true for taken username")
		}
		exists, err = users.Exists(ctx, "other@example.com", "other")
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if exists {
			t.Error("Exists() = true, want false")
		}
	})
}

func TestLinkRepository(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	links := store.Repos().Links

	patient := testutil.CreatePatient(t, store, "pat")
	companion := testutil.CreateCompanion(t, store, "carer")
	link := testutil.CreateLink(t, store, patient.ID, companion.ID, access.Levels{Glucose: models.AccessView})

	t.Run("GetByID round-trips levels", func(t *testing.T) {
		got, err := links.GetByID(ctx, link.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.GlucoseAccess != models.AccessView || got.MedicationAccess != models.AccessNone {
			t.Errorf("levels = %v/%v, want VIEW/NONE", got.GlucoseAccess, got.MedicationAccess)
		}
	})

	t.Run("duplicate pair", func(t *testing.T) {
		dup := &models.CompanionAccessLink{
			ID: uuid.New().String(), PatientID: patient.ID, CompanionID: companion.ID,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := links.Create(ctx, dup); !errors.Is(err, database.ErrUniqueViolation) {
			t.Errorf("Create() error = %v, want ErrUniqueViolation", err)
		}
	})

	t.Run("list joins usernames", func(t *testing.T) {
		byPatient, err := links.ListByPatient(ctx, patient.ID)
		if err != nil {
			t.Fatalf("ListByPatient() error = %v", err)
		}
		if len(byPatient) != 1 || byPatient[0].CompanionUsername != "carer" || byPatient[0].CompanionEmail != "carer@example.com" {
			t.Errorf("ListByPatient() = %+v", byPatient)
		}

		byCompanion, err := links.ListByCompanion(ctx, companion.ID)
		if err != nil {
			t.Fatalf("ListByCompanion() error = %v", err)
		}
		if len(byCompanion) != 1 || byCompanion[0].PatientUsername != "pat" {
			t.Errorf("ListByCompanion() = %+v", byCompanion)
		}
	})

	t.Run("Update", func(t *testing.T) {
		link.MedicationAccess = models.AccessEdit
		link.ExportAccess = true
		link.UpdatedAt = now
		if err := links.Update(ctx, link); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, err := links.GetByPair(ctx, patient.ID, companion.ID)
		if err != nil {
			t.Fatalf("GetByPair() error = %v", err)
		}
		if got.MedicationAccess != models.AccessEdit || !got.ExportAccess {
			t.Errorf("after Update() = %+v", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := links.Delete(ctx, link.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := links.Delete(ctx, link.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
		exists, err := links.Exists(ctx, patient.ID, companion.ID)
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if exists {
			t.Error("Exists() = true after delete")
		}
	})
}

func TestGlucoseRepository(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	glucose := store.Repos().Glucose
	patient := testutil.CreatePatient(t, store, "pat")

	add := func(date, clock string, level int) *models.GlucoseRecord {
		t.Helper()
		rec := &models.GlucoseRecord{
			ID: uuid.New().String(), UserID: patient.ID, Level: level, Type: models.GlucoseFasting,
			Date: date, Time: clock, CreatedAt: now,
		}
		if err := glucose.Create(ctx, rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		return rec
	}

	first := add("2024-01-10", "08:00", 90)
	add("2024-01-11", "08:00", 95)
	add("2024-01-12", "08:00", 100)

	t.Run("SlotTaken", func(t *testing.T) {
		taken, err := glucose.SlotTaken(ctx, patient.ID, "2024-01-10", "08:00", "")
		if err != nil {
			t.Fatalf("SlotTaken() error = %v", err)
		}
		if !taken {
			t.Error("SlotTaken() = false, want true")
		}

		taken, err = glucose.SlotTaken(ctx, patient.ID, "2024-01-10", "08:00", first.ID)
		if err != nil {
			t.Fatalf("SlotTaken(exclude) error = %v", err)
		}
		if taken {
			t.Error("SlotTaken(exclude self) = true, want false")
		}
	})

	t.Run("unique slot enforced by schema", func(t *testing.T) {
		rec := &models.GlucoseRecord{
			ID: uuid.New().String(), UserID: patient.ID, Level: 120, Type: models.GlucosePostprandial,
			Date: "2024-01-10", Time: "08:00", CreatedAt: now,
		}
		if err := glucose.Create(ctx, rec); !errors.Is(err, database.ErrUniqueViolation) {
			t.Errorf("Create() error = %v, want ErrUniqueViolation", err)
		}
	})

	t.Run("ListByUser newest first with range", func(t *testing.T) {
		all, err := glucose.ListByUser(ctx, patient.ID, repository.DateRange{})
		if err != nil {
			t.Fatalf("ListByUser() error = %v", err)
		}
		if len(all) != 3 || all[0].Date != "2024-01-12" {
			t.Errorf("ListByUser() = %d records, first %+v", len(all), all)
		}

		ranged, err := glucose.ListByUser(ctx, patient.ID, repository.DateRange{From: "2024-01-11", To: "2024-01-11"})
		if err != nil {
			t.Fatalf("ListByUser(range) error = %v", err)
		}
		if len(ranged) != 1 || ranged[0].Level != 95 {
			t.Errorf("ListByUser(range) = %+v", ranged)
		}
	})

	t.Run("Update and Delete", func(t *testing.T) {
		first.Level = 150
		first.Type = models.GlucosePostprandial
		if err := glucose.Update(ctx, first); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, err := glucose.GetByID(ctx, first.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Level != 150 || got.Type != models.GlucosePostprandial {
			t.Errorf("after Update() = %+v", got)
		}

		if err := glucose.Delete(ctx, first.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := glucose.GetByID(ctx, first.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
		}
	})
}

func TestBloodPressureRepository(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	bp := store.Repos().BloodPressure
	patient := testutil.CreatePatient(t, store, "pat")

	rec := &models.BloodPressureRecord{
		ID: uuid.New().String(), UserID: patient.ID, Systolic: 120, Diastolic: 80,
		Date: "2024-01-15", Time: "09:00", CreatedAt: now,
	}
	if err := bp.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := bp.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Systolic != 120 || got.Diastolic != 80 || got.Date != "2024-01-15" || got.Time != "09:00" {
		t.Errorf("GetByID() = %+v", got)
	}

	rec.Systolic = 135
	if err := bp.Update(ctx, rec); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	list, err := bp.ListByUser(ctx, patient.ID, repository.DateRange{From: "2024-01-01"})
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(list) != 1 || list[0].Systolic != 135 {
		t.Errorf("ListByUser() = %+v", list)
	}

	if err := bp.Delete(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMedicationRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDatabase(t)
	store := repository.NewStore(db)
	meds := store.Repos().Medications
	patient := testutil.CreatePatient(t, store, "pat")

	med := &models.Medication{
		ID: uuid.New().String(), UserID: patient.ID, Name: "Metformin", Dosage: "500mg",
		Frequency: "twice daily", TimeOfDay: "08:00", CreatedAt: now,
	}
	if err := meds.Create(ctx, med); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		entry := &models.MedicationLog{ID: uuid.New().String(), MedicationID: med.ID, TakenAt: now.Add(time.Duration(i) * time.Hour)}
		if err := meds.CreateLog(ctx, entry); err != nil {
			t.Fatalf("CreateLog() error = %v", err)
		}
	}

	list, err := meds.ListByUser(ctx, patient.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(list) != 1 || len(list[0].Logs) != 2 {
		t.Fatalf("ListByUser() = %+v", list)
	}
	if !list[0].Logs[0].TakenAt.After(list[0].Logs[1].TakenAt) {
		t.Errorf("logs not newest first: %v, %v", list[0].Logs[0].TakenAt, list[0].Logs[1].TakenAt)
	}

	t.Run("delete cascades to logs", func(t *testing.T) {
		if err := meds.Delete(ctx, med.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		var count int
		if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM medication_logs`).Scan(&count); err != nil {
			t.Fatalf("count error = %v", err)
		}
		if count != 0 {
			t.Errorf("medication_logs count = %d, want 0", count)
		}
		list, err := meds.ListByUser(ctx, patient.ID)
		if err != nil {
			t.Fatalf("ListByUser() error = %v", err)
		}
		if len(list) != 0 {
			t.Errorf("ListByUser() after delete = %+v", list)
		}
	})
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	notes := store.Repos().Notifications
	companion := testutil.CreateCompanion(t, store, "carer")

	var ids []string
	for i := 0; i < 3; i++ {
		n := &models.Notification{
			ID: uuid.New().String(), RecipientID: companion.ID, Message: "alert",
			Timestamp: now.Add(time.Duration(i) * time.Minute),
		}
		if err := notes.Create(ctx, n); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, n.ID)
	}

	all, err := notes.ListByRecipient(ctx, companion.ID, false)
	if err != nil {
		t.Fatalf("ListByRecipient() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != ids[2] {
		t.Errorf("ListByRecipient() not newest first: %+v", all)
	}

	if err := notes.MarkRead(ctx, ids[0]); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	unread, err := notes.CountUnread(ctx, companion.ID)
	if err != nil {
		t.Fatalf("CountUnread() error = %v", err)
	}
	if unread != 2 {
		t.Errorf("CountUnread() = %d, want 2", unread)
	}

	onlyUnread, err := notes.ListByRecipient(ctx, companion.ID, true)
	if err != nil {
		t.Fatalf("ListByRecipient(unread) error = %v", err)
	}
	if len(onlyUnread) != 2 {
		t.Errorf("ListByRecipient(unread) = %d, want 2", len(onlyUnread))
	}

	changed, err := notes.MarkAllRead(ctx, companion.ID)
	if err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	if changed != 2 {
		t.Errorf("MarkAllRead() = %d, want 2", changed)
	}

	if err := notes.MarkRead(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("MarkRead(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	patient := testutil.CreatePatient(t, store, "pat")
	companion := testutil.CreateCompanion(t, store, "carer")

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(r *repository.Repositories) error {
		rec := &models.GlucoseRecord{
			ID: uuid.New().String(), UserID: patient.ID, Level: 60, Type: models.GlucoseFasting,
			Date: "2024-01-15", Time: "07:00", CreatedAt: now,
		}
		if err := r.Glucose.Create(ctx, rec); err != nil {
			return err
		}
		n := &models.Notification{ID: uuid.New().String(), RecipientID: companion.ID, Message: "x", Timestamp: now}
		if err := r.Notifications.Create(ctx, n); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want boom", err)
	}

	records, err := store.Repos().Glucose.ListByUser(ctx, patient.ID, repository.DateRange{})
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	notes, err := store.Repos().Notifications.ListByRecipient(ctx, companion.ID, false)
	if err != nil {
		t.Fatalf("ListByRecipient() error = %v", err)
	}
	if len(records) != 0 || len(notes) != 0 {
		t.Errorf("rolled back tx left %d records and %d notifications", len(records), len(notes))
	}
}
