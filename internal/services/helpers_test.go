package services

import (
	"context"
	"errors"
	"testing"

	"health-companion-backend/internal/access"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/repository"
	"health-companion-backend/internal/risk"
	"health-companion-backend/internal/testutil"
)

type testEnv struct {
	store         *repository.Store
	clock         *testutil.StubClock
	connections   *ConnectionService
	records       *HealthRecordService
	medications   *MedicationService
	notifications *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := testutil.NewTestStore(t)
	clock := testutil.FixedClock()
	ids := UUIDGenerator{}

	return &testEnv{
		store:         store,
		clock:         clock,
		connections:   NewConnectionService(store, clock, ids),
		records:       NewHealthRecordService(store, risk.NewEvaluator(), clock, ids),
		medications:   NewMedicationService(store, clock, ids),
		notifications: NewNotificationService(store),
	}
}

// linkWith creates a link with the given levels directly in storage
func (e *testEnv) linkWith(t *testing.T, patient, companion *models.User, levels access.Levels) *models.CompanionAccessLink {
	t.Helper()
	return testutil.CreateLink(t, e.store, patient.ID, companion.ID, levels)
}

func (e *testEnv) notificationsFor(t *testing.T, recipientID string) []*models.Notification {
	t.Helper()
	list, err := e.notifications.List(context.Background(), recipientID, false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return list
}

func assertErrorIs(t *testing.T, name string, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Errorf("%s error = %v, want %v", name, err, want)
	}
}

func glucoseInput(level int, date, clock string) GlucoseInput {
	return GlucoseInput{Level: level, Type: models.GlucoseFasting, Date: date, Time: clock}
}
