package services

import (
	"context"
	"testing"

	"health-companion-backend/internal/access"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/testutil"
)

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	patient := testutil.CreatePatient(t, env.store, "pat")
	c1 := testutil.CreateCompanion(t, env.store, "c1")
	c2 := testutil.CreateCompanion(t, env.store, "c2")
	env.linkWith(t, patient, c1, access.Levels{Glucose: models.AccessView})
	env.linkWith(t, patient, c2, access.Levels{})

	for i, clock := range []string{"06:00", "07:00"} {
		if _, err := env.records.AddGlucoseRecord(ctx, patient.ID, patient.ID, glucoseInput(55+i, "2024-01-15", clock)); err != nil {
			t.Fatalf("AddGlucoseRecord() error = %v", err)
		}
	}

	count, err := env.notifications.UnreadCount(ctx, c1.ID)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("UnreadCount() = %d, want 2", count)
	}

	notes := env.notificationsFor(t, c1.ID)

	assertErrorIs(t, "MarkRead(by other companion)", env.notifications.MarkRead(ctx, notes[0].ID, c2.ID), ErrUnauthorized)
	assertErrorIs(t, "MarkRead(missing)", env.notifications.MarkRead(ctx, "missing", c1.ID), ErrUnauthorized)

	if err := env.notifications.MarkRead(ctx, notes[0].ID, c1.ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if err := env.notifications.MarkRead(ctx, notes[0].ID, c1.ID); err != nil {
		t.Errorf("MarkRead() twice error = %v, want nil", err)
	}

	unread, err := env.notifications.List(ctx, c1.ID, true)
	if err != nil {
		t.Fatalf("List(unread) error = %v", err)
	}
	if len(unread) != 1 {
		t.Errorf("List(unread) = %d, want 1", len(unread))
	}

	changed, err := env.notifications.MarkAllRead(ctx, c1.ID)
	if err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	if changed != 1 {
		t.Errorf("MarkAllRead() = %d, want 1", changed)
	}

	// c2's notifications are untouched
	count, err = env.notifications.UnreadCount(ctx, c2.ID)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("UnreadCount(c2) = %d, want 2", count)
	}
}
