package testutil

import (
	"context"
	"testing"
	"time"

	"health-companion-backend/internal/access"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/repository"

	"github.com/google/uuid"
)

var fixtureTime = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

// CreateUser inserts a user with the given role. Email is derived from the username.
func CreateUser(t *testing.T, store *repository.Store, username string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "not-a-real-hash",
		Role:         role,
		CreatedAt:    fixtureTime,
	}
	if err := store.Repos().Users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

// CreatePatient inserts a PATIENT user
func CreatePatient(t *testing.T, store *repository.Store, username string) *models.User {
	t.Helper()
	return CreateUser(t, store, username, models.RolePatient)
}

// CreateCompanion inserts a COMPANION user
func CreateCompanion(t *testing.T, store *repository.Store, username string) *models.User {
	t.Helper()
	return CreateUser(t, store, username, models.RoleCompanion)
}

// CreateLink inserts a link between patient and companion with the given levels
func CreateLink(t *testing.T, store *repository.Store, patientID, companionID string, levels access.Levels) *models.CompanionAccessLink {
	t.Helper()

	link := &models.CompanionAccessLink{
		ID:          uuid.New().String(),
		PatientID:   patientID,
		CompanionID: companionID,
		CreatedAt:   fixtureTime,
		UpdatedAt:   fixtureTime,
	}
	levels.Apply(link)
	if err := store.Repos().Links.Create(context.Background(), link); err != nil {
		t.Fatalf("failed to create link: %v", err)
	}
	return link
}
