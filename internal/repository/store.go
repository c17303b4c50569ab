// Package repository holds the SQL for every table. Repositories run against a
// database.Querier so the same code works on the pool and inside a transaction.
package repository

import (
	"context"
	"errors"
	"fmt"

	"health-companion-backend/internal/database"
)

// ErrNotFound is returned when a lookup by key matches no row
var ErrNotFound = errors.New("not found")

// Repositories groups every repository bound to the same Querier
type Repositories struct {
	Users         *UserRepository
	Links         *LinkRepository
	Glucose       *GlucoseRepository
	BloodPressure *BloodPressureRepository
	Medications   *MedicationRepository
	Notifications *NotificationRepository
}

func newRepositories(q database.Querier) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(q),
		Links:         NewLinkRepository(q),
		Glucose:       NewGlucoseRepository(q),
		BloodPressure: NewBloodPressureRepository(q),
		Medications:   NewMedicationRepository(q),
		Notifications: NewNotificationRepository(q),
	}
}

// Store is the unit of work over a database
type Store struct {
	db    database.DB
	repos *Repositories
}

// NewStore creates a store backed by db
func NewStore(db database.DB) *Store {
	return &Store{db: db, repos: newRepositories(db)}
}

// Repos returns repositories that run each statement on its own
func (s *Store) Repos() *Repositories {
	return s.repos
}

// WithinTx runs fn with repositories bound to a single transaction.
// Everything fn writes commits together when it returns nil and is rolled back otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(r *Repositories) error) error {
	return s.db.InTx(ctx, func(q database.Querier) error {
		return fn(newRepositories(q))
	})
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// notFound maps the driver's no-rows error to ErrNotFound
func notFound(err error, msg string) error {
	if errors.Is(err, database.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", msg, err)
}
