package services

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time for testing
type Clock interface {
	Now() time.Time
}

// RealClock uses the system clock in UTC
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator abstracts ID creation for testing
type IDGenerator interface {
	New() string
}

// UUIDGenerator generates random UUIDs
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
