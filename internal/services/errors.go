package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate means a record or account with the same unique key already exists
	ErrDuplicate = errors.New("duplicate entry")
	// ErrNotFound means the addressed user or patient does not exist or is not visible
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the actor may not perform the operation.
	// It is also returned for missing links and records addressed by id so existence is not revealed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAlreadyLinked means a link between the patient and the companion already exists
	ErrAlreadyLinked = errors.New("already linked")
	// ErrStorage wraps unexpected database failures
	ErrStorage = errors.New("storage failure")
)

// ValidationError describes the first invalid field of an input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var domainErrors = []error{ErrValidation, ErrDuplicate, ErrNotFound, ErrUnauthorized, ErrAlreadyLinked, ErrStorage}

// storageError passes domain errors through and wraps anything else in ErrStorage
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
