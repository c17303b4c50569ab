package models

import "time"

// Role is the immutable kind of account chosen at registration
type Role string

const (
	RolePatient   Role = "PATIENT"
	RoleCompanion Role = "COMPANION"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleCompanion
}

// User represents a registered account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// CompanionAccessLink grants one companion tiered access to one patient's data
type CompanionAccessLink struct {
	ID                  string      `json:"id"`
	PatientID           string      `json:"patient_id"`
	CompanionID         string      `json:"companion_id"`
	MedicationAccess    AccessLevel `json:"medication_access"`
	GlucoseAccess       AccessLevel `json:"glucose_access"`
	BloodPressureAccess AccessLevel `json:"blood_pressure_access"`
	ExportAccess        bool        `json:"export_access"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`

	// Filled by list queries that join users
	PatientUsername   string `json:"patient_username,omitempty"`
	CompanionUsername string `json:"companion_username,omitempty"`
	CompanionEmail    string `json:"companion_email,omitempty"`
}

// Level returns the access level the link grants for a category
func (l *CompanionAccessLink) Level(c Category) AccessLevel {
	switch c {
	case CategoryMedication:
		return l.MedicationAccess
	case CategoryGlucose:
		return l.GlucoseAccess
	case CategoryBloodPressure:
		return l.BloodPressureAccess
	default:
		return AccessNone
	}
}

// GlucoseType distinguishes fasting from after-meal readings
type GlucoseType string

const (
	GlucoseFasting      GlucoseType = "FASTING"
	GlucosePostprandial GlucoseType = "POSTPRANDIAL"
)

// Valid reports whether t is a known glucose reading type
func (t GlucoseType) Valid() bool {
	return t == GlucoseFasting || t == GlucosePostprandial
}

// Label returns the human readable name used in alert text
func (t GlucoseType) Label() string {
	switch t {
	case GlucoseFasting:
		return "Fasting"
	case GlucosePostprandial:
		return "Postprandial"
	default:
		return string(t)
	}
}

// GlucoseRecord is a single glucose reading in mg/dL
type GlucoseRecord struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Level     int         `json:"glucose_level"`
	Type      GlucoseType `json:"glucose_type"`
	Date      string      `json:"date"`
	Time      string      `json:"time"`
	CreatedAt time.Time   `json:"created_at"`
}

// BloodPressureRecord is a single blood pressure reading in mmHg
type BloodPressureRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Systolic  int       `json:"systolic"`
	Diastolic int       `json:"diastolic"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

// Medication is a prescription the patient tracks
type Medication struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Dosage    string          `json:"dosage"`
	Frequency string          `json:"frequency"`
	TimeOfDay string          `json:"time_of_day"`
	CreatedAt time.Time       `json:"created_at"`
	Logs      []MedicationLog `json:"logs"`
}

// MedicationLog records a dose being taken
type MedicationLog struct {
	ID           string    `json:"id"`
	MedicationID string    `json:"medication_id"`
	TakenAt      time.Time `json:"taken_at"`
}

// Notification is an alert delivered to a companion
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	Timestamp   time.Time `json:"timestamp"`
}
