// Package access evaluates what a companion may do with a patient's data.
// Everything here is pure: callers load the link and pass it in.
package access

import "health-companion-backend/internal/models"

// Levels is the complete set of per-category access levels for a link
type Levels struct {
	Medication    models.AccessLevel `json:"medication"`
	Glucose       models.AccessLevel `json:"glucose"`
	BloodPressure models.AccessLevel `json:"blood_pressure"`
}

// LevelsFromMap builds a complete Levels value. Categories missing from m are NONE.
func LevelsFromMap(m map[models.Category]models.AccessLevel) Levels {
	return Levels{
		Medication:    m[models.CategoryMedication],
		Glucose:       m[models.CategoryGlucose],
		BloodPressure: m[models.CategoryBloodPressure],
	}
}

// LevelsOf extracts the current levels of a link
func LevelsOf(link *models.CompanionAccessLink) Levels {
	return Levels{
		Medication:    link.MedicationAccess,
		Glucose:       link.GlucoseAccess,
		BloodPressure: link.BloodPressureAccess,
	}
}

// Apply overwrites all three category fields of link
func (l Levels) Apply(link *models.CompanionAccessLink) {
	link.MedicationAccess = l.Medication
	link.GlucoseAccess = l.Glucose
	link.BloodPressureAccess = l.BloodPressure
}

// AllNone reports whether no category is granted
func (l Levels) AllNone() bool {
	return l.Medication == models.AccessNone &&
		l.Glucose == models.AccessNone &&
		l.BloodPressure == models.AccessNone
}

// Valid reports whether every level is a known value
func (l Levels) Valid() bool {
	for _, lv := range []models.AccessLevel{l.Medication, l.Glucose, l.BloodPressure} {
		if lv < models.AccessNone || lv > models.AccessEdit {
			return false
		}
	}
	return true
}

// CanAccess reports whether actorID may act on patientID's data in category at the required level.
// The patient always passes. Anyone else needs a link that joins them to this patient and grants
// at least the required level; a nil or mismatched link denies.
func CanAccess(actorID, patientID string, link *models.CompanionAccessLink, category models.Category, required models.AccessLevel) bool {
	if actorID != "" && actorID == patientID {
		return true
	}
	if link == nil || link.PatientID != patientID || link.CompanionID != actorID {
		return false
	}
	actual := link.Level(category)
	if actual == models.AccessNone {
		return false
	}
	return actual.Satisfies(required)
}

// IsPending reports whether the link has not been granted any category yet
func IsPending(link *models.CompanionAccessLink) bool {
	return LevelsOf(link).AllNone()
}

// Partition splits links into pending and active for listing
type Partition struct {
	Pending []*models.CompanionAccessLink `json:"pending"`
	Active  []*models.CompanionAccessLink `json:"active"`
}

// PartitionLinks classifies each link by IsPending, preserving order
func PartitionLinks(links []*models.CompanionAccessLink) Partition {
	p := Partition{
		Pending: []*models.CompanionAccessLink{},
		Active:  []*models.CompanionAccessLink{},
	}
	for _, link := range links {
		if IsPending(link) {
			p.Pending = append(p.Pending, link)
		} else {
			p.Active = append(p.Active, link)
		}
	}
	return p
}
