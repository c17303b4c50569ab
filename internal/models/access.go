package models

import (
	"fmt"
	"strings"
)

// AccessLevel is the per-category permission a link grants.
// Levels are totally ordered: AccessNone < AccessView < AccessEdit.
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessView
	AccessEdit
)

func (l AccessLevel) String() string {
	switch l {
	case AccessNone:
		return "NONE"
	case AccessView:
		return "VIEW"
	case AccessEdit:
		return "EDIT"
	default:
		return fmt.Sprintf("AccessLevel(%d)", int(l))
	}
}

// Satisfies reports whether l grants at least the required level
func (l AccessLevel) Satisfies(required AccessLevel) bool {
	return l >= required
}

// ParseAccessLevel converts the stored or wire form into an AccessLevel
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE", "":
		return AccessNone, nil
	case "VIEW":
		return AccessView, nil
	case "EDIT":
		return AccessEdit, nil
	default:
		return AccessNone, fmt.Errorf("unknown access level %q", s)
	}
}

// MarshalText encodes the level by name
func (l AccessLevel) MarshalText() ([]byte, error) {
	if l < AccessNone || l > AccessEdit {
		return nil, fmt.Errorf("invalid access level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name
func (l *AccessLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseAccessLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Category is a class of health data a link can grant access to
type Category string

const (
	CategoryMedication    Category = "medication"
	CategoryGlucose       Category = "glucose"
	CategoryBloodPressure Category = "blood_pressure"
)

// Categories lists every access-controlled category
var Categories = []Category{CategoryMedication, CategoryGlucose, CategoryBloodPressure}
