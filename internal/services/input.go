package services

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// normalizeDate checks a calendar date in YYYY-MM-DD form
func normalizeDate(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalid(field, "is required")
	}
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return "", invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return d.Format(dateLayout), nil
}

// normalizeTime accepts HH:MM or HH:MM:SS and returns HH:MM
func normalizeTime(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalid(field, "is required")
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", invalid(field, "must be a time in HH:MM format")
}

// normalizeDateRange validates optional listing bounds
func normalizeDateRange(from, to string) (string, string, error) {
	var err error
	if strings.TrimSpace(from) != "" {
		if from, err = normalizeDate("from", from); err != nil {
			return "", "", err
		}
	}
	if strings.TrimSpace(to) != "" {
		if to, err = normalizeDate("to", to); err != nil {
			return "", "", err
		}
	}
	if from != "" && to != "" && from > to {
		return "", "", invalid("from", "must not be after to")
	}
	return strings.TrimSpace(from), strings.TrimSpace(to), nil
}
