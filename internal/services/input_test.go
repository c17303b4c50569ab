package services

import (
	"errors"
	"testing"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2024-01-15", "2024-01-15", false},
		{" 2024-01-15 ", "2024-01-15", false},
		{"2024-02-30", "", true},
		{"15/01/2024", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := normalizeDate("date", tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("normalizeDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrValidation) {
			t.Errorf("normalizeDate(%q) error = %v, want ErrValidation", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("normalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"08:00", "08:00", false},
		{"8:05", "08:05", false},
		{"23:59:30", "23:59", false},
		{"24:00", "", true},
		{"noon", "", true},
	}
	for _, tt := range tests {
		got, err := normalizeTime("time", tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("normalizeTime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("normalizeTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDateRange(t *testing.T) {
	if _, _, err := normalizeDateRange("2024-02-01", "2024-01-01"); !errors.Is(err, ErrValidation) {
		t.Errorf("inverted range error = %v, want ErrValidation", err)
	}
	from, to, err := normalizeDateRange("", "2024-01-01")
	if err != nil || from != "" || to != "2024-01-01" {
		t.Errorf("normalizeDateRange(\"\", 2024-01-01) = %q, %q, %v", from, to, err)
	}
}

func TestStorageError(t *testing.T) {
	if storageError("op", nil) != nil {
		t.Error("storageError(nil) != nil")
	}
	if err := storageError("op", ErrDuplicate); err != ErrDuplicate {
		t.Errorf("storageError(ErrDuplicate) = %v, want passthrough", err)
	}
	if err := storageError("op", invalid("level", "bad")); !errors.Is(err, ErrValidation) {
		t.Errorf("storageError(validation) = %v, want ErrValidation", err)
	}
	err := storageError("op", errors.New("disk full"))
	if !errors.Is(err, ErrStorage) {
		t.Errorf("storageError(other) = %v, want ErrStorage", err)
	}
}
