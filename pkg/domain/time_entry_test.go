package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTimeEntrySpan(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, testZone)
	end := start.Add(90 * time.Minute)
	e, err := NewTimeEntry(uuid.Nil, uuid.New(), start, end, SourceTimer, "pairing", start)
	if err != nil {
		t.Fatalf("new entry: %v", err)
	}
	if e.Duration() != 90*time.Minute || e.StartedAt().Location() != time.UTC {
		t.Fatalf("unexpected entry: %v %v", e.Duration(), e.StartedAt())
	}
	if _, err := NewTimeEntry(uuid.Nil, uuid.New(), end, start, SourceManual, "", start); !IsValidation(err) {
		t.Fatalf("expected end before start rejected")
	}
	if err := e.Reschedule(end, start, end); !IsValidation(err) {
		t.Fatalf("expected reschedule to reject inverted span")
	}
	if e.Duration() != 90*time.Minute {
		t.Fatalf("expected rejected reschedule to leave span unchanged")
	}
	if _, err := NewTimeEntry(uuid.Nil, uuid.New(), start, start, SourceImport, "", start); err != nil {
		t.Fatalf("expected zero-length entry allowed: %v", err)
	}
	if _, err := NewTimeEntry(uuid.Nil, uuid.New(), start, end, "Guess", "", start); !IsValidation(err) {
		t.Fatalf("expected unknown source rejected")
	}
}
