package domain

import (
	"time"

	"github.com/google/uuid"
)

const maxTimeEntryNotesLen = 1024

// TimeSource records how a time entry was captured.
type TimeSource string

const (
	SourceManual TimeSource = "Manual"
	SourceTimer  TimeSource = "Timer"
	SourceImport TimeSource = "Import"
)

// Valid reports whether s is a known source.
func (s TimeSource) Valid() bool {
	switch s {
	case SourceManual, SourceTimer, SourceImport:
		return true
	}
	return false
}

// TimeEntry is a span of time logged against a work item.
type TimeEntry struct {
	Identity
	Audit
	workItemID uuid.UUID
	startedAt  time.Time
	endedAt    time.Time
	source     TimeSource
	notes      string
}

func checkSpan(start, end time.Time) error {
	if end.Before(start) {
		return newValidationError(EntityTimeEntry, "ended_at", "must not be before started_at")
	}
	return nil
}

// NewTimeEntry rejects spans whose end precedes their start.
func NewTimeEntry(id, workItemID uuid.UUID, start, end time.Time, source TimeSource, notes string, at time.Time) (*TimeEntry, error) {
	if err := requireRef(EntityTimeEntry, "work_item_id", workItemID); err != nil {
		return nil, err
	}
	if err := checkSpan(start, end); err != nil {
		return nil, err
	}
	if !source.Valid() {
		return nil, newValidationError(EntityTimeEntry, "source", "unknown source %q", source)
	}
	n, err := optionalText(EntityTimeEntry, "notes", notes, maxTimeEntryNotesLen)
	if err != nil {
		return nil, err
	}
	return &TimeEntry{
		Identity:   newIdentity(id),
		Audit:      newAudit(at),
		workItemID: workItemID,
		startedAt:  start.UTC(),
		endedAt:    end.UTC(),
		source:     source,
		notes:      n,
	}, nil
}

func (e *TimeEntry) WorkItemID() uuid.UUID { return e.workItemID }

func (e *TimeEntry) StartedAt() time.Time { return e.startedAt }

func (e *TimeEntry) EndedAt() time.Time { return e.endedAt }

func (e *TimeEntry) Source() TimeSource { return e.source }

func (e *TimeEntry) Notes() string { return e.notes }

// Duration is derived from the span and never stored.
func (e *TimeEntry) Duration() time.Duration { return e.endedAt.Sub(e.startedAt) }

// Reschedule moves the span. The entry is unchanged on error.
func (e *TimeEntry) Reschedule(start, end time.Time, at time.Time) error {
	if err := checkSpan(start, end); err != nil {
		return err
	}
	e.startedAt, e.endedAt = start.UTC(), end.UTC()
	e.touch(at)
	return nil
}

// SetNotes replaces the notes.
func (e *TimeEntry) SetNotes(notes string, at time.Time) error {
	n, err := optionalText(EntityTimeEntry, "notes", notes, maxTimeEntryNotesLen)
	if err != nil {
		return err
	}
	e.notes = n
	e.touch(at)
	return nil
}

// TimeEntryRecord is the persisted shape of a time entry.
type TimeEntryRecord struct {
	ID         uuid.UUID        `json:"id"`
	Token      ConcurrencyToken `json:"token,omitempty"`
	WorkItemID uuid.UUID        `json:"work_item_id"`
	StartedAt  time.Time        `json:"started_at"`
	EndedAt    time.Time        `json:"ended_at"`
	Source     TimeSource       `json:"source"`
	Notes      string           `json:"notes,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (e *TimeEntry) Record() TimeEntryRecord {
	return TimeEntryRecord{
		ID:         e.ID(),
		Token:      e.Token(),
		WorkItemID: e.workItemID,
		StartedAt:  e.startedAt,
		EndedAt:    e.endedAt,
		Source:     e.source,
		Notes:      e.notes,
		CreatedAt:  e.createdAt,
		UpdatedAt:  e.updatedAt,
	}
}

func RestoreTimeEntry(r TimeEntryRecord) *TimeEntry {
	return &TimeEntry{
		Identity:   Identity{id: r.ID, token: r.Token.Clone()},
		Audit:      restoreAudit(r.CreatedAt, r.UpdatedAt),
		workItemID: r.WorkItemID,
		startedAt:  r.StartedAt.UTC(),
		endedAt:    r.EndedAt.UTC(),
		source:     r.Source,
		notes:      r.Notes,
	}
}
