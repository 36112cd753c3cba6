package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	maxTimezoneLen = 64
	maxWeekdayMask = 1<<7 - 1
)

// RecurrenceType names the repeat cadence of a due date.
type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "Daily"
	RecurWeekly  RecurrenceType = "Weekly"
	RecurMonthly RecurrenceType = "Monthly"
	RecurYearly  RecurrenceType = "Yearly"
)

// Valid reports whether r is a known cadence.
func (r RecurrenceType) Valid() bool {
	switch r {
	case RecurDaily, RecurWeekly, RecurMonthly, RecurYearly:
		return true
	}
	return false
}

// Weekday mask bits, Sunday first.
const (
	MaskSunday uint8 = 1 << iota
	MaskMonday
	MaskTuesday
	MaskWednesday
	MaskThursday
	MaskFriday
	MaskSaturday
)

// Recurrence describes how a due date repeats. Fields are stored verbatim;
// no dates are computed from them and they are not checked against each other.
type Recurrence struct {
	Type     *RecurrenceType `json:"type,omitempty"`
	Interval *int            `json:"interval,omitempty"`
	Count    *int            `json:"count,omitempty"`
	EndsAt   *time.Time      `json:"ends_at,omitempty"`
	Weekdays *uint8          `json:"weekdays,omitempty"`
}

func (r Recurrence) validate() error {
	if r.Type != nil && !r.Type.Valid() {
		return newValidationError(EntityDueDate, "recurrence_type", "unknown type %q", *r.Type)
	}
	if r.Interval != nil && *r.Interval < 1 {
		return newValidationError(EntityDueDate, "recurrence_interval", "must be at least 1")
	}
	if r.Count != nil && *r.Count < 1 {
		return newValidationError(EntityDueDate, "recurrence_count", "must be at least 1")
	}
	if r.Weekdays != nil && *r.Weekdays > maxWeekdayMask {
		return newValidationError(EntityDueDate, "recurrence_weekdays", "must only use bits 0-6")
	}
	return nil
}

func (r Recurrence) clone() Recurrence {
	out := Recurrence{EndsAt: utcPtr(r.EndsAt)}
	if r.Type != nil {
		t := *r.Type
		out.Type = &t
	}
	if r.Interval != nil {
		v := *r.Interval
		out.Interval = &v
	}
	if r.Count != nil {
		v := *r.Count
		out.Count = &v
	}
	if r.Weekdays != nil {
		v := *r.Weekdays
		out.Weekdays = &v
	}
	return out
}

// DueDate is the one-to-one due date of a work item, keyed by the item id.
type DueDate struct {
	Audit
	itemID     uuid.UUID
	dueAt      time.Time
	timezone   string
	recurring  bool
	recurrence Recurrence
}

// NewDueDate validates shapes only. The timezone is stored, not resolved.
func NewDueDate(itemID uuid.UUID, dueAt time.Time, timezone string, recurring bool, recurrence Recurrence, at time.Time) (*DueDate, error) {
	if err := requireRef(EntityDueDate, "item_id", itemID); err != nil {
		return nil, err
	}
	tz, err := requireText(EntityDueDate, "timezone", timezone, maxTimezoneLen)
	if err != nil {
		return nil, err
	}
	if err := recurrence.validate(); err != nil {
		return nil, err
	}
	return &DueDate{
		Audit:      newAudit(at),
		itemID:     itemID,
		dueAt:      dueAt.UTC(),
		timezone:   tz,
		recurring:  recurring,
		recurrence: recurrence.clone(),
	}, nil
}

// ItemID is also the due date's identity.
func (d *DueDate) ItemID() uuid.UUID { return d.itemID }

func (d *DueDate) DueAt() time.Time { return d.dueAt }

func (d *DueDate) Timezone() string { return d.timezone }

func (d *DueDate) Recurring() bool { return d.recurring }

func (d *DueDate) Recurrence() Recurrence { return d.recurrence.clone() }

// DueDateRecord is the persisted shape of a due date.
type DueDateRecord struct {
	ItemID     uuid.UUID  `json:"item_id"`
	DueAt      time.Time  `json:"due_at"`
	Timezone   string     `json:"timezone"`
	Recurring  bool       `json:"recurring"`
	Recurrence Recurrence `json:"recurrence"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (d *DueDate) Record() DueDateRecord {
	return DueDateRecord{
		ItemID:     d.itemID,
		DueAt:      d.dueAt,
		Timezone:   d.timezone,
		Recurring:  d.recurring,
		Recurrence: d.recurrence.clone(),
		CreatedAt:  d.createdAt,
		UpdatedAt:  d.updatedAt,
	}
}

func RestoreDueDate(r DueDateRecord) *DueDate {
	return &DueDate{
		Audit:      restoreAudit(r.CreatedAt, r.UpdatedAt),
		itemID:     r.ItemID,
		dueAt:      r.DueAt.UTC(),
		timezone:   r.Timezone,
		recurring:  r.Recurring,
		recurrence: r.Recurrence.clone(),
	}
}

// ReplaceDueDate returns the full replacement of existing by next. Every
// field comes from next except CreatedAt, which existing keeps.
func ReplaceDueDate(existing, next DueDateRecord) DueDateRecord {
	out := next
	out.Recurrence = next.Recurrence.clone()
	out.CreatedAt = existing.CreatedAt
	return out
}
