package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reminder notifies about a work item at a point in time.
type Reminder struct {
	Identity
	Audit
	workItemID uuid.UUID
	remindAt   time.Time
	dismissed  bool
}

func NewReminder(id, workItemID uuid.UUID, remindAt time.Time, at time.Time) (*Reminder, error) {
	if err := requireRef(EntityReminder, "work_item_id", workItemID); err != nil {
		return nil, err
	}
	return &Reminder{
		Identity:   newIdentity(id),
		Audit:      newAudit(at),
		workItemID: workItemID,
		remindAt:   remindAt.UTC(),
	}, nil
}

func (r *Reminder) WorkItemID() uuid.UUID { return r.workItemID }

func (r *Reminder) RemindAt() time.Time { return r.remindAt }

func (r *Reminder) Dismissed() bool { return r.dismissed }

// Snooze moves the reminder and clears the dismissed flag.
func (r *Reminder) Snooze(remindAt time.Time, at time.Time) {
	r.remindAt = remindAt.UTC()
	r.dismissed = false
	r.touch(at)
}

// Dismiss reports false and leaves the reminder untouched when already dismissed.
func (r *Reminder) Dismiss(at time.Time) bool {
	if r.dismissed {
		return false
	}
	r.dismissed = true
	r.touch(at)
	return true
}

// ReminderRecord is the persisted shape of a reminder.
type ReminderRecord struct {
	ID         uuid.UUID        `json:"id"`
	Token      ConcurrencyToken `json:"token,omitempty"`
	WorkItemID uuid.UUID        `json:"work_item_id"`
	RemindAt   time.Time        `json:"remind_at"`
	Dismissed  bool             `json:"dismissed"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (r *Reminder) Record() ReminderRecord {
	return ReminderRecord{
		ID:         r.ID(),
		Token:      r.Token(),
		WorkItemID: r.workItemID,
		RemindAt:   r.remindAt,
		Dismissed:  r.dismissed,
		CreatedAt:  r.createdAt,
		UpdatedAt:  r.updatedAt,
	}
}

func RestoreReminder(rec ReminderRecord) *Reminder {
	return &Reminder{
		Identity:   Identity{id: rec.ID, token: rec.Token.Clone()},
		Audit:      restoreAudit(rec.CreatedAt, rec.UpdatedAt),
		workItemID: rec.WorkItemID,
		remindAt:   rec.RemindAt.UTC(),
		dismissed:  rec.Dismissed,
	}
}
