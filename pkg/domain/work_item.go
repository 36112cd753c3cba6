package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxWorkItemTitleLen = 256
	maxTagLen           = 32
)

// WorkItemStatus enumerates lifecycle states. Any state may follow any other.
type WorkItemStatus string

const (
	StatusBacklog    WorkItemStatus = "Backlog"
	StatusReady      WorkItemStatus = "Ready"
	StatusInProgress WorkItemStatus = "InProgress"
	StatusBlocked    WorkItemStatus = "Blocked"
	StatusInReview   WorkItemStatus = "InReview"
	StatusDone       WorkItemStatus = "Done"
	StatusArchived   WorkItemStatus = "Archived"
)

// Valid reports whether s is a known status.
func (s WorkItemStatus) Valid() bool {
	switch s {
	case StatusBacklog, StatusReady, StatusInProgress, StatusBlocked, StatusInReview, StatusDone, StatusArchived:
		return true
	}
	return false
}

// Priority ranks work items.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// WorkItem is a task tracked against a project.
type WorkItem struct {
	Identity
	Audit
	projectID   uuid.UUID
	featureID   *uuid.UUID
	ownerID     *uuid.UUID
	title       string
	description string
	notes       string
	status      WorkItemStatus
	priority    Priority
	estimate    *decimal.Decimal
	dueAt       *time.Time
	completedAt *time.Time
	tags        []string
}

// NewWorkItem creates a work item in the Backlog state with Medium priority.
func NewWorkItem(id, projectID uuid.UUID, title string, at time.Time) (*WorkItem, error) {
	if err := requireRef(EntityWorkItem, "project_id", projectID); err != nil {
		return nil, err
	}
	t, err := requireText(EntityWorkItem, "title", title, maxWorkItemTitleLen)
	if err != nil {
		return nil, err
	}
	return &WorkItem{
		Identity:  newIdentity(id),
		Audit:     newAudit(at),
		projectID: projectID,
		title:     t,
		status:    StatusBacklog,
		priority:  PriorityMedium,
	}, nil
}

// ProjectID returns the owning project.
func (w *WorkItem) ProjectID() uuid.UUID { return w.projectID }

// FeatureID returns the optional feature reference.
func (w *WorkItem) FeatureID() *uuid.UUID { return cloneRef(w.featureID) }

// OwnerID returns the optional owner reference.
func (w *WorkItem) OwnerID() *uuid.UUID { return cloneRef(w.ownerID) }

func (w *WorkItem) Title() string { return w.title }

func (w *WorkItem) Description() string { return w.description }

func (w *WorkItem) Notes() string { return w.notes }

func (w *WorkItem) Status() WorkItemStatus { return w.status }

func (w *WorkItem) Priority() Priority { return w.priority }

// DueAt returns the optional due timestamp (UTC).
func (w *WorkItem) DueAt() *time.Time { return utcPtr(w.dueAt) }

// CompletedAt is set while the item is Done.
func (w *WorkItem) CompletedAt() *time.Time { return utcPtr(w.completedAt) }

// Tags returns the tags in insertion order.
func (w *WorkItem) Tags() []string { return append([]string(nil), w.tags...) }

// Estimate returns a copy of the optional estimate.
func (w *WorkItem) Estimate() *decimal.Decimal {
	if w.estimate == nil {
		return nil
	}
	e := *w.estimate
	return &e
}

// HasTag reports whether tag is present, ignoring case.
func (w *WorkItem) HasTag(tag string) bool {
	return w.tagIndex(strings.TrimSpace(tag)) >= 0
}

// ChangeStatus moves the item to status. Entering Done stamps the completion
// time; leaving Done clears it.
func (w *WorkItem) ChangeStatus(status WorkItemStatus, at time.Time) error {
	if !status.Valid() {
		return newValidationError(EntityWorkItem, "status", "unknown status %q", status)
	}
	switch {
	case status == StatusDone:
		done := at.UTC()
		w.completedAt = &done
	case w.status == StatusDone:
		w.completedAt = nil
	}
	w.status = status
	w.touch(at)
	return nil
}

// ChangePriority sets the priority.
func (w *WorkItem) ChangePriority(priority Priority, at time.Time) error {
	if !priority.Valid() {
		return newValidationError(EntityWorkItem, "priority", "unknown priority %q", priority)
	}
	w.priority = priority
	w.touch(at)
	return nil
}

// Retitle replaces the title.
func (w *WorkItem) Retitle(title string, at time.Time) error {
	t, err := requireText(EntityWorkItem, "title", title, maxWorkItemTitleLen)
	if err != nil {
		return err
	}
	w.title = t
	w.touch(at)
	return nil
}

// SetDescription replaces the markdown description.
func (w *WorkItem) SetDescription(description string, at time.Time) {
	w.description = description
	w.touch(at)
}

// SetNotes replaces the free-text notes.
func (w *WorkItem) SetNotes(notes string, at time.Time) {
	w.notes = notes
	w.touch(at)
}

// AssignFeature sets or clears the feature reference. uuid.Nil clears it.
func (w *WorkItem) AssignFeature(featureID *uuid.UUID, at time.Time) {
	w.featureID = normalizeRef(featureID)
	w.touch(at)
}

// AssignOwner sets or clears the owning team member. uuid.Nil clears it.
func (w *WorkItem) AssignOwner(ownerID *uuid.UUID, at time.Time) {
	w.ownerID = normalizeRef(ownerID)
	w.touch(at)
}

// SetEstimate sets or clears the estimate. Negative values are rejected.
func (w *WorkItem) SetEstimate(estimate *decimal.Decimal, at time.Time) error {
	if estimate == nil {
		w.estimate = nil
		w.touch(at)
		return nil
	}
	if estimate.IsNegative() {
		return newValidationError(EntityWorkItem, "estimate", "must not be negative")
	}
	e := *estimate
	w.estimate = &e
	w.touch(at)
	return nil
}

// SetDueAt sets or clears the due timestamp.
func (w *WorkItem) SetDueAt(due *time.Time, at time.Time) {
	w.dueAt = utcPtr(due)
	w.touch(at)
}

func normalizeTag(tag string) (string, error) {
	return requireText(EntityWorkItem, "tags", tag, maxTagLen)
}

func (w *WorkItem) tagIndex(tag string) int {
	for i, existing := range w.tags {
		if strings.EqualFold(existing, tag) {
			return i
		}
	}
	return -1
}

// ReplaceTags rebuilds the tag set from tags. Duplicates collapse ignoring
// case, keeping the first spelling. Nothing changes if any tag is invalid.
func (w *WorkItem) ReplaceTags(tags []string, at time.Time) error {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		t, err := normalizeTag(tag)
		if err != nil {
			return err
		}
		normalized = append(normalized, t)
	}
	w.tags = w.tags[:0:0]
	for _, t := range normalized {
		if w.tagIndex(t) < 0 {
			w.tags = append(w.tags, t)
		}
	}
	w.touch(at)
	return nil
}

// AddTag adds tag unless an equal tag, ignoring case, is present.
func (w *WorkItem) AddTag(tag string, at time.Time) (bool, error) {
	t, err := normalizeTag(tag)
	if err != nil {
		return false, err
	}
	if w.tagIndex(t) >= 0 {
		return false, nil
	}
	w.tags = append(w.tags, t)
	w.touch(at)
	return true, nil
}

// RemoveTag removes tag, ignoring case.
func (w *WorkItem) RemoveTag(tag string, at time.Time) (bool, error) {
	t, err := normalizeTag(tag)
	if err != nil {
		return false, err
	}
	i := w.tagIndex(t)
	if i < 0 {
		return false, nil
	}
	w.tags = append(w.tags[:i:i], w.tags[i+1:]...)
	w.touch(at)
	return true, nil
}

// WorkItemRecord is the persisted shape of a work item.
type WorkItemRecord struct {
	ID          uuid.UUID        `json:"id"`
	Token       ConcurrencyToken `json:"token,omitempty"`
	ProjectID   uuid.UUID        `json:"project_id"`
	FeatureID   *uuid.UUID       `json:"feature_id,omitempty"`
	OwnerID     *uuid.UUID       `json:"owner_id,omitempty"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	Status      WorkItemStatus   `json:"status"`
	Priority    Priority         `json:"priority"`
	Estimate    *decimal.Decimal `json:"estimate,omitempty"`
	DueAt       *time.Time       `json:"due_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Tags        []string         `json:"tags"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Record captures the work item state for persistence.
func (w *WorkItem) Record() WorkItemRecord {
	return WorkItemRecord{
		ID:          w.ID(),
		Token:       w.Token(),
		ProjectID:   w.projectID,
		FeatureID:   w.FeatureID(),
		OwnerID:     w.OwnerID(),
		Title:       w.title,
		Description: w.description,
		Notes:       w.notes,
		Status:      w.status,
		Priority:    w.priority,
		Estimate:    w.Estimate(),
		DueAt:       w.DueAt(),
		CompletedAt: w.CompletedAt(),
		Tags:        w.Tags(),
		CreatedAt:   w.createdAt,
		UpdatedAt:   w.updatedAt,
	}
}

// RestoreWorkItem rebuilds a work item from stored state.
func RestoreWorkItem(r WorkItemRecord) *WorkItem {
	w := &WorkItem{
		Identity:    Identity{id: r.ID, token: r.Token.Clone()},
		Audit:       restoreAudit(r.CreatedAt, r.UpdatedAt),
		projectID:   r.ProjectID,
		featureID:   normalizeRef(r.FeatureID),
		ownerID:     normalizeRef(r.OwnerID),
		title:       r.Title,
		description: r.Description,
		notes:       r.Notes,
		status:      r.Status,
		priority:    r.Priority,
		dueAt:       utcPtr(r.DueAt),
		completedAt: utcPtr(r.CompletedAt),
		tags:        append([]string(nil), r.Tags...),
	}
	if r.Estimate != nil {
		e := *r.Estimate
		w.estimate = &e
	}
	return w
}
