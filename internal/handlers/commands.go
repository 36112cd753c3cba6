package handlers

import (
	"time"

	"taskcore/pkg/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commands that change an existing aggregate carry the Token of the copy the
// caller read. A token that no longer matches fails with a conflict.

// CreateProject creates a project. Value: *domain.Project.
type CreateProject struct {
	Name  string  `json:"name" validate:"required"`
	Key   string  `json:"key" validate:"required"`
	Color *string `json:"color,omitempty"`
}

func (c CreateProject) Validate() error { return checkShape(domain.EntityProject, c) }

// RenameProject renames a project. Value: *domain.Project.
type RenameProject struct {
	ProjectID uuid.UUID               `json:"project_id" validate:"required"`
	Name      string                  `json:"name" validate:"required"`
	Token     domain.ConcurrencyToken `json:"token" validate:"required"`
}

func (c RenameProject) Validate() error { return checkShape(domain.EntityProject, c) }

// AddFeature adds a feature to a project. Value: domain.Feature.
type AddFeature struct {
	ProjectID uuid.UUID               `json:"project_id" validate:"required"`
	Name      string                  `json:"name" validate:"required"`
	Token     domain.ConcurrencyToken `json:"token" validate:"required"`
}

func (c AddFeature) Validate() error { return checkShape(domain.EntityFeature, c) }

// ArchiveFeature archives a feature of a project. Value: *domain.Project.
type ArchiveFeature struct {
	ProjectID uuid.UUID               `json:"project_id" validate:"required"`
	FeatureID uuid.UUID               `json:"feature_id" validate:"required"`
	Token     domain.ConcurrencyToken `json:"token" validate:"required"`
}

func (c ArchiveFeature) Validate() error { return checkShape(domain.EntityFeature, c) }

// DeleteProject deletes a project with its features and sections.
type DeleteProject struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required"`
}

func (c DeleteProject) Validate() error { return checkShape(domain.EntityProject, c) }

// CreateWorkItem creates a work item. Value: *domain.WorkItem.
type CreateWorkItem struct {
	ProjectID   uuid.UUID        `json:"project_id" validate:"required"`
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description,omitempty"`
	Priority    domain.Priority  `json:"priority,omitempty"`
	FeatureID   *uuid.UUID       `json:"feature_id,omitempty"`
	OwnerID     *uuid.UUID       `json:"owner_id,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Estimate    *decimal.Decimal `json:"estimate,omitempty"`
	DueAt       *time.Time       `json:"due_at,omitempty"`
}

func (c CreateWorkItem) Validate() error { return checkShape(domain.EntityWorkItem, c) }

// ChangeWorkItemStatus moves a work item through its lifecycle. Value: *domain.WorkItem.
type ChangeWorkItemStatus struct {
	ItemID uuid.UUID               `json:"item_id" validate:"required"`
	Status domain.WorkItemStatus   `json:"status" validate:"required"`
	Token  domain.ConcurrencyToken `json:"token" validate:"required"`
}

func (c ChangeWorkItemStatus) Validate() error { return checkShape(domain.EntityWorkItem, c) }

// UpdateWorkItemDetails changes the set fields of a work item; nil fields are
// left alone. Value: *domain.WorkItem.
type UpdateWorkItemDetails struct {
	ItemID      uuid.UUID               `json:"item_id" validate:"required"`
	Title       *string                 `json:"title,omitempty"`
	Description *string                 `json:"description,omitempty"`
	Notes       *string                 `json:"notes,omitempty"`
	Priority    *domain.Priority        `json:"priority,omitempty"`
	Estimate    *decimal.Decimal        `json:"estimate,omitempty"`
	OwnerID     *uuid.UUID              `json:"owner_id,omitempty"`
	FeatureID   *uuid.UUID              `json:"feature_id,omitempty"`
	Token       domain.ConcurrencyToken `json:"token" validate:"required"`
}

func (c UpdateWorkItemDetails) Validate() error { return checkShape(domain.EntityWorkItem, c) }

// TagWorkItem adds then removes tags. Value: *domain.WorkItem.
type TagWorkItem struct {
	ItemID uuid.UUID               `json:"item_id" validate:"required"`
	Add    []string                `json:"add,omitempty"`
	Remove []string                `json:"remove,omitempty"`
	Token  domain.ConcurrencyToken `json:"token" validate:"required"`
}

func (c TagWorkItem) Validate() error {
	if err := checkShape(domain.EntityWorkItem, c); err != nil {
		return err
	}
	if len(c.Add) == 0 && len(c.Remove) == 0 {
		return &domain.ValidationError{Entity: domain.EntityWorkItem, Field: "tags", Reason: "nothing to add or remove"}
	}
	return nil
}

// DeleteWorkItem deletes a work item and everything hanging off it.
type DeleteWorkItem struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

func (c DeleteWorkItem) Validate() error { return checkShape(domain.EntityWorkItem, c) }

// RegisterTeamMember adds a team member. Value: *domain.TeamMember.
type RegisterTeamMember struct {
	DisplayName string `json:"display_name" validate:"required"`
	Role        string `json:"role,omitempty"`
	Email       string `json:"email,omitempty"`
}

func (c RegisterTeamMember) Validate() error { return checkShape(domain.EntityTeamMember, c) }

// DeactivateTeamMember marks a member inactive. Value: *domain.TeamMember.
type DeactivateTeamMember struct {
	MemberID uuid.UUID               `json:"member_id" validate:"required"`
	Token    domain.ConcurrencyToken `json:"token" validate:"required"`
}

func (c DeactivateTeamMember) Validate() error { return checkShape(domain.EntityTeamMember, c) }

// LogTime records a time entry against a work item. Value: *domain.TimeEntry.
type LogTime struct {
	ItemID uuid.UUID         `json:"item_id" validate:"required"`
	Start  time.Time         `json:"start" validate:"required"`
	End    time.Time         `json:"end" validate:"required"`
	Source domain.TimeSource `json:"source,omitempty"`
	Notes  string            `json:"notes,omitempty"`
}

func (c LogTime) Validate() error { return checkShape(domain.EntityTimeEntry, c) }

// CreateSection adds a section to a project. Value: *domain.Section.
type CreateSection struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	SortOrder int       `json:"sort_order"`
}

func (c CreateSection) Validate() error { return checkShape(domain.EntitySection, c) }

// ReorderSections moves the listed sections to the front in the given order.
// Value: []*domain.Section holding the sections whose order changed.
type ReorderSections struct {
	ProjectID uuid.UUID   `json:"project_id" validate:"required"`
	Ordered   []uuid.UUID `json:"ordered" validate:"required,min=1"`
}

func (c ReorderSections) Validate() error { return checkShape(domain.EntitySection, c) }

// SetDueDate inserts or replaces a work item's due date. Value: *domain.DueDate.
type SetDueDate struct {
	ItemID     uuid.UUID         `json:"item_id" validate:"required"`
	DueAt      time.Time         `json:"due_at" validate:"required"`
	Timezone   string            `json:"timezone" validate:"required"`
	Recurring  bool              `json:"recurring"`
	Recurrence domain.Recurrence `json:"recurrence"`
}

func (c SetDueDate) Validate() error { return checkShape(domain.EntityDueDate, c) }

// AssignLabel attaches a label to a work item.
type AssignLabel struct {
	ItemID  uuid.UUID `json:"item_id" validate:"required"`
	LabelID uuid.UUID `json:"label_id" validate:"required"`
}

func (c AssignLabel) Validate() error { return checkShape(domain.EntityItemLabel, c) }

// UnassignLabel detaches a label from a work item.
type UnassignLabel struct {
	ItemID  uuid.UUID `json:"item_id" validate:"required"`
	LabelID uuid.UUID `json:"label_id" validate:"required"`
}

func (c UnassignLabel) Validate() error { return checkShape(domain.EntityItemLabel, c) }

// CreateLabel creates a label. Value: *domain.Label.
type CreateLabel struct {
	Name  string  `json:"name" validate:"required"`
	Color *string `json:"color,omitempty"`
}

func (c CreateLabel) Validate() error { return checkShape(domain.EntityLabel, c) }
