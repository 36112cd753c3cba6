package handlers

import (
	"taskcore/pkg/domain"

	"github.com/google/uuid"
)

// GetProject loads a project by id, or by key when the id is unset.
// Value: *domain.Project.
type GetProject struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required_without=Key"`
	Key       string    `json:"key" validate:"required_without=ProjectID"`
}

func (q GetProject) Validate() error { return checkShape(domain.EntityProject, q) }

// ListProjects lists every project. Value: []*domain.Project.
type ListProjects struct{}

func (ListProjects) Validate() error { return nil }

// GetWorkItem loads a work item. Value: *domain.WorkItem.
type GetWorkItem struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

func (q GetWorkItem) Validate() error { return checkShape(domain.EntityWorkItem, q) }

// ListWorkItems lists work items matching the filter. Value: []*domain.WorkItem.
type ListWorkItems struct {
	Filter domain.WorkItemFilter `json:"filter"`
}

func (ListWorkItems) Validate() error { return nil }

// ListSections lists a project's sections in sort order. Value: []*domain.Section.
type ListSections struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required"`
}

func (q ListSections) Validate() error { return checkShape(domain.EntitySection, q) }

// GetDueDate loads a work item's due date. Value: *domain.DueDate.
type GetDueDate struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

func (q GetDueDate) Validate() error { return checkShape(domain.EntityDueDate, q) }
