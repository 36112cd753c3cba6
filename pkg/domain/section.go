package domain

import (
	"time"

	"github.com/google/uuid"
)

const maxSectionNameLen = 128

// Section is an ordered grouping of work items inside a project.
type Section struct {
	Identity
	Audit
	projectID uuid.UUID
	name      string
	sortOrder int
}

// NewSection creates a section at the given sort position.
func NewSection(id, projectID uuid.UUID, name string, sortOrder int, at time.Time) (*Section, error) {
	if err := requireRef(EntitySection, "project_id", projectID); err != nil {
		return nil, err
	}
	n, err := requireText(EntitySection, "name", name, maxSectionNameLen)
	if err != nil {
		return nil, err
	}
	return &Section{
		Identity:  newIdentity(id),
		Audit:     newAudit(at),
		projectID: projectID,
		name:      n,
		sortOrder: sortOrder,
	}, nil
}

func (s *Section) ProjectID() uuid.UUID { return s.projectID }

func (s *Section) Name() string { return s.name }

func (s *Section) SortOrder() int { return s.sortOrder }

// Rename changes the section name.
func (s *Section) Rename(name string, at time.Time) error {
	n, err := requireText(EntitySection, "name", name, maxSectionNameLen)
	if err != nil {
		return err
	}
	s.name = n
	s.touch(at)
	return nil
}

// SetSortOrder moves the section. It reports false without touching when the
// order is unchanged.
func (s *Section) SetSortOrder(order int, at time.Time) bool {
	if s.sortOrder == order {
		return false
	}
	s.sortOrder = order
	s.touch(at)
	return true
}

// ReorderSections assigns each section its index in ordered. When an id
// appears more than once the last position wins. Sections missing from
// ordered keep their current order. The sections whose order changed are
// returned.
func ReorderSections(sections []*Section, ordered []uuid.UUID, at time.Time) []*Section {
	index := make(map[uuid.UUID]int, len(ordered))
	for i, id := range ordered {
		index[id] = i
	}
	var changed []*Section
	for _, s := range sections {
		pos, ok := index[s.ID()]
		if !ok {
			continue
		}
		if s.SetSortOrder(pos, at) {
			changed = append(changed, s)
		}
	}
	return changed
}

// SectionRecord is the persisted shape of a section.
type SectionRecord struct {
	ID        uuid.UUID        `json:"id"`
	Token     ConcurrencyToken `json:"token,omitempty"`
	ProjectID uuid.UUID        `json:"project_id"`
	Name      string           `json:"name"`
	SortOrder int              `json:"sort_order"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (s *Section) Record() SectionRecord {
	return SectionRecord{
		ID:        s.ID(),
		Token:     s.Token(),
		ProjectID: s.projectID,
		Name:      s.name,
		SortOrder: s.sortOrder,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

func RestoreSection(r SectionRecord) *Section {
	return &Section{
		Identity:  Identity{id: r.ID, token: r.Token.Clone()},
		Audit:     restoreAudit(r.CreatedAt, r.UpdatedAt),
		projectID: r.ProjectID,
		name:      r.Name,
		sortOrder: r.SortOrder,
	}
}
