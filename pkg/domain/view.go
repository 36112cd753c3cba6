package domain

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
)

const maxViewNameLen = 128

// ViewSort orders the items a saved view returns.
type ViewSort string

const (
	SortCreated  ViewSort = "created"
	SortUpdated  ViewSort = "updated"
	SortPriority ViewSort = "priority"
	SortDue      ViewSort = "due"
)

// Valid reports whether s is a known sort order.
func (s ViewSort) Valid() bool {
	switch s {
	case SortCreated, SortUpdated, SortPriority, SortDue:
		return true
	}
	return false
}

// ViewFilter is the stored query of a saved view.
type ViewFilter struct {
	ProjectID *uuid.UUID      `json:"project_id,omitempty"`
	Status    *WorkItemStatus `json:"status,omitempty"`
	Tag       string          `json:"tag,omitempty"`
	Sort      ViewSort        `json:"sort"`
}

func (f ViewFilter) normalize() (ViewFilter, error) {
	out := ViewFilter{ProjectID: normalizeRef(f.ProjectID), Sort: f.Sort}
	if out.Sort == "" {
		out.Sort = SortCreated
	}
	if !out.Sort.Valid() {
		return ViewFilter{}, newValidationError(EntityView, "sort", "unknown sort %q", f.Sort)
	}
	if f.Status != nil {
		if !f.Status.Valid() {
			return ViewFilter{}, newValidationError(EntityView, "status", "unknown status %q", *f.Status)
		}
		s := *f.Status
		out.Status = &s
	}
	tag, err := optionalText(EntityView, "tag", f.Tag, maxTagLen)
	if err != nil {
		return ViewFilter{}, err
	}
	out.Tag = tag
	return out, nil
}

// Matches reports whether item satisfies the filter.
func (f ViewFilter) Matches(item *WorkItem) bool {
	if f.ProjectID != nil && item.ProjectID() != *f.ProjectID {
		return false
	}
	if f.Status != nil && item.Status() != *f.Status {
		return false
	}
	if f.Tag != "" && !item.HasTag(f.Tag) {
		return false
	}
	return true
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	}
	return 3
}

// Apply returns the matching items ordered by the filter's sort. Created
// sorts oldest first, updated newest first, priority most urgent first and
// due soonest first with undated items last.
func (f ViewFilter) Apply(items []*WorkItem) []*WorkItem {
	var out []*WorkItem
	for _, item := range items {
		if f.Matches(item) {
			out = append(out, item)
		}
	}
	slices.SortStableFunc(out, func(a, b *WorkItem) int {
		switch f.Sort {
		case SortUpdated:
			return b.updatedAt.Compare(a.updatedAt)
		case SortPriority:
			return cmp.Compare(priorityRank(a.priority), priorityRank(b.priority))
		case SortDue:
			switch {
			case a.dueAt == nil && b.dueAt == nil:
				return 0
			case a.dueAt == nil:
				return 1
			case b.dueAt == nil:
				return -1
			}
			return a.dueAt.Compare(*b.dueAt)
		}
		return a.createdAt.Compare(b.createdAt)
	})
	return out
}

// View is a saved, named work item query.
type View struct {
	Identity
	Audit
	name   string
	filter ViewFilter
}

func NewView(id uuid.UUID, name string, filter ViewFilter, at time.Time) (*View, error) {
	n, err := requireText(EntityView, "name", name, maxViewNameLen)
	if err != nil {
		return nil, err
	}
	f, err := filter.normalize()
	if err != nil {
		return nil, err
	}
	return &View{Identity: newIdentity(id), Audit: newAudit(at), name: n, filter: f}, nil
}

func (v *View) Name() string { return v.name }

func (v *View) Filter() ViewFilter {
	f := v.filter
	f.ProjectID = cloneRef(v.filter.ProjectID)
	return f
}

// Rename changes the view name.
func (v *View) Rename(name string, at time.Time) error {
	n, err := requireText(EntityView, "name", name, maxViewNameLen)
	if err != nil {
		return err
	}
	v.name = n
	v.touch(at)
	return nil
}

// Refine replaces the stored filter.
func (v *View) Refine(filter ViewFilter, at time.Time) error {
	f, err := filter.normalize()
	if err != nil {
		return err
	}
	v.filter = f
	v.touch(at)
	return nil
}

// ViewRecord is the persisted shape of a saved view.
type ViewRecord struct {
	ID        uuid.UUID        `json:"id"`
	Token     ConcurrencyToken `json:"token,omitempty"`
	Name      string           `json:"name"`
	Filter    ViewFilter       `json:"filter"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (v *View) Record() ViewRecord {
	return ViewRecord{
		ID:        v.ID(),
		Token:     v.Token(),
		Name:      v.name,
		Filter:    v.Filter(),
		CreatedAt: v.createdAt,
		UpdatedAt: v.updatedAt,
	}
}

func RestoreView(r ViewRecord) *View {
	f := r.Filter
	f.ProjectID = normalizeRef(r.Filter.ProjectID)
	return &View{
		Identity: Identity{id: r.ID, token: r.Token.Clone()},
		Audit:    restoreAudit(r.CreatedAt, r.UpdatedAt),
		name:     r.Name,
		filter:   f,
	}
}
