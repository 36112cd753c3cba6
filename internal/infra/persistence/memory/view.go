package memory

import (
	"cmp"
	"slices"
	"strings"

	"taskcore/pkg/domain"

	"github.com/google/uuid"
)

// transactionView exposes read access over a state copy. Every result is
// rebuilt from records, so callers get detached entities.
type transactionView struct {
	state *memoryState
}

func find[R any, E any](bucket map[uuid.UUID]R, id uuid.UUID, restore func(R) E) (E, bool, error) {
	rec, ok := bucket[id]
	if !ok {
		var zero E
		return zero, false, nil
	}
	return restore(rec), true, nil
}

func collect[R any, E any](bucket map[uuid.UUID]R, keep func(R) bool, less func(a, b R) int, restore func(R) E) []E {
	recs := make([]R, 0, len(bucket))
	for _, rec := range bucket {
		if keep == nil || keep(rec) {
			recs = append(recs, rec)
		}
	}
	slices.SortFunc(recs, less)
	out := make([]E, 0, len(recs))
	for _, rec := range recs {
		out = append(out, restore(rec))
	}
	return out
}

func byID(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) }

func (v transactionView) FindProject(id uuid.UUID) (*domain.Project, bool, error) {
	return find(v.state.projects, id, domain.RestoreProject)
}

func (v transactionView) FindProjectByKey(key string) (*domain.Project, bool, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	for _, rec := range v.state.projects {
		if rec.Key == k {
			return domain.RestoreProject(rec), true, nil
		}
	}
	return nil, false, nil
}

// ListProjects orders projects by key.
func (v transactionView) ListProjects() ([]*domain.Project, error) {
	return collect(v.state.projects, nil, func(a, b domain.ProjectRecord) int {
		return strings.Compare(a.Key, b.Key)
	}, domain.RestoreProject), nil
}

func (v transactionView) FindWorkItem(id uuid.UUID) (*domain.WorkItem, bool, error) {
	return find(v.state.workItems, id, domain.RestoreWorkItem)
}

// ListWorkItems orders items by creation time.
func (v transactionView) ListWorkItems(filter domain.WorkItemFilter) ([]*domain.WorkItem, error) {
	items := collect(v.state.workItems, nil, func(a, b domain.WorkItemRecord) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), byID(a.ID, b.ID))
	}, domain.RestoreWorkItem)
	out := items[:0]
	for _, item := range items {
		if filter.Matches(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (v transactionView) FindTeamMember(id uuid.UUID) (*domain.TeamMember, bool, error) {
	return find(v.state.members, id, domain.RestoreTeamMember)
}

func (v transactionView) ListTeamMembers(filter domain.TeamMemberFilter) ([]*domain.TeamMember, error) {
	return collect(v.state.members, func(r domain.TeamMemberRecord) bool {
		return !filter.ActiveOnly || r.Active
	}, func(a, b domain.TeamMemberRecord) int {
		return cmp.Or(strings.Compare(a.DisplayName, b.DisplayName), byID(a.ID, b.ID))
	}, domain.RestoreTeamMember), nil
}

func (v transactionView) FindResearchTopic(id uuid.UUID) (*domain.ResearchTopic, bool, error) {
	return find(v.state.topics, id, domain.RestoreResearchTopic)
}

func (v transactionView) ListResearchTopics() ([]*domain.ResearchTopic, error) {
	return collect(v.state.topics, nil, func(a, b domain.ResearchTopicRecord) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), byID(a.ID, b.ID))
	}, domain.RestoreResearchTopic), nil
}

func (v transactionView) FindTimeEntry(id uuid.UUID) (*domain.TimeEntry, bool, error) {
	return find(v.state.timeEntries, id, domain.RestoreTimeEntry)
}

func (v transactionView) ListTimeEntries(filter domain.TimeEntryFilter) ([]*domain.TimeEntry, error) {
	return collect(v.state.timeEntries, func(r domain.TimeEntryRecord) bool {
		return filter.WorkItemID == nil || r.WorkItemID == *filter.WorkItemID
	}, func(a, b domain.TimeEntryRecord) int {
		return cmp.Or(a.StartedAt.Compare(b.StartedAt), byID(a.ID, b.ID))
	}, domain.RestoreTimeEntry), nil
}

func (v transactionView) FindSection(id uuid.UUID) (*domain.Section, bool, error) {
	return find(v.state.sections, id, domain.RestoreSection)
}

// ListSections orders a project's sections by sort order.
func (v transactionView) ListSections(projectID uuid.UUID) ([]*domain.Section, error) {
	return collect(v.state.sections, func(r domain.SectionRecord) bool {
		return r.ProjectID == projectID
	}, func(a, b domain.SectionRecord) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), strings.Compare(a.Name, b.Name), byID(a.ID, b.ID))
	}, domain.RestoreSection), nil
}

func (v transactionView) FindLabel(id uuid.UUID) (*domain.Label, bool, error) {
	return find(v.state.labels, id, domain.RestoreLabel)
}

func (v transactionView) ListLabels() ([]*domain.Label, error) {
	return collect(v.state.labels, nil, func(a, b domain.LabelRecord) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), byID(a.ID, b.ID))
	}, domain.RestoreLabel), nil
}

func (v transactionView) ListItemLabels(itemID uuid.UUID) ([]domain.ItemLabel, error) {
	var out []domain.ItemLabel
	for link := range v.state.itemLabels {
		if link.ItemID == itemID {
			out = append(out, link)
		}
	}
	slices.SortFunc(out, func(a, b domain.ItemLabel) int { return byID(a.LabelID, b.LabelID) })
	return out, nil
}

func (v transactionView) FindDueDate(itemID uuid.UUID) (*domain.DueDate, bool, error) {
	return find(v.state.dueDates, itemID, domain.RestoreDueDate)
}

func (v transactionView) FindReminder(id uuid.UUID) (*domain.Reminder, bool, error) {
	return find(v.state.reminders, id, domain.RestoreReminder)
}

func (v transactionView) ListReminders(filter domain.ReminderFilter) ([]*domain.Reminder, error) {
	return collect(v.state.reminders, func(r domain.ReminderRecord) bool {
		if filter.WorkItemID != nil && r.WorkItemID != *filter.WorkItemID {
			return false
		}
		return filter.IncludeDismissed || !r.Dismissed
	}, func(a, b domain.ReminderRecord) int {
		return cmp.Or(a.RemindAt.Compare(b.RemindAt), byID(a.ID, b.ID))
	}, domain.RestoreReminder), nil
}

func (v transactionView) FindView(id uuid.UUID) (*domain.View, bool, error) {
	return find(v.state.views, id, domain.RestoreView)
}

func (v transactionView) ListViews() ([]*domain.View, error) {
	return collect(v.state.views, nil, func(a, b domain.ViewRecord) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), byID(a.ID, b.ID))
	}, domain.RestoreView), nil
}
