package memory

import (
	"time"

	"taskcore/pkg/domain"

	"github.com/google/uuid"
)

func projectToken(r domain.ProjectRecord) domain.ConcurrencyToken { return r.Token }
func workItemToken(r domain.WorkItemRecord) domain.ConcurrencyToken { return r.Token }
func memberToken(r domain.TeamMemberRecord) domain.ConcurrencyToken { return r.Token }
func topicToken(r domain.ResearchTopicRecord) domain.ConcurrencyToken { return r.Token }
func timeEntryToken(r domain.TimeEntryRecord) domain.ConcurrencyToken { return r.Token }
func sectionToken(r domain.SectionRecord) domain.ConcurrencyToken { return r.Token }
func labelToken(r domain.LabelRecord) domain.ConcurrencyToken { return r.Token }
func reminderToken(r domain.ReminderRecord) domain.ConcurrencyToken { return r.Token }
func viewToken(r domain.ViewRecord) domain.ConcurrencyToken { return r.Token }

// CreateProject stores a new project and its features.
func (tx *transaction) CreateProject(p *domain.Project) error {
	return insert(tx, domain.EntityProject, tx.state.projects, p, func(tok domain.ConcurrencyToken) domain.ProjectRecord {
		rec := p.Record()
		rec.Token = tok
		return rec
	})
}

// UpdateProject writes the project and its feature set. Work items pointing
// at a feature that is no longer part of the project lose the reference.
func (tx *transaction) UpdateProject(p *domain.Project) error {
	var after domain.ProjectRecord
	before, err := replace(tx, domain.EntityProject, tx.state.projects, p, projectToken, func(tok domain.ConcurrencyToken) domain.ProjectRecord {
		after = p.Record()
		after.Token = tok
		return after
	})
	if err != nil {
		return err
	}
	kept := make(map[uuid.UUID]bool, len(after.Features))
	for _, f := range after.Features {
		kept[f.ID] = true
	}
	for _, f := range before.Features {
		if !kept[f.ID] {
			tx.clearFeatureRefs(f.ID)
		}
	}
	return nil
}

// DeleteProject cascades to features, sections and work items.
func (tx *transaction) DeleteProject(id uuid.UUID) error {
	removed, ok := remove(tx, domain.EntityProject, tx.state.projects, id)
	if !ok {
		return nil
	}
	for _, f := range removed.Features {
		tx.clearFeatureRefs(f.ID)
	}
	for sid, s := range tx.state.sections {
		if s.ProjectID == id {
			remove(tx, domain.EntitySection, tx.state.sections, sid)
		}
	}
	for wid, w := range tx.state.workItems {
		if w.ProjectID == id {
			tx.deleteWorkItem(wid)
		}
	}
	return nil
}

func (tx *transaction) clearFeatureRefs(featureID uuid.UUID) {
	for id, w := range tx.state.workItems {
		if w.FeatureID != nil && *w.FeatureID == featureID {
			w.FeatureID = nil
			tx.state.workItems[id] = w
		}
	}
}

// CreateWorkItem requires the project, feature and owner to exist.
func (tx *transaction) CreateWorkItem(w *domain.WorkItem) error {
	rec := w.Record()
	if err := tx.checkWorkItemRefs(rec); err != nil {
		return err
	}
	return insert(tx, domain.EntityWorkItem, tx.state.workItems, w, func(tok domain.ConcurrencyToken) domain.WorkItemRecord {
		rec.Token = tok
		return rec
	})
}

func (tx *transaction) UpdateWorkItem(w *domain.WorkItem) error {
	rec := w.Record()
	if _, ok := tx.state.workItems[w.ID()]; ok {
		if err := tx.checkWorkItemRefs(rec); err != nil {
			return err
		}
	}
	_, err := replace(tx, domain.EntityWorkItem, tx.state.workItems, w, workItemToken, func(tok domain.ConcurrencyToken) domain.WorkItemRecord {
		rec.Token = tok
		return rec
	})
	return err
}

func (tx *transaction) DeleteWorkItem(id uuid.UUID) error {
	tx.deleteWorkItem(id)
	return nil
}

// deleteWorkItem removes the item with its labels, due date and reminders and
// clears research note links to it.
func (tx *transaction) deleteWorkItem(id uuid.UUID) {
	if _, ok := remove(tx, domain.EntityWorkItem, tx.state.workItems, id); !ok {
		return
	}
	for link := range tx.state.itemLabels {
		if link.ItemID == id {
			delete(tx.state.itemLabels, link)
			tx.recordChange(Change{Entity: domain.EntityItemLabel, Action: domain.ActionDelete, ID: id, Before: link})
		}
	}
	remove(tx, domain.EntityDueDate, tx.state.dueDates, id)
	for rid, r := range tx.state.reminders {
		if r.WorkItemID == id {
			remove(tx, domain.EntityReminder, tx.state.reminders, rid)
		}
	}
	for tid, topic := range tx.state.topics {
		if !linksTo(topic, id) {
			continue
		}
		notes := make([]domain.ResearchNoteRecord, len(topic.Notes))
		copy(notes, topic.Notes)
		for i := range notes {
			if notes[i].LinkedWorkItemID != nil && *notes[i].LinkedWorkItemID == id {
				notes[i].LinkedWorkItemID = nil
			}
		}
		topic.Notes = notes
		tx.state.topics[tid] = topic
	}
}

func linksTo(topic domain.ResearchTopicRecord, itemID uuid.UUID) bool {
	for _, n := range topic.Notes {
		if n.LinkedWorkItemID != nil && *n.LinkedWorkItemID == itemID {
			return true
		}
	}
	return false
}

func (tx *transaction) CreateTeamMember(m *domain.TeamMember) error {
	return insert(tx, domain.EntityTeamMember, tx.state.members, m, func(tok domain.ConcurrencyToken) domain.TeamMemberRecord {
		rec := m.Record()
		rec.Token = tok
		return rec
	})
}

func (tx *transaction) UpdateTeamMember(m *domain.TeamMember) error {
	_, err := replace(tx, domain.EntityTeamMember, tx.state.members, m, memberToken, func(tok domain.ConcurrencyToken) domain.TeamMemberRecord {
		rec := m.Record()
		rec.Token = tok
		return rec
	})
	return err
}

// DeleteTeamMember clears the owner of items assigned to the member.
func (tx *transaction) DeleteTeamMember(id uuid.UUID) error {
	if _, ok := remove(tx, domain.EntityTeamMember, tx.state.members, id); !ok {
		return nil
	}
	for wid, w := range tx.state.workItems {
		if w.OwnerID != nil && *w.OwnerID == id {
			w.OwnerID = nil
			tx.state.workItems[wid] = w
		}
	}
	return nil
}

func (tx *transaction) CreateResearchTopic(t *domain.ResearchTopic) error {
	rec := t.Record()
	if err := tx.checkNoteLinks(rec); err != nil {
		return err
	}
	return insert(tx, domain.EntityResearchTopic, tx.state.topics, t, func(tok domain.ConcurrencyToken) domain.ResearchTopicRecord {
		rec.Token = tok
		return rec
	})
}

func (tx *transaction) UpdateResearchTopic(t *domain.ResearchTopic) error {
	rec := t.Record()
	if err := tx.checkNoteLinks(rec); err != nil {
		return err
	}
	_, err := replace(tx, domain.EntityResearchTopic, tx.state.topics, t, topicToken, func(tok domain.ConcurrencyToken) domain.ResearchTopicRecord {
		rec.Token = tok
		return rec
	})
	return err
}

func (tx *transaction) DeleteResearchTopic(id uuid.UUID) error {
	remove(tx, domain.EntityResearchTopic, tx.state.topics, id)
	return nil
}

// CreateTimeEntry does not check the work item; the reference is weak.
func (tx *transaction) CreateTimeEntry(e *domain.TimeEntry) error {
	return insert(tx, domain.EntityTimeEntry, tx.state.timeEntries, e, func(tok domain.ConcurrencyToken) domain.TimeEntryRecord {
		rec := e.Record()
		rec.Token = tok
		return rec
	})
}

func (tx *transaction) UpdateTimeEntry(e *domain.TimeEntry) error {
	_, err := replace(tx, domain.EntityTimeEntry, tx.state.timeEntries, e, timeEntryToken, func(tok domain.ConcurrencyToken) domain.TimeEntryRecord {
		rec := e.Record()
		rec.Token = tok
		return rec
	})
	return err
}

func (tx *transaction) DeleteTimeEntry(id uuid.UUID) error {
	remove(tx, domain.EntityTimeEntry, tx.state.timeEntries, id)
	return nil
}

func (tx *transaction) CreateSection(s *domain.Section) error {
	if err := tx.requireProject(s.ProjectID()); err != nil {
		return err
	}
	return insert(tx, domain.EntitySection, tx.state.sections, s, func(tok domain.ConcurrencyToken) domain.SectionRecord {
		rec := s.Record()
		rec.Token = tok
		return rec
	})
}

func (tx *transaction) UpdateSection(s *domain.Section) error {
	_, err := replace(tx, domain.EntitySection, tx.state.sections, s, sectionToken, func(tok domain.ConcurrencyToken) domain.SectionRecord {
		rec := s.Record()
		rec.Token = tok
		return rec
	})
	return err
}

func (tx *transaction) DeleteSection(id uuid.UUID) error {
	remove(tx, domain.EntitySection, tx.state.sections, id)
	return nil
}

// ReorderSections loads the project's sections, reorders them and writes the
// ones that moved.
func (tx *transaction) ReorderSections(projectID uuid.UUID, ordered []uuid.UUID, at time.Time) ([]*domain.Section, error) {
	sections, err := tx.ListSections(projectID)
	if err != nil {
		return nil, err
	}
	changed := domain.ReorderSections(sections, ordered, at)
	for _, s := range changed {
		if err := tx.UpdateSection(s); err != nil {
			return nil, err
		}
	}
	return changed, nil
}

func (tx *transaction) CreateLabel(l *domain.Label) error {
	return insert(tx, domain.EntityLabel, tx.state.labels, l, func(tok domain.ConcurrencyToken) domain.LabelRecord {
		rec := l.Record()
		rec.Token = tok
		return rec
	})
}

func (tx *transaction) UpdateLabel(l *domain.Label) error {
	_, err := replace(tx, domain.EntityLabel, tx.state.labels, l, labelToken, func(tok domain.ConcurrencyToken) domain.LabelRecord {
		rec := l.Record()
		rec.Token = tok
		return rec
	})
	return err
}

// DeleteLabel also drops every assignment of the label.
func (tx *transaction) DeleteLabel(id uuid.UUID) error {
	if _, ok := remove(tx, domain.EntityLabel, tx.state.labels, id); !ok {
		return nil
	}
	for link := range tx.state.itemLabels {
		if link.LabelID == id {
			delete(tx.state.itemLabels, link)
			tx.recordChange(Change{Entity: domain.EntityItemLabel, Action: domain.ActionDelete, ID: link.ItemID, Before: link})
		}
	}
	return nil
}

func (tx *transaction) AssignLabel(link domain.ItemLabel) error {
	if err := tx.requireWorkItem(link.ItemID); err != nil {
		return err
	}
	if _, ok := tx.state.labels[link.LabelID]; !ok {
		return domain.NewNotFoundError(domain.EntityLabel, link.LabelID)
	}
	if _, ok := tx.state.itemLabels[link]; ok {
		return nil
	}
	tx.state.itemLabels[link] = struct{}{}
	tx.recordChange(Change{Entity: domain.EntityItemLabel, Action: domain.ActionCreate, ID: link.ItemID, After: link})
	return nil
}

func (tx *transaction) UnassignLabel(link domain.ItemLabel) error {
	if _, ok := tx.state.itemLabels[link]; !ok {
		return nil
	}
	delete(tx.state.itemLabels, link)
	tx.recordChange(Change{Entity: domain.EntityItemLabel, Action: domain.ActionDelete, ID: link.ItemID, Before: link})
	return nil
}

// UpsertDueDate inserts the due date or fully replaces the stored one.
func (tx *transaction) UpsertDueDate(d *domain.DueDate) error {
	if err := tx.requireWorkItem(d.ItemID()); err != nil {
		return err
	}
	next := d.Record()
	existing, ok := tx.state.dueDates[d.ItemID()]
	if !ok {
		tx.state.dueDates[d.ItemID()] = next
		tx.recordChange(Change{Entity: domain.EntityDueDate, Action: domain.ActionCreate, ID: d.ItemID(), After: next})
		return nil
	}
	merged := domain.ReplaceDueDate(existing, next)
	tx.state.dueDates[d.ItemID()] = merged
	tx.recordChange(Change{Entity: domain.EntityDueDate, Action: domain.ActionUpdate, ID: d.ItemID(), Before: existing, After: merged})
	return nil
}

func (tx *transaction) DeleteDueDate(itemID uuid.UUID) error {
	remove(tx, domain.EntityDueDate, tx.state.dueDates, itemID)
	return nil
}

func (tx *transaction) CreateReminder(r *domain.Reminder) error {
	if err := tx.requireWorkItem(r.WorkItemID()); err != nil {
		return err
	}
	return insert(tx, domain.EntityReminder, tx.state.reminders, r, func(tok domain.ConcurrencyToken) domain.ReminderRecord {
		rec := r.Record()
		rec.Token = tok
		return rec
	})
}

func (tx *transaction) UpdateReminder(r *domain.Reminder) error {
	_, err := replace(tx, domain.EntityReminder, tx.state.reminders, r, reminderToken, func(tok domain.ConcurrencyToken) domain.ReminderRecord {
		rec := r.Record()
		rec.Token = tok
		return rec
	})
	return err
}

func (tx *transaction) DeleteReminder(id uuid.UUID) error {
	remove(tx, domain.EntityReminder, tx.state.reminders, id)
	return nil
}

func (tx *transaction) CreateView(v *domain.View) error {
	return insert(tx, domain.EntityView, tx.state.views, v, func(tok domain.ConcurrencyToken) domain.ViewRecord {
		rec := v.Record()
		rec.Token = tok
		return rec
	})
}

func (tx *transaction) UpdateView(v *domain.View) error {
	_, err := replace(tx, domain.EntityView, tx.state.views, v, viewToken, func(tok domain.ConcurrencyToken) domain.ViewRecord {
		rec := v.Record()
		rec.Token = tok
		return rec
	})
	return err
}

func (tx *transaction) DeleteView(id uuid.UUID) error {
	remove(tx, domain.EntityView, tx.state.views, id)
	return nil
}
