// Package backup captures the full task store into versioned JSON snapshots,
// writes them to blob storage and replays them into an empty store.
package backup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"taskcore/pkg/domain"
)

// FormatVersion is the snapshot layout written by this package.
const FormatVersion = 1

// Snapshot is a point-in-time copy of every record in a store.
type Snapshot struct {
	Version        int                          `json:"version"`
	CapturedAt     time.Time                    `json:"captured_at"`
	TeamMembers    []domain.TeamMemberRecord    `json:"team_members"`
	Projects       []domain.ProjectRecord       `json:"projects"`
	WorkItems      []domain.WorkItemRecord      `json:"work_items"`
	ResearchTopics []domain.ResearchTopicRecord `json:"research_topics"`
	TimeEntries    []domain.TimeEntryRecord     `json:"time_entries"`
	Sections       []domain.SectionRecord       `json:"sections"`
	Labels         []domain.LabelRecord         `json:"labels"`
	ItemLabels     []domain.ItemLabel           `json:"item_labels"`
	DueDates       []domain.DueDateRecord       `json:"due_dates"`
	Reminders      []domain.ReminderRecord      `json:"reminders"`
	Views          []domain.ViewRecord          `json:"views"`
}

// Capture reads the whole store inside a single read transaction.
func Capture(ctx context.Context, store domain.PersistentStore, at time.Time) (Snapshot, error) {
	snap := Snapshot{Version: FormatVersion, CapturedAt: at.UTC()}
	err := store.View(ctx, func(view domain.TransactionView) error {
		members, err := view.ListTeamMembers(domain.TeamMemberFilter{})
		if err != nil {
			return err
		}
		snap.TeamMembers = records(members, (*domain.TeamMember).Record)

		projects, err := view.ListProjects()
		if err != nil {
			return err
		}
		snap.Projects = records(projects, (*domain.Project).Record)
		for _, p := range projects {
			sections, err := view.ListSections(p.ID())
			if err != nil {
				return err
			}
			snap.Sections = append(snap.Sections, records(sections, (*domain.Section).Record)...)
		}

		items, err := view.ListWorkItems(domain.WorkItemFilter{})
		if err != nil {
			return err
		}
		snap.WorkItems = records(items, (*domain.WorkItem).Record)
		for _, item := range items {
			links, err := view.ListItemLabels(item.ID())
			if err != nil {
				return err
			}
			snap.ItemLabels = append(snap.ItemLabels, links...)
			due, ok, err := view.FindDueDate(item.ID())
			if err != nil {
				return err
			}
			if ok {
				snap.DueDates = append(snap.DueDates, due.Record())
			}
		}

		topics, err := view.ListResearchTopics()
		if err != nil {
			return err
		}
		snap.ResearchTopics = records(topics, (*domain.ResearchTopic).Record)

		entries, err := view.ListTimeEntries(domain.TimeEntryFilter{})
		if err != nil {
			return err
		}
		snap.TimeEntries = records(entries, (*domain.TimeEntry).Record)

		labels, err := view.ListLabels()
		if err != nil {
			return err
		}
		snap.Labels = records(labels, (*domain.Label).Record)

		reminders, err := view.ListReminders(domain.ReminderFilter{})
		if err != nil {
			return err
		}
		snap.Reminders = records(reminders, (*domain.Reminder).Record)

		views, err := view.ListViews()
		if err != nil {
			return err
		}
		snap.Views = records(views, (*domain.View).Record)
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("capture snapshot: %w", err)
	}
	return snap, nil
}

func records[T any, R any](items []T, record func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, record(item))
	}
	return out
}

// Apply recreates every record of the snapshot inside tx, parents before
// children so reference checks pass. The target must not already hold any
// of the snapshot's ids.
func (s Snapshot) Apply(tx domain.Transaction) error {
	if s.Version != FormatVersion {
		return fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	steps := []struct {
		entity domain.EntityType
		run    func() error
	}{
		{domain.EntityTeamMember, func() error { return each(s.TeamMembers, domain.RestoreTeamMember, tx.CreateTeamMember) }},
		{domain.EntityProject, func() error { return each(s.Projects, domain.RestoreProject, tx.CreateProject) }},
		{domain.EntityWorkItem, func() error { return each(s.WorkItems, domain.RestoreWorkItem, tx.CreateWorkItem) }},
		{domain.EntityResearchTopic, func() error { return each(s.ResearchTopics, domain.RestoreResearchTopic, tx.CreateResearchTopic) }},
		{domain.EntityTimeEntry, func() error { return each(s.TimeEntries, domain.RestoreTimeEntry, tx.CreateTimeEntry) }},
		{domain.EntitySection, func() error { return each(s.Sections, domain.RestoreSection, tx.CreateSection) }},
		{domain.EntityLabel, func() error { return each(s.Labels, domain.RestoreLabel, tx.CreateLabel) }},
		{domain.EntityItemLabel, func() error {
			return each(s.ItemLabels, func(l domain.ItemLabel) domain.ItemLabel { return l }, tx.AssignLabel)
		}},
		{domain.EntityDueDate, func() error { return each(s.DueDates, domain.RestoreDueDate, tx.UpsertDueDate) }},
		{domain.EntityReminder, func() error { return each(s.Reminders, domain.RestoreReminder, tx.CreateReminder) }},
		{domain.EntityView, func() error { return each(s.Views, domain.RestoreView, tx.CreateView) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("restore %s: %w", step.entity, err)
		}
	}
	return nil
}

func each[R any, T any](recs []R, restore func(R) T, create func(T) error) error {
	for _, rec := range recs {
		if err := create(restore(rec)); err != nil {
			return err
		}
	}
	return nil
}

// Counts summarises the snapshot per entity, as blob metadata.
func (s Snapshot) Counts() map[string]string {
	return map[string]string{
		"version":         strconv.Itoa(s.Version),
		"team_members":    strconv.Itoa(len(s.TeamMembers)),
		"projects":        strconv.Itoa(len(s.Projects)),
		"work_items":      strconv.Itoa(len(s.WorkItems)),
		"research_topics": strconv.Itoa(len(s.ResearchTopics)),
		"time_entries":    strconv.Itoa(len(s.TimeEntries)),
		"sections":        strconv.Itoa(len(s.Sections)),
		"labels":          strconv.Itoa(len(s.Labels)),
		"item_labels":     strconv.Itoa(len(s.ItemLabels)),
		"due_dates":       strconv.Itoa(len(s.DueDates)),
		"reminders":       strconv.Itoa(len(s.Reminders)),
		"views":           strconv.Itoa(len(s.Views)),
	}
}
