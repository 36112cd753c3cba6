package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"taskcore/pkg/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// reader answers domain.TransactionView queries through q, which is either
// the pool or an open transaction.
type reader struct {
	ctx context.Context
	q   querier
	d   Dialect
}

const (
	projectColumns  = "id, version, name, project_key, color, created_at, updated_at"
	featureColumns  = "id, project_id, name, archived, created_at, updated_at"
	workItemColumns = "w.id, w.version, w.project_id, w.feature_id, w.owner_id, w.title, w.description, w.notes, w.status, w.priority, w.estimate, w.due_at, w.completed_at, w.created_at, w.updated_at"
	memberColumns   = "id, version, display_name, role, email, active, created_at, updated_at"
	topicColumns    = "id, version, title, problem_area, goal, created_at, updated_at"
	noteColumns     = "id, topic_id, kind, content, linked_work_item_id, created_at, updated_at"
	entryColumns    = "id, version, work_item_id, started_at, ended_at, source, notes, created_at, updated_at"
	sectionColumns  = "id, version, project_id, name, sort_order, created_at, updated_at"
	labelColumns    = "id, version, name, color, created_at, updated_at"
	dueDateColumns  = "item_id, due_at, timezone, recurring, recurrence_type, recurrence_interval, recurrence_count, recurrence_ends_at, recurrence_weekdays, created_at, updated_at"
	reminderColumns = "id, version, work_item_id, remind_at, dismissed, created_at, updated_at"
	viewColumns     = "id, version, name, project_id, status, tag, sort, created_at, updated_at"
)

func scanProject(row rowScanner) (domain.ProjectRecord, error) {
	var (
		rec     domain.ProjectRecord
		version int64
		color   sql.NullString
		ts      stamps
	)
	if err := row.Scan(&rec.ID, &version, &rec.Name, &rec.Key, &color, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	rec.Token = tokenFor(version)
	rec.Color = stringRef(color)
	var err error
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func scanFeature(row rowScanner) (domain.FeatureRecord, error) {
	var (
		rec domain.FeatureRecord
		ts  stamps
	)
	if err := row.Scan(&rec.ID, &rec.ProjectID, &rec.Name, &rec.Archived, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	var err error
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func scanWorkItem(row rowScanner) (domain.WorkItemRecord, error) {
	var (
		rec                domain.WorkItemRecord
		version            int64
		feature, owner     uuid.NullUUID
		estimate           decimal.NullDecimal
		dueAt, completedAt sql.NullString
		ts                 stamps
	)
	if err := row.Scan(&rec.ID, &version, &rec.ProjectID, &feature, &owner, &rec.Title, &rec.Description, &rec.Notes,
		&rec.Status, &rec.Priority, &estimate, &dueAt, &completedAt, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	rec.Token = tokenFor(version)
	rec.FeatureID = uuidRef(feature)
	rec.OwnerID = uuidRef(owner)
	if estimate.Valid {
		est := estimate.Decimal
		rec.Estimate = &est
	}
	var err error
	if rec.DueAt, err = parseNullTime(dueAt); err != nil {
		return rec, err
	}
	if rec.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return rec, err
	}
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func scanMember(row rowScanner) (domain.TeamMemberRecord, error) {
	var (
		rec     domain.TeamMemberRecord
		version int64
		ts      stamps
	)
	if err := row.Scan(&rec.ID, &version, &rec.DisplayName, &rec.Role, &rec.Email, &rec.Active, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	rec.Token = tokenFor(version)
	var err error
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func scanTopic(row rowScanner) (domain.ResearchTopicRecord, error) {
	var (
		rec     domain.ResearchTopicRecord
		version int64
		ts      stamps
	)
	if err := row.Scan(&rec.ID, &version, &rec.Title, &rec.ProblemArea, &rec.Goal, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	rec.Token = tokenFor(version)
	var err error
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func scanNote(row rowScanner) (domain.ResearchNoteRecord, error) {
	var (
		rec    domain.ResearchNoteRecord
		linked uuid.NullUUID
		ts     stamps
	)
	if err := row.Scan(&rec.ID, &rec.TopicID, &rec.Kind, &rec.Content, &linked, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	rec.LinkedWorkItemID = uuidRef(linked)
	var err error
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func scanTimeEntry(row rowScanner) (domain.TimeEntryRecord, error) {
	var (
		rec        domain.TimeEntryRecord
		version    int64
		start, end string
		ts         stamps
	)
	if err := row.Scan(&rec.ID, &version, &rec.WorkItemID, &start, &end, &rec.Source, &rec.Notes, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	rec.Token = tokenFor(version)
	var err error
	if rec.StartedAt, err = parseTime(start); err != nil {
		return rec, err
	}
	if rec.EndedAt, err = parseTime(end); err != nil {
		return rec, err
	}
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func scanSection(row rowScanner) (domain.SectionRecord, error) {
	var (
		rec     domain.SectionRecord
		version int64
		ts      stamps
	)
	if err := row.Scan(&rec.ID, &version, &rec.ProjectID, &rec.Name, &rec.SortOrder, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	rec.Token = tokenFor(version)
	var err error
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func scanLabel(row rowScanner) (domain.LabelRecord, error) {
	var (
		rec     domain.LabelRecord
		version int64
		color   sql.NullString
		ts      stamps
	)
	if err := row.Scan(&rec.ID, &version, &rec.Name, &color, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	rec.Token = tokenFor(version)
	rec.Color = stringRef(color)
	var err error
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func scanItemLabel(row rowScanner) (domain.ItemLabel, error) {
	var link domain.ItemLabel
	err := row.Scan(&link.ItemID, &link.LabelID)
	return link, err
}

func scanDueDate(row rowScanner) (domain.DueDateRecord, error) {
	var (
		rec             domain.DueDateRecord
		dueAt           string
		kind            sql.NullString
		interval, count sql.NullInt64
		endsAt          sql.NullString
		weekdays        sql.NullInt64
		ts              stamps
	)
	if err := row.Scan(&rec.ItemID, &dueAt, &rec.Timezone, &rec.Recurring, &kind, &interval, &count, &endsAt, &weekdays, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	var err error
	if rec.DueAt, err = parseTime(dueAt); err != nil {
		return rec, err
	}
	if kind.Valid {
		t := domain.RecurrenceType(kind.String)
		rec.Recurrence.Type = &t
	}
	rec.Recurrence.Interval = intRef(interval)
	rec.Recurrence.Count = intRef(count)
	if rec.Recurrence.EndsAt, err = parseNullTime(endsAt); err != nil {
		return rec, err
	}
	if weekdays.Valid {
		mask := uint8(weekdays.Int64)
		rec.Recurrence.Weekdays = &mask
	}
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func scanReminder(row rowScanner) (domain.ReminderRecord, error) {
	var (
		rec      domain.ReminderRecord
		version  int64
		remindAt string
		ts       stamps
	)
	if err := row.Scan(&rec.ID, &version, &rec.WorkItemID, &remindAt, &rec.Dismissed, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	rec.Token = tokenFor(version)
	var err error
	if rec.RemindAt, err = parseTime(remindAt); err != nil {
		return rec, err
	}
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func scanView(row rowScanner) (domain.ViewRecord, error) {
	var (
		rec     domain.ViewRecord
		version int64
		project uuid.NullUUID
		status  sql.NullString
		ts      stamps
	)
	if err := row.Scan(&rec.ID, &version, &rec.Name, &project, &status, &rec.Filter.Tag, &rec.Filter.Sort, &ts.created, &ts.updated); err != nil {
		return rec, err
	}
	rec.Token = tokenFor(version)
	rec.Filter.ProjectID = uuidRef(project)
	if status.Valid {
		s := domain.WorkItemStatus(status.String)
		rec.Filter.Status = &s
	}
	var err error
	rec.CreatedAt, rec.UpdatedAt, err = ts.times()
	return rec, err
}

func restoreAll[R any, E any](recs []R, restore func(R) E) []E {
	out := make([]E, 0, len(recs))
	for _, rec := range recs {
		out = append(out, restore(rec))
	}
	return out
}

func (r reader) FindProject(id uuid.UUID) (*domain.Project, bool, error) {
	return r.findProject("id = ?", id)
}

func (r reader) FindProjectByKey(key string) (*domain.Project, bool, error) {
	return r.findProject("project_key = ?", strings.ToUpper(strings.TrimSpace(key)))
}

func (r reader) findProject(where string, arg any) (*domain.Project, bool, error) {
	rec, ok, err := queryOne(r.ctx, r.q, r.d, "SELECT "+projectColumns+" FROM projects WHERE "+where, []any{arg}, scanProject)
	if err != nil {
		return nil, false, fmt.Errorf("find project: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	rec.Features, err = queryAll(r.ctx, r.q, r.d,
		"SELECT "+featureColumns+" FROM features WHERE project_id = ? ORDER BY position", []any{rec.ID}, scanFeature)
	if err != nil {
		return nil, false, fmt.Errorf("load features: %w", err)
	}
	return domain.RestoreProject(rec), true, nil
}

// ListProjects orders projects by key.
func (r reader) ListProjects() ([]*domain.Project, error) {
	recs, err := queryAll(r.ctx, r.q, r.d, "SELECT "+projectColumns+" FROM projects ORDER BY project_key", nil, scanProject)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	features, err := queryAll(r.ctx, r.q, r.d,
		"SELECT "+featureColumns+" FROM features ORDER BY project_id, position", nil, scanFeature)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}
	byProject := make(map[uuid.UUID][]domain.FeatureRecord)
	for _, f := range features {
		byProject[f.ProjectID] = append(byProject[f.ProjectID], f)
	}
	for i := range recs {
		recs[i].Features = byProject[recs[i].ID]
	}
	return restoreAll(recs, domain.RestoreProject), nil
}

func (r reader) FindWorkItem(id uuid.UUID) (*domain.WorkItem, bool, error) {
	rec, ok, err := queryOne(r.ctx, r.q, r.d, "SELECT "+workItemColumns+" FROM work_items w WHERE w.id = ?", []any{id}, scanWorkItem)
	if err != nil {
		return nil, false, fmt.Errorf("find work item: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	rec.Tags, err = queryAll(r.ctx, r.q, r.d, "SELECT tag FROM work_item_tags WHERE item_id = ? ORDER BY position", []any{id},
		func(row rowScanner) (string, error) {
			var tag string
			err := row.Scan(&tag)
			return tag, err
		})
	if err != nil {
		return nil, false, fmt.Errorf("load tags: %w", err)
	}
	return domain.RestoreWorkItem(rec), true, nil
}

// ListWorkItems orders items by creation time. Column filters run in SQL;
// the tag filter is applied after tags are loaded.
func (r reader) ListWorkItems(filter domain.WorkItemFilter) ([]*domain.WorkItem, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ProjectID != nil {
		conds = append(conds, "w.project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.FeatureID != nil {
		conds = append(conds, "w.feature_id = ?")
		args = append(args, *filter.FeatureID)
	}
	if filter.OwnerID != nil {
		conds = append(conds, "w.owner_id = ?")
		args = append(args, *filter.OwnerID)
	}
	if filter.Status != nil {
		conds = append(conds, "w.status = ?")
		args = append(args, string(*filter.Status))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	recs, err := queryAll(r.ctx, r.q, r.d,
		"SELECT "+workItemColumns+" FROM work_items w"+where+" ORDER BY w.created_at, w.id", args, scanWorkItem)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	type tagRow struct {
		itemID uuid.UUID
		tag    string
	}
	tags, err := queryAll(r.ctx, r.q, r.d,
		"SELECT t.item_id, t.tag FROM work_item_tags t JOIN work_items w ON w.id = t.item_id"+where+" ORDER BY t.item_id, t.position", args,
		func(row rowScanner) (tagRow, error) {
			var tr tagRow
			err := row.Scan(&tr.itemID, &tr.tag)
			return tr, err
		})
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	byItem := make(map[uuid.UUID][]string)
	for _, tr := range tags {
		byItem[tr.itemID] = append(byItem[tr.itemID], tr.tag)
	}

	out := make([]*domain.WorkItem, 0, len(recs))
	for _, rec := range recs {
		rec.Tags = byItem[rec.ID]
		item := domain.RestoreWorkItem(rec)
		if filter.Matches(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r reader) FindTeamMember(id uuid.UUID) (*domain.TeamMember, bool, error) {
	rec, ok, err := queryOne(r.ctx, r.q, r.d, "SELECT "+memberColumns+" FROM team_members WHERE id = ?", []any{id}, scanMember)
	if err != nil || !ok {
		return nil, false, wrapFind(domain.EntityTeamMember, err)
	}
	return domain.RestoreTeamMember(rec), true, nil
}

func (r reader) ListTeamMembers(filter domain.TeamMemberFilter) ([]*domain.TeamMember, error) {
	query := "SELECT " + memberColumns + " FROM team_members"
	var args []any
	if filter.ActiveOnly {
		query += " WHERE active = ?"
		args = append(args, true)
	}
	recs, err := queryAll(r.ctx, r.q, r.d, query+" ORDER BY display_name, id", args, scanMember)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return restoreAll(recs, domain.RestoreTeamMember), nil
}

func (r reader) FindResearchTopic(id uuid.UUID) (*domain.ResearchTopic, bool, error) {
	rec, ok, err := queryOne(r.ctx, r.q, r.d, "SELECT "+topicColumns+" FROM research_topics WHERE id = ?", []any{id}, scanTopic)
	if err != nil || !ok {
		return nil, false, wrapFind(domain.EntityResearchTopic, err)
	}
	rec.Notes, err = queryAll(r.ctx, r.q, r.d,
		"SELECT "+noteColumns+" FROM research_notes WHERE topic_id = ? ORDER BY position", []any{id}, scanNote)
	if err != nil {
		return nil, false, fmt.Errorf("load notes: %w", err)
	}
	return domain.RestoreResearchTopic(rec), true, nil
}

func (r reader) ListResearchTopics() ([]*domain.ResearchTopic, error) {
	recs, err := queryAll(r.ctx, r.q, r.d, "SELECT "+topicColumns+" FROM research_topics ORDER BY created_at, id", nil, scanTopic)
	if err != nil {
		return nil, fmt.Errorf("list research topics: %w", err)
	}
	notes, err := queryAll(r.ctx, r.q, r.d,
		"SELECT "+noteColumns+" FROM research_notes ORDER BY topic_id, position", nil, scanNote)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	byTopic := make(map[uuid.UUID][]domain.ResearchNoteRecord)
	for _, n := range notes {
		byTopic[n.TopicID] = append(byTopic[n.TopicID], n)
	}
	for i := range recs {
		recs[i].Notes = byTopic[recs[i].ID]
	}
	return restoreAll(recs, domain.RestoreResearchTopic), nil
}

func (r reader) FindTimeEntry(id uuid.UUID) (*domain.TimeEntry, bool, error) {
	rec, ok, err := queryOne(r.ctx, r.q, r.d, "SELECT "+entryColumns+" FROM time_entries WHERE id = ?", []any{id}, scanTimeEntry)
	if err != nil || !ok {
		return nil, false, wrapFind(domain.EntityTimeEntry, err)
	}
	return domain.RestoreTimeEntry(rec), true, nil
}

func (r reader) ListTimeEntries(filter domain.TimeEntryFilter) ([]*domain.TimeEntry, error) {
	query := "SELECT " + entryColumns + " FROM time_entries"
	var args []any
	if filter.WorkItemID != nil {
		query += " WHERE work_item_id = ?"
		args = append(args, *filter.WorkItemID)
	}
	recs, err := queryAll(r.ctx, r.q, r.d, query+" ORDER BY started_at, id", args, scanTimeEntry)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	return restoreAll(recs, domain.RestoreTimeEntry), nil
}

func (r reader) FindSection(id uuid.UUID) (*domain.Section, bool, error) {
	rec, ok, err := queryOne(r.ctx, r.q, r.d, "SELECT "+sectionColumns+" FROM sections WHERE id = ?", []any{id}, scanSection)
	if err != nil || !ok {
		return nil, false, wrapFind(domain.EntitySection, err)
	}
	return domain.RestoreSection(rec), true, nil
}

// ListSections orders a project's sections by sort order.
func (r reader) ListSections(projectID uuid.UUID) ([]*domain.Section, error) {
	recs, err := queryAll(r.ctx, r.q, r.d,
		"SELECT "+sectionColumns+" FROM sections WHERE project_id = ? ORDER BY sort_order, name, id", []any{projectID}, scanSection)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return restoreAll(recs, domain.RestoreSection), nil
}

func (r reader) FindLabel(id uuid.UUID) (*domain.Label, bool, error) {
	rec, ok, err := queryOne(r.ctx, r.q, r.d, "SELECT "+labelColumns+" FROM labels WHERE id = ?", []any{id}, scanLabel)
	if err != nil || !ok {
		return nil, false, wrapFind(domain.EntityLabel, err)
	}
	return domain.RestoreLabel(rec), true, nil
}

func (r reader) ListLabels() ([]*domain.Label, error) {
	recs, err := queryAll(r.ctx, r.q, r.d, "SELECT "+labelColumns+" FROM labels ORDER BY name, id", nil, scanLabel)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return restoreAll(recs, domain.RestoreLabel), nil
}

func (r reader) ListItemLabels(itemID uuid.UUID) ([]domain.ItemLabel, error) {
	links, err := queryAll(r.ctx, r.q, r.d,
		"SELECT item_id, label_id FROM item_labels WHERE item_id = ? ORDER BY label_id", []any{itemID}, scanItemLabel)
	if err != nil {
		return nil, fmt.Errorf("list item labels: %w", err)
	}
	return links, nil
}

func (r reader) FindDueDate(itemID uuid.UUID) (*domain.DueDate, bool, error) {
	rec, ok, err := queryOne(r.ctx, r.q, r.d, "SELECT "+dueDateColumns+" FROM due_dates WHERE item_id = ?", []any{itemID}, scanDueDate)
	if err != nil || !ok {
		return nil, false, wrapFind(domain.EntityDueDate, err)
	}
	return domain.RestoreDueDate(rec), true, nil
}

func (r reader) FindReminder(id uuid.UUID) (*domain.Reminder, bool, error) {
	rec, ok, err := queryOne(r.ctx, r.q, r.d, "SELECT "+reminderColumns+" FROM reminders WHERE id = ?", []any{id}, scanReminder)
	if err != nil || !ok {
		return nil, false, wrapFind(domain.EntityReminder, err)
	}
	return domain.RestoreReminder(rec), true, nil
}

func (r reader) ListReminders(filter domain.ReminderFilter) ([]*domain.Reminder, error) {
	var (
		conds []string
		args  []any
	)
	if filter.WorkItemID != nil {
		conds = append(conds, "work_item_id = ?")
		args = append(args, *filter.WorkItemID)
	}
	if !filter.IncludeDismissed {
		conds = append(conds, "dismissed = ?")
		args = append(args, false)
	}
	query := "SELECT " + reminderColumns + " FROM reminders"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	recs, err := queryAll(r.ctx, r.q, r.d, query+" ORDER BY remind_at, id", args, scanReminder)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return restoreAll(recs, domain.RestoreReminder), nil
}

func (r reader) FindView(id uuid.UUID) (*domain.View, bool, error) {
	rec, ok, err := queryOne(r.ctx, r.q, r.d, "SELECT "+viewColumns+" FROM views WHERE id = ?", []any{id}, scanView)
	if err != nil || !ok {
		return nil, false, wrapFind(domain.EntityView, err)
	}
	return domain.RestoreView(rec), true, nil
}

func (r reader) ListViews() ([]*domain.View, error) {
	recs, err := queryAll(r.ctx, r.q, r.d, "SELECT "+viewColumns+" FROM views ORDER BY name, id", nil, scanView)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	return restoreAll(recs, domain.RestoreView), nil
}

// wrapFind returns nil for a plain miss.
func wrapFind(entity domain.EntityType, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("find %s: %w", entity, err)
}
