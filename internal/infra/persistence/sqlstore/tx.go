package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	"taskcore/pkg/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// transaction writes through an open *sql.Tx. Rows cascaded by foreign keys
// are not reported as separate changes; only the root write is.
type transaction struct {
	reader
	changes []domain.Change
	tokens  domain.PendingTokens
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) exec(query string, args ...any) (sql.Result, error) {
	return tx.q.ExecContext(tx.ctx, tx.d.Rebind(query), args...)
}

func (tx *transaction) exists(table string, id uuid.UUID) (bool, error) {
	_, ok, err := queryOne(tx.ctx, tx.q, tx.d, "SELECT 1 FROM "+table+" WHERE id = ?", []any{id}, func(row rowScanner) (int, error) {
		var one int
		err := row.Scan(&one)
		return one, err
	})
	if err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return ok, nil
}

func (tx *transaction) require(table string, entity domain.EntityType, id uuid.UUID) error {
	ok, err := tx.exists(table, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError(entity, id)
	}
	return nil
}

// casUpdate bumps the row version when the presented token still matches.
// A miss is reported as NotFoundError or *ConcurrencyError depending on
// whether the row exists.
func (tx *transaction) casUpdate(entity domain.EntityType, table string, id uuid.UUID, presented domain.ConcurrencyToken, set string, args ...any) (domain.ConcurrencyToken, error) {
	version, ok := presented.Version()
	if ok {
		query := "UPDATE " + table + " SET version = version + 1, " + set + " WHERE id = ? AND version = ?"
		res, err := tx.exec(query, append(args, id, int64(version))...)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", entity, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", entity, err)
		}
		if n == 1 {
			return tokenFor(int64(version) + 1), nil
		}
	}
	if err := tx.require(table, entity, id); err != nil {
		return nil, err
	}
	return nil, &domain.ConcurrencyError{Entity: entity, ID: id}
}

func (tx *transaction) deleteRow(entity domain.EntityType, table string, id uuid.UUID) error {
	if _, err := tx.exec("DELETE FROM "+table+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	return nil
}

// CreateProject stores a new project and its features.
func (tx *transaction) CreateProject(p *domain.Project) error {
	rec := p.Record()
	if _, err := tx.exec(`INSERT INTO projects (id, version, name, project_key, color, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Key, nullString(rec.Color), fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt)); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	if err := tx.upsertFeatures(rec.Features); err != nil {
		return err
	}
	rec.Token = tokenFor(1)
	tx.tokens.Assign(p, rec.Token)
	tx.recordChange(domain.Change{Entity: domain.EntityProject, Action: domain.ActionCreate, ID: rec.ID, After: rec})
	return nil
}

func (tx *transaction) upsertFeatures(features []domain.FeatureRecord) error {
	for i, f := range features {
		_, err := tx.exec(`INSERT INTO features (id, project_id, position, name, archived, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET position = excluded.position, name = excluded.name, archived = excluded.archived, updated_at = excluded.updated_at`,
			f.ID, f.ProjectID, i, f.Name, f.Archived, fmtTime(f.CreatedAt), fmtTime(f.UpdatedAt))
		if err != nil {
			return fmt.Errorf("write feature %s: %w", f.ID, err)
		}
	}
	return nil
}

// UpdateProject writes the project and diffs its feature set. Removing a
// feature nulls the work item references through the foreign key.
func (tx *transaction) UpdateProject(p *domain.Project) error {
	before, ok, err := tx.FindProject(p.ID())
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError(domain.EntityProject, p.ID())
	}
	rec := p.Record()
	token, err := tx.casUpdate(domain.EntityProject, "projects", rec.ID, tx.tokens.Presented(p),
		"name = ?, project_key = ?, color = ?, updated_at = ?",
		rec.Name, rec.Key, nullString(rec.Color), fmtTime(rec.UpdatedAt))
	if err != nil {
		return err
	}

	kept := make(map[uuid.UUID]bool, len(rec.Features))
	for _, f := range rec.Features {
		kept[f.ID] = true
	}
	for _, f := range before.Features() {
		if kept[f.ID()] {
			continue
		}
		if _, err := tx.exec("DELETE FROM features WHERE id = ?", f.ID()); err != nil {
			return fmt.Errorf("remove feature %s: %w", f.ID(), err)
		}
	}
	if err := tx.upsertFeatures(rec.Features); err != nil {
		return err
	}

	rec.Token = token
	tx.tokens.Assign(p, token)
	tx.recordChange(domain.Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, ID: rec.ID, Before: before.Record(), After: rec})
	return nil
}

// DeleteProject cascades to features, sections and work items.
func (tx *transaction) DeleteProject(id uuid.UUID) error {
	before, ok, err := tx.FindProject(id)
	if err != nil || !ok {
		return err
	}
	if err := tx.deleteRow(domain.EntityProject, "projects", id); err != nil {
		return err
	}
	tx.recordChange(domain.Change{Entity: domain.EntityProject, Action: domain.ActionDelete, ID: id, Before: before.Record()})
	return nil
}

func (tx *transaction) checkWorkItemRefs(rec domain.WorkItemRecord) error {
	if err := tx.require("projects", domain.EntityProject, rec.ProjectID); err != nil {
		return err
	}
	if rec.FeatureID != nil {
		if err := tx.require("features", domain.EntityFeature, *rec.FeatureID); err != nil {
			return err
		}
	}
	if rec.OwnerID != nil {
		if err := tx.require("team_members", domain.EntityTeamMember, *rec.OwnerID); err != nil {
			return err
		}
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func (tx *transaction) replaceTags(itemID uuid.UUID, tags []string) error {
	if _, err := tx.exec("DELETE FROM work_item_tags WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for i, tag := range tags {
		if _, err := tx.exec("INSERT INTO work_item_tags (item_id, position, tag) VALUES (?, ?, ?)", itemID, i, tag); err != nil {
			return fmt.Errorf("write tag: %w", err)
		}
	}
	return nil
}

// CreateWorkItem requires the project and any referenced feature or owner.
func (tx *transaction) CreateWorkItem(w *domain.WorkItem) error {
	rec := w.Record()
	if err := tx.checkWorkItemRefs(rec); err != nil {
		return err
	}
	_, err := tx.exec(`INSERT INTO work_items (id, version, project_id, feature_id, owner_id, title, description, notes, status, priority, estimate, due_at, completed_at, created_at, updated_at)
VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProjectID, nullUUID(rec.FeatureID), nullUUID(rec.OwnerID), rec.Title, rec.Description, rec.Notes,
		string(rec.Status), string(rec.Priority), nullDecimal(rec.Estimate), nullTime(rec.DueAt), nullTime(rec.CompletedAt),
		fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create work item: %w", err)
	}
	if err := tx.replaceTags(rec.ID, rec.Tags); err != nil {
		return err
	}
	rec.Token = tokenFor(1)
	tx.tokens.Assign(w, rec.Token)
	tx.recordChange(domain.Change{Entity: domain.EntityWorkItem, Action: domain.ActionCreate, ID: rec.ID, After: rec})
	return nil
}

func (tx *transaction) UpdateWorkItem(w *domain.WorkItem) error {
	before, ok, err := tx.FindWorkItem(w.ID())
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError(domain.EntityWorkItem, w.ID())
	}
	rec := w.Record()
	if err := tx.checkWorkItemRefs(rec); err != nil {
		return err
	}
	token, err := tx.casUpdate(domain.EntityWorkItem, "work_items", rec.ID, tx.tokens.Presented(w),
		"project_id = ?, feature_id = ?, owner_id = ?, title = ?, description = ?, notes = ?, status = ?, priority = ?, estimate = ?, due_at = ?, completed_at = ?, updated_at = ?",
		rec.ProjectID, nullUUID(rec.FeatureID), nullUUID(rec.OwnerID), rec.Title, rec.Description, rec.Notes,
		string(rec.Status), string(rec.Priority), nullDecimal(rec.Estimate), nullTime(rec.DueAt), nullTime(rec.CompletedAt),
		fmtTime(rec.UpdatedAt))
	if err != nil {
		return err
	}
	if err := tx.replaceTags(rec.ID, rec.Tags); err != nil {
		return err
	}
	rec.Token = token
	tx.tokens.Assign(w, token)
	tx.recordChange(domain.Change{Entity: domain.EntityWorkItem, Action: domain.ActionUpdate, ID: rec.ID, Before: before.Record(), After: rec})
	return nil
}

// DeleteWorkItem removes the item with its tags, labels, due date and
// reminders. Research notes linking to it lose the link.
func (tx *transaction) DeleteWorkItem(id uuid.UUID) error {
	before, ok, err := tx.FindWorkItem(id)
	if err != nil || !ok {
		return err
	}
	if err := tx.deleteRow(domain.EntityWorkItem, "work_items", id); err != nil {
		return err
	}
	tx.recordChange(domain.Change{Entity: domain.EntityWorkItem, Action: domain.ActionDelete, ID: id, Before: before.Record()})
	return nil
}

func (tx *transaction) CreateTeamMember(m *domain.TeamMember) error {
	rec := m.Record()
	if _, err := tx.exec(`INSERT INTO team_members (id, version, display_name, role, email, active, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DisplayName, rec.Role, rec.Email, rec.Active, fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt)); err != nil {
		return fmt.Errorf("create team member: %w", err)
	}
	rec.Token = tokenFor(1)
	tx.tokens.Assign(m, rec.Token)
	tx.recordChange(domain.Change{Entity: domain.EntityTeamMember, Action: domain.ActionCreate, ID: rec.ID, After: rec})
	return nil
}

func (tx *transaction) UpdateTeamMember(m *domain.TeamMember) error {
	before, ok, err := tx.FindTeamMember(m.ID())
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError(domain.EntityTeamMember, m.ID())
	}
	rec := m.Record()
	token, err := tx.casUpdate(domain.EntityTeamMember, "team_members", rec.ID, tx.tokens.Presented(m),
		"display_name = ?, role = ?, email = ?, active = ?, updated_at = ?",
		rec.DisplayName, rec.Role, rec.Email, rec.Active, fmtTime(rec.UpdatedAt))
	if err != nil {
		return err
	}
	rec.Token = token
	tx.tokens.Assign(m, token)
	tx.recordChange(domain.Change{Entity: domain.EntityTeamMember, Action: domain.ActionUpdate, ID: rec.ID, Before: before.Record(), After: rec})
	return nil
}

// DeleteTeamMember clears the owner of every item the member owned.
func (tx *transaction) DeleteTeamMember(id uuid.UUID) error {
	before, ok, err := tx.FindTeamMember(id)
	if err != nil || !ok {
		return err
	}
	if err := tx.deleteRow(domain.EntityTeamMember, "team_members", id); err != nil {
		return err
	}
	tx.recordChange(domain.Change{Entity: domain.EntityTeamMember, Action: domain.ActionDelete, ID: id, Before: before.Record()})
	return nil
}

func (tx *transaction) writeNotes(topicID uuid.UUID, notes []domain.ResearchNoteRecord) error {
	if _, err := tx.exec("DELETE FROM research_notes WHERE topic_id = ?", topicID); err != nil {
		return fmt.Errorf("clear notes: %w", err)
	}
	for i, n := range notes {
		if n.LinkedWorkItemID != nil {
			if err := tx.require("work_items", domain.EntityWorkItem, *n.LinkedWorkItemID); err != nil {
				return err
			}
		}
		_, err := tx.exec(`INSERT INTO research_notes (id, topic_id, position, kind, content, linked_work_item_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, topicID, i, string(n.Kind), n.Content, nullUUID(n.LinkedWorkItemID), fmtTime(n.CreatedAt), fmtTime(n.UpdatedAt))
		if err != nil {
			return fmt.Errorf("write note %s: %w", n.ID, err)
		}
	}
	return nil
}

func (tx *transaction) CreateResearchTopic(t *domain.ResearchTopic) error {
	rec := t.Record()
	if _, err := tx.exec(`INSERT INTO research_topics (id, version, title, problem_area, goal, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.ProblemArea, rec.Goal, fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt)); err != nil {
		return fmt.Errorf("create research topic: %w", err)
	}
	if err := tx.writeNotes(rec.ID, rec.Notes); err != nil {
		return err
	}
	rec.Token = tokenFor(1)
	tx.tokens.Assign(t, rec.Token)
	tx.recordChange(domain.Change{Entity: domain.EntityResearchTopic, Action: domain.ActionCreate, ID: rec.ID, After: rec})
	return nil
}

func (tx *transaction) UpdateResearchTopic(t *domain.ResearchTopic) error {
	before, ok, err := tx.FindResearchTopic(t.ID())
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError(domain.EntityResearchTopic, t.ID())
	}
	rec := t.Record()
	token, err := tx.casUpdate(domain.EntityResearchTopic, "research_topics", rec.ID, tx.tokens.Presented(t),
		"title = ?, problem_area = ?, goal = ?, updated_at = ?",
		rec.Title, rec.ProblemArea, rec.Goal, fmtTime(rec.UpdatedAt))
	if err != nil {
		return err
	}
	if err := tx.writeNotes(rec.ID, rec.Notes); err != nil {
		return err
	}
	rec.Token = token
	tx.tokens.Assign(t, token)
	tx.recordChange(domain.Change{Entity: domain.EntityResearchTopic, Action: domain.ActionUpdate, ID: rec.ID, Before: before.Record(), After: rec})
	return nil
}

func (tx *transaction) DeleteResearchTopic(id uuid.UUID) error {
	before, ok, err := tx.FindResearchTopic(id)
	if err != nil || !ok {
		return err
	}
	if err := tx.deleteRow(domain.EntityResearchTopic, "research_topics", id); err != nil {
		return err
	}
	tx.recordChange(domain.Change{Entity: domain.EntityResearchTopic, Action: domain.ActionDelete, ID: id, Before: before.Record()})
	return nil
}

// CreateTimeEntry does not check the work item; time entries keep a weak
// reference so history survives item deletion.
func (tx *transaction) CreateTimeEntry(e *domain.TimeEntry) error {
	rec := e.Record()
	if _, err := tx.exec(`INSERT INTO time_entries (id, version, work_item_id, started_at, ended_at, source, notes, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WorkItemID, fmtTime(rec.StartedAt), fmtTime(rec.EndedAt), string(rec.Source), rec.Notes,
		fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt)); err != nil {
		return fmt.Errorf("create time entry: %w", err)
	}
	rec.Token = tokenFor(1)
	tx.tokens.Assign(e, rec.Token)
	tx.recordChange(domain.Change{Entity: domain.EntityTimeEntry, Action: domain.ActionCreate, ID: rec.ID, After: rec})
	return nil
}

func (tx *transaction) UpdateTimeEntry(e *domain.TimeEntry) error {
	before, ok, err := tx.FindTimeEntry(e.ID())
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError(domain.EntityTimeEntry, e.ID())
	}
	rec := e.Record()
	token, err := tx.casUpdate(domain.EntityTimeEntry, "time_entries", rec.ID, tx.tokens.Presented(e),
		"work_item_id = ?, started_at = ?, ended_at = ?, source = ?, notes = ?, updated_at = ?",
		rec.WorkItemID, fmtTime(rec.StartedAt), fmtTime(rec.EndedAt), string(rec.Source), rec.Notes, fmtTime(rec.UpdatedAt))
	if err != nil {
		return err
	}
	rec.Token = token
	tx.tokens.Assign(e, token)
	tx.recordChange(domain.Change{Entity: domain.EntityTimeEntry, Action: domain.ActionUpdate, ID: rec.ID, Before: before.Record(), After: rec})
	return nil
}

func (tx *transaction) DeleteTimeEntry(id uuid.UUID) error {
	before, ok, err := tx.FindTimeEntry(id)
	if err != nil || !ok {
		return err
	}
	if err := tx.deleteRow(domain.EntityTimeEntry, "time_entries", id); err != nil {
		return err
	}
	tx.recordChange(domain.Change{Entity: domain.EntityTimeEntry, Action: domain.ActionDelete, ID: id, Before: before.Record()})
	return nil
}

func (tx *transaction) CreateSection(s *domain.Section) error {
	rec := s.Record()
	if err := tx.require("projects", domain.EntityProject, rec.ProjectID); err != nil {
		return err
	}
	if _, err := tx.exec(`INSERT INTO sections (id, version, project_id, name, sort_order, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProjectID, rec.Name, rec.SortOrder, fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt)); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	rec.Token = tokenFor(1)
	tx.tokens.Assign(s, rec.Token)
	tx.recordChange(domain.Change{Entity: domain.EntitySection, Action: domain.ActionCreate, ID: rec.ID, After: rec})
	return nil
}

func (tx *transaction) UpdateSection(s *domain.Section) error {
	before, ok, err := tx.FindSection(s.ID())
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError(domain.EntitySection, s.ID())
	}
	rec := s.Record()
	token, err := tx.casUpdate(domain.EntitySection, "sections", rec.ID, tx.tokens.Presented(s),
		"name = ?, sort_order = ?, updated_at = ?", rec.Name, rec.SortOrder, fmtTime(rec.UpdatedAt))
	if err != nil {
		return err
	}
	rec.Token = token
	tx.tokens.Assign(s, token)
	tx.recordChange(domain.Change{Entity: domain.EntitySection, Action: domain.ActionUpdate, ID: rec.ID, Before: before.Record(), After: rec})
	return nil
}

func (tx *transaction) DeleteSection(id uuid.UUID) error {
	before, ok, err := tx.FindSection(id)
	if err != nil || !ok {
		return err
	}
	if err := tx.deleteRow(domain.EntitySection, "sections", id); err != nil {
		return err
	}
	tx.recordChange(domain.Change{Entity: domain.EntitySection, Action: domain.ActionDelete, ID: id, Before: before.Record()})
	return nil
}

// ReorderSections writes every section whose order changed.
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
	rec := l.Record()
	if _, err := tx.exec(`INSERT INTO labels (id, version, name, color, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?)`,
		rec.ID, rec.Name, nullString(rec.Color), fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt)); err != nil {
		return fmt.Errorf("create label: %w", err)
	}
	rec.Token = tokenFor(1)
	tx.tokens.Assign(l, rec.Token)
	tx.recordChange(domain.Change{Entity: domain.EntityLabel, Action: domain.ActionCreate, ID: rec.ID, After: rec})
	return nil
}

func (tx *transaction) UpdateLabel(l *domain.Label) error {
	before, ok, err := tx.FindLabel(l.ID())
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError(domain.EntityLabel, l.ID())
	}
	rec := l.Record()
	token, err := tx.casUpdate(domain.EntityLabel, "labels", rec.ID, tx.tokens.Presented(l),
		"name = ?, color = ?, updated_at = ?", rec.Name, nullString(rec.Color), fmtTime(rec.UpdatedAt))
	if err != nil {
		return err
	}
	rec.Token = token
	tx.tokens.Assign(l, token)
	tx.recordChange(domain.Change{Entity: domain.EntityLabel, Action: domain.ActionUpdate, ID: rec.ID, Before: before.Record(), After: rec})
	return nil
}

func (tx *transaction) DeleteLabel(id uuid.UUID) error {
	before, ok, err := tx.FindLabel(id)
	if err != nil || !ok {
		return err
	}
	if err := tx.deleteRow(domain.EntityLabel, "labels", id); err != nil {
		return err
	}
	tx.recordChange(domain.Change{Entity: domain.EntityLabel, Action: domain.ActionDelete, ID: id, Before: before.Record()})
	return nil
}

// AssignLabel inserts the link unless it already exists.
func (tx *transaction) AssignLabel(link domain.ItemLabel) error {
	if err := tx.require("work_items", domain.EntityWorkItem, link.ItemID); err != nil {
		return err
	}
	if err := tx.require("labels", domain.EntityLabel, link.LabelID); err != nil {
		return err
	}
	res, err := tx.exec("INSERT INTO item_labels (item_id, label_id) VALUES (?, ?) ON CONFLICT (item_id, label_id) DO NOTHING", link.ItemID, link.LabelID)
	if err != nil {
		return fmt.Errorf("assign label: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		tx.recordChange(domain.Change{Entity: domain.EntityItemLabel, Action: domain.ActionCreate, ID: link.ItemID, After: link})
	}
	return nil
}

func (tx *transaction) UnassignLabel(link domain.ItemLabel) error {
	res, err := tx.exec("DELETE FROM item_labels WHERE item_id = ? AND label_id = ?", link.ItemID, link.LabelID)
	if err != nil {
		return fmt.Errorf("unassign label: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		tx.recordChange(domain.Change{Entity: domain.EntityItemLabel, Action: domain.ActionDelete, ID: link.ItemID, Before: link})
	}
	return nil
}

// UpsertDueDate replaces every column except created_at on conflict.
func (tx *transaction) UpsertDueDate(d *domain.DueDate) error {
	next := d.Record()
	if err := tx.require("work_items", domain.EntityWorkItem, next.ItemID); err != nil {
		return err
	}
	before, existed, err := tx.FindDueDate(next.ItemID)
	if err != nil {
		return err
	}
	rec := next
	action := domain.ActionCreate
	var beforeRec any
	if existed {
		prev := before.Record()
		rec = domain.ReplaceDueDate(prev, next)
		action = domain.ActionUpdate
		beforeRec = prev
	}

	r := rec.Recurrence
	var kind sql.NullString
	if r.Type != nil {
		kind = sql.NullString{String: string(*r.Type), Valid: true}
	}
	var weekdays sql.NullInt64
	if r.Weekdays != nil {
		weekdays = sql.NullInt64{Int64: int64(*r.Weekdays), Valid: true}
	}
	_, err = tx.exec(`INSERT INTO due_dates (item_id, due_at, timezone, recurring, recurrence_type, recurrence_interval, recurrence_count, recurrence_ends_at, recurrence_weekdays, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (item_id) DO UPDATE SET due_at = excluded.due_at, timezone = excluded.timezone, recurring = excluded.recurring,
recurrence_type = excluded.recurrence_type, recurrence_interval = excluded.recurrence_interval, recurrence_count = excluded.recurrence_count,
recurrence_ends_at = excluded.recurrence_ends_at, recurrence_weekdays = excluded.recurrence_weekdays, updated_at = excluded.updated_at`,
		rec.ItemID, fmtTime(rec.DueAt), rec.Timezone, rec.Recurring, kind, nullInt(r.Interval), nullInt(r.Count),
		nullTime(r.EndsAt), weekdays, fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert due date: %w", err)
	}
	tx.recordChange(domain.Change{Entity: domain.EntityDueDate, Action: action, ID: rec.ItemID, Before: beforeRec, After: rec})
	return nil
}

func (tx *transaction) DeleteDueDate(itemID uuid.UUID) error {
	before, ok, err := tx.FindDueDate(itemID)
	if err != nil || !ok {
		return err
	}
	if _, err := tx.exec("DELETE FROM due_dates WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("delete due date: %w", err)
	}
	tx.recordChange(domain.Change{Entity: domain.EntityDueDate, Action: domain.ActionDelete, ID: itemID, Before: before.Record()})
	return nil
}

func (tx *transaction) CreateReminder(r *domain.Reminder) error {
	rec := r.Record()
	if err := tx.require("work_items", domain.EntityWorkItem, rec.WorkItemID); err != nil {
		return err
	}
	if _, err := tx.exec(`INSERT INTO reminders (id, version, work_item_id, remind_at, dismissed, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WorkItemID, fmtTime(rec.RemindAt), rec.Dismissed, fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt)); err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	rec.Token = tokenFor(1)
	tx.tokens.Assign(r, rec.Token)
	tx.recordChange(domain.Change{Entity: domain.EntityReminder, Action: domain.ActionCreate, ID: rec.ID, After: rec})
	return nil
}

func (tx *transaction) UpdateReminder(r *domain.Reminder) error {
	before, ok, err := tx.FindReminder(r.ID())
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError(domain.EntityReminder, r.ID())
	}
	rec := r.Record()
	token, err := tx.casUpdate(domain.EntityReminder, "reminders", rec.ID, tx.tokens.Presented(r),
		"remind_at = ?, dismissed = ?, updated_at = ?", fmtTime(rec.RemindAt), rec.Dismissed, fmtTime(rec.UpdatedAt))
	if err != nil {
		return err
	}
	rec.Token = token
	tx.tokens.Assign(r, token)
	tx.recordChange(domain.Change{Entity: domain.EntityReminder, Action: domain.ActionUpdate, ID: rec.ID, Before: before.Record(), After: rec})
	return nil
}

func (tx *transaction) DeleteReminder(id uuid.UUID) error {
	before, ok, err := tx.FindReminder(id)
	if err != nil || !ok {
		return err
	}
	if err := tx.deleteRow(domain.EntityReminder, "reminders", id); err != nil {
		return err
	}
	tx.recordChange(domain.Change{Entity: domain.EntityReminder, Action: domain.ActionDelete, ID: id, Before: before.Record()})
	return nil
}

func viewStatus(f domain.ViewFilter) sql.NullString {
	if f.Status == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*f.Status), Valid: true}
}

func (tx *transaction) CreateView(v *domain.View) error {
	rec := v.Record()
	if _, err := tx.exec(`INSERT INTO views (id, version, name, project_id, status, tag, sort, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, nullUUID(rec.Filter.ProjectID), viewStatus(rec.Filter), rec.Filter.Tag, string(rec.Filter.Sort),
		fmtTime(rec.CreatedAt), fmtTime(rec.UpdatedAt)); err != nil {
		return fmt.Errorf("create view: %w", err)
	}
	rec.Token = tokenFor(1)
	tx.tokens.Assign(v, rec.Token)
	tx.recordChange(domain.Change{Entity: domain.EntityView, Action: domain.ActionCreate, ID: rec.ID, After: rec})
	return nil
}

func (tx *transaction) UpdateView(v *domain.View) error {
	before, ok, err := tx.FindView(v.ID())
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFoundError(domain.EntityView, v.ID())
	}
	rec := v.Record()
	token, err := tx.casUpdate(domain.EntityView, "views", rec.ID, tx.tokens.Presented(v),
		"name = ?, project_id = ?, status = ?, tag = ?, sort = ?, updated_at = ?",
		rec.Name, nullUUID(rec.Filter.ProjectID), viewStatus(rec.Filter), rec.Filter.Tag, string(rec.Filter.Sort), fmtTime(rec.UpdatedAt))
	if err != nil {
		return err
	}
	rec.Token = token
	tx.tokens.Assign(v, token)
	tx.recordChange(domain.Change{Entity: domain.EntityView, Action: domain.ActionUpdate, ID: rec.ID, Before: before.Record(), After: rec})
	return nil
}

func (tx *transaction) DeleteView(id uuid.UUID) error {
	before, ok, err := tx.FindView(id)
	if err != nil || !ok {
		return err
	}
	if err := tx.deleteRow(domain.EntityView, "views", id); err != nil {
		return err
	}
	tx.recordChange(domain.Change{Entity: domain.EntityView, Action: domain.ActionDelete, ID: id, Before: before.Record()})
	return nil
}
