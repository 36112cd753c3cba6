package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskcore/internal/infra/persistence/memory"
	"taskcore/pkg/domain"

	"github.com/google/uuid"
)

// Service exposes transactional operations over a persistent store. Every
// mutating call runs in its own transaction and is traced, timed and logged
// under a snake_case operation name such as "create_project".
type Service struct {
	store   domain.PersistentStore
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		clock:   ClockFunc(nil),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store using the
// given rules engine (the default engine when nil).
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Now returns the service clock reading used to stamp mutations.
func (s *Service) Now() time.Time { return s.clock.Now() }

// run executes fn in one store transaction with tracing, metrics and logging.
func (s *Service) run(ctx context.Context, op string, fn func(domain.Transaction) error) (domain.Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	span.End(err)
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err)
		return res, err
	}
	s.logger.Debug("operation committed", "operation", op, "violations", len(res.Violations))
	return res, nil
}

// view executes a read-only fn against committed state.
func (s *Service) view(ctx context.Context, op string, fn func(domain.TransactionView) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := s.store.View(ctx, fn)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	span.End(err)
	if err != nil {
		s.logger.Error("read failed", "operation", op, "error", err)
	}
	return err
}

func create[T any](ctx context.Context, s *Service, op string, entity T, save func(domain.Transaction, T) error) (T, domain.Result, error) {
	res, err := s.run(ctx, op, func(tx domain.Transaction) error {
		return save(tx, entity)
	})
	if err != nil {
		var zero T
		return zero, res, err
	}
	return entity, res, nil
}

// ErrUnchanged is returned by a mutate function that found nothing to change.
// The update then succeeds without writing, so the token stays valid.
var ErrUnchanged = errors.New("unchanged")

// update loads the aggregate inside the transaction, checks it still carries
// token, applies mutate with the service clock and writes it back. A token
// that no longer matches fails with *domain.ConcurrencyError.
func update[T domain.Versioned](
	ctx context.Context,
	s *Service,
	op string,
	entity domain.EntityType,
	id uuid.UUID,
	token domain.ConcurrencyToken,
	find func(domain.Transaction, uuid.UUID) (T, bool, error),
	save func(domain.Transaction, T) error,
	mutate func(T, time.Time) error,
) (T, domain.Result, error) {
	var updated T
	res, err := s.run(ctx, op, func(tx domain.Transaction) error {
		current, ok, err := find(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewNotFoundError(entity, id)
		}
		if !current.Token().Equal(token) {
			return &domain.ConcurrencyError{Entity: entity, ID: id}
		}
		switch err := mutate(current, s.clock.Now()); {
		case errors.Is(err, ErrUnchanged):
		case err != nil:
			return err
		default:
			if err := save(tx, current); err != nil {
				return err
			}
		}
		updated = current
		return nil
	})
	if err != nil {
		var zero T
		return zero, res, err
	}
	return updated, res, nil
}

func remove(ctx context.Context, s *Service, op string, id uuid.UUID, del func(domain.Transaction, uuid.UUID) error) (domain.Result, error) {
	return s.run(ctx, op, func(tx domain.Transaction) error {
		return del(tx, id)
	})
}

// removeExisting is remove for commands: a missing aggregate is reported as
// a NotFoundError from inside the same transaction.
func removeExisting(ctx context.Context, s *Service, op string, entity domain.EntityType, id uuid.UUID, exists func(domain.Transaction, uuid.UUID) (bool, error), del func(domain.Transaction, uuid.UUID) error) (domain.Result, error) {
	return s.run(ctx, op, func(tx domain.Transaction) error {
		ok, err := exists(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewNotFoundError(entity, id)
		}
		return del(tx, id)
	})
}

func found[T any](find func(domain.Transaction, uuid.UUID) (T, bool, error)) func(domain.Transaction, uuid.UUID) (bool, error) {
	return func(tx domain.Transaction, id uuid.UUID) (bool, error) {
		_, ok, err := find(tx, id)
		return ok, err
	}
}

func get[T any](
	ctx context.Context,
	s *Service,
	op string,
	entity domain.EntityType,
	id uuid.UUID,
	find func(domain.TransactionView, uuid.UUID) (T, bool, error),
) (T, error) {
	var found T
	err := s.view(ctx, op, func(v domain.TransactionView) error {
		item, ok, err := find(v, id)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewNotFoundError(entity, id)
		}
		found = item
		return nil
	})
	return found, err
}

func list[T any](ctx context.Context, s *Service, op string, load func(domain.TransactionView) ([]T, error)) ([]T, error) {
	var out []T
	err := s.view(ctx, op, func(v domain.TransactionView) error {
		var err error
		out, err = load(v)
		return err
	})
	return out, err
}

// checkProjectKey rejects a key already held by another project.
func checkProjectKey(tx domain.TransactionView, p *domain.Project) error {
	existing, ok, err := tx.FindProjectByKey(p.Key())
	if err != nil {
		return err
	}
	if ok && existing.ID() != p.ID() {
		return &domain.ValidationError{
			Entity: domain.EntityProject,
			Field:  "key",
			Reason: fmt.Sprintf("%s is already used by project %s", p.Key(), existing.ID()),
		}
	}
	return nil
}

// CreateProject persists a new project after checking its key is free.
func (s *Service) CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, domain.Result, error) {
	return create(ctx, s, "create_project", p, func(tx domain.Transaction, p *domain.Project) error {
		if err := checkProjectKey(tx, p); err != nil {
			return err
		}
		return tx.CreateProject(p)
	})
}

// UpdateProject mutates a project, including its features. token is the one
// carried by the project the caller read; every Update method takes it the
// same way.
func (s *Service) UpdateProject(ctx context.Context, id uuid.UUID, token domain.ConcurrencyToken, mutate func(*domain.Project, time.Time) error) (*domain.Project, domain.Result, error) {
	return update(ctx, s, "update_project", domain.EntityProject, id, token, domain.Transaction.FindProject,
		func(tx domain.Transaction, p *domain.Project) error {
			if err := checkProjectKey(tx, p); err != nil {
				return err
			}
			return tx.UpdateProject(p)
		}, mutate)
}

// DeleteProject removes a project together with everything it owns.
func (s *Service) DeleteProject(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	return remove(ctx, s, "delete_project", id, domain.Transaction.DeleteProject)
}

// RemoveProject is DeleteProject for a project that must exist.
func (s *Service) RemoveProject(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	return removeExisting(ctx, s, "delete_project", domain.EntityProject, id, found(domain.Transaction.FindProject), domain.Transaction.DeleteProject)
}

// GetProject returns a detached project or a NotFoundError.
func (s *Service) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	return get(ctx, s, "get_project", domain.EntityProject, id, domain.TransactionView.FindProject)
}

// GetProjectByKey looks a project up by its normalised key.
func (s *Service) GetProjectByKey(ctx context.Context, key string) (*domain.Project, error) {
	var found *domain.Project
	err := s.view(ctx, "get_project_by_key", func(v domain.TransactionView) error {
		normalized, err := domain.NormalizeProjectKey(key)
		if err != nil {
			return err
		}
		p, ok, err := v.FindProjectByKey(normalized)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("project key %s: %w", normalized, domain.ErrNotFound)
		}
		found = p
		return nil
	})
	return found, err
}

// ListProjects returns every project ordered by key.
func (s *Service) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	return list(ctx, s, "list_projects", domain.TransactionView.ListProjects)
}

// CreateWorkItem persists a new work item.
func (s *Service) CreateWorkItem(ctx context.Context, w *domain.WorkItem) (*domain.WorkItem, domain.Result, error) {
	return create(ctx, s, "create_work_item", w, domain.Transaction.CreateWorkItem)
}

// UpdateWorkItem mutates a work item.
func (s *Service) UpdateWorkItem(ctx context.Context, id uuid.UUID, token domain.ConcurrencyToken, mutate func(*domain.WorkItem, time.Time) error) (*domain.WorkItem, domain.Result, error) {
	return update(ctx, s, "update_work_item", domain.EntityWorkItem, id, token, domain.Transaction.FindWorkItem, domain.Transaction.UpdateWorkItem, mutate)
}

// DeleteWorkItem removes a work item and its dependent rows.
func (s *Service) DeleteWorkItem(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	return remove(ctx, s, "delete_work_item", id, domain.Transaction.DeleteWorkItem)
}

// RemoveWorkItem is DeleteWorkItem for an item that must exist.
func (s *Service) RemoveWorkItem(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	return removeExisting(ctx, s, "delete_work_item", domain.EntityWorkItem, id, found(domain.Transaction.FindWorkItem), domain.Transaction.DeleteWorkItem)
}

// GetWorkItem returns a detached work item or a NotFoundError.
func (s *Service) GetWorkItem(ctx context.Context, id uuid.UUID) (*domain.WorkItem, error) {
	return get(ctx, s, "get_work_item", domain.EntityWorkItem, id, domain.TransactionView.FindWorkItem)
}

// ListWorkItems returns the work items matching filter.
func (s *Service) ListWorkItems(ctx context.Context, filter domain.WorkItemFilter) ([]*domain.WorkItem, error) {
	return list(ctx, s, "list_work_items", func(v domain.TransactionView) ([]*domain.WorkItem, error) {
		return v.ListWorkItems(filter)
	})
}

// CreateTeamMember persists a new team member.
func (s *Service) CreateTeamMember(ctx context.Context, m *domain.TeamMember) (*domain.TeamMember, domain.Result, error) {
	return create(ctx, s, "create_team_member", m, domain.Transaction.CreateTeamMember)
}

// UpdateTeamMember mutates a team member.
func (s *Service) UpdateTeamMember(ctx context.Context, id uuid.UUID, token domain.ConcurrencyToken, mutate func(*domain.TeamMember, time.Time) error) (*domain.TeamMember, domain.Result, error) {
	return update(ctx, s, "update_team_member", domain.EntityTeamMember, id, token, domain.Transaction.FindTeamMember, domain.Transaction.UpdateTeamMember, mutate)
}

// DeleteTeamMember removes a team member; owned work items keep no owner.
func (s *Service) DeleteTeamMember(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	return remove(ctx, s, "delete_team_member", id, domain.Transaction.DeleteTeamMember)
}

// GetTeamMember returns a detached team member or a NotFoundError.
func (s *Service) GetTeamMember(ctx context.Context, id uuid.UUID) (*domain.TeamMember, error) {
	return get(ctx, s, "get_team_member", domain.EntityTeamMember, id, domain.TransactionView.FindTeamMember)
}

// ListTeamMembers returns the members matching filter.
func (s *Service) ListTeamMembers(ctx context.Context, filter domain.TeamMemberFilter) ([]*domain.TeamMember, error) {
	return list(ctx, s, "list_team_members", func(v domain.TransactionView) ([]*domain.TeamMember, error) {
		return v.ListTeamMembers(filter)
	})
}

// CreateResearchTopic persists a topic with its notes.
func (s *Service) CreateResearchTopic(ctx context.Context, t *domain.ResearchTopic) (*domain.ResearchTopic, domain.Result, error) {
	return create(ctx, s, "create_research_topic", t, domain.Transaction.CreateResearchTopic)
}

// UpdateResearchTopic mutates a topic and its notes.
func (s *Service) UpdateResearchTopic(ctx context.Context, id uuid.UUID, token domain.ConcurrencyToken, mutate func(*domain.ResearchTopic, time.Time) error) (*domain.ResearchTopic, domain.Result, error) {
	return update(ctx, s, "update_research_topic", domain.EntityResearchTopic, id, token, domain.Transaction.FindResearchTopic, domain.Transaction.UpdateResearchTopic, mutate)
}

// DeleteResearchTopic removes a topic and its notes.
func (s *Service) DeleteResearchTopic(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	return remove(ctx, s, "delete_research_topic", id, domain.Transaction.DeleteResearchTopic)
}

// GetResearchTopic returns a detached topic or a NotFoundError.
func (s *Service) GetResearchTopic(ctx context.Context, id uuid.UUID) (*domain.ResearchTopic, error) {
	return get(ctx, s, "get_research_topic", domain.EntityResearchTopic, id, domain.TransactionView.FindResearchTopic)
}

// ListResearchTopics returns every topic.
func (s *Service) ListResearchTopics(ctx context.Context) ([]*domain.ResearchTopic, error) {
	return list(ctx, s, "list_research_topics", domain.TransactionView.ListResearchTopics)
}

// CreateTimeEntry persists a time entry.
func (s *Service) CreateTimeEntry(ctx context.Context, e *domain.TimeEntry) (*domain.TimeEntry, domain.Result, error) {
	return create(ctx, s, "create_time_entry", e, domain.Transaction.CreateTimeEntry)
}

// UpdateTimeEntry mutates a time entry.
func (s *Service) UpdateTimeEntry(ctx context.Context, id uuid.UUID, token domain.ConcurrencyToken, mutate func(*domain.TimeEntry, time.Time) error) (*domain.TimeEntry, domain.Result, error) {
	return update(ctx, s, "update_time_entry", domain.EntityTimeEntry, id, token, domain.Transaction.FindTimeEntry, domain.Transaction.UpdateTimeEntry, mutate)
}

// DeleteTimeEntry removes a time entry.
func (s *Service) DeleteTimeEntry(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	return remove(ctx, s, "delete_time_entry", id, domain.Transaction.DeleteTimeEntry)
}

// GetTimeEntry returns a detached time entry or a NotFoundError.
func (s *Service) GetTimeEntry(ctx context.Context, id uuid.UUID) (*domain.TimeEntry, error) {
	return get(ctx, s, "get_time_entry", domain.EntityTimeEntry, id, domain.TransactionView.FindTimeEntry)
}

// ListTimeEntries returns the entries matching filter.
func (s *Service) ListTimeEntries(ctx context.Context, filter domain.TimeEntryFilter) ([]*domain.TimeEntry, error) {
	return list(ctx, s, "list_time_entries", func(v domain.TransactionView) ([]*domain.TimeEntry, error) {
		return v.ListTimeEntries(filter)
	})
}

// CreateSection persists a section.
func (s *Service) CreateSection(ctx context.Context, sec *domain.Section) (*domain.Section, domain.Result, error) {
	return create(ctx, s, "create_section", sec, domain.Transaction.CreateSection)
}

// UpdateSection mutates a section.
func (s *Service) UpdateSection(ctx context.Context, id uuid.UUID, token domain.ConcurrencyToken, mutate func(*domain.Section, time.Time) error) (*domain.Section, domain.Result, error) {
	return update(ctx, s, "update_section", domain.EntitySection, id, token, domain.Transaction.FindSection, domain.Transaction.UpdateSection, mutate)
}

// DeleteSection removes a section.
func (s *Service) DeleteSection(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	return remove(ctx, s, "delete_section", id, domain.Transaction.DeleteSection)
}

// GetSection returns a detached section or a NotFoundError.
func (s *Service) GetSection(ctx context.Context, id uuid.UUID) (*domain.Section, error) {
	return get(ctx, s, "get_section", domain.EntitySection, id, domain.TransactionView.FindSection)
}

// ListSections returns a project's sections by sort order.
func (s *Service) ListSections(ctx context.Context, projectID uuid.UUID) ([]*domain.Section, error) {
	return list(ctx, s, "list_sections", func(v domain.TransactionView) ([]*domain.Section, error) {
		return v.ListSections(projectID)
	})
}

// ReorderSections assigns sort orders from ordered to the project's sections
// and returns the sections whose order changed. A missing project is a
// NotFoundError.
func (s *Service) ReorderSections(ctx context.Context, projectID uuid.UUID, ordered []uuid.UUID) ([]*domain.Section, domain.Result, error) {
	var changed []*domain.Section
	res, err := s.run(ctx, "reorder_sections", func(tx domain.Transaction) error {
		_, ok, err := tx.FindProject(projectID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewNotFoundError(domain.EntityProject, projectID)
		}
		changed, err = tx.ReorderSections(projectID, ordered, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, res, err
	}
	return changed, res, nil
}

// CreateLabel persists a label.
func (s *Service) CreateLabel(ctx context.Context, l *domain.Label) (*domain.Label, domain.Result, error) {
	return create(ctx, s, "create_label", l, domain.Transaction.CreateLabel)
}

// UpdateLabel mutates a label.
func (s *Service) UpdateLabel(ctx context.Context, id uuid.UUID, token domain.ConcurrencyToken, mutate func(*domain.Label, time.Time) error) (*domain.Label, domain.Result, error) {
	return update(ctx, s, "update_label", domain.EntityLabel, id, token, domain.Transaction.FindLabel, domain.Transaction.UpdateLabel, mutate)
}

// DeleteLabel removes a label and its assignments.
func (s *Service) DeleteLabel(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	return remove(ctx, s, "delete_label", id, domain.Transaction.DeleteLabel)
}

// GetLabel returns a detached label or a NotFoundError.
func (s *Service) GetLabel(ctx context.Context, id uuid.UUID) (*domain.Label, error) {
	return get(ctx, s, "get_label", domain.EntityLabel, id, domain.TransactionView.FindLabel)
}

// ListLabels returns every label.
func (s *Service) ListLabels(ctx context.Context) ([]*domain.Label, error) {
	return list(ctx, s, "list_labels", domain.TransactionView.ListLabels)
}

// AssignLabel links a label to a work item. Assigning twice is a no-op.
func (s *Service) AssignLabel(ctx context.Context, itemID, labelID uuid.UUID) (domain.Result, error) {
	link, err := domain.NewItemLabel(itemID, labelID)
	if err != nil {
		return domain.Result{}, err
	}
	return s.run(ctx, "assign_label", func(tx domain.Transaction) error {
		return tx.AssignLabel(link)
	})
}

// UnassignLabel removes a label from a work item.
func (s *Service) UnassignLabel(ctx context.Context, itemID, labelID uuid.UUID) (domain.Result, error) {
	link, err := domain.NewItemLabel(itemID, labelID)
	if err != nil {
		return domain.Result{}, err
	}
	return s.run(ctx, "unassign_label", func(tx domain.Transaction) error {
		return tx.UnassignLabel(link)
	})
}

// ListItemLabels returns the label links of a work item.
func (s *Service) ListItemLabels(ctx context.Context, itemID uuid.UUID) ([]domain.ItemLabel, error) {
	return list(ctx, s, "list_item_labels", func(v domain.TransactionView) ([]domain.ItemLabel, error) {
		return v.ListItemLabels(itemID)
	})
}

// UpsertDueDate inserts or fully replaces a work item's due date and returns
// the stored row, whose CreatedAt survives a replace.
func (s *Service) UpsertDueDate(ctx context.Context, d *domain.DueDate) (*domain.DueDate, domain.Result, error) {
	var stored *domain.DueDate
	res, err := s.run(ctx, "upsert_due_date", func(tx domain.Transaction) error {
		if err := tx.UpsertDueDate(d); err != nil {
			return err
		}
		var err error
		stored, _, err = tx.FindDueDate(d.ItemID())
		return err
	})
	if err != nil {
		return nil, res, err
	}
	return stored, res, nil
}

// DeleteDueDate clears a work item's due date.
func (s *Service) DeleteDueDate(ctx context.Context, itemID uuid.UUID) (domain.Result, error) {
	return remove(ctx, s, "delete_due_date", itemID, domain.Transaction.DeleteDueDate)
}

// GetDueDate returns a work item's due date or a NotFoundError.
func (s *Service) GetDueDate(ctx context.Context, itemID uuid.UUID) (*domain.DueDate, error) {
	return get(ctx, s, "get_due_date", domain.EntityDueDate, itemID, domain.TransactionView.FindDueDate)
}

// CreateReminder persists a reminder.
func (s *Service) CreateReminder(ctx context.Context, r *domain.Reminder) (*domain.Reminder, domain.Result, error) {
	return create(ctx, s, "create_reminder", r, domain.Transaction.CreateReminder)
}

// UpdateReminder mutates a reminder.
func (s *Service) UpdateReminder(ctx context.Context, id uuid.UUID, token domain.ConcurrencyToken, mutate func(*domain.Reminder, time.Time) error) (*domain.Reminder, domain.Result, error) {
	return update(ctx, s, "update_reminder", domain.EntityReminder, id, token, domain.Transaction.FindReminder, domain.Transaction.UpdateReminder, mutate)
}

// DeleteReminder removes a reminder.
func (s *Service) DeleteReminder(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	return remove(ctx, s, "delete_reminder", id, domain.Transaction.DeleteReminder)
}

// GetReminder returns a detached reminder or a NotFoundError.
func (s *Service) GetReminder(ctx context.Context, id uuid.UUID) (*domain.Reminder, error) {
	return get(ctx, s, "get_reminder", domain.EntityReminder, id, domain.TransactionView.FindReminder)
}

// ListReminders returns the reminders matching filter.
func (s *Service) ListReminders(ctx context.Context, filter domain.ReminderFilter) ([]*domain.Reminder, error) {
	return list(ctx, s, "list_reminders", func(v domain.TransactionView) ([]*domain.Reminder, error) {
		return v.ListReminders(filter)
	})
}

// CreateView persists a saved view.
func (s *Service) CreateView(ctx context.Context, v *domain.View) (*domain.View, domain.Result, error) {
	return create(ctx, s, "create_view", v, domain.Transaction.CreateView)
}

// UpdateView mutates a saved view.
func (s *Service) UpdateView(ctx context.Context, id uuid.UUID, token domain.ConcurrencyToken, mutate func(*domain.View, time.Time) error) (*domain.View, domain.Result, error) {
	return update(ctx, s, "update_view", domain.EntityView, id, token, domain.Transaction.FindView, domain.Transaction.UpdateView, mutate)
}

// DeleteView removes a saved view.
func (s *Service) DeleteView(ctx context.Context, id uuid.UUID) (domain.Result, error) {
	return remove(ctx, s, "delete_view", id, domain.Transaction.DeleteView)
}

// GetView returns a detached view or a NotFoundError.
func (s *Service) GetView(ctx context.Context, id uuid.UUID) (*domain.View, error) {
	return get(ctx, s, "get_view", domain.EntityView, id, domain.TransactionView.FindView)
}

// ListViews returns every saved view.
func (s *Service) ListViews(ctx context.Context) ([]*domain.View, error) {
	return list(ctx, s, "list_views", domain.TransactionView.ListViews)
}

// ListViewItems resolves a saved view against the current work items in
// the view's sort order.
func (s *Service) ListViewItems(ctx context.Context, id uuid.UUID) ([]*domain.WorkItem, error) {
	var items []*domain.WorkItem
	err := s.view(ctx, "list_view_items", func(v domain.TransactionView) error {
		saved, ok, err := v.FindView(id)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewNotFoundError(domain.EntityView, id)
		}
		all, err := v.ListWorkItems(domain.WorkItemFilter{})
		if err != nil {
			return err
		}
		items = saved.Filter().Apply(all)
		return nil
	})
	return items, err
}
