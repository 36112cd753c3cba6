package handlers

import (
	"context"
	"fmt"
	"time"

	"taskcore/internal/core"
	"taskcore/pkg/domain"

	"github.com/google/uuid"
)

// New returns a mediator with every task handler registered over svc.
func New(svc *core.Service, logger core.Logger) (*Mediator, error) {
	var middlewares []Middleware
	if logger != nil {
		middlewares = append(middlewares, Logging(logger))
	}
	m := NewMediator(middlewares...)
	if err := Register(m, svc); err != nil {
		return nil, err
	}
	return m, nil
}

// Register binds the task commands and queries to handlers backed by svc.
func Register(m *Mediator, svc *core.Service) error {
	h := taskHandlers{svc: svc}
	commands := []struct {
		cmd     Command
		handler Handler
	}{
		{CreateProject{}, handle(h.createProject)},
		{RenameProject{}, handle(h.renameProject)},
		{AddFeature{}, handle(h.addFeature)},
		{ArchiveFeature{}, handle(h.archiveFeature)},
		{DeleteProject{}, handle(h.deleteProject)},
		{CreateWorkItem{}, handle(h.createWorkItem)},
		{ChangeWorkItemStatus{}, handle(h.changeWorkItemStatus)},
		{UpdateWorkItemDetails{}, handle(h.updateWorkItemDetails)},
		{TagWorkItem{}, handle(h.tagWorkItem)},
		{DeleteWorkItem{}, handle(h.deleteWorkItem)},
		{RegisterTeamMember{}, handle(h.registerTeamMember)},
		{DeactivateTeamMember{}, handle(h.deactivateTeamMember)},
		{LogTime{}, handle(h.logTime)},
		{CreateSection{}, handle(h.createSection)},
		{ReorderSections{}, handle(h.reorderSections)},
		{SetDueDate{}, handle(h.setDueDate)},
		{AssignLabel{}, handle(h.assignLabel)},
		{UnassignLabel{}, handle(h.unassignLabel)},
		{CreateLabel{}, handle(h.createLabel)},
	}
	for _, c := range commands {
		if err := m.RegisterCommand(c.cmd, c.handler); err != nil {
			return err
		}
	}
	queries := []struct {
		query   Query
		handler Handler
	}{
		{GetProject{}, handle(h.getProject)},
		{ListProjects{}, handle(h.listProjects)},
		{GetWorkItem{}, handle(h.getWorkItem)},
		{ListWorkItems{}, handle(h.listWorkItems)},
		{ListSections{}, handle(h.listSections)},
		{GetDueDate{}, handle(h.getDueDate)},
	}
	for _, q := range queries {
		if err := m.RegisterQuery(q.query, q.handler); err != nil {
			return err
		}
	}
	return nil
}

// handle adapts a typed handler function to Handler.
func handle[R Request](fn func(context.Context, R) (any, error)) Handler {
	return HandlerFunc(func(ctx context.Context, req Request) (any, error) {
		typed, ok := req.(R)
		if !ok {
			return nil, fmt.Errorf("unexpected request type %T", req)
		}
		return fn(ctx, typed)
	})
}

type taskHandlers struct {
	svc *core.Service
}

func (h taskHandlers) createProject(ctx context.Context, c CreateProject) (any, error) {
	p, err := domain.NewProject(uuid.Nil, c.Name, c.Key, c.Color, h.svc.Now())
	if err != nil {
		return nil, err
	}
	created, _, err := h.svc.CreateProject(ctx, p)
	return created, err
}

func (h taskHandlers) renameProject(ctx context.Context, c RenameProject) (any, error) {
	p, _, err := h.svc.UpdateProject(ctx, c.ProjectID, c.Token, func(p *domain.Project, at time.Time) error {
		return p.Rename(c.Name, at)
	})
	return p, err
}

func (h taskHandlers) addFeature(ctx context.Context, c AddFeature) (any, error) {
	var added domain.Feature
	_, _, err := h.svc.UpdateProject(ctx, c.ProjectID, c.Token, func(p *domain.Project, at time.Time) error {
		f, err := p.AddFeature(c.Name, at)
		added = f
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (h taskHandlers) archiveFeature(ctx context.Context, c ArchiveFeature) (any, error) {
	p, _, err := h.svc.UpdateProject(ctx, c.ProjectID, c.Token, func(p *domain.Project, at time.Time) error {
		changed, err := p.ArchiveFeature(c.FeatureID, at)
		if err == nil && !changed {
			return core.ErrUnchanged
		}
		return err
	})
	return p, err
}

func (h taskHandlers) deleteProject(ctx context.Context, c DeleteProject) (any, error) {
	_, err := h.svc.RemoveProject(ctx, c.ProjectID)
	return nil, err
}

func (h taskHandlers) createWorkItem(ctx context.Context, c CreateWorkItem) (any, error) {
	at := h.svc.Now()
	w, err := domain.NewWorkItem(uuid.Nil, c.ProjectID, c.Title, at)
	if err != nil {
		return nil, err
	}
	w.SetDescription(c.Description, at)
	if c.Priority != "" {
		if err := w.ChangePriority(c.Priority, at); err != nil {
			return nil, err
		}
	}
	w.AssignFeature(c.FeatureID, at)
	w.AssignOwner(c.OwnerID, at)
	if len(c.Tags) > 0 {
		if err := w.ReplaceTags(c.Tags, at); err != nil {
			return nil, err
		}
	}
	if err := w.SetEstimate(c.Estimate, at); err != nil {
		return nil, err
	}
	w.SetDueAt(c.DueAt, at)
	created, _, err := h.svc.CreateWorkItem(ctx, w)
	return created, err
}

func (h taskHandlers) changeWorkItemStatus(ctx context.Context, c ChangeWorkItemStatus) (any, error) {
	w, _, err := h.svc.UpdateWorkItem(ctx, c.ItemID, c.Token, func(w *domain.WorkItem, at time.Time) error {
		return w.ChangeStatus(c.Status, at)
	})
	return w, err
}

func (h taskHandlers) updateWorkItemDetails(ctx context.Context, c UpdateWorkItemDetails) (any, error) {
	w, _, err := h.svc.UpdateWorkItem(ctx, c.ItemID, c.Token, func(w *domain.WorkItem, at time.Time) error {
		if c.Title != nil {
			if err := w.Retitle(*c.Title, at); err != nil {
				return err
			}
		}
		if c.Description != nil {
			w.SetDescription(*c.Description, at)
		}
		if c.Notes != nil {
			w.SetNotes(*c.Notes, at)
		}
		if c.Priority != nil {
			if err := w.ChangePriority(*c.Priority, at); err != nil {
				return err
			}
		}
		if c.Estimate != nil {
			if err := w.SetEstimate(c.Estimate, at); err != nil {
				return err
			}
		}
		if c.OwnerID != nil {
			w.AssignOwner(c.OwnerID, at)
		}
		if c.FeatureID != nil {
			w.AssignFeature(c.FeatureID, at)
		}
		return nil
	})
	return w, err
}

func (h taskHandlers) tagWorkItem(ctx context.Context, c TagWorkItem) (any, error) {
	w, _, err := h.svc.UpdateWorkItem(ctx, c.ItemID, c.Token, func(w *domain.WorkItem, at time.Time) error {
		for _, tag := range c.Add {
			if _, err := w.AddTag(tag, at); err != nil {
				return err
			}
		}
		for _, tag := range c.Remove {
			if _, err := w.RemoveTag(tag, at); err != nil {
				return err
			}
		}
		return nil
	})
	return w, err
}

func (h taskHandlers) deleteWorkItem(ctx context.Context, c DeleteWorkItem) (any, error) {
	_, err := h.svc.RemoveWorkItem(ctx, c.ItemID)
	return nil, err
}

func (h taskHandlers) registerTeamMember(ctx context.Context, c RegisterTeamMember) (any, error) {
	m, err := domain.NewTeamMember(uuid.Nil, c.DisplayName, c.Role, c.Email, h.svc.Now())
	if err != nil {
		return nil, err
	}
	created, _, err := h.svc.CreateTeamMember(ctx, m)
	return created, err
}

func (h taskHandlers) deactivateTeamMember(ctx context.Context, c DeactivateTeamMember) (any, error) {
	m, _, err := h.svc.UpdateTeamMember(ctx, c.MemberID, c.Token, func(m *domain.TeamMember, at time.Time) error {
		if !m.Deactivate(at) {
			return core.ErrUnchanged
		}
		return nil
	})
	return m, err
}

func (h taskHandlers) logTime(ctx context.Context, c LogTime) (any, error) {
	if _, err := h.svc.GetWorkItem(ctx, c.ItemID); err != nil {
		return nil, err
	}
	source := c.Source
	if source == "" {
		source = domain.SourceManual
	}
	e, err := domain.NewTimeEntry(uuid.Nil, c.ItemID, c.Start, c.End, source, c.Notes, h.svc.Now())
	if err != nil {
		return nil, err
	}
	created, _, err := h.svc.CreateTimeEntry(ctx, e)
	return created, err
}

func (h taskHandlers) createSection(ctx context.Context, c CreateSection) (any, error) {
	s, err := domain.NewSection(uuid.Nil, c.ProjectID, c.Name, c.SortOrder, h.svc.Now())
	if err != nil {
		return nil, err
	}
	created, _, err := h.svc.CreateSection(ctx, s)
	return created, err
}

func (h taskHandlers) reorderSections(ctx context.Context, c ReorderSections) (any, error) {
	changed, _, err := h.svc.ReorderSections(ctx, c.ProjectID, c.Ordered)
	return changed, err
}

func (h taskHandlers) setDueDate(ctx context.Context, c SetDueDate) (any, error) {
	d, err := domain.NewDueDate(c.ItemID, c.DueAt, c.Timezone, c.Recurring, c.Recurrence, h.svc.Now())
	if err != nil {
		return nil, err
	}
	stored, _, err := h.svc.UpsertDueDate(ctx, d)
	return stored, err
}

func (h taskHandlers) assignLabel(ctx context.Context, c AssignLabel) (any, error) {
	_, err := h.svc.AssignLabel(ctx, c.ItemID, c.LabelID)
	return nil, err
}

func (h taskHandlers) unassignLabel(ctx context.Context, c UnassignLabel) (any, error) {
	_, err := h.svc.UnassignLabel(ctx, c.ItemID, c.LabelID)
	return nil, err
}

func (h taskHandlers) createLabel(ctx context.Context, c CreateLabel) (any, error) {
	l, err := domain.NewLabel(uuid.Nil, c.Name, c.Color, h.svc.Now())
	if err != nil {
		return nil, err
	}
	created, _, err := h.svc.CreateLabel(ctx, l)
	return created, err
}

func (h taskHandlers) getProject(ctx context.Context, q GetProject) (any, error) {
	if q.ProjectID != uuid.Nil {
		return h.svc.GetProject(ctx, q.ProjectID)
	}
	return h.svc.GetProjectByKey(ctx, q.Key)
}

func (h taskHandlers) listProjects(ctx context.Context, _ ListProjects) (any, error) {
	return h.svc.ListProjects(ctx)
}

func (h taskHandlers) getWorkItem(ctx context.Context, q GetWorkItem) (any, error) {
	return h.svc.GetWorkItem(ctx, q.ItemID)
}

func (h taskHandlers) listWorkItems(ctx context.Context, q ListWorkItems) (any, error) {
	return h.svc.ListWorkItems(ctx, q.Filter)
}

func (h taskHandlers) listSections(ctx context.Context, q ListSections) (any, error) {
	if _, err := h.svc.GetProject(ctx, q.ProjectID); err != nil {
		return nil, err
	}
	return h.svc.ListSections(ctx, q.ProjectID)
}

func (h taskHandlers) getDueDate(ctx context.Context, q GetDueDate) (any, error) {
	return h.svc.GetDueDate(ctx, q.ItemID)
}
