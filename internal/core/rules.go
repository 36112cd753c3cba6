package core

import (
	"context"
	"fmt"

	"taskcore/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewProjectKeyUniqueRule())
	engine.Register(NewWorkItemFeatureProjectRule())
	return engine
}

// NewProjectKeyUniqueRule blocks commits that leave two projects sharing a key.
func NewProjectKeyUniqueRule() domain.Rule {
	return projectKeyUniqueRule{}
}

type projectKeyUniqueRule struct{}

func (projectKeyUniqueRule) Name() string { return "project_key_unique" }

func (r projectKeyUniqueRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	touched := domain.ChangesFor(changes, domain.EntityProject)
	if len(touched) == 0 {
		return res, nil
	}
	projects, err := view.ListProjects()
	if err != nil {
		return res, err
	}
	owners := make(map[string][]*domain.Project)
	for _, p := range projects {
		owners[p.Key()] = append(owners[p.Key()], p)
	}
	for _, change := range touched {
		after, ok := change.After.(domain.ProjectRecord)
		if !ok {
			continue
		}
		if holders := owners[after.Key]; len(holders) > 1 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("key %s is held by %d projects", after.Key, len(holders)),
				Entity:   domain.EntityProject,
				EntityID: after.ID.String(),
			})
		}
	}
	return res, nil
}

// NewWorkItemFeatureProjectRule warns when a work item points at a feature
// that belongs to a different project (or no longer exists).
func NewWorkItemFeatureProjectRule() domain.Rule {
	return workItemFeatureProjectRule{}
}

type workItemFeatureProjectRule struct{}

func (workItemFeatureProjectRule) Name() string { return "work_item_feature_project" }

func (r workItemFeatureProjectRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range domain.ChangesFor(changes, domain.EntityWorkItem) {
		after, ok := change.After.(domain.WorkItemRecord)
		if !ok || after.FeatureID == nil {
			continue
		}
		project, found, err := view.FindProject(after.ProjectID)
		if err != nil {
			return domain.Result{}, err
		}
		if found {
			if _, owned := project.Feature(*after.FeatureID); owned {
				continue
			}
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("feature %s is not part of project %s", after.FeatureID, after.ProjectID),
			Entity:   domain.EntityWorkItem,
			EntityID: after.ID.String(),
		})
	}
	return res, nil
}
