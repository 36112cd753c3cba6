package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "nope"}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	err := RuleViolationError{Result: result}
	if !strings.Contains(err.Error(), "block: nope") {
		t.Fatalf("expected blocking message in error, got %q", err.Error())
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"warn"})
	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected violation")
	}
}

func TestNilRulesEngineEvaluatesNothing(t *testing.T) {
	var engine *RulesEngine
	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err != nil || len(res.Violations) != 0 {
		t.Fatalf("expected empty result, got %+v %v", res, err)
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, TransactionView, []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

// emptyView satisfies TransactionView for rules that never read.
type emptyView struct{ TransactionView }

func TestRulesEngineEvaluateError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(errorRule{})
	_, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err == nil {
		t.Fatalf("expected evaluation error")
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped rule error, got %v", err)
	}
}

var errBoom = fmt.Errorf("boom")

type errorRule struct{}

func (errorRule) Name() string { return "error" }

func (errorRule) Evaluate(context.Context, TransactionView, []Change) (Result, error) {
	return Result{}, errBoom
}

func TestChangesFor(t *testing.T) {
	changes := []Change{
		{Entity: EntityProject, Action: ActionCreate},
		{Entity: EntityWorkItem, Action: ActionUpdate},
		{Entity: EntityProject, Action: ActionDelete},
	}
	got := ChangesFor(changes, EntityProject)
	if len(got) != 2 || got[1].Action != ActionDelete {
		t.Fatalf("unexpected filtered changes: %+v", got)
	}
}
