package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newTestItem(t *testing.T, at time.Time) *WorkItem {
	t.Helper()
	w, err := NewWorkItem(uuid.Nil, uuid.New(), "Write docs", at)
	if err != nil {
		t.Fatalf("new work item: %v", err)
	}
	return w
}

func TestWorkItemDefaults(t *testing.T) {
	w := newTestItem(t, time.Now())
	if w.Status() != StatusBacklog || w.Priority() != PriorityMedium {
		t.Fatalf("unexpected defaults: %s %s", w.Status(), w.Priority())
	}
	if _, err := NewWorkItem(uuid.Nil, uuid.Nil, "x", time.Now()); !IsValidation(err) {
		t.Fatalf("expected project id required")
	}
	if _, err := NewWorkItem(uuid.Nil, uuid.New(), strings.Repeat("t", 257), time.Now()); !IsValidation(err) {
		t.Fatalf("expected title bound")
	}
}

func TestWorkItemDoneRoundTrip(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	w := newTestItem(t, start)

	doneAt := time.Date(2024, 5, 2, 12, 0, 0, 0, testZone)
	if err := w.ChangeStatus(StatusDone, doneAt); err != nil {
		t.Fatalf("change status: %v", err)
	}
	if w.CompletedAt() == nil || !w.CompletedAt().Equal(doneAt) || w.CompletedAt().Location() != time.UTC {
		t.Fatalf("expected completed_at stamped in UTC, got %v", w.CompletedAt())
	}

	if err := w.ChangeStatus(StatusInProgress, doneAt.Add(time.Hour)); err != nil {
		t.Fatalf("change status: %v", err)
	}
	if w.CompletedAt() != nil {
		t.Fatalf("expected completed_at cleared on leaving Done")
	}
	if !w.UpdatedAt().Equal(doneAt.Add(time.Hour)) {
		t.Fatalf("expected status change to touch")
	}
	if err := w.ChangeStatus("Nope", doneAt); !IsValidation(err) {
		t.Fatalf("expected unknown status rejected")
	}
}

func TestWorkItemAnyTransitionAllowed(t *testing.T) {
	w := newTestItem(t, time.Now())
	for _, s := range []WorkItemStatus{StatusArchived, StatusBacklog, StatusDone, StatusBlocked, StatusReady, StatusInReview} {
		if err := w.ChangeStatus(s, time.Now()); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}
}

func TestWorkItemTagsCaseInsensitive(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	w := newTestItem(t, start)

	changed, err := w.AddTag("Urgent", start.Add(time.Minute))
	if err != nil || !changed {
		t.Fatalf("expected tag added, got %v %v", changed, err)
	}
	changed, err = w.AddTag("urgent", start.Add(time.Hour))
	if err != nil || changed {
		t.Fatalf("expected duplicate tag ignored, got %v %v", changed, err)
	}
	if len(w.Tags()) != 1 || !w.UpdatedAt().Equal(start.Add(time.Minute)) {
		t.Fatalf("expected one tag and no touch on duplicate")
	}
	if changed, _ := w.RemoveTag("absent", start.Add(time.Hour)); changed {
		t.Fatalf("expected removing absent tag to report false")
	}
	changed, err = w.RemoveTag("URGENT", start.Add(2*time.Hour))
	if err != nil || !changed || len(w.Tags()) != 0 {
		t.Fatalf("expected tag removed case-insensitively")
	}
}

func TestWorkItemReplaceTagsAllOrNothing(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	w := newTestItem(t, start)
	if err := w.ReplaceTags([]string{"a", "B", "b", " A "}, start); err != nil {
		t.Fatalf("replace tags: %v", err)
	}
	if got := w.Tags(); len(got) != 2 || got[0] != "a" || got[1] != "B" {
		t.Fatalf("expected duplicates collapsed, got %v", got)
	}
	before := w.UpdatedAt()
	err := w.ReplaceTags([]string{"c", strings.Repeat("x", 33)}, start.Add(time.Hour))
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := w.Tags(); len(got) != 2 || got[0] != "a" {
		t.Fatalf("expected tags untouched after rejection, got %v", got)
	}
	if !w.UpdatedAt().Equal(before) {
		t.Fatalf("expected no touch after rejection")
	}
	if _, err := w.AddTag("  ", start); !IsValidation(err) {
		t.Fatalf("expected blank tag rejected")
	}
}

func TestWorkItemReferencesAndEstimate(t *testing.T) {
	w := newTestItem(t, time.Now())
	nilID := uuid.Nil
	w.AssignOwner(&nilID, time.Now())
	if w.OwnerID() != nil {
		t.Fatalf("expected nil sentinel to clear owner")
	}
	owner := uuid.New()
	w.AssignOwner(&owner, time.Now())
	if w.OwnerID() == nil || *w.OwnerID() != owner {
		t.Fatalf("expected owner assigned")
	}

	neg := decimal.NewFromInt(-1)
	if err := w.SetEstimate(&neg, time.Now()); !IsValidation(err) {
		t.Fatalf("expected negative estimate rejected")
	}
	est := decimal.RequireFromString("2.5")
	if err := w.SetEstimate(&est, time.Now()); err != nil {
		t.Fatalf("set estimate: %v", err)
	}
	if !w.Estimate().Equal(est) {
		t.Fatalf("expected estimate 2.5, got %s", w.Estimate())
	}
	if err := w.SetEstimate(nil, time.Now()); err != nil || w.Estimate() != nil {
		t.Fatalf("expected estimate cleared")
	}
}

func TestWorkItemRecordRestore(t *testing.T) {
	w := newTestItem(t, time.Now())
	_ = w.ReplaceTags([]string{"x"}, time.Now())
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, testZone)
	w.SetDueAt(&due, time.Now())
	rec := w.Record()
	restored := RestoreWorkItem(rec)
	if restored.Title() != w.Title() || !restored.DueAt().Equal(due) || !restored.HasTag("X") {
		t.Fatalf("unexpected restored item: %+v", restored.Record())
	}
	rec.Tags[0] = "mutated"
	if !restored.HasTag("x") {
		t.Fatalf("expected restore to copy tags")
	}
}
