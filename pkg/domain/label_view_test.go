package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLabelAndItemLabel(t *testing.T) {
	color := "#00ff00"
	l, err := NewLabel(uuid.Nil, "bug", &color, time.Now())
	if err != nil || *l.Color() != "#00FF00" {
		t.Fatalf("new label: %v", err)
	}
	if _, err := NewItemLabel(uuid.New(), uuid.Nil); !IsValidation(err) {
		t.Fatalf("expected label id required")
	}
	link, err := NewItemLabel(uuid.New(), l.ID())
	if err != nil || link.LabelID != l.ID() {
		t.Fatalf("new item label: %v", err)
	}
}

func TestReminderDismissIdempotent(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r, err := NewReminder(uuid.Nil, uuid.New(), start.Add(time.Hour), start)
	if err != nil {
		t.Fatalf("new reminder: %v", err)
	}
	if !r.Dismiss(start.Add(time.Minute)) || r.Dismiss(start.Add(time.Hour)) {
		t.Fatalf("expected dismiss to be idempotent")
	}
	if !r.UpdatedAt().Equal(start.Add(time.Minute)) {
		t.Fatalf("expected repeated dismiss not to touch")
	}
	r.Snooze(start.Add(2*time.Hour), start.Add(time.Hour))
	if r.Dismissed() {
		t.Fatalf("expected snooze to clear dismissed")
	}
}

func TestViewFilter(t *testing.T) {
	project := uuid.New()
	status := StatusReady
	v, err := NewView(uuid.Nil, "Ready", ViewFilter{ProjectID: &project, Status: &status, Tag: "ops"}, time.Now())
	if err != nil {
		t.Fatalf("new view: %v", err)
	}
	if v.Filter().Sort != SortCreated {
		t.Fatalf("expected default sort")
	}
	item, _ := NewWorkItem(uuid.Nil, project, "deploy", time.Now())
	if v.Filter().Matches(item) {
		t.Fatalf("expected backlog item without tag not to match")
	}
	_ = item.ChangeStatus(StatusReady, time.Now())
	_, _ = item.AddTag("OPS", time.Now())
	if !v.Filter().Matches(item) {
		t.Fatalf("expected item to match")
	}
	if _, err := NewView(uuid.Nil, "x", ViewFilter{Sort: "random"}, time.Now()); !IsValidation(err) {
		t.Fatalf("expected unknown sort rejected")
	}
}
