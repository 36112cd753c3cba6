package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WorkItemFilter narrows ListWorkItems. Zero fields match everything.
type WorkItemFilter struct {
	ProjectID *uuid.UUID
	FeatureID *uuid.UUID
	OwnerID   *uuid.UUID
	Status    *WorkItemStatus
	Tag       string
}

// Matches reports whether item satisfies every set field.
func (f WorkItemFilter) Matches(item *WorkItem) bool {
	if f.ProjectID != nil && item.ProjectID() != *f.ProjectID {
		return false
	}
	if f.FeatureID != nil && !sameRef(item.featureID, f.FeatureID) {
		return false
	}
	if f.OwnerID != nil && !sameRef(item.ownerID, f.OwnerID) {
		return false
	}
	if f.Status != nil && item.Status() != *f.Status {
		return false
	}
	if f.Tag != "" && !item.HasTag(f.Tag) {
		return false
	}
	return true
}

// TeamMemberFilter narrows ListTeamMembers.
type TeamMemberFilter struct {
	ActiveOnly bool
}

// TimeEntryFilter narrows ListTimeEntries.
type TimeEntryFilter struct {
	WorkItemID *uuid.UUID
}

// ReminderFilter narrows ListReminders.
type ReminderFilter struct {
	WorkItemID       *uuid.UUID
	IncludeDismissed bool
}

// TransactionView provides read-only access to store state. Every returned
// entity is a detached copy; mutating it never changes stored state.
type TransactionView interface {
	FindProject(id uuid.UUID) (*Project, bool, error)
	FindProjectByKey(key string) (*Project, bool, error)
	ListProjects() ([]*Project, error)
	FindWorkItem(id uuid.UUID) (*WorkItem, bool, error)
	ListWorkItems(filter WorkItemFilter) ([]*WorkItem, error)
	FindTeamMember(id uuid.UUID) (*TeamMember, bool, error)
	ListTeamMembers(filter TeamMemberFilter) ([]*TeamMember, error)
	FindResearchTopic(id uuid.UUID) (*ResearchTopic, bool, error)
	ListResearchTopics() ([]*ResearchTopic, error)
	FindTimeEntry(id uuid.UUID) (*TimeEntry, bool, error)
	ListTimeEntries(filter TimeEntryFilter) ([]*TimeEntry, error)
	FindSection(id uuid.UUID) (*Section, bool, error)
	ListSections(projectID uuid.UUID) ([]*Section, error)
	FindLabel(id uuid.UUID) (*Label, bool, error)
	ListLabels() ([]*Label, error)
	ListItemLabels(itemID uuid.UUID) ([]ItemLabel, error)
	FindDueDate(itemID uuid.UUID) (*DueDate, bool, error)
	FindReminder(id uuid.UUID) (*Reminder, bool, error)
	ListReminders(filter ReminderFilter) ([]*Reminder, error)
	FindView(id uuid.UUID) (*View, bool, error)
	ListViews() ([]*View, error)
}

// Transaction exposes the write operations a persistence implementation must
// support within one atomic scope.
//
// Create and Update stamp the new concurrency token onto the passed entity.
// Update fails with NotFoundError when the row is gone and with
// *ConcurrencyError when the presented token is stale. Delete of an absent id
// is a no-op.
type Transaction interface {
	TransactionView

	CreateProject(p *Project) error
	UpdateProject(p *Project) error
	DeleteProject(id uuid.UUID) error

	CreateWorkItem(w *WorkItem) error
	UpdateWorkItem(w *WorkItem) error
	DeleteWorkItem(id uuid.UUID) error

	CreateTeamMember(m *TeamMember) error
	UpdateTeamMember(m *TeamMember) error
	DeleteTeamMember(id uuid.UUID) error

	CreateResearchTopic(t *ResearchTopic) error
	UpdateResearchTopic(t *ResearchTopic) error
	DeleteResearchTopic(id uuid.UUID) error

	CreateTimeEntry(e *TimeEntry) error
	UpdateTimeEntry(e *TimeEntry) error
	DeleteTimeEntry(id uuid.UUID) error

	CreateSection(s *Section) error
	UpdateSection(s *Section) error
	DeleteSection(id uuid.UUID) error
	// ReorderSections applies ReorderSections to every section of the project
	// and writes the ones whose order changed.
	ReorderSections(projectID uuid.UUID, ordered []uuid.UUID, at time.Time) ([]*Section, error)

	CreateLabel(l *Label) error
	UpdateLabel(l *Label) error
	DeleteLabel(id uuid.UUID) error
	// AssignLabel is a no-op when the link already exists.
	AssignLabel(link ItemLabel) error
	// UnassignLabel is a no-op when the link does not exist.
	UnassignLabel(link ItemLabel) error

	// UpsertDueDate inserts or fully replaces the item's due date, keeping
	// the stored CreatedAt on replace.
	UpsertDueDate(d *DueDate) error
	DeleteDueDate(itemID uuid.UUID) error

	CreateReminder(r *Reminder) error
	UpdateReminder(r *Reminder) error
	DeleteReminder(id uuid.UUID) error

	CreateView(v *View) error
	UpdateView(v *View) error
	DeleteView(id uuid.UUID) error
}

// PersistentStore is the abstraction over durable backends used by higher
// layers. RunInTransaction commits only when fn and rule evaluation succeed;
// any error rolls back every write made inside fn. View reads committed state
// without opening a write transaction.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Close() error
}

// Versioned is implemented by every aggregate root.
type Versioned interface {
	ID() uuid.UUID
	Token() ConcurrencyToken
	StampToken(ConcurrencyToken)
}

// PendingTokens holds the tokens a store assigns inside an open transaction.
// They reach the caller's entities only through Apply, after commit, so an
// entity passed to a failed transaction keeps the token it was read with.
// The zero value is ready to use.
type PendingTokens struct {
	tokens map[Versioned]ConcurrencyToken
}

// Assign records token as the next token of v.
func (p *PendingTokens) Assign(v Versioned, token ConcurrencyToken) {
	if p.tokens == nil {
		p.tokens = make(map[Versioned]ConcurrencyToken)
	}
	p.tokens[v] = token.Clone()
}

// Presented returns the token v carries within the transaction: the one
// assigned by an earlier write in it, or else the token v was read with.
func (p *PendingTokens) Presented(v Versioned) ConcurrencyToken {
	if token, ok := p.tokens[v]; ok {
		return token.Clone()
	}
	return v.Token()
}

// Apply stamps every assigned token onto its entity.
func (p *PendingTokens) Apply() {
	for v, token := range p.tokens {
		v.StampToken(token)
	}
	p.tokens = nil
}
