// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"taskcore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
)

type (
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// memoryState holds committed records. Stored records are never mutated in
// place, so cloning the maps is enough to isolate a transaction.
type memoryState struct {
	seq         uint64
	projects    map[uuid.UUID]domain.ProjectRecord
	workItems   map[uuid.UUID]domain.WorkItemRecord
	members     map[uuid.UUID]domain.TeamMemberRecord
	topics      map[uuid.UUID]domain.ResearchTopicRecord
	timeEntries map[uuid.UUID]domain.TimeEntryRecord
	sections    map[uuid.UUID]domain.SectionRecord
	labels      map[uuid.UUID]domain.LabelRecord
	itemLabels  map[domain.ItemLabel]struct{}
	dueDates    map[uuid.UUID]domain.DueDateRecord
	reminders   map[uuid.UUID]domain.ReminderRecord
	views       map[uuid.UUID]domain.ViewRecord
}

func newMemoryState() memoryState {
	return memoryState{
		projects:    make(map[uuid.UUID]domain.ProjectRecord),
		workItems:   make(map[uuid.UUID]domain.WorkItemRecord),
		members:     make(map[uuid.UUID]domain.TeamMemberRecord),
		topics:      make(map[uuid.UUID]domain.ResearchTopicRecord),
		timeEntries: make(map[uuid.UUID]domain.TimeEntryRecord),
		sections:    make(map[uuid.UUID]domain.SectionRecord),
		labels:      make(map[uuid.UUID]domain.LabelRecord),
		itemLabels:  make(map[domain.ItemLabel]struct{}),
		dueDates:    make(map[uuid.UUID]domain.DueDateRecord),
		reminders:   make(map[uuid.UUID]domain.ReminderRecord),
		views:       make(map[uuid.UUID]domain.ViewRecord),
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s memoryState) clone() memoryState {
	return memoryState{
		seq:         s.seq,
		projects:    cloneMap(s.projects),
		workItems:   cloneMap(s.workItems),
		members:     cloneMap(s.members),
		topics:      cloneMap(s.topics),
		timeEntries: cloneMap(s.timeEntries),
		sections:    cloneMap(s.sections),
		labels:      cloneMap(s.labels),
		itemLabels:  cloneMap(s.itemLabels),
		dueDates:    cloneMap(s.dueDates),
		reminders:   cloneMap(s.reminders),
		views:       cloneMap(s.views),
	}
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
	}
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// transaction represents a mutation set applied to a private copy of the
// store state.
type transaction struct {
	transactionView
	changes []Change
	tokens  domain.PendingTokens
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the committed state only when fn, rule evaluation and the
// context all succeed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	working := s.state.clone()
	tx := &transaction{transactionView: transactionView{state: &working}}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	result, err := s.engine.Evaluate(ctx, tx.transactionView, tx.changes)
	if err != nil {
		return Result{}, err
	}
	if result.HasBlocking() {
		return result, domain.RuleViolationError{Result: result}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("commit aborted: %w", err)
	}

	s.state = working
	tx.tokens.Apply()
	return result, nil
}

// View executes fn against the committed state under a read lock.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	committed := s.state
	return fn(transactionView{state: &committed})
}

// Close is a no-op; the store holds no external resources.
func (s *Store) Close() error { return nil }

// helper to record and append change entries.
func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) nextToken() domain.ConcurrencyToken {
	tx.state.seq++
	return domain.TokenFromVersion(tx.state.seq)
}

// insert stores a new root record built with a fresh token.
func insert[R any](tx *transaction, entity domain.EntityType, bucket map[uuid.UUID]R, v domain.Versioned, build func(domain.ConcurrencyToken) R) error {
	if _, exists := bucket[v.ID()]; exists {
		return fmt.Errorf("%s %s already exists", entity, v.ID())
	}
	token := tx.nextToken()
	rec := build(token)
	bucket[v.ID()] = rec
	tx.tokens.Assign(v, token)
	tx.recordChange(Change{Entity: entity, Action: domain.ActionCreate, ID: v.ID(), After: rec})
	return nil
}

// replace overwrites a root record after comparing the presented token with
// the stored one.
func replace[R any](tx *transaction, entity domain.EntityType, bucket map[uuid.UUID]R, v domain.Versioned, tokenOf func(R) domain.ConcurrencyToken, build func(domain.ConcurrencyToken) R) (R, error) {
	current, ok := bucket[v.ID()]
	if !ok {
		return current, domain.NewNotFoundError(entity, v.ID())
	}
	if !tokenOf(current).Equal(tx.tokens.Presented(v)) {
		return current, &domain.ConcurrencyError{Entity: entity, ID: v.ID()}
	}
	token := tx.nextToken()
	rec := build(token)
	bucket[v.ID()] = rec
	tx.tokens.Assign(v, token)
	tx.recordChange(Change{Entity: entity, Action: domain.ActionUpdate, ID: v.ID(), Before: current, After: rec})
	return current, nil
}

// remove deletes a root record; absent ids are ignored.
func remove[R any](tx *transaction, entity domain.EntityType, bucket map[uuid.UUID]R, id uuid.UUID) (R, bool) {
	current, ok := bucket[id]
	if !ok {
		return current, false
	}
	delete(bucket, id)
	tx.recordChange(Change{Entity: entity, Action: domain.ActionDelete, ID: id, Before: current})
	return current, true
}

func (tx *transaction) requireProject(id uuid.UUID) error {
	if _, ok := tx.state.projects[id]; !ok {
		return domain.NewNotFoundError(domain.EntityProject, id)
	}
	return nil
}

func (tx *transaction) requireWorkItem(id uuid.UUID) error {
	if _, ok := tx.state.workItems[id]; !ok {
		return domain.NewNotFoundError(domain.EntityWorkItem, id)
	}
	return nil
}

func (tx *transaction) featureExists(id uuid.UUID) bool {
	for _, p := range tx.state.projects {
		for _, f := range p.Features {
			if f.ID == id {
				return true
			}
		}
	}
	return false
}

func (tx *transaction) checkWorkItemRefs(rec domain.WorkItemRecord) error {
	if err := tx.requireProject(rec.ProjectID); err != nil {
		return err
	}
	if rec.FeatureID != nil && !tx.featureExists(*rec.FeatureID) {
		return domain.NewNotFoundError(domain.EntityFeature, *rec.FeatureID)
	}
	if rec.OwnerID != nil {
		if _, ok := tx.state.members[*rec.OwnerID]; !ok {
			return domain.NewNotFoundError(domain.EntityTeamMember, *rec.OwnerID)
		}
	}
	return nil
}

func (tx *transaction) checkNoteLinks(rec domain.ResearchTopicRecord) error {
	for _, n := range rec.Notes {
		if n.LinkedWorkItemID != nil {
			if err := tx.requireWorkItem(*n.LinkedWorkItemID); err != nil {
				return err
			}
		}
	}
	return nil
}
