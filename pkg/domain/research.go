package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	maxTopicTitleLen  = 200
	maxProblemAreaLen = 200
	maxGoalLen        = 1000
	maxNoteContentLen = 4000
)

// NoteKind classifies research notes.
type NoteKind string

const (
	NoteObservation NoteKind = "Observation"
	NoteHypothesis  NoteKind = "Hypothesis"
	NoteQuestion    NoteKind = "Question"
	NoteFinding     NoteKind = "Finding"
	NoteReference   NoteKind = "Reference"
)

// Valid reports whether k is a known note kind.
func (k NoteKind) Valid() bool {
	switch k {
	case NoteObservation, NoteHypothesis, NoteQuestion, NoteFinding, NoteReference:
		return true
	}
	return false
}

// ResearchTopic groups research notes around a problem. Notes are owned by
// the topic and removed with it.
type ResearchTopic struct {
	Identity
	Audit
	title       string
	problemArea string
	goal        string
	notes       []*ResearchNote
}

// ResearchNote is a single entry within a topic.
type ResearchNote struct {
	Audit
	id               uuid.UUID
	topicID          uuid.UUID
	kind             NoteKind
	content          string
	linkedWorkItemID *uuid.UUID
}

type topicFields struct {
	title, problemArea, goal string
}

func validateTopic(title, problemArea, goal string) (topicFields, error) {
	var f topicFields
	var err error
	if f.title, err = requireText(EntityResearchTopic, "title", title, maxTopicTitleLen); err != nil {
		return f, err
	}
	if f.problemArea, err = requireText(EntityResearchTopic, "problem_area", problemArea, maxProblemAreaLen); err != nil {
		return f, err
	}
	if f.goal, err = requireText(EntityResearchTopic, "goal", goal, maxGoalLen); err != nil {
		return f, err
	}
	return f, nil
}

// NewResearchTopic creates a topic without notes.
func NewResearchTopic(id uuid.UUID, title, problemArea, goal string, at time.Time) (*ResearchTopic, error) {
	f, err := validateTopic(title, problemArea, goal)
	if err != nil {
		return nil, err
	}
	return &ResearchTopic{
		Identity:    newIdentity(id),
		Audit:       newAudit(at),
		title:       f.title,
		problemArea: f.problemArea,
		goal:        f.goal,
	}, nil
}

func (t *ResearchTopic) Title() string { return t.title }

func (t *ResearchTopic) ProblemArea() string { return t.problemArea }

func (t *ResearchTopic) Goal() string { return t.goal }

// Notes returns detached copies of the notes in insertion order.
func (t *ResearchTopic) Notes() []ResearchNote {
	out := make([]ResearchNote, 0, len(t.notes))
	for _, n := range t.notes {
		out = append(out, n.copy())
	}
	return out
}

// Note looks up a note by id.
func (t *ResearchTopic) Note(id uuid.UUID) (ResearchNote, bool) {
	if n := t.note(id); n != nil {
		return n.copy(), true
	}
	return ResearchNote{}, false
}

func (t *ResearchTopic) note(id uuid.UUID) *ResearchNote {
	for _, n := range t.notes {
		if n.id == id {
			return n
		}
	}
	return nil
}

// Revise replaces title, problem area and goal.
func (t *ResearchTopic) Revise(title, problemArea, goal string, at time.Time) error {
	f, err := validateTopic(title, problemArea, goal)
	if err != nil {
		return err
	}
	t.title, t.problemArea, t.goal = f.title, f.problemArea, f.goal
	t.touch(at)
	return nil
}

func validateNote(kind NoteKind, content string) (string, error) {
	if !kind.Valid() {
		return "", newValidationError(EntityResearchNote, "kind", "unknown kind %q", kind)
	}
	return requireText(EntityResearchNote, "content", content, maxNoteContentLen)
}

// AddNote appends a note to the topic and touches the topic.
func (t *ResearchTopic) AddNote(kind NoteKind, content string, linkedWorkItemID *uuid.UUID, at time.Time) (ResearchNote, error) {
	c, err := validateNote(kind, content)
	if err != nil {
		return ResearchNote{}, err
	}
	n := &ResearchNote{
		Audit:            newAudit(at),
		id:               uuid.New(),
		topicID:          t.ID(),
		kind:             kind,
		content:          c,
		linkedWorkItemID: normalizeRef(linkedWorkItemID),
	}
	t.notes = append(t.notes, n)
	t.touch(at)
	return n.copy(), nil
}

// RemoveNote drops a note. It reports false without touching when absent.
func (t *ResearchTopic) RemoveNote(id uuid.UUID, at time.Time) bool {
	for i, n := range t.notes {
		if n.id == id {
			t.notes = append(t.notes[:i], t.notes[i+1:]...)
			t.touch(at)
			return true
		}
	}
	return false
}

// UpdateNote replaces the kind and content of a note.
func (t *ResearchTopic) UpdateNote(id uuid.UUID, kind NoteKind, content string, at time.Time) error {
	n := t.note(id)
	if n == nil {
		return NotFoundError{Entity: EntityResearchNote, ID: id.String()}
	}
	c, err := validateNote(kind, content)
	if err != nil {
		return err
	}
	n.kind, n.content = kind, c
	n.touch(at)
	t.touch(at)
	return nil
}

// LinkNote sets or clears the work item a note refers to. uuid.Nil clears it.
func (t *ResearchTopic) LinkNote(id uuid.UUID, workItemID *uuid.UUID, at time.Time) error {
	n := t.note(id)
	if n == nil {
		return NotFoundError{Entity: EntityResearchNote, ID: id.String()}
	}
	n.linkedWorkItemID = normalizeRef(workItemID)
	n.touch(at)
	t.touch(at)
	return nil
}

func (n *ResearchNote) copy() ResearchNote {
	cp := *n
	cp.linkedWorkItemID = cloneRef(n.linkedWorkItemID)
	return cp
}

func (n ResearchNote) ID() uuid.UUID { return n.id }

func (n ResearchNote) TopicID() uuid.UUID { return n.topicID }

func (n ResearchNote) Kind() NoteKind { return n.kind }

func (n ResearchNote) Content() string { return n.content }

// LinkedWorkItemID returns the optional weak reference to a work item.
func (n ResearchNote) LinkedWorkItemID() *uuid.UUID { return cloneRef(n.linkedWorkItemID) }

// ResearchTopicRecord is the persisted shape of a topic and its notes.
type ResearchTopicRecord struct {
	ID          uuid.UUID            `json:"id"`
	Token       ConcurrencyToken     `json:"token,omitempty"`
	Title       string               `json:"title"`
	ProblemArea string               `json:"problem_area"`
	Goal        string               `json:"goal"`
	Notes       []ResearchNoteRecord `json:"notes"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ResearchNoteRecord is the persisted shape of a note.
type ResearchNoteRecord struct {
	ID               uuid.UUID  `json:"id"`
	TopicID          uuid.UUID  `json:"topic_id"`
	Kind             NoteKind   `json:"kind"`
	Content          string     `json:"content"`
	LinkedWorkItemID *uuid.UUID `json:"linked_work_item_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (t *ResearchTopic) Record() ResearchTopicRecord {
	notes := make([]ResearchNoteRecord, 0, len(t.notes))
	for _, n := range t.notes {
		notes = append(notes, n.Record())
	}
	return ResearchTopicRecord{
		ID:          t.ID(),
		Token:       t.Token(),
		Title:       t.title,
		ProblemArea: t.problemArea,
		Goal:        t.goal,
		Notes:       notes,
		CreatedAt:   t.createdAt,
		UpdatedAt:   t.updatedAt,
	}
}

func (n ResearchNote) Record() ResearchNoteRecord {
	return ResearchNoteRecord{
		ID:               n.id,
		TopicID:          n.topicID,
		Kind:             n.kind,
		Content:          n.content,
		LinkedWorkItemID: cloneRef(n.linkedWorkItemID),
		CreatedAt:        n.createdAt,
		UpdatedAt:        n.updatedAt,
	}
}

// RestoreResearchTopic rebuilds a topic and its notes from stored state.
func RestoreResearchTopic(r ResearchTopicRecord) *ResearchTopic {
	t := &ResearchTopic{
		Identity:    Identity{id: r.ID, token: r.Token.Clone()},
		Audit:       restoreAudit(r.CreatedAt, r.UpdatedAt),
		title:       r.Title,
		problemArea: r.ProblemArea,
		goal:        r.Goal,
	}
	for _, nr := range r.Notes {
		t.notes = append(t.notes, &ResearchNote{
			Audit:            restoreAudit(nr.CreatedAt, nr.UpdatedAt),
			id:               nr.ID,
			topicID:          r.ID,
			kind:             nr.Kind,
			content:          nr.Content,
			linkedWorkItemID: normalizeRef(nr.LinkedWorkItemID),
		})
	}
	return t
}
