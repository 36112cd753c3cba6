// Package domain defines the task-tracking entity model, its mutation rules,
// and the persistence contracts implemented by the store adapters.
package domain

import (
	"bytes"
	"encoding/binary"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records, errors and persistence tables.
const (
	EntityProject       EntityType = "project"
	EntityFeature       EntityType = "feature"
	EntityWorkItem      EntityType = "work_item"
	EntityTeamMember    EntityType = "team_member"
	EntityResearchTopic EntityType = "research_topic"
	EntityResearchNote  EntityType = "research_note"
	EntityTimeEntry     EntityType = "time_entry"
	EntitySection       EntityType = "section"
	EntityLabel         EntityType = "label"
	EntityItemLabel     EntityType = "item_label"
	EntityDueDate       EntityType = "due_date"
	EntityReminder      EntityType = "reminder"
	EntityView          EntityType = "view"
)

// ConcurrencyToken is an opaque version marker assigned by a store on every
// write. An update must present the token it read or it is rejected.
type ConcurrencyToken []byte

// TokenFromVersion encodes a store version counter as a token.
func TokenFromVersion(version uint64) ConcurrencyToken {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], version)
	return ConcurrencyToken(b[:])
}

// Version decodes a token produced by TokenFromVersion. It reports false for
// empty or foreign tokens.
func (t ConcurrencyToken) Version() (uint64, bool) {
	if len(t) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(t), true
}

// Equal reports whether both tokens carry the same bytes.
func (t ConcurrencyToken) Equal(other ConcurrencyToken) bool {
	return bytes.Equal(t, other)
}

// IsZero reports whether the token has never been assigned.
func (t ConcurrencyToken) IsZero() bool { return len(t) == 0 }

// Clone returns an independent copy.
func (t ConcurrencyToken) Clone() ConcurrencyToken {
	if t == nil {
		return nil
	}
	return append(ConcurrencyToken(nil), t...)
}

// Identity holds the immutable id of an aggregate root plus its concurrency token.
type Identity struct {
	id    uuid.UUID
	token ConcurrencyToken
}

func newIdentity(id uuid.UUID) Identity {
	if id == uuid.Nil {
		id = uuid.New()
	}
	return Identity{id: id}
}

// ID returns the entity identifier.
func (i Identity) ID() uuid.UUID { return i.id }

// Token returns a copy of the concurrency token last assigned by a store.
func (i Identity) Token() ConcurrencyToken { return i.token.Clone() }

// StampToken records the token assigned by a store after a successful write.
// Only store adapters call it.
func (i *Identity) StampToken(token ConcurrencyToken) { i.token = token.Clone() }

// Audit tracks creation and modification timestamps in UTC.
type Audit struct {
	createdAt time.Time
	updatedAt time.Time
}

func newAudit(at time.Time) Audit {
	at = at.UTC()
	return Audit{createdAt: at, updatedAt: at}
}

// CreatedAt returns the creation timestamp (UTC).
func (a Audit) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns the last modification timestamp (UTC).
func (a Audit) UpdatedAt() time.Time { return a.updatedAt }

// touch is the only path that advances UpdatedAt.
func (a *Audit) touch(at time.Time) { a.updatedAt = at.UTC() }

func restoreAudit(createdAt, updatedAt time.Time) Audit {
	return Audit{createdAt: createdAt.UTC(), updatedAt: updatedAt.UTC()}
}

// normalizeRef turns the empty-guid sentinel into an unset reference.
func normalizeRef(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	cp := *id
	return &cp
}

func cloneRef(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}

func sameRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// requireText trims value and enforces a non-empty, length-bounded string.
func requireText(entity EntityType, field, value string, limit int) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", newValidationError(entity, field, "must not be empty")
	}
	if utf8.RuneCountInString(trimmed) > limit {
		return "", newValidationError(entity, field, "must be at most %d characters", limit)
	}
	return trimmed, nil
}

// optionalText trims value and enforces an upper bound; empty means unset.
func optionalText(entity EntityType, field, value string, limit int) (string, error) {
	trimmed := strings.TrimSpace(value)
	if utf8.RuneCountInString(trimmed) > limit {
		return "", newValidationError(entity, field, "must be at most %d characters", limit)
	}
	return trimmed, nil
}

func requireRef(entity EntityType, field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return newValidationError(entity, field, "must reference an existing id")
	}
	return nil
}
