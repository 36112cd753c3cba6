package domain

import "github.com/google/uuid"

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the writes recorded during a transaction.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change describes a mutation applied to an entity during a transaction.
// Before and After hold the entity's Record value (for example ProjectRecord)
// or ItemLabel for junction rows; either side is nil when absent.
type Change struct {
	Entity EntityType
	Action Action
	ID     uuid.UUID
	Before any
	After  any
}

// ChangesFor filters changes down to one entity type.
func ChangesFor(changes []Change, entity EntityType) []Change {
	var out []Change
	for _, c := range changes {
		if c.Entity == entity {
			out = append(out, c)
		}
	}
	return out
}
