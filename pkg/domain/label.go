package domain

import (
	"time"

	"github.com/google/uuid"
)

const maxLabelNameLen = 64

// Label is a reusable marker assigned to work items through ItemLabel rows.
type Label struct {
	Identity
	Audit
	name  string
	color *string
}

// NewLabel creates a label with an optional color.
func NewLabel(id uuid.UUID, name string, color *string, at time.Time) (*Label, error) {
	n, err := requireText(EntityLabel, "name", name, maxLabelNameLen)
	if err != nil {
		return nil, err
	}
	c, err := normalizeColor(EntityLabel, color)
	if err != nil {
		return nil, err
	}
	return &Label{Identity: newIdentity(id), Audit: newAudit(at), name: n, color: c}, nil
}

func (l *Label) Name() string { return l.name }

func (l *Label) Color() *string {
	if l.color == nil {
		return nil
	}
	c := *l.color
	return &c
}

// Rename changes the label name.
func (l *Label) Rename(name string, at time.Time) error {
	n, err := requireText(EntityLabel, "name", name, maxLabelNameLen)
	if err != nil {
		return err
	}
	l.name = n
	l.touch(at)
	return nil
}

// ChangeColor sets or clears the color.
func (l *Label) ChangeColor(color *string, at time.Time) error {
	c, err := normalizeColor(EntityLabel, color)
	if err != nil {
		return err
	}
	l.color = c
	l.touch(at)
	return nil
}

// ItemLabel links a work item to a label. Existence is its only state.
type ItemLabel struct {
	ItemID  uuid.UUID `json:"item_id"`
	LabelID uuid.UUID `json:"label_id"`
}

// NewItemLabel requires both sides of the link.
func NewItemLabel(itemID, labelID uuid.UUID) (ItemLabel, error) {
	if err := requireRef(EntityItemLabel, "item_id", itemID); err != nil {
		return ItemLabel{}, err
	}
	if err := requireRef(EntityItemLabel, "label_id", labelID); err != nil {
		return ItemLabel{}, err
	}
	return ItemLabel{ItemID: itemID, LabelID: labelID}, nil
}

// LabelRecord is the persisted shape of a label.
type LabelRecord struct {
	ID        uuid.UUID        `json:"id"`
	Token     ConcurrencyToken `json:"token,omitempty"`
	Name      string           `json:"name"`
	Color     *string          `json:"color,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (l *Label) Record() LabelRecord {
	return LabelRecord{
		ID:        l.ID(),
		Token:     l.Token(),
		Name:      l.name,
		Color:     l.Color(),
		CreatedAt: l.createdAt,
		UpdatedAt: l.updatedAt,
	}
}

func RestoreLabel(r LabelRecord) *Label {
	l := &Label{
		Identity: Identity{id: r.ID, token: r.Token.Clone()},
		Audit:    restoreAudit(r.CreatedAt, r.UpdatedAt),
		name:     r.Name,
	}
	if r.Color != nil {
		c := *r.Color
		l.color = &c
	}
	return l
}
