package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxDisplayNameLen = 128
	maxRoleLen        = 64
	maxEmailLen       = 256
)

// TeamMember is a person that work items can be assigned to.
type TeamMember struct {
	Identity
	Audit
	displayName string
	role        string
	email       string
	active      bool
}

func normalizeEmail(email string) (string, error) {
	e, err := optionalText(EntityTeamMember, "email", email, maxEmailLen)
	if err != nil {
		return "", err
	}
	if e != "" && !strings.Contains(e, "@") {
		return "", newValidationError(EntityTeamMember, "email", "must contain @")
	}
	return e, nil
}

// NewTeamMember creates an active member.
func NewTeamMember(id uuid.UUID, displayName, role, email string, at time.Time) (*TeamMember, error) {
	name, err := requireText(EntityTeamMember, "display_name", displayName, maxDisplayNameLen)
	if err != nil {
		return nil, err
	}
	r, err := optionalText(EntityTeamMember, "role", role, maxRoleLen)
	if err != nil {
		return nil, err
	}
	e, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return &TeamMember{
		Identity:    newIdentity(id),
		Audit:       newAudit(at),
		displayName: name,
		role:        r,
		email:       e,
		active:      true,
	}, nil
}

func (m *TeamMember) DisplayName() string { return m.displayName }

func (m *TeamMember) Role() string { return m.role }

func (m *TeamMember) Email() string { return m.email }

func (m *TeamMember) Active() bool { return m.active }

// UpdateProfile replaces display name, role and email together.
func (m *TeamMember) UpdateProfile(displayName, role, email string, at time.Time) error {
	name, err := requireText(EntityTeamMember, "display_name", displayName, maxDisplayNameLen)
	if err != nil {
		return err
	}
	r, err := optionalText(EntityTeamMember, "role", role, maxRoleLen)
	if err != nil {
		return err
	}
	e, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	m.displayName, m.role, m.email = name, r, e
	m.touch(at)
	return nil
}

// Activate reports false and leaves the member untouched when already active.
func (m *TeamMember) Activate(at time.Time) bool {
	if m.active {
		return false
	}
	m.active = true
	m.touch(at)
	return true
}

// Deactivate reports false and leaves the member untouched when already inactive.
func (m *TeamMember) Deactivate(at time.Time) bool {
	if !m.active {
		return false
	}
	m.active = false
	m.touch(at)
	return true
}

// TeamMemberRecord is the persisted shape of a team member.
type TeamMemberRecord struct {
	ID          uuid.UUID        `json:"id"`
	Token       ConcurrencyToken `json:"token,omitempty"`
	DisplayName string           `json:"display_name"`
	Role        string           `json:"role,omitempty"`
	Email       string           `json:"email,omitempty"`
	Active      bool             `json:"active"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (m *TeamMember) Record() TeamMemberRecord {
	return TeamMemberRecord{
		ID:          m.ID(),
		Token:       m.Token(),
		DisplayName: m.displayName,
		Role:        m.role,
		Email:       m.email,
		Active:      m.active,
		CreatedAt:   m.createdAt,
		UpdatedAt:   m.updatedAt,
	}
}

func RestoreTeamMember(r TeamMemberRecord) *TeamMember {
	return &TeamMember{
		Identity:    Identity{id: r.ID, token: r.Token.Clone()},
		Audit:       restoreAudit(r.CreatedAt, r.UpdatedAt),
		displayName: r.DisplayName,
		role:        r.Role,
		email:       r.Email,
		active:      r.Active,
	}
}
