package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxProjectNameLen = 128
	maxFeatureNameLen = 128
	minProjectKeyLen  = 2
	maxProjectKeyLen  = 8
)

var (
	projectKeyPattern = regexp.MustCompile(`^[A-Z0-9]+$`)
	colorPattern      = regexp.MustCompile(`^#([0-9A-F]{6}|[0-9A-F]{8})$`)
)

// Project is the aggregate root owning a set of features.
type Project struct {
	Identity
	Audit
	name     string
	key      string
	color    *string
	features []*Feature
}

// Feature is a named slice of a project. It is owned exclusively by its project.
type Feature struct {
	Audit
	id        uuid.UUID
	projectID uuid.UUID
	name      string
	archived  bool
}

// NormalizeProjectKey trims and upper-cases key and checks its shape.
func NormalizeProjectKey(key string) (string, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	if n := len(k); n < minProjectKeyLen || n > maxProjectKeyLen {
		return "", newValidationError(EntityProject, "key", "must be %d-%d characters", minProjectKeyLen, maxProjectKeyLen)
	}
	if !projectKeyPattern.MatchString(k) {
		return "", newValidationError(EntityProject, "key", "must contain only letters and digits")
	}
	return k, nil
}

func normalizeColor(entity EntityType, color *string) (*string, error) {
	if color == nil {
		return nil, nil
	}
	c := strings.ToUpper(strings.TrimSpace(*color))
	if c == "" {
		return nil, nil
	}
	if !colorPattern.MatchString(c) {
		return nil, newValidationError(entity, "color", "must be #RRGGBB or #AARRGGBB")
	}
	return &c, nil
}

// NewProject validates the input and returns a project with no features.
func NewProject(id uuid.UUID, name, key string, color *string, at time.Time) (*Project, error) {
	n, err := requireText(EntityProject, "name", name, maxProjectNameLen)
	if err != nil {
		return nil, err
	}
	k, err := NormalizeProjectKey(key)
	if err != nil {
		return nil, err
	}
	c, err := normalizeColor(EntityProject, color)
	if err != nil {
		return nil, err
	}
	return &Project{
		Identity: newIdentity(id),
		Audit:    newAudit(at),
		name:     n,
		key:      k,
		color:    c,
	}, nil
}

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// Key returns the upper-case project key.
func (p *Project) Key() string { return p.key }

// Color returns the optional display color.
func (p *Project) Color() *string {
	if p.color == nil {
		return nil
	}
	c := *p.color
	return &c
}

// Rename changes the project name.
func (p *Project) Rename(name string, at time.Time) error {
	n, err := requireText(EntityProject, "name", name, maxProjectNameLen)
	if err != nil {
		return err
	}
	p.name = n
	p.touch(at)
	return nil
}

// ChangeKey normalizes and assigns a new key. Uniqueness is enforced at commit.
func (p *Project) ChangeKey(key string, at time.Time) error {
	k, err := NormalizeProjectKey(key)
	if err != nil {
		return err
	}
	p.key = k
	p.touch(at)
	return nil
}

// ChangeColor sets or clears the display color.
func (p *Project) ChangeColor(color *string, at time.Time) error {
	c, err := normalizeColor(EntityProject, color)
	if err != nil {
		return err
	}
	p.color = c
	p.touch(at)
	return nil
}

// Features returns detached copies of the owned features in insertion order.
func (p *Project) Features() []Feature {
	out := make([]Feature, 0, len(p.features))
	for _, f := range p.features {
		out = append(out, *f)
	}
	return out
}

// Feature looks up an owned feature by id.
func (p *Project) Feature(id uuid.UUID) (Feature, bool) {
	if f := p.feature(id); f != nil {
		return *f, true
	}
	return Feature{}, false
}

func (p *Project) feature(id uuid.UUID) *Feature {
	for _, f := range p.features {
		if f.id == id {
			return f
		}
	}
	return nil
}

// AddFeature creates a feature owned by this project and touches the project.
func (p *Project) AddFeature(name string, at time.Time) (Feature, error) {
	f, err := NewFeature(uuid.Nil, p.ID(), name, at)
	if err != nil {
		return Feature{}, err
	}
	p.features = append(p.features, f)
	p.touch(at)
	return *f, nil
}

// RemoveFeature drops an owned feature. It reports false, without touching,
// when the feature is not part of the project.
func (p *Project) RemoveFeature(id uuid.UUID, at time.Time) bool {
	for i, f := range p.features {
		if f.id == id {
			p.features = append(p.features[:i], p.features[i+1:]...)
			p.touch(at)
			return true
		}
	}
	return false
}

// RenameFeature renames an owned feature.
func (p *Project) RenameFeature(id uuid.UUID, name string, at time.Time) error {
	f := p.feature(id)
	if f == nil {
		return NotFoundError{Entity: EntityFeature, ID: id.String()}
	}
	return f.Rename(name, at)
}

// ArchiveFeature archives an owned feature; see Feature.Archive.
func (p *Project) ArchiveFeature(id uuid.UUID, at time.Time) (bool, error) {
	f := p.feature(id)
	if f == nil {
		return false, NotFoundError{Entity: EntityFeature, ID: id.String()}
	}
	return f.Archive(at), nil
}

// RestoreFeature restores an owned feature; see Feature.Restore.
func (p *Project) RestoreFeature(id uuid.UUID, at time.Time) (bool, error) {
	f := p.feature(id)
	if f == nil {
		return false, NotFoundError{Entity: EntityFeature, ID: id.String()}
	}
	return f.Restore(at), nil
}

// NewFeature builds a feature bound to projectID. Callers normally go through
// Project.AddFeature so the feature ends up owned by the aggregate.
func NewFeature(id, projectID uuid.UUID, name string, at time.Time) (*Feature, error) {
	if err := requireRef(EntityFeature, "project_id", projectID); err != nil {
		return nil, err
	}
	n, err := requireText(EntityFeature, "name", name, maxFeatureNameLen)
	if err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Feature{Audit: newAudit(at), id: id, projectID: projectID, name: n}, nil
}

// ID returns the feature id.
func (f Feature) ID() uuid.UUID { return f.id }

// ProjectID returns the owning project id.
func (f Feature) ProjectID() uuid.UUID { return f.projectID }

// Name returns the feature name.
func (f Feature) Name() string { return f.name }

// Archived reports whether the feature is archived.
func (f Feature) Archived() bool { return f.archived }

// Rename changes the feature name.
func (f *Feature) Rename(name string, at time.Time) error {
	n, err := requireText(EntityFeature, "name", name, maxFeatureNameLen)
	if err != nil {
		return err
	}
	f.name = n
	f.touch(at)
	return nil
}

// Archive marks the feature archived. Already archived is a no-op.
func (f *Feature) Archive(at time.Time) bool {
	if f.archived {
		return false
	}
	f.archived = true
	f.touch(at)
	return true
}

// Restore clears the archived flag. Already active is a no-op.
func (f *Feature) Restore(at time.Time) bool {
	if !f.archived {
		return false
	}
	f.archived = false
	f.touch(at)
	return true
}

// ProjectRecord is the persisted shape of a project aggregate.
type ProjectRecord struct {
	ID        uuid.UUID        `json:"id"`
	Token     ConcurrencyToken `json:"token,omitempty"`
	Name      string           `json:"name"`
	Key       string           `json:"key"`
	Color     *string          `json:"color,omitempty"`
	Features  []FeatureRecord  `json:"features"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// FeatureRecord is the persisted shape of a feature.
type FeatureRecord struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record captures the aggregate state for persistence.
func (p *Project) Record() ProjectRecord {
	features := make([]FeatureRecord, 0, len(p.features))
	for _, f := range p.features {
		features = append(features, f.Record())
	}
	return ProjectRecord{
		ID:        p.ID(),
		Token:     p.Token(),
		Name:      p.name,
		Key:       p.key,
		Color:     p.Color(),
		Features:  features,
		CreatedAt: p.createdAt,
		UpdatedAt: p.updatedAt,
	}
}

// Record captures the feature state for persistence.
func (f Feature) Record() FeatureRecord {
	return FeatureRecord{
		ID:        f.id,
		ProjectID: f.projectID,
		Name:      f.name,
		Archived:  f.archived,
		CreatedAt: f.createdAt,
		UpdatedAt: f.updatedAt,
	}
}

// RestoreProject rebuilds a project from stored state without re-validating it.
func RestoreProject(r ProjectRecord) *Project {
	p := &Project{
		Identity: Identity{id: r.ID, token: r.Token.Clone()},
		Audit:    restoreAudit(r.CreatedAt, r.UpdatedAt),
		name:     r.Name,
		key:      r.Key,
	}
	if r.Color != nil {
		c := *r.Color
		p.color = &c
	}
	for _, fr := range r.Features {
		p.features = append(p.features, &Feature{
			Audit:     restoreAudit(fr.CreatedAt, fr.UpdatedAt),
			id:        fr.ID,
			projectID: r.ID,
			name:      fr.Name,
			archived:  fr.Archived,
		})
	}
	return p
}
