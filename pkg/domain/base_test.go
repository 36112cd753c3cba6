package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testZone = time.FixedZone("UTC+2", 2*60*60)

func TestConstructorsNormalizeToUTC(t *testing.T) {
	local := time.Date(2024, 3, 1, 10, 0, 0, 0, testZone)
	p, err := NewProject(uuid.Nil, "Apollo", "ap", nil, local)
	if err != nil {
		t.Fatalf("new project: %v", err)
	}
	if p.CreatedAt().Location() != time.UTC || !p.CreatedAt().Equal(local) {
		t.Fatalf("expected UTC created_at equal to input, got %v", p.CreatedAt())
	}
	if !p.CreatedAt().Equal(p.UpdatedAt()) {
		t.Fatalf("expected created_at == updated_at on construction")
	}
	if p.ID() == uuid.Nil {
		t.Fatalf("expected generated id")
	}
}

func TestConstructorKeepsSuppliedID(t *testing.T) {
	id := uuid.New()
	m, err := NewTeamMember(id, "Ada", "", "", time.Now())
	if err != nil {
		t.Fatalf("new member: %v", err)
	}
	if m.ID() != id {
		t.Fatalf("expected supplied id %s, got %s", id, m.ID())
	}
}

func TestConcurrencyTokenHelpers(t *testing.T) {
	tok := TokenFromVersion(42)
	v, ok := tok.Version()
	if !ok || v != 42 {
		t.Fatalf("expected version 42, got %d %v", v, ok)
	}
	if !tok.Equal(TokenFromVersion(42)) || tok.Equal(TokenFromVersion(43)) {
		t.Fatalf("unexpected token equality")
	}
	clone := tok.Clone()
	clone[0] = 0xFF
	if tok[0] == 0xFF {
		t.Fatalf("expected clone to be independent")
	}
	var empty ConcurrencyToken
	if !empty.IsZero() {
		t.Fatalf("expected zero token")
	}
	if _, ok := ConcurrencyToken([]byte{1}).Version(); ok {
		t.Fatalf("expected foreign token to be rejected")
	}
}

func TestIdentityTokenIsDetached(t *testing.T) {
	p, _ := NewProject(uuid.Nil, "Apollo", "AP", nil, time.Now())
	p.StampToken(TokenFromVersion(1))
	tok := p.Token()
	tok[7] = 9
	if v, _ := p.Token().Version(); v != 1 {
		t.Fatalf("expected stored token to stay at 1, got %d", v)
	}
}

func TestPendingTokensApplyOnlyOnCommit(t *testing.T) {
	p, _ := NewProject(uuid.Nil, "Apollo", "AP", nil, time.Now())
	p.StampToken(TokenFromVersion(1))

	var pending PendingTokens
	if !pending.Presented(p).Equal(TokenFromVersion(1)) {
		t.Fatalf("expected the read token before any write")
	}
	pending.Assign(p, TokenFromVersion(2))
	if !pending.Presented(p).Equal(TokenFromVersion(2)) {
		t.Fatalf("expected later writes to present the assigned token")
	}
	if v, _ := p.Token().Version(); v != 1 {
		t.Fatalf("entity stamped before apply: version %d", v)
	}
	pending.Apply()
	if v, _ := p.Token().Version(); v != 2 {
		t.Fatalf("expected version 2 after apply, got %d", v)
	}
	if !pending.Presented(p).Equal(TokenFromVersion(2)) {
		t.Fatalf("expected applied token to be presented")
	}
}

func TestErrorMatching(t *testing.T) {
	_, err := NewProject(uuid.Nil, "", "AP", nil, time.Now())
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "name" || verr.Entity != EntityProject {
		t.Fatalf("unexpected validation error detail: %+v", verr)
	}
	nf := NewNotFoundError(EntityWorkItem, uuid.New())
	if !IsNotFound(nf) || IsConflict(nf) {
		t.Fatalf("expected not found only")
	}
	ce := &ConcurrencyError{Entity: EntityWorkItem, ID: uuid.New()}
	if !IsConflict(ce) || IsNotFound(ce) {
		t.Fatalf("expected conflict only")
	}
}
