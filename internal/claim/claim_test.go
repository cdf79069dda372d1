package claim

import (
	"testing"

	"github.com/fernhollow/tripsync/internal/model"
)

var (
	mika  = model.Member{ID: "m1", Name: "Mika", Avatar: "🦊"}
	noel  = model.Member{ID: "m2", Name: "Noel", Avatar: "🐸"}
	admin = model.Member{ID: model.AdminID, Name: "Trail Boss", Avatar: "🦝", IsAdmin: true}
)

func TestToggleClaimAndRelease(t *testing.T) {
	// Scenario: a member claims an unclaimed ingredient, then claims
	// again to release it.
	got, ok := Resolve(mika, model.Claim{}, nil)
	if !ok {
		t.Fatal("claiming an unclaimed record should be applied")
	}
	if !got.By(mika.ID) {
		t.Fatalf("owner = %+v, want claim by %s", got, mika.ID)
	}
	if got.Name != "Mika" || got.Avatar != "🦊" {
		t.Errorf("claim should carry display fields, got %+v", got)
	}

	got, ok = Resolve(mika, got, nil)
	if !ok {
		t.Fatal("releasing own claim should be applied")
	}
	if got.Claimed() {
		t.Fatalf("owner = %+v, want unclaimed", got)
	}
}

func TestToggleOnForeignClaimIsNoOp(t *testing.T) {
	current := model.ClaimFor(mika)
	got, ok := Resolve(noel, current, nil)
	if ok {
		t.Fatal("non-admin toggle on someone else's record must be rejected")
	}
	if got != current {
		t.Fatalf("rejected toggle must leave the claim unchanged, got %+v", got)
	}
}

func TestAdminToggleTakesBack(t *testing.T) {
	got, ok := Resolve(admin, model.ClaimFor(mika), nil)
	if !ok {
		t.Fatal("admin toggle should be applied")
	}
	if got.Claimed() {
		t.Fatalf("admin toggle on a claimed record releases it, got %+v", got)
	}

	got, ok = Resolve(admin, model.Claim{}, nil)
	if !ok || !got.By(admin.ID) {
		t.Fatalf("admin toggle on an unclaimed record claims it, got %+v ok=%v", got, ok)
	}
}

func TestAdminDirectAssignment(t *testing.T) {
	// Scenario: the administrator reassigns a record from Mika straight
	// to Noel, regardless of the prior claimant.
	want := model.ClaimFor(noel)
	got, ok := Resolve(admin, model.ClaimFor(mika), &want)
	if !ok {
		t.Fatal("admin assignment should be applied")
	}
	if !got.By(noel.ID) {
		t.Fatalf("owner = %+v, want claim by %s", got, noel.ID)
	}
}

func TestAdminForceRelease(t *testing.T) {
	release := model.Claim{}
	got, ok := Resolve(admin, model.ClaimFor(mika), &release)
	if !ok || got.Claimed() {
		t.Fatalf("explicit zero claim force-releases, got %+v ok=%v", got, ok)
	}
}

func TestNonAdminCannotAssign(t *testing.T) {
	want := model.ClaimFor(noel)
	current := model.ClaimFor(mika)
	got, ok := Resolve(noel, current, &want)
	if ok {
		t.Fatal("non-admin assignment must be rejected")
	}
	if got != current {
		t.Fatalf("rejected assignment must leave the claim unchanged, got %+v", got)
	}
}

func TestClaimExclusivity(t *testing.T) {
	// For every non-admin actor, a record owned by a different member
	// never changes hands on a toggle.
	actors := []model.Member{mika, noel}
	owners := []model.Claim{model.ClaimFor(mika), model.ClaimFor(noel)}
	for _, actor := range actors {
		for _, owner := range owners {
			if owner.By(actor.ID) {
				continue
			}
			got, ok := Resolve(actor, owner, nil)
			if ok || got != owner {
				t.Errorf("actor %s on record owned by %s: got %+v ok=%v, want unchanged no-op",
					actor.ID, owner.MemberID, got, ok)
			}
		}
	}
}
