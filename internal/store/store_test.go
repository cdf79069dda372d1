package store

import (
	"errors"
	"testing"

	"github.com/fernhollow/tripsync/internal/model"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	return New(model.Snapshot{
		Members: []model.Member{
			{ID: model.AdminID, Name: "Trail Boss", Avatar: "🦝", IsAdmin: true, Headcount: 1},
			{ID: "m1", Name: "Mika", Avatar: "🦊", Headcount: 2},
			{ID: "m2", Name: "Noel", Avatar: "🐸", Headcount: 1},
		},
		Gear: []model.GearItem{
			{ID: "g1", Name: "Tent", Group: model.GearShared, Mandatory: true},
			{ID: "g2", Name: "Toothbrush", Group: model.GearIndividual},
		},
		Ingredients: []model.Ingredient{
			{ID: "i-rice", Name: "Rice", Quantity: "2kg"},
			{ID: "i-eggs", Name: "Eggs", Quantity: "12",
				Owner: model.Claim{MemberID: "m1", Name: "Mika", Avatar: "🦊"}, LinkedPlanID: "p1"},
		},
		MealPlans: []model.MealPlan{
			{ID: "p1", DayLabel: "Day 1", Slot: model.MealBreakfast, Name: "Scramble",
				Checklist: []model.CheckEntry{
					{ID: "e1", Name: "Eggs", Quantity: "12",
						Owner: model.Claim{MemberID: "m1", Name: "Mika", Avatar: "🦊"}, SourceIngredientID: "i-eggs"},
				}},
		},
	})
}

func TestClaimIngredientToggle(t *testing.T) {
	// Scenario: Mika claims unclaimed Rice, then claims again to release.
	s := setupStore(t)

	applied, err := s.ClaimIngredient("m1", "i-rice", nil)
	if err != nil || !applied {
		t.Fatalf("claim: applied=%v err=%v", applied, err)
	}
	if got := ingredient(t, s, "i-rice").Owner; !got.By("m1") {
		t.Fatalf("owner = %+v, want m1", got)
	}

	applied, err = s.ClaimIngredient("m1", "i-rice", nil)
	if err != nil || !applied {
		t.Fatalf("release: applied=%v err=%v", applied, err)
	}
	if got := ingredient(t, s, "i-rice").Owner; got.Claimed() {
		t.Fatalf("owner = %+v, want unclaimed", got)
	}
}

func TestClaimIngredientRejectionIsSilent(t *testing.T) {
	s := setupStore(t)
	var notified int
	s.SetOnMutate(func() { notified++ })

	applied, err := s.ClaimIngredient("m2", "i-eggs", nil)
	if err != nil {
		t.Fatalf("rejection must not be an error: %v", err)
	}
	if applied {
		t.Fatal("claiming someone else's ingredient must be rejected")
	}
	if got := ingredient(t, s, "i-eggs").Owner; !got.By("m1") {
		t.Fatalf("owner = %+v, want unchanged", got)
	}
	if notified != 0 {
		t.Errorf("rejected claim scheduled %d persistence notifications", notified)
	}
}

func TestClaimIngredientPropagatesToEntries(t *testing.T) {
	s := setupStore(t)

	// Admin force-releases Eggs; the linked entry follows.
	release := model.Claim{}
	applied, err := s.ClaimIngredient(model.AdminID, "i-eggs", &release)
	if err != nil || !applied {
		t.Fatalf("force release: applied=%v err=%v", applied, err)
	}
	entry := s.MealPlans()[0].Checklist[0]
	if entry.Owner.Claimed() {
		t.Fatalf("entry owner = %+v, want released with ingredient", entry.Owner)
	}
}

func TestClaimEntryUsesIngredientAsAuthority(t *testing.T) {
	s := setupStore(t)

	// Noel toggles the linked entry. The ingredient belongs to Mika, so
	// the toggle is rejected even though the entry copy looks claimable.
	applied, err := s.ClaimEntry("m2", "p1", "e1", nil)
	if err != nil || applied {
		t.Fatalf("applied=%v err=%v, want silent rejection", applied, err)
	}

	// Mika toggles: release flows back through the ingredient.
	applied, err = s.ClaimEntry("m1", "p1", "e1", nil)
	if err != nil || !applied {
		t.Fatalf("applied=%v err=%v", applied, err)
	}
	if got := ingredient(t, s, "i-eggs").Owner; got.Claimed() {
		t.Fatalf("ingredient owner = %+v, want released via entry", got)
	}
}

func TestClaimGearAssignment(t *testing.T) {
	s := setupStore(t)
	want := model.Claim{MemberID: "m2", Name: "Noel", Avatar: "🐸"}

	if _, err := s.ClaimGear("m1", "g1", &want); err != nil {
		t.Fatalf("err = %v", err)
	}
	if got := gear(t, s, "g1").Owner; got.Claimed() {
		t.Fatalf("non-admin assignment applied: %+v", got)
	}

	applied, err := s.ClaimGear(model.AdminID, "g1", &want)
	if err != nil || !applied {
		t.Fatalf("admin assignment: applied=%v err=%v", applied, err)
	}
	if got := gear(t, s, "g1").Owner; !got.By("m2") {
		t.Fatalf("owner = %+v, want m2", got)
	}
}

func TestClaimGearIndividualRejected(t *testing.T) {
	// g2 is individual gear; people pack their own, nobody owns it.
	s := setupStore(t)

	applied, err := s.ClaimGear("m1", "g2", nil)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if applied {
		t.Fatal("claim on individual gear applied")
	}
	if got := gear(t, s, "g2").Owner; got.Claimed() {
		t.Fatalf("owner = %+v, want unclaimed", got)
	}

	// Not even the administrator assigns owners to individual items.
	applied, err = s.ClaimGear(model.AdminID, "g2", &model.Claim{MemberID: "m1", Name: "Mika"})
	if err != nil || applied {
		t.Fatalf("admin assignment: applied=%v err=%v", applied, err)
	}
}

func TestUnknownActor(t *testing.T) {
	s := setupStore(t)
	if _, err := s.ClaimIngredient("ghost", "i-rice", nil); !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("err = %v, want ErrUnknownMember", err)
	}
}

func TestTogglePacked(t *testing.T) {
	s := setupStore(t)
	if err := s.TogglePacked("g2"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !gear(t, s, "g2").Packed {
		t.Error("packed flag not set")
	}
}

func TestToggleSelectedSkipsLinked(t *testing.T) {
	s := setupStore(t)
	if err := s.ToggleSelected("i-eggs"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if ingredient(t, s, "i-eggs").Selected {
		t.Error("linked ingredient must not enter the planning pool")
	}

	if err := s.ToggleSelected("i-rice"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !ingredient(t, s, "i-rice").Selected {
		t.Error("unlinked ingredient should toggle")
	}
}

func TestRemoveMemberReleasesClaims(t *testing.T) {
	s := setupStore(t)
	if err := s.RemoveMember("m1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := ingredient(t, s, "i-eggs").Owner; got.Claimed() {
		t.Errorf("deleted member still owns ingredient: %+v", got)
	}
	if got := s.MealPlans()[0].Checklist[0].Owner; got.Claimed() {
		t.Errorf("deleted member still owns entry: %+v", got)
	}
}

func TestRosterInvariants(t *testing.T) {
	s := setupStore(t)
	if err := s.RemoveMember(model.AdminID); !errors.Is(err, ErrReservedAdmin) {
		t.Fatalf("err = %v, want ErrReservedAdmin", err)
	}

	s2 := New(model.Snapshot{Members: []model.Member{{ID: "solo", Name: "Solo"}}})
	if err := s2.RemoveMember("solo"); !errors.Is(err, ErrLastMember) {
		t.Fatalf("err = %v, want ErrLastMember", err)
	}
}

func TestUpsertMemberKeepsAdminFlag(t *testing.T) {
	s := setupStore(t)
	if err := s.UpsertMember(model.Member{ID: model.AdminID, Name: "Renamed", Avatar: "🦫"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	m, err := s.Member(model.AdminID)
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if !m.IsAdmin {
		t.Error("reserved administrator lost its privileged flag")
	}
	if m.Name != "Renamed" {
		t.Errorf("name = %q", m.Name)
	}
}

func TestReplaceAllDoesNotNotify(t *testing.T) {
	s := setupStore(t)
	var notified int
	s.SetOnMutate(func() { notified++ })

	s.ReplaceAll(DefaultSnapshot())
	if notified != 0 {
		t.Fatalf("ReplaceAll fired %d mutation notifications; loading is not a mutation", notified)
	}

	if err := s.SetTrip(model.TripInfo{Title: "After load"}); err != nil {
		t.Fatalf("set trip: %v", err)
	}
	if notified != 1 {
		t.Fatalf("post-load mutation fired %d notifications, want 1", notified)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := setupStore(t)
	snap := s.Snapshot()
	snap.Ingredients[0].Name = "Tampered"
	snap.MealPlans[0].Checklist[0].Name = "Tampered"
	snap.CheckedDeparture["x"] = true

	if got := ingredient(t, s, "i-rice").Name; got != "Rice" {
		t.Errorf("store ingredient mutated through snapshot copy: %q", got)
	}
	if got := s.MealPlans()[0].Checklist[0].Name; got != "Eggs" {
		t.Errorf("store entry mutated through snapshot copy: %q", got)
	}
	if s.Checks(CheckDeparture)["x"] {
		t.Error("store check map mutated through snapshot copy")
	}
}

func TestMealPlansAreCopies(t *testing.T) {
	s := setupStore(t)
	if err := s.UpdatePlanInfo("p1", func(p *model.MealPlan) {
		p.Recipe.Steps = []string{"Crack eggs", "Scramble"}
	}); err != nil {
		t.Fatalf("update plan: %v", err)
	}

	plans := s.MealPlans()
	plans[0].Checklist[0].Name = "Tampered"
	plans[0].Recipe.Steps[0] = "Tampered"

	fresh := s.MealPlans()
	if got := fresh[0].Checklist[0].Name; got != "Eggs" {
		t.Errorf("store entry mutated through returned copy: %q", got)
	}
	if got := fresh[0].Recipe.Steps[0]; got != "Crack eggs" {
		t.Errorf("store recipe mutated through returned copy: %q", got)
	}
}

func TestChecks(t *testing.T) {
	s := setupStore(t)
	key := model.GearCheckKey("g1")
	if err := s.SetCheck(CheckDeparture, key, true); err != nil {
		t.Fatalf("set check: %v", err)
	}
	if !s.Checks(CheckDeparture)[key] {
		t.Error("departure check not set")
	}
	if s.Checks(CheckReturn)[key] {
		t.Error("return map must be independent")
	}
	if err := s.SetCheck(CheckDeparture, key, false); err != nil {
		t.Fatalf("clear check: %v", err)
	}
	if s.Checks(CheckDeparture)[key] {
		t.Error("departure check not cleared")
	}
}

func TestDefaultSnapshot(t *testing.T) {
	snap := DefaultSnapshot()
	admin := snap.MemberByID(model.AdminID)
	if admin == nil || !admin.IsAdmin {
		t.Fatalf("default roster admin = %+v", admin)
	}
	if len(snap.Gear) == 0 || len(snap.Ingredients) == 0 {
		t.Fatal("default templates missing")
	}
	for _, ing := range snap.Ingredients {
		if ing.Owner.Claimed() || ing.Linked() {
			t.Errorf("template ingredient %s should start unowned and unlinked", ing.Name)
		}
	}

	// Repeated resets produce identical snapshots.
	again := DefaultSnapshot()
	if len(again.Gear) != len(snap.Gear) || again.Gear[0].ID != snap.Gear[0].ID {
		t.Error("default snapshot is not stable across calls")
	}
}

func ingredient(t *testing.T, s *Store, id string) model.Ingredient {
	t.Helper()
	for _, ing := range s.Ingredients() {
		if ing.ID == id {
			return ing
		}
	}
	t.Fatalf("ingredient %s not found", id)
	return model.Ingredient{}
}

func gear(t *testing.T, s *Store, id string) model.GearItem {
	t.Helper()
	for _, g := range s.Gear() {
		if g.ID == id {
			return g
		}
	}
	t.Fatalf("gear %s not found", id)
	return model.GearItem{}
}
