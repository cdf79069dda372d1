// Package store holds the in-memory authoritative application state.
// Every mutation goes through a named operation on Store so the claim
// and linkage rules are enforced at one seam; nothing else writes
// collection fields directly.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/fernhollow/tripsync/internal/claim"
	"github.com/fernhollow/tripsync/internal/linkage"
	"github.com/fernhollow/tripsync/internal/model"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUnknownMember = errors.New("unknown member")
	ErrLastMember    = errors.New("cannot remove the last member")
	ErrReservedAdmin = errors.New("cannot remove the reserved administrator")
	ErrNotAdmin      = errors.New("administrator privileges required")
)

// CheckList selects one of the two completion maps.
type CheckList string

const (
	CheckDeparture CheckList = "departure"
	CheckReturn    CheckList = "return"
)

// Store is the entity store. Handlers run concurrently, so access is
// serialized with a mutex; each named operation is a single
// read-modify-write with no suspension point inside.
type Store struct {
	mu       sync.RWMutex
	snap     model.Snapshot
	onMutate func()
	now      func() time.Time
}

// New creates a store seeded with the given snapshot.
func New(snap model.Snapshot) *Store {
	normalize(&snap)
	return &Store{snap: snap, now: time.Now}
}

// SetOnMutate registers the hook fired after every applied mutation.
// ReplaceAll deliberately does not fire it: installing a loaded snapshot
// is not a mutation and must not schedule persistence.
func (s *Store) SetOnMutate(fn func()) {
	s.mu.Lock()
	s.onMutate = fn
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// ReplaceAll atomically installs a new snapshot. Callers never observe
// partially-applied state.
func (s *Store) ReplaceAll(snap model.Snapshot) {
	normalize(&snap)
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func normalize(snap *model.Snapshot) {
	if snap.CheckedDeparture == nil {
		snap.CheckedDeparture = make(map[string]bool)
	}
	if snap.CheckedReturn == nil {
		snap.CheckedReturn = make(map[string]bool)
	}
}

// errNoop signals that fn completed without error but changed nothing,
// so LastUpdated stays put and the mutation hook does not fire. Rejected
// claims use it: a no-op must not schedule a remote write.
var errNoop = errors.New("no-op")

// mutate runs fn under the lock; when fn reports an applied change it
// bumps LastUpdated and fires the mutation hook (outside the lock, so
// the hook may read the store).
func (s *Store) mutate(fn func(*model.Snapshot) error) error {
	s.mu.Lock()
	err := fn(&s.snap)
	var hook func()
	if err == nil {
		s.snap.LastUpdated = s.now().UnixMilli()
		hook = s.onMutate
	}
	s.mu.Unlock()
	if err == errNoop {
		return nil
	}
	if hook != nil {
		hook()
	}
	return err
}

// Member returns the roster entry for id.
func (s *Store) Member(id string) (model.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.snap.MemberByID(id)
	if m == nil {
		return model.Member{}, ErrUnknownMember
	}
	return *m, nil
}

// Members returns the roster in insertion order.
func (s *Store) Members() []model.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Member(nil), s.snap.Members...)
}

// UpsertMember inserts or updates a roster entry.
func (s *Store) UpsertMember(m model.Member) error {
	return s.mutate(func(snap *model.Snapshot) error {
		if existing := snap.MemberByID(m.ID); existing != nil {
			// The reserved administrator never loses its flag.
			if m.ID == model.AdminID {
				m.IsAdmin = true
			}
			*existing = m
			return nil
		}
		snap.Members = append(snap.Members, m)
		return nil
	})
}

// RemoveMember deletes a roster entry. The roster is never left empty
// and the reserved administrator record is never deleted. Removing a
// member who still owns items is allowed. It is a user-confirmed
// destructive action, and their claims are released rather than left
// dangling.
func (s *Store) RemoveMember(id string) error {
	if id == model.AdminID {
		return ErrReservedAdmin
	}
	return s.mutate(func(snap *model.Snapshot) error {
		if len(snap.Members) <= 1 {
			return ErrLastMember
		}
		idx := -1
		for i := range snap.Members {
			if snap.Members[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrUnknownMember
		}
		snap.Members = append(snap.Members[:idx], snap.Members[idx+1:]...)

		for i := range snap.Gear {
			if snap.Gear[i].Owner.By(id) {
				snap.Gear[i].Owner = model.Claim{}
			}
		}
		for i := range snap.Ingredients {
			if snap.Ingredients[i].Owner.By(id) {
				release := model.Claim{}
				linkage.PropagateIngredientChange(snap, snap.Ingredients[i].ID, linkage.IngredientChange{Owner: &release})
			}
		}
		for pi := range snap.MealPlans {
			for ei := range snap.MealPlans[pi].Checklist {
				entry := &snap.MealPlans[pi].Checklist[ei]
				if !entry.Linked() && entry.Owner.By(id) {
					entry.Owner = model.Claim{}
				}
			}
		}
		return nil
	})
}

// Gear returns all gear items.
func (s *Store) Gear() []model.GearItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.GearItem(nil), s.snap.Gear...)
}

// AddGear appends gear items.
func (s *Store) AddGear(items ...model.GearItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.mutate(func(snap *model.Snapshot) error {
		snap.Gear = append(snap.Gear, items...)
		return nil
	})
}

// RemoveGear deletes a gear item.
func (s *Store) RemoveGear(id string) error {
	return s.mutate(func(snap *model.Snapshot) error {
		for i := range snap.Gear {
			if snap.Gear[i].ID == id {
				snap.Gear = append(snap.Gear[:i], snap.Gear[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

// ClaimGear applies a claim transition to a shared gear item. A rejected
// toggle returns applied=false with no error; the caller must not treat
// it as a failure.
func (s *Store) ClaimGear(actorID, gearID string, requested *model.Claim) (applied bool, err error) {
	err = s.mutate(func(snap *model.Snapshot) error {
		actor := snap.MemberByID(actorID)
		if actor == nil {
			return ErrUnknownMember
		}
		for i := range snap.Gear {
			item := &snap.Gear[i]
			if item.ID != gearID {
				continue
			}
			// Ownership only exists on shared gear. Individual items
			// track per-person packing via the packed flag instead.
			if item.Group != model.GearShared {
				return errNoop
			}
			next, ok := claim.Resolve(*actor, item.Owner, requested)
			applied = ok
			if !ok {
				return errNoop
			}
			item.Owner = next
			return nil
		}
		return ErrNotFound
	})
	return applied, err
}

// TogglePacked flips the packed flag on an individual gear item.
func (s *Store) TogglePacked(gearID string) error {
	return s.mutate(func(snap *model.Snapshot) error {
		for i := range snap.Gear {
			if snap.Gear[i].ID == gearID {
				snap.Gear[i].Packed = !snap.Gear[i].Packed
				return nil
			}
		}
		return ErrNotFound
	})
}

// Ingredients returns all ingredients.
func (s *Store) Ingredients() []model.Ingredient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Ingredient(nil), s.snap.Ingredients...)
}

// AddIngredients appends ingredients.
func (s *Store) AddIngredients(items ...model.Ingredient) error {
	if len(items) == 0 {
		return nil
	}
	return s.mutate(func(snap *model.Snapshot) error {
		snap.Ingredients = append(snap.Ingredients, items...)
		return nil
	})
}

// UpdateIngredient applies a partial change and propagates it to linked
// checklist entries.
func (s *Store) UpdateIngredient(id string, ch linkage.IngredientChange) error {
	return s.mutate(func(snap *model.Snapshot) error {
		if !linkage.PropagateIngredientChange(snap, id, ch) {
			return ErrNotFound
		}
		return nil
	})
}

// ClaimIngredient applies a claim transition to an ingredient. The
// resolver decides the outcome; the linkage synchronizer then carries an
// applied change onto every linked checklist entry so link coherence
// holds after the claim.
func (s *Store) ClaimIngredient(actorID, ingredientID string, requested *model.Claim) (applied bool, err error) {
	err = s.mutate(func(snap *model.Snapshot) error {
		actor := snap.MemberByID(actorID)
		if actor == nil {
			return ErrUnknownMember
		}
		ing := snap.IngredientByID(ingredientID)
		if ing == nil {
			return ErrNotFound
		}
		next, ok := claim.Resolve(*actor, ing.Owner, requested)
		applied = ok
		if !ok {
			return errNoop
		}
		linkage.PropagateIngredientChange(snap, ingredientID, linkage.IngredientChange{Owner: &next})
		return nil
	})
	return applied, err
}

// ToggleSelected flips planning selection on an unlinked ingredient.
// Linked ingredients are already spoken for and stay out of the pool.
func (s *Store) ToggleSelected(ingredientID string) error {
	return s.mutate(func(snap *model.Snapshot) error {
		ing := snap.IngredientByID(ingredientID)
		if ing == nil {
			return ErrNotFound
		}
		if ing.Linked() {
			return errNoop
		}
		ing.Selected = !ing.Selected
		return nil
	})
}

// RemoveIngredient deletes an ingredient; dependent checklist entries
// survive with their links cleared.
func (s *Store) RemoveIngredient(id string) error {
	return s.mutate(func(snap *model.Snapshot) error {
		if !linkage.RemoveIngredient(snap, id) {
			return ErrNotFound
		}
		return nil
	})
}

// MealPlans returns all meal plans.
func (s *Store) MealPlans() []model.MealPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MealPlan, len(s.snap.MealPlans))
	for i, p := range s.snap.MealPlans {
		cp := p
		cp.Checklist = append([]model.CheckEntry(nil), p.Checklist...)
		cp.Recipe.Steps = append([]string(nil), p.Recipe.Steps...)
		out[i] = cp
	}
	return out
}

// MaterializeDishes installs generated dishes as meal plans, linking or
// creating ingredients per the matching policy. Returns the new plan ids.
func (s *Store) MaterializeDishes(dishes []model.GeneratedDish, dayLabel string, slot model.MealSlot) ([]string, error) {
	var ids []string
	err := s.mutate(func(snap *model.Snapshot) error {
		ids = linkage.Materialize(snap, dishes, dayLabel, slot)
		if len(ids) == 0 {
			return errNoop
		}
		return nil
	})
	return ids, err
}

// AddMealPlan appends a manually created plan.
func (s *Store) AddMealPlan(plan model.MealPlan) error {
	return s.mutate(func(snap *model.Snapshot) error {
		snap.MealPlans = append(snap.MealPlans, plan)
		return nil
	})
}

// RemoveMealPlan deletes a plan and releases its linked ingredients.
func (s *Store) RemoveMealPlan(id string) error {
	return s.mutate(func(snap *model.Snapshot) error {
		if !linkage.RemovePlan(snap, id) {
			return ErrNotFound
		}
		return nil
	})
}

// ClaimEntry applies a claim transition to a checklist entry. For a
// linked entry the authoritative current owner is the ingredient's, and
// the applied result flows back through the ingredient to every entry
// sharing it.
func (s *Store) ClaimEntry(actorID, planID, entryID string, requested *model.Claim) (applied bool, err error) {
	err = s.mutate(func(snap *model.Snapshot) error {
		actor := snap.MemberByID(actorID)
		if actor == nil {
			return ErrUnknownMember
		}
		plan := snap.PlanByID(planID)
		if plan == nil {
			return ErrNotFound
		}
		entry := plan.Entry(entryID)
		if entry == nil {
			return ErrNotFound
		}

		current := entry.Owner
		if entry.Linked() {
			if ing := snap.IngredientByID(entry.SourceIngredientID); ing != nil {
				current = ing.Owner
			}
		}
		next, ok := claim.Resolve(*actor, current, requested)
		applied = ok
		if !ok {
			return errNoop
		}
		linkage.PropagateEntryOwnerChange(snap, planID, entryID, next)
		return nil
	})
	return applied, err
}

// SetEntryDone sets the done flag on a checklist entry. The flag is not
// mirrored anywhere, so no propagation is involved.
func (s *Store) SetEntryDone(planID, entryID string, done bool) error {
	return s.mutate(func(snap *model.Snapshot) error {
		plan := snap.PlanByID(planID)
		if plan == nil {
			return ErrNotFound
		}
		entry := plan.Entry(entryID)
		if entry == nil {
			return ErrNotFound
		}
		entry.Done = done
		return nil
	})
}

// SetEntryQuantity updates an entry's quantity, routing through the
// ingredient when linked.
func (s *Store) SetEntryQuantity(planID, entryID, quantity string) error {
	return s.mutate(func(snap *model.Snapshot) error {
		if !linkage.PropagateEntryQuantityChange(snap, planID, entryID, quantity) {
			return ErrNotFound
		}
		return nil
	})
}

// AddEntry appends a free-standing note entry to a plan's checklist.
func (s *Store) AddEntry(planID string, entry model.CheckEntry) error {
	return s.mutate(func(snap *model.Snapshot) error {
		plan := snap.PlanByID(planID)
		if plan == nil {
			return ErrNotFound
		}
		plan.Checklist = append(plan.Checklist, entry)
		return nil
	})
}

// RemoveEntry deletes a checklist entry, releasing its ingredient link.
func (s *Store) RemoveEntry(planID, entryID string) error {
	return s.mutate(func(snap *model.Snapshot) error {
		if !linkage.RemoveEntry(snap, planID, entryID) {
			return ErrNotFound
		}
		return nil
	})
}

// UpdatePlanInfo updates a plan's descriptive fields.
func (s *Store) UpdatePlanInfo(id string, fn func(*model.MealPlan)) error {
	return s.mutate(func(snap *model.Snapshot) error {
		plan := snap.PlanByID(id)
		if plan == nil {
			return ErrNotFound
		}
		fn(plan)
		return nil
	})
}

// Bills returns all bills.
func (s *Store) Bills() []model.Bill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Bill(nil), s.snap.Bills...)
}

// AddBill appends a bill.
func (s *Store) AddBill(b model.Bill) error {
	return s.mutate(func(snap *model.Snapshot) error {
		snap.Bills = append(snap.Bills, b)
		return nil
	})
}

// RemoveBill deletes a bill.
func (s *Store) RemoveBill(id string) error {
	return s.mutate(func(snap *model.Snapshot) error {
		for i := range snap.Bills {
			if snap.Bills[i].ID == id {
				snap.Bills = append(snap.Bills[:i], snap.Bills[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

// Trip returns the trip metadata.
func (s *Store) Trip() model.TripInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Trip
}

// SetTrip replaces the trip metadata.
func (s *Store) SetTrip(info model.TripInfo) error {
	return s.mutate(func(snap *model.Snapshot) error {
		snap.Trip = info
		return nil
	})
}

// SetCheck sets one completion flag.
func (s *Store) SetCheck(list CheckList, key string, checked bool) error {
	return s.mutate(func(snap *model.Snapshot) error {
		m := snap.CheckedDeparture
		if list == CheckReturn {
			m = snap.CheckedReturn
		}
		if checked {
			m[key] = true
		} else {
			delete(m, key)
		}
		return nil
	})
}

// Checks returns a copy of one completion map.
func (s *Store) Checks(list CheckList) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.snap.CheckedDeparture
	if list == CheckReturn {
		m = s.snap.CheckedReturn
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
