package model

// Snapshot is the complete application state at one instant: the unit of
// both serialization and reconciliation. Collections keep insertion order.
// The two completion maps track the departure and return self-checks,
// keyed "gear-<id>" for gear items and "food-<id>" for ingredients.
type Snapshot struct {
	Gear             []GearItem
	Ingredients      []Ingredient
	MealPlans        []MealPlan
	Bills            []Bill
	Members          []Member
	Trip             TripInfo
	CheckedDeparture map[string]bool
	CheckedReturn    map[string]bool
	LastUpdated      int64 // unix milliseconds of the last mutation
}

// GearCheckKey and FoodCheckKey build completion-map keys.
func GearCheckKey(id string) string { return "gear-" + id }
func FoodCheckKey(id string) string { return "food-" + id }

// MemberByID returns the roster entry with the given id, or nil.
func (s *Snapshot) MemberByID(id string) *Member {
	for i := range s.Members {
		if s.Members[i].ID == id {
			return &s.Members[i]
		}
	}
	return nil
}

// IngredientByID returns the ingredient with the given id, or nil.
func (s *Snapshot) IngredientByID(id string) *Ingredient {
	for i := range s.Ingredients {
		if s.Ingredients[i].ID == id {
			return &s.Ingredients[i]
		}
	}
	return nil
}

// PlanByID returns the meal plan with the given id, or nil.
func (s *Snapshot) PlanByID(id string) *MealPlan {
	for i := range s.MealPlans {
		if s.MealPlans[i].ID == id {
			return &s.MealPlans[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the snapshot. The store hands copies to
// callers so nothing outside it can mutate shared state.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Gear = append([]GearItem(nil), s.Gear...)
	out.Ingredients = append([]Ingredient(nil), s.Ingredients...)
	out.Bills = append([]Bill(nil), s.Bills...)
	out.Members = append([]Member(nil), s.Members...)
	out.MealPlans = make([]MealPlan, len(s.MealPlans))
	for i, p := range s.MealPlans {
		cp := p
		cp.Checklist = append([]CheckEntry(nil), p.Checklist...)
		cp.Recipe.Steps = append([]string(nil), p.Recipe.Steps...)
		out.MealPlans[i] = cp
	}
	out.CheckedDeparture = cloneBoolMap(s.CheckedDeparture)
	out.CheckedReturn = cloneBoolMap(s.CheckedReturn)
	return out
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
