// Package linkage keeps meal-plan checklist entries consistent with the
// ingredients they were derived from. The link is a foreign key
// (CheckEntry.SourceIngredientID, mirrored by Ingredient.LinkedPlanID)
// and propagation flows one way: the ingredient is the source of truth
// for name, quantity, and owner while the link exists.
package linkage

import "github.com/fernhollow/tripsync/internal/model"

// IngredientChange is a partial update to an ingredient. Nil fields are
// left untouched.
type IngredientChange struct {
	Name     *string
	Quantity *string
	Owner    *model.Claim
}

// PropagateIngredientChange applies the change to the ingredient and then
// to every checklist entry (across all plans) that references it. Returns
// false if the ingredient does not exist.
func PropagateIngredientChange(snap *model.Snapshot, ingredientID string, ch IngredientChange) bool {
	ing := snap.IngredientByID(ingredientID)
	if ing == nil {
		return false
	}
	if ch.Name != nil {
		ing.Name = *ch.Name
	}
	if ch.Quantity != nil {
		ing.Quantity = *ch.Quantity
	}
	if ch.Owner != nil {
		ing.Owner = *ch.Owner
	}

	for pi := range snap.MealPlans {
		plan := &snap.MealPlans[pi]
		for ei := range plan.Checklist {
			entry := &plan.Checklist[ei]
			if entry.SourceIngredientID != ingredientID {
				continue
			}
			entry.Name = ing.Name
			entry.Quantity = ing.Quantity
			entry.Owner = ing.Owner
		}
	}
	return true
}

// PropagateEntryOwnerChange sets the owner of one checklist entry. A
// linked entry delegates to the ingredient side, so the change flows back
// to every entry sharing that ingredient, including entries in other
// plans, which the link-cardinality rule says should not exist but which
// the synchronizer handles anyway. An unlinked entry is mutated directly.
func PropagateEntryOwnerChange(snap *model.Snapshot, planID, entryID string, owner model.Claim) bool {
	plan := snap.PlanByID(planID)
	if plan == nil {
		return false
	}
	entry := plan.Entry(entryID)
	if entry == nil {
		return false
	}
	if entry.Linked() && snap.IngredientByID(entry.SourceIngredientID) != nil {
		return PropagateIngredientChange(snap, entry.SourceIngredientID, IngredientChange{Owner: &owner})
	}
	entry.Owner = owner
	return true
}

// PropagateEntryQuantityChange sets the quantity of one checklist entry,
// routing through the ingredient when the entry is linked.
func PropagateEntryQuantityChange(snap *model.Snapshot, planID, entryID, quantity string) bool {
	plan := snap.PlanByID(planID)
	if plan == nil {
		return false
	}
	entry := plan.Entry(entryID)
	if entry == nil {
		return false
	}
	if entry.Linked() && snap.IngredientByID(entry.SourceIngredientID) != nil {
		return PropagateIngredientChange(snap, entry.SourceIngredientID, IngredientChange{Quantity: &quantity})
	}
	entry.Quantity = quantity
	return true
}

// RemoveIngredient deletes an ingredient. Checklist entries that
// referenced it survive as free-standing notes: their link and owner are
// cleared, nothing is deleted on the plan side.
func RemoveIngredient(snap *model.Snapshot, ingredientID string) bool {
	idx := -1
	for i := range snap.Ingredients {
		if snap.Ingredients[i].ID == ingredientID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	snap.Ingredients = append(snap.Ingredients[:idx], snap.Ingredients[idx+1:]...)

	for pi := range snap.MealPlans {
		plan := &snap.MealPlans[pi]
		for ei := range plan.Checklist {
			entry := &plan.Checklist[ei]
			if entry.SourceIngredientID == ingredientID {
				entry.SourceIngredientID = ""
				entry.Owner = model.Claim{}
			}
		}
	}
	return true
}

// RemovePlan deletes a meal plan and releases every ingredient it had
// linked. The ingredients survive and become available for planning again.
func RemovePlan(snap *model.Snapshot, planID string) bool {
	idx := -1
	for i := range snap.MealPlans {
		if snap.MealPlans[i].ID == planID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	snap.MealPlans = append(snap.MealPlans[:idx], snap.MealPlans[idx+1:]...)

	for i := range snap.Ingredients {
		if snap.Ingredients[i].LinkedPlanID == planID {
			snap.Ingredients[i].LinkedPlanID = ""
		}
	}
	return true
}

// RemoveEntry deletes a single checklist entry. If the entry was linked,
// the ingredient survives with its link released.
func RemoveEntry(snap *model.Snapshot, planID, entryID string) bool {
	plan := snap.PlanByID(planID)
	if plan == nil {
		return false
	}
	idx := -1
	for i := range plan.Checklist {
		if plan.Checklist[i].ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	entry := plan.Checklist[idx]
	plan.Checklist = append(plan.Checklist[:idx], plan.Checklist[idx+1:]...)

	if entry.Linked() {
		if ing := snap.IngredientByID(entry.SourceIngredientID); ing != nil {
			ing.LinkedPlanID = ""
		}
	}
	return true
}
