package linkage

import (
	"strings"

	"github.com/google/uuid"

	"github.com/fernhollow/tripsync/internal/model"
)

// Materialize turns generated dishes into meal plans with linked
// ingredients and checklist entries. Each shopping line is matched
// against the currently-selected, unlinked ingredients: exact name first,
// then substring containment in either direction. Matching is greedy,
// first match wins in list order, and each ingredient satisfies at most
// one line, a known non-optimal policy kept from the product. A matched
// ingredient's owner and quantity are carried onto the entry; an
// unmatched line creates a fresh unowned ingredient linked to the plan.
//
// Selected ingredients that no dish claimed are prepended to the first plan's
// checklist so nothing prepared in the kitchen gets dropped. All selected
// ingredients come out deselected.
//
// Returns the ids of the created plans, newest first, matching their
// position in snap.MealPlans.
func Materialize(snap *model.Snapshot, dishes []model.GeneratedDish, dayLabel string, slot model.MealSlot) []string {
	if len(dishes) == 0 {
		return nil
	}

	type candidate struct {
		id       string
		consumed bool
	}
	var candidates []candidate
	for i := range snap.Ingredients {
		ing := &snap.Ingredients[i]
		if ing.Selected && !ing.Linked() {
			candidates = append(candidates, candidate{id: ing.ID})
		}
	}

	match := func(name string) *model.Ingredient {
		for i := range candidates {
			c := &candidates[i]
			if c.consumed {
				continue
			}
			if ing := snap.IngredientByID(c.id); ing != nil && ing.Name == name {
				c.consumed = true
				return ing
			}
		}
		for i := range candidates {
			c := &candidates[i]
			if c.consumed {
				continue
			}
			ing := snap.IngredientByID(c.id)
			if ing == nil {
				continue
			}
			if strings.Contains(ing.Name, name) || strings.Contains(name, ing.Name) {
				c.consumed = true
				return ing
			}
		}
		return nil
	}

	var newPlans []model.MealPlan
	var newIngredients []model.Ingredient

	for _, dish := range dishes {
		planID := uuid.NewString()
		var checklist []model.CheckEntry

		for _, line := range dish.ShoppingList {
			qty := line.Buy
			if qty == "" || qty == "0" {
				qty = line.Need
			}

			if ing := match(line.Name); ing != nil {
				if ing.Quantity != "" {
					qty = ing.Quantity
				}
				ing.LinkedPlanID = planID
				checklist = append(checklist, model.CheckEntry{
					ID:                 uuid.NewString(),
					Name:               line.Name,
					Quantity:           qty,
					Owner:              ing.Owner,
					SourceIngredientID: ing.ID,
				})
				continue
			}

			fresh := model.Ingredient{
				ID:           uuid.NewString(),
				Name:         line.Name,
				Quantity:     qty,
				LinkedPlanID: planID,
			}
			newIngredients = append(newIngredients, fresh)
			checklist = append(checklist, model.CheckEntry{
				ID:                 uuid.NewString(),
				Name:               line.Name,
				Quantity:           qty,
				SourceIngredientID: fresh.ID,
			})
		}

		newPlans = append(newPlans, model.MealPlan{
			ID:        planID,
			DayLabel:  dayLabel,
			Slot:      slot,
			Name:      dish.Name,
			Rationale: dish.Rationale,
			Checklist: checklist,
			Recipe:    dish.Recipe,
		})
	}

	// Leftover selected ingredients land on the first plan's checklist.
	first := &newPlans[0]
	var leftovers []model.CheckEntry
	for i := range candidates {
		c := &candidates[i]
		if c.consumed {
			continue
		}
		ing := snap.IngredientByID(c.id)
		if ing == nil {
			continue
		}
		ing.LinkedPlanID = first.ID
		leftovers = append(leftovers, model.CheckEntry{
			ID:                 uuid.NewString(),
			Name:               ing.Name,
			Quantity:           ing.Quantity,
			Owner:              ing.Owner,
			SourceIngredientID: ing.ID,
		})
	}
	first.Checklist = append(leftovers, first.Checklist...)

	for i := range snap.Ingredients {
		snap.Ingredients[i].Selected = false
	}
	snap.Ingredients = append(snap.Ingredients, newIngredients...)
	snap.MealPlans = append(newPlans, snap.MealPlans...)

	ids := make([]string, len(newPlans))
	for i, p := range newPlans {
		ids[i] = p.ID
	}
	return ids
}
