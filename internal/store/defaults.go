package store

import (
	"fmt"

	"github.com/fernhollow/tripsync/internal/model"
)

// DefaultSnapshot is the fixed state a freshly pointed remote store gets:
// template gear and pantry staples plus the reserved administrator. The
// loader installs it verbatim whenever the remote reports empty, so a new
// trip never shows stale data from a previous session.
func DefaultSnapshot() model.Snapshot {
	return model.Snapshot{
		Members:     []model.Member{DefaultAdmin()},
		Gear:        defaultGear(),
		Ingredients: defaultIngredients(),
		Trip: model.TripInfo{
			Title:    "Group Trip",
			Date:     "TBD",
			Location: "TBD",
		},
		CheckedDeparture: map[string]bool{},
		CheckedReturn:    map[string]bool{},
	}
}

// DefaultAdmin is the reserved administrator record. Loaded snapshots
// that predate the reserved id get it prepended during roster migration.
func DefaultAdmin() model.Member {
	return model.Member{ID: model.AdminID, Name: "Trip Admin", Avatar: "🦝", IsAdmin: true, Headcount: 1}
}

func defaultGear() []model.GearItem {
	shared := []struct {
		name      string
		mandatory bool
	}{
		{"Tent", true},
		{"Tarp", true},
		{"Stakes & mallet", true},
		{"Camp stove", true},
		{"Gas canisters", true},
		{"Cooler", true},
		{"Cook set", false},
		{"Cutting board & knife", false},
		{"Main lantern", true},
		{"Extension cord", false},
		{"Folding table", false},
		{"Water jug", true},
		{"First aid kit", true},
		{"Trash bags", false},
	}
	individual := []string{
		"Sleeping bag",
		"Sleeping pad",
		"Pillow",
		"Headlamp",
		"Change of clothes",
		"Toiletries",
		"Towel",
		"Rain jacket",
		"Camp chair",
		"Personal meds",
	}

	items := make([]model.GearItem, 0, len(shared)+len(individual))
	for i, g := range shared {
		items = append(items, model.GearItem{
			ID:        defaultID("gear-shared", i),
			Name:      g.name,
			Group:     model.GearShared,
			Mandatory: g.mandatory,
		})
	}
	for i, name := range individual {
		items = append(items, model.GearItem{
			ID:    defaultID("gear-ind", i),
			Name:  name,
			Group: model.GearIndividual,
		})
	}
	return items
}

func defaultIngredients() []model.Ingredient {
	staples := []string{
		"Rice",
		"Cooking oil",
		"Salt",
		"Soy sauce",
		"Black pepper",
		"Sugar",
		"Drinking water",
		"Eggs",
		"Bread",
		"Coffee",
	}
	items := make([]model.Ingredient, 0, len(staples))
	for i, name := range staples {
		items = append(items, model.Ingredient{
			ID:   defaultID("ing", i),
			Name: name,
		})
	}
	return items
}

// defaultID builds stable ids for template records so repeated resets
// produce identical snapshots.
func defaultID(prefix string, i int) string {
	return fmt.Sprintf("%s-%02d", prefix, i)
}
