package model

// MealSlot is which meal of the day a plan covers.
type MealSlot string

const (
	MealBreakfast MealSlot = "breakfast"
	MealLunch     MealSlot = "lunch"
	MealDinner    MealSlot = "dinner"
	MealSnack     MealSlot = "snack"
)

// Recipe holds the cooking instructions attached to a meal plan.
type Recipe struct {
	Steps       []string `json:"steps"`
	SearchQuery string   `json:"searchQuery,omitempty"`
}

// CheckEntry is one row on a meal plan's shopping checklist. When
// SourceIngredientID is set the entry mirrors that ingredient's name,
// quantity, and owner; when empty the entry is a free-standing note.
type CheckEntry struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Quantity           string `json:"quantity,omitempty"`
	Done               bool   `json:"done"`
	Owner              Claim  `json:"owner"`
	SourceIngredientID string `json:"sourceIngredientId,omitempty"`
}

// Linked reports whether the entry mirrors a live ingredient.
func (e CheckEntry) Linked() bool {
	return e.SourceIngredientID != ""
}

type MealPlan struct {
	ID        string       `json:"id"`
	DayLabel  string       `json:"dayLabel"`
	Slot      MealSlot     `json:"mealSlot"`
	Name      string       `json:"name"`
	Rationale string       `json:"rationale,omitempty"`
	Checklist []CheckEntry `json:"checklist"`
	Notes     string       `json:"notes,omitempty"`
	Recipe    Recipe       `json:"recipe"`
}

// Entry returns a pointer to the checklist entry with the given id, or nil.
func (p *MealPlan) Entry(entryID string) *CheckEntry {
	for i := range p.Checklist {
		if p.Checklist[i].ID == entryID {
			return &p.Checklist[i]
		}
	}
	return nil
}
