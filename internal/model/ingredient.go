package model

// Ingredient is a kitchen inventory line. A zero Owner means "needs to
// be purchased". LinkedPlanID is set while a meal plan's checklist
// references the ingredient; while linked, the ingredient is the source
// of truth for name, quantity, and owner on its checklist entries.
type Ingredient struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Quantity     string `json:"quantity,omitempty"`
	Selected     bool   `json:"selected"`
	LinkedPlanID string `json:"linkedPlanId,omitempty"`
	Owner        Claim  `json:"owner"`
}

// Linked reports whether the ingredient is referenced by a meal plan.
func (i Ingredient) Linked() bool {
	return i.LinkedPlanID != ""
}
