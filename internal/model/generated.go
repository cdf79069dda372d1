package model

// ShoppingLine is one item on a generated dish's shopping list. Need,
// Have, and Buy are free-text quantities; Buy == "0" means the pantry
// already covers it.
type ShoppingLine struct {
	Name string `json:"name"`
	Need string `json:"need"`
	Have string `json:"have"`
	Buy  string `json:"buy"`
}

// GeneratedDish is one structured suggestion returned by the
// content-generation collaborator. The linkage synchronizer materializes
// it into a MealPlan plus linked Ingredient/CheckEntry pairs.
type GeneratedDish struct {
	Name         string         `json:"name"`
	Rationale    string         `json:"rationale"`
	ShoppingList []ShoppingLine `json:"shoppingList"`
	Recipe       Recipe         `json:"recipe"`
}
