package models

// Food is a catalog entry: a name and its nutrient profile per 100 g.
type Food struct {
	Name    string          `json:"name"`
	Profile NutrientProfile `json:"profile"`
}
