package models

import (
	"fmt"
	"math"
)

// NutrientProfile holds the nutrient content of a food, either per 100 g or
// scaled to a given weight.
type NutrientProfile struct {
	Energy       float64 `json:"energy"`       // kcal
	Protein      float64 `json:"protein"`      // g
	Fat          float64 `json:"fat"`          // g
	Carbohydrate float64 `json:"carbohydrate"` // g
	Salt         float64 `json:"salt"`         // g, salt equivalent
}

// Validate reports ErrInvalidProfile when a field is negative, NaN or infinite.
func (p NutrientProfile) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"energy", p.Energy},
		{"protein", p.Protein},
		{"fat", p.Fat},
		{"carbohydrate", p.Carbohydrate},
		{"salt", p.Salt},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%s %v: %w", f.name, f.value, ErrInvalidProfile)
		}
	}
	return nil
}

// Add returns the field-wise sum of p and o.
func (p NutrientProfile) Add(o NutrientProfile) NutrientProfile {
	return NutrientProfile{
		Energy:       p.Energy + o.Energy,
		Protein:      p.Protein + o.Protein,
		Fat:          p.Fat + o.Fat,
		Carbohydrate: p.Carbohydrate + o.Carbohydrate,
		Salt:         p.Salt + o.Salt,
	}
}

// Scale converts a per-100g profile to the amounts contained in weightG grams.
// No rounding is applied.
func Scale(p NutrientProfile, weightG float64) NutrientProfile {
	factor := weightG / 100.0
	return NutrientProfile{
		Energy:       p.Energy * factor,
		Protein:      p.Protein * factor,
		Fat:          p.Fat * factor,
		Carbohydrate: p.Carbohydrate * factor,
		Salt:         p.Salt * factor,
	}
}
