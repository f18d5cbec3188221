package models

import "fmt"

// FoodCatalog is the ordered set of registered foods.
type FoodCatalog struct {
	foods []Food
}

func NewFoodCatalog() *FoodCatalog {
	return &FoodCatalog{}
}

// Register adds a food unless an entry with the same name already exists.
func (c *FoodCatalog) Register(name string, profile NutrientProfile) error {
	if name == "" {
		return ErrEmptyName
	}
	if IsReservedName(name) {
		return fmt.Errorf("registering %q: %w", name, ErrReservedName)
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("registering %q: %w", name, err)
	}
	if c.index(name) >= 0 {
		return fmt.Errorf("registering %q: %w", name, ErrDuplicateName)
	}
	c.foods = append(c.foods, Food{Name: name, Profile: profile})
	return nil
}

// Merge appends foods from an external source and collapses rows that are
// identical in every field. Two rows sharing a name but not their values are
// both kept. Rows with an empty or reserved name are dropped; the number
// dropped is returned.
func (c *FoodCatalog) Merge(foods []Food) int {
	combined := make([]Food, 0, len(c.foods)+len(foods))
	combined = append(combined, c.foods...)
	skipped := 0
	for _, f := range foods {
		if f.Name == "" || IsReservedName(f.Name) {
			skipped++
			continue
		}
		combined = append(combined, f)
	}
	c.foods = dedupe(combined)
	return skipped
}

// Drop removes the given rows from the catalog.
func (c *FoodCatalog) Drop(foods []Food) {
	c.foods = without(c.foods, foods)
}

// Lookup returns the profile of the first entry called name.
func (c *FoodCatalog) Lookup(name string) (NutrientProfile, error) {
	i := c.index(name)
	if i < 0 {
		return NutrientProfile{}, fmt.Errorf("looking up %q: %w", name, ErrNotFound)
	}
	return c.foods[i].Profile, nil
}

// List returns a copy of the catalog in insertion order.
func (c *FoodCatalog) List() []Food {
	out := make([]Food, len(c.foods))
	copy(out, c.foods)
	return out
}

func (c *FoodCatalog) Names() []string {
	names := make([]string, len(c.foods))
	for i, f := range c.foods {
		names[i] = f.Name
	}
	return names
}

func (c *FoodCatalog) Len() int { return len(c.foods) }

func (c *FoodCatalog) IsEmpty() bool { return len(c.foods) == 0 }

func (c *FoodCatalog) index(name string) int {
	for i, f := range c.foods {
		if f.Name == name {
			return i
		}
	}
	return -1
}
