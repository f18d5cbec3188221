package models

import (
	"fmt"
	"math"
)

// MealLineItem is one food of a meal with its weight, the nutrients scaled to
// that weight and a free-text note.
type MealLineItem struct {
	FoodName  string          `json:"food"`
	WeightG   float64         `json:"weight"`
	Nutrients NutrientProfile `json:"nutrients"`
	Note      string          `json:"note,omitempty"`
}

// NewLineItem scales food to weightG grams. Weights that are not strictly
// positive and finite are rejected.
func NewLineItem(food Food, weightG float64, note string) (MealLineItem, error) {
	if !(weightG > 0) || math.IsInf(weightG, 1) {
		return MealLineItem{}, fmt.Errorf("adding %q at %vg: %w", food.Name, weightG, ErrInvalidWeight)
	}
	return MealLineItem{
		FoodName:  food.Name,
		WeightG:   weightG,
		Nutrients: Scale(food.Profile, weightG),
		Note:      note,
	}, nil
}

// MealLedger is the ordered list of line items making up the current meal.
// Items are never edited in place.
type MealLedger struct {
	items []MealLineItem
}

func NewMealLedger() *MealLedger {
	return &MealLedger{}
}

// Append adds item at the end. The same food may appear any number of times.
func (l *MealLedger) Append(item MealLineItem) {
	l.items = append(l.items, item)
}

// ImportMerge appends externally loaded items, skipping total rows in any
// label set's spelling, and then
// collapses exact-duplicate rows across the whole ledger keeping the first
// occurrence. Importing the same export twice leaves the ledger unchanged.
func (l *MealLedger) ImportMerge(items []MealLineItem) {
	combined := make([]MealLineItem, 0, len(l.items)+len(items))
	combined = append(combined, l.items...)
	for _, it := range items {
		if IsReservedName(it.FoodName) {
			continue
		}
		combined = append(combined, it)
	}
	l.items = dedupe(combined)
}

// Drop removes the given rows from the ledger.
func (l *MealLedger) Drop(items []MealLineItem) {
	l.items = without(l.items, items)
}

// RemoveAt deletes the item at index. The index is checked against the
// current length, so a stale index fails instead of hitting another row.
func (l *MealLedger) RemoveAt(index int) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	return nil
}

// MoveUp swaps the item at index with its predecessor.
func (l *MealLedger) MoveUp(index int) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	if index == 0 {
		return ErrAtTopBoundary
	}
	l.items[index-1], l.items[index] = l.items[index], l.items[index-1]
	return nil
}

// MoveDown swaps the item at index with its successor.
func (l *MealLedger) MoveDown(index int) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	if index == len(l.items)-1 {
		return ErrAtBottomBoundary
	}
	l.items[index], l.items[index+1] = l.items[index+1], l.items[index]
	return nil
}

func (l *MealLedger) Reset() {
	l.items = nil
}

func (l *MealLedger) Len() int { return len(l.items) }

func (l *MealLedger) IsEmpty() bool { return len(l.items) == 0 }

// Items returns a copy of the line items in order.
func (l *MealLedger) Items() []MealLineItem {
	out := make([]MealLineItem, len(l.items))
	copy(out, l.items)
	return out
}

func (l *MealLedger) checkIndex(index int) error {
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("index %d with %d items: %w", index, len(l.items), ErrIndexOutOfRange)
	}
	return nil
}
