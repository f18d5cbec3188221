package models

import (
	"fmt"
	"sync"
)

// StateManager owns the catalog and the meal ledger of one session and runs
// each action to completion before the next one starts.
type StateManager struct {
	mu      sync.RWMutex
	catalog *FoodCatalog
	ledger  *MealLedger
}

func NewStateManager() *StateManager {
	return &StateManager{
		catalog: NewFoodCatalog(),
		ledger:  NewMealLedger(),
	}
}

func (s *StateManager) RegisterFood(name string, profile NutrientProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Register(name, profile)
}

// MergeFoods merges foods into the catalog and returns how many rows were
// dropped for carrying a reserved name.
func (s *StateManager) MergeFoods(foods []Food) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Merge(foods)
}

// ReplaceFoods drops stale rows and merges foods as one action.
func (s *StateManager) ReplaceFoods(stale, foods []Food) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.Drop(stale)
	return s.catalog.Merge(foods)
}

func (s *StateManager) LookupFood(name string) (NutrientProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Lookup(name)
}

func (s *StateManager) Foods() []Food {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.List()
}

// AddToMeal resolves foodName against the current catalog, scales it to
// weightG and appends the result to the meal.
func (s *StateManager) AddToMeal(foodName string, weightG float64, note string) (MealLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.catalog.Lookup(foodName)
	if err != nil {
		return MealLineItem{}, err
	}
	item, err := NewLineItem(Food{Name: foodName, Profile: profile}, weightG, note)
	if err != nil {
		return MealLineItem{}, err
	}
	s.ledger.Append(item)
	return item, nil
}

func (s *StateManager) ImportMeal(items []MealLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.ImportMerge(items)
}

// ReplaceMealImport drops stale rows and import-merges items as one action.
func (s *StateManager) ReplaceMealImport(stale, items []MealLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Drop(stale)
	s.ledger.ImportMerge(items)
}

func (s *StateManager) RemoveMealItem(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.RemoveAt(index); err != nil {
		return fmt.Errorf("removing meal item: %w", err)
	}
	return nil
}

func (s *StateManager) MoveMealItemUp(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.MoveUp(index); err != nil {
		return fmt.Errorf("moving meal item %d up: %w", index, err)
	}
	return nil
}

func (s *StateManager) MoveMealItemDown(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.MoveDown(index); err != nil {
		return fmt.Errorf("moving meal item %d down: %w", index, err)
	}
	return nil
}

func (s *StateManager) ResetMeal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Reset()
}

func (s *StateManager) MealItems() []MealLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Items()
}

// MealWithTotal returns the meal items followed by the freshly computed total.
func (s *StateManager) MealWithTotal() []MealLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RenderWithTotal(s.ledger)
}

// GetCurrentState returns a consistent snapshot of the catalog and the
// rendered meal.
func (s *StateManager) GetCurrentState() ([]Food, []MealLineItem) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.List(), RenderWithTotal(s.ledger)
}
