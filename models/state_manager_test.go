package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateManagerAddToMeal(t *testing.T) {
	t.Parallel()

	s := NewStateManager()
	_, err := s.AddToMeal("Rice", 100, "")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.RegisterFood("Rice", rice))
	_, err = s.AddToMeal("Rice", 0, "")
	require.ErrorIs(t, err, ErrInvalidWeight)
	assert.Empty(t, s.MealItems())

	it, err := s.AddToMeal("Rice", 200, "for two")
	require.NoError(t, err)
	assert.Equal(t, "for two", it.Note)
	assert.Equal(t, []MealLineItem{it}, s.MealItems())
}

func TestStateManagerLedgerErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	s := NewStateManager()
	require.NoError(t, s.RegisterFood("Rice", rice))
	_, err := s.AddToMeal("Rice", 100, "")
	require.NoError(t, err)

	require.ErrorIs(t, s.MoveMealItemUp(0), ErrAtTopBoundary)
	require.ErrorIs(t, s.MoveMealItemDown(0), ErrAtBottomBoundary)
	require.ErrorIs(t, s.RemoveMealItem(1), ErrIndexOutOfRange)
	require.NoError(t, s.RemoveMealItem(0))
	assert.Empty(t, s.MealItems())
}

func TestStateManagerReplaceMealImport(t *testing.T) {
	t.Parallel()

	s := NewStateManager()
	partial := item("Miso", 20)
	partial.Nutrients.Salt = 2
	complete := item("Miso", 20)
	complete.Nutrients.Salt = 2.5

	s.ImportMeal([]MealLineItem{item("Rice", 100), partial})
	s.ReplaceMealImport([]MealLineItem{partial}, []MealLineItem{item("Rice", 100), complete})

	assert.Equal(t, []MealLineItem{item("Rice", 100), complete}, s.MealItems())
}

func TestStateManagerReplaceFoods(t *testing.T) {
	t.Parallel()

	s := NewStateManager()
	s.MergeFoods([]Food{{Name: "Rice", Profile: rice}, {Name: "Miso", Profile: NutrientProfile{Salt: 1}}})
	s.ReplaceFoods(
		[]Food{{Name: "Miso", Profile: NutrientProfile{Salt: 1}}},
		[]Food{{Name: "Miso", Profile: NutrientProfile{Salt: 12.5}}},
	)

	got, err := s.LookupFood("Miso")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, got.Salt, 1e-9)
	assert.Len(t, s.Foods(), 2)
}

func TestStateManagerSnapshot(t *testing.T) {
	t.Parallel()

	s := NewStateManager()
	s.MergeFoods([]Food{{Name: "Rice", Profile: rice}})
	s.ImportMeal([]MealLineItem{item("Rice", 100)})

	foods, meal := s.GetCurrentState()
	assert.Equal(t, []Food{{Name: "Rice", Profile: rice}}, foods)
	require.Len(t, meal, 2)
	assert.True(t, IsTotal(meal[1]))

	s.ResetMeal()
	_, meal = s.GetCurrentState()
	assert.Equal(t, []MealLineItem{ComputeTotal(nil)}, meal)
}

func TestStateManagerConcurrentAdds(t *testing.T) {
	t.Parallel()

	s := NewStateManager()
	require.NoError(t, s.RegisterFood("Rice", rice))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddToMeal("Rice", 10, "")
			_ = s.MealWithTotal()
		}()
	}
	wg.Wait()

	assert.Len(t, s.MealItems(), 50)
	assert.InDelta(t, 500.0, ComputeTotal(s.MealItems()).WeightG, 1e-9)
}
