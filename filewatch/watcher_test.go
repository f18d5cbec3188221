package filewatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aguxez/nutricalc/logging"
	"github.com/aguxez/nutricalc/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	foodsCSV = "Food name,Energy (kcal),Protein (g),Fat (g),Carbohydrate (g),Salt equivalent (g)\n" +
		"Rice,168,2.5,0.3,37.1,0\n"
	mealCSV = "Food name,Weight (g),Energy (kcal),Protein (g),Fat (g),Carbohydrate (g),Salt equivalent (g),Note\n" +
		"Rice,100,168,2.5,0.3,37.1,0,\n" +
		"Total,100,168,2.5,0.3,37.1,0,\n"
)

func newTestWatcher(t *testing.T) (*FileWatcher, *models.StateManager, string, string) {
	t.Helper()
	root := t.TempDir()
	foods := filepath.Join(root, "foods")
	meals := filepath.Join(root, "meals")

	sm := models.NewStateManager()
	fw, err := NewFileWatcher(foods, meals, sm, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fw.Close() })
	return fw, sm, foods, meals
}

func TestLoadAll(t *testing.T) {
	fw, sm, foods, meals := newTestWatcher(t)
	require.NoError(t, os.WriteFile(filepath.Join(foods, "a.csv"), []byte(foodsCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(meals, "lunch.csv"), []byte(mealCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(meals, "notes.txt"), []byte("ignored"), 0o600))

	changes := 0
	fw.OnChange = func() { changes++ }
	require.NoError(t, fw.LoadAll())

	assert.Equal(t, 2, changes)
	require.Len(t, sm.Foods(), 1)
	items := sm.MealItems()
	require.Len(t, items, 1)
	assert.Equal(t, "Rice", items[0].FoodName)
}

func TestHandleFileChangeRejectsMalformedFile(t *testing.T) {
	fw, sm, foods, _ := newTestWatcher(t)
	bad := filepath.Join(foods, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte(foodsCSV+"Bread,abc,1,1,1,1\n"), 0o600))

	require.Error(t, fw.HandleFileChange(bad))
	assert.Empty(t, sm.Foods(), "no rows merged from a bad file")
}

func TestHandleFileChangeIgnoresOtherDirectories(t *testing.T) {
	fw, sm, _, _ := newTestWatcher(t)
	other := filepath.Join(t.TempDir(), "x.csv")
	require.NoError(t, os.WriteFile(other, []byte(foodsCSV), 0o600))

	require.NoError(t, fw.HandleFileChange(other))
	assert.Empty(t, sm.Foods())
}

func TestWatchMergesWrittenFiles(t *testing.T) {
	fw, sm, foods, _ := newTestWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		fw.Watch(ctx)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(foods, "new.csv"), []byte(foodsCSV), 0o600))
	require.Eventually(t, func() bool {
		return len(sm.Foods()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

const (
	legacyMealHeader = "Food name,Weight (g),Energy (kcal),Protein (g),Fat (g),Carbohydrate (g),Salt equivalent (g)\n"
	riceRow          = "Rice,100,168,2.5,0.3,37.1,0\n"
	misoPartial      = "Miso,20,40,2.6,1.2,4.2,2"
	misoComplete     = "Miso,20,40,2.6,1.2,4.2,2.5\n"
)

func TestHandleFileChangeReplacesHalfWrittenRows(t *testing.T) {
	fw, sm, _, meals := newTestWatcher(t)
	path := filepath.Join(meals, "dinner.csv")

	require.NoError(t, os.WriteFile(path, []byte(legacyMealHeader+riceRow+misoPartial), 0o600))
	require.NoError(t, fw.HandleFileChange(path))
	require.Len(t, sm.MealItems(), 2)

	require.NoError(t, os.WriteFile(path, []byte(legacyMealHeader+riceRow+misoComplete), 0o600))
	require.NoError(t, fw.HandleFileChange(path))

	items := sm.MealItems()
	require.Len(t, items, 2)
	assert.Equal(t, "Rice", items[0].FoodName)
	assert.Equal(t, "Miso", items[1].FoodName)
	assert.InDelta(t, 2.5, items[1].Nutrients.Salt, 1e-9)
}

func TestHandleFileChangeKeepsRowsSharedWithOtherFiles(t *testing.T) {
	fw, sm, _, meals := newTestWatcher(t)
	lunch := filepath.Join(meals, "lunch.csv")
	dinner := filepath.Join(meals, "dinner.csv")

	require.NoError(t, os.WriteFile(lunch, []byte(legacyMealHeader+riceRow), 0o600))
	require.NoError(t, os.WriteFile(dinner, []byte(legacyMealHeader+riceRow+misoComplete), 0o600))
	require.NoError(t, fw.LoadAll())
	require.Len(t, sm.MealItems(), 2)

	require.NoError(t, os.WriteFile(dinner, []byte(legacyMealHeader+misoComplete), 0o600))
	require.NoError(t, fw.HandleFileChange(dinner))

	items := sm.MealItems()
	require.Len(t, items, 2, "rice is still provided by lunch.csv")
	assert.Equal(t, "Rice", items[0].FoodName)
}

func TestHandleFileChangeReplacesFoodRows(t *testing.T) {
	fw, sm, foods, _ := newTestWatcher(t)
	path := filepath.Join(foods, "base.csv")
	header := "Food name,Energy (kcal),Protein (g),Fat (g),Carbohydrate (g),Salt equivalent (g)\n"

	require.NoError(t, os.WriteFile(path, []byte(header+"Miso,182,13.1,5.5,21.1,1"), 0o600))
	require.NoError(t, fw.HandleFileChange(path))
	require.NoError(t, os.WriteFile(path, []byte(header+"Miso,182,13.1,5.5,21.1,12.5\n"), 0o600))
	require.NoError(t, fw.HandleFileChange(path))

	require.Len(t, sm.Foods(), 1)
	got, err := sm.LookupFood("Miso")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, got.Salt, 1e-9)
}

func TestWatchSettlesBurstOfWrites(t *testing.T) {
	fw, sm, _, meals := newTestWatcher(t)
	fw.settle = 100 * time.Millisecond
	merges := make(chan struct{}, 8)
	fw.OnChange = func() {
		select {
		case merges <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		fw.Watch(ctx)
	}()

	path := filepath.Join(meals, "dinner.csv")
	require.NoError(t, os.WriteFile(path, []byte(legacyMealHeader+riceRow+misoPartial), 0o600))
	require.NoError(t, os.WriteFile(path, []byte(legacyMealHeader+riceRow+misoComplete), 0o600))

	require.Eventually(t, func() bool {
		items := sm.MealItems()
		return len(items) == 2 && items[1].Nutrients.Salt == 2.5
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	<-done
	assert.NotEmpty(t, merges)
}
