package csvio

import "fmt"

// Labels is a set of column headings plus the food name used for the total
// row of a meal export.
type Labels struct {
	Code         string
	Name         string
	Weight       string
	Energy       string
	Protein      string
	Fat          string
	Carbohydrate string
	Salt         string
	Note         string
	Total        string
}

var English = Labels{
	Code:         "en",
	Name:         "Food name",
	Weight:       "Weight (g)",
	Energy:       "Energy (kcal)",
	Protein:      "Protein (g)",
	Fat:          "Fat (g)",
	Carbohydrate: "Carbohydrate (g)",
	Salt:         "Salt equivalent (g)",
	Note:         "Note",
	Total:        "Total",
}

// Japanese matches the headings written by the original spreadsheet tool.
var Japanese = Labels{
	Code:         "ja",
	Name:         "食品名",
	Weight:       "重量（g）",
	Energy:       "エネルギー（kcal）",
	Protein:      "たんぱく質（g）",
	Fat:          "脂質（g）",
	Carbohydrate: "炭水化物（g）",
	Salt:         "食塩相当量（g）",
	Note:         "材料の説明",
	Total:        "合計",
}

var knownLabels = []Labels{English, Japanese}

// LabelsFor returns the label set registered under code.
func LabelsFor(code string) (Labels, error) {
	for _, l := range knownLabels {
		if l.Code == code {
			return l, nil
		}
	}
	return Labels{}, fmt.Errorf("unknown csv label set %q", code)
}

func (l Labels) FoodHeader() []string {
	return []string{l.Name, l.Energy, l.Protein, l.Fat, l.Carbohydrate, l.Salt}
}

func (l Labels) MealHeader() []string {
	return []string{l.Name, l.Weight, l.Energy, l.Protein, l.Fat, l.Carbohydrate, l.Salt, l.Note}
}

// legacyMealHeader is the meal header without the note column.
func (l Labels) legacyMealHeader() []string {
	h := l.MealHeader()
	return h[:len(h)-1]
}
