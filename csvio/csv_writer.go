package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/aguxez/nutricalc/models"
)

// WriteFoods writes the catalog as UTF-8 CSV with a leading BOM.
func WriteFoods(w io.Writer, foods []models.Food, labels Labels) error {
	rows := make([][]string, 0, len(foods))
	for _, f := range foods {
		rows = append(rows, append([]string{f.Name}, profileFields(f.Profile)...))
	}
	return writeAll(w, labels.FoodHeader(), rows)
}

// WriteMealResults writes meal rows as UTF-8 CSV with a leading BOM. Rows
// carrying models.TotalMarker are written with the total marker of labels.
// Callers pass models.RenderWithTotal output so the total row comes last.
func WriteMealResults(w io.Writer, rows []models.MealLineItem, labels Labels) error {
	records := make([][]string, 0, len(rows))
	for _, it := range rows {
		name := it.FoodName
		if models.IsTotal(it) {
			name = labels.Total
		}
		rec := []string{name, formatFloat(it.WeightG)}
		rec = append(rec, profileFields(it.Nutrients)...)
		rec = append(rec, it.Note)
		records = append(records, rec)
	}
	return writeAll(w, labels.MealHeader(), records)
}

func writeAll(w io.Writer, header []string, rows [][]string) (err error) {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	defer func() {
		if cerr := tw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("flushing csv: %w", cerr)
		}
	}()

	cw := csv.NewWriter(tw)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing records: %w", err)
	}
	return nil
}

func profileFields(p models.NutrientProfile) []string {
	return []string{
		formatFloat(p.Energy),
		formatFloat(p.Protein),
		formatFloat(p.Fat),
		formatFloat(p.Carbohydrate),
		formatFloat(p.Salt),
	}
}

// formatFloat uses the shortest representation that parses back to v.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
