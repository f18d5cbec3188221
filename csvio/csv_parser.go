// Package csvio reads and writes the catalog and meal-results CSV files.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/aguxez/nutricalc/models"
)

var ErrHeader = errors.New("invalid header")

// ParseError reports the line and column of a malformed value.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFoods reads a catalog CSV. The whole input is validated before
// anything is returned, so callers can merge all rows or none.
func ParseFoods(r io.Reader) ([]models.Food, error) {
	cr := newReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	labels, ok := matchHeader(header, Labels.FoodHeader)
	if !ok {
		return nil, fmt.Errorf("%w: expected %v, got %v", ErrHeader, English.FoodHeader(), header)
	}
	cols := labels.FoodHeader()

	var foods []models.Food
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if len(record) != len(cols) {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("expected %d fields, got %d", len(cols), len(record))}
		}
		if record[0] == "" {
			return nil, &ParseError{Line: line, Column: cols[0], Err: models.ErrEmptyName}
		}
		if models.IsReservedName(record[0]) {
			return nil, &ParseError{Line: line, Column: cols[0], Err: fmt.Errorf("%q: %w", record[0], models.ErrReservedName)}
		}

		values, err := parseFloats(line, cols[1:], record[1:])
		if err != nil {
			return nil, err
		}
		foods = append(foods, models.Food{Name: record[0], Profile: profileOf(values)})
	}

	return foods, nil
}

// ParseMealResults reads a meal-results CSV. Rows named with the total marker
// of any label set are returned with models.TotalMarker as their food name. A header without the note column is accepted.
func ParseMealResults(r io.Reader) ([]models.MealLineItem, error) {
	cr := newReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	labels, ok := matchHeader(header, Labels.MealHeader)
	if !ok {
		labels, ok = matchHeader(header, Labels.legacyMealHeader)
	}
	if !ok {
		return nil, fmt.Errorf("%w: expected %v, got %v", ErrHeader, English.MealHeader(), header)
	}
	cols := labels.MealHeader()[:len(header)]
	hasNote := len(cols) == len(labels.MealHeader())

	var items []models.MealLineItem
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if len(record) != len(cols) {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("expected %d fields, got %d", len(cols), len(record))}
		}
		if record[0] == "" {
			return nil, &ParseError{Line: line, Column: cols[0], Err: models.ErrEmptyName}
		}

		values, err := parseFloats(line, cols[1:7], record[1:7])
		if err != nil {
			return nil, err
		}
		it := models.MealLineItem{
			FoodName:  record[0],
			WeightG:   values[0],
			Nutrients: profileOf(values[1:]),
		}
		if models.IsReservedName(it.FoodName) {
			it.FoodName = models.TotalMarker
		}
		if hasNote {
			it.Note = record[7]
		}
		items = append(items, it)
	}

	return items, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(unicode.UTF8BOM.NewDecoder().Reader(r))
	cr.FieldsPerRecord = -1
	return cr
}

func matchHeader(header []string, expected func(Labels) []string) (Labels, bool) {
	trimmed := make([]string, len(header))
	for i, h := range header {
		trimmed[i] = strings.TrimSpace(h)
	}
	for _, l := range knownLabels {
		if slices.Equal(trimmed, expected(l)) {
			return l, true
		}
	}
	return Labels{}, false
}

// parseFloats parses non-negative finite numbers, one per column.
func parseFloats(line int, cols, fields []string) ([]float64, error) {
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, &ParseError{Line: line, Column: cols[i], Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, &ParseError{Line: line, Column: cols[i], Err: fmt.Errorf("value %q must be finite and non-negative", f)}
		}
		values[i] = v
	}
	return values, nil
}

func profileOf(v []float64) models.NutrientProfile {
	return models.NutrientProfile{
		Energy:       v[0],
		Protein:      v[1],
		Fat:          v[2],
		Carbohydrate: v[3],
		Salt:         v[4],
	}
}
