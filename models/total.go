package models

// TotalMarker is the food name of the synthetic total row. It never names a
// stored line item.
const TotalMarker = "Total"

// reservedNames lists every spelling of the total row used by the supported
// CSV label sets. None of them may name a food or a stored line item.
var reservedNames = []string{TotalMarker, "合計"}

// IsReservedName reports whether name is written as a total row in some
// label set.
func IsReservedName(name string) bool {
	for _, r := range reservedNames {
		if name == r {
			return true
		}
	}
	return false
}

// ComputeTotal sums weight and nutrients over items. The result is recomputed
// on every call.
func ComputeTotal(items []MealLineItem) MealLineItem {
	total := MealLineItem{FoodName: TotalMarker}
	for _, it := range items {
		total.WeightG += it.WeightG
		total.Nutrients = total.Nutrients.Add(it.Nutrients)
	}
	return total
}

// RenderWithTotal returns the ledger items followed by exactly one total row.
// The ledger itself is not modified.
func RenderWithTotal(l *MealLedger) []MealLineItem {
	items := l.Items()
	return append(items, ComputeTotal(items))
}

// IsTotal reports whether item is a total row.
func IsTotal(item MealLineItem) bool {
	return item.FoodName == TotalMarker
}
