package core

import "math"

// Unit is a purchase quantity unit as entered by the user.
type Unit string

const (
	UnitCount      Unit = "un"
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitLiter      Unit = "l"
	UnitMilliliter Unit = "ml"
)

// IsValidUnit reports whether u is one of the closed unit set.
func IsValidUnit(u Unit) bool {
	switch u {
	case UnitCount, UnitKilogram, UnitGram, UnitLiter, UnitMilliliter:
		return true
	}
	return false
}

// BaseUnit returns the normalized comparison unit: grams collapse to
// kilograms and milliliters to liters, everything else stays as-is.
func BaseUnit(u Unit) Unit {
	switch u {
	case UnitGram:
		return UnitKilogram
	case UnitMilliliter:
		return UnitLiter
	}
	return u
}

// NormalizeQty converts a quantity to its base unit. A non-positive or
// non-finite quantity yields NaN and leaves the unit unnormalized, which
// callers must treat as "no quantity".
func NormalizeQty(qty float64, unit Unit) (float64, Unit) {
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 {
		return math.NaN(), unit
	}
	switch unit {
	case UnitGram, UnitMilliliter:
		return qty / 1000, BaseUnit(unit)
	}
	return qty, unit
}

// CalcUnitPrice derives the price per base unit from a total value, a
// quantity and its unit, rounded to four fractional digits. The result is
// nil (undefined, not zero) when the quantity is non-positive or not
// finite.
func CalcUnitPrice(value Money, qty float64, unit Unit) (*UnitPrice, Unit) {
	qtyBase, base := NormalizeQty(qty, unit)
	if math.IsNaN(qtyBase) {
		return nil, base
	}
	price := float64(value.Cents) / 100 / qtyBase
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, base
	}
	return &UnitPrice{TenThousandths: int64(math.Round(price * 10000))}, base
}
