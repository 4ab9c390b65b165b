package enums

import "fmt"

// Unit is the fixed vocabulary a product is sold in. Piece-denominated
// products only accept whole-number quantities.
type Unit string

const (
	UnitKg     Unit = "kg"
	UnitGram   Unit = "gram"
	UnitPiece  Unit = "piece"
	UnitDozen  Unit = "dozen"
	UnitBundle Unit = "bundle"
	UnitBox    Unit = "box"
	UnitLitre  Unit = "litre"
)

var validUnits = []Unit{
	UnitKg,
	UnitGram,
	UnitPiece,
	UnitDozen,
	UnitBundle,
	UnitBox,
	UnitLitre,
}

// String implements fmt.Stringer.
func (u Unit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known Unit.
func (u Unit) IsValid() bool {
	for _, candidate := range validUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// RequiresWholeQuantity reports whether order quantities in this unit must be integers.
func (u Unit) RequiresWholeQuantity() bool {
	return u == UnitPiece
}

// ParseUnit converts raw input into a Unit.
func ParseUnit(value string) (Unit, error) {
	for _, candidate := range validUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit %q", value)
}
