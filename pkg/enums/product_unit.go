package enums

import "fmt"

// ProductUnit is the measurement unit a product's quantity and price are quoted in.
type ProductUnit string

const (
	ProductUnitKg      ProductUnit = "kg"
	ProductUnitQuintal ProductUnit = "quintal"
	ProductUnitTon     ProductUnit = "ton"
)

var validProductUnits = []ProductUnit{
	ProductUnitKg,
	ProductUnitQuintal,
	ProductUnitTon,
}

// String implements fmt.Stringer.
func (p ProductUnit) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductUnit.
func (p ProductUnit) IsValid() bool {
	for _, candidate := range validProductUnits {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductUnit converts raw input into a ProductUnit.
func ParseProductUnit(value string) (ProductUnit, error) {
	for _, candidate := range validProductUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product unit %q", value)
}
