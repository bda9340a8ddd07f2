package enums

import "fmt"

// StockMovementType labels each entry in the stock movement audit trail.
type StockMovementType string

const (
	StockMovementReserve    StockMovementType = "reserve"
	StockMovementRelease    StockMovementType = "release"
	StockMovementRestock    StockMovementType = "restock"
	StockMovementCorrection StockMovementType = "correction"
)

var validStockMovementTypes = []StockMovementType{
	StockMovementReserve,
	StockMovementRelease,
	StockMovementRestock,
	StockMovementCorrection,
}

// String implements fmt.Stringer.
func (s StockMovementType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockMovementType.
func (s StockMovementType) IsValid() bool {
	for _, candidate := range validStockMovementTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockMovementType converts raw input into a StockMovementType.
func ParseStockMovementType(value string) (StockMovementType, error) {
	for _, candidate := range validStockMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement type %q", value)
}
