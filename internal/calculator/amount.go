package calculator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountResult is the outcome of ParseAmount. Invalid input yields Value 0
// with Valid false and a Warning describing what was rejected.
type AmountResult struct {
	Value   float64
	Valid   bool
	Warning string
}

// ParseAmount parses a monetary or percent input and rounds it to two
// decimals. Empty or malformed input defaults to zero.
func ParseAmount(raw string) AmountResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AmountResult{Warning: "empty amount defaulted to 0"}
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return AmountResult{Warning: fmt.Sprintf("invalid amount %q defaulted to 0", raw)}
	}

	value, _ := d.Round(2).Float64()
	return AmountResult{Value: value, Valid: true}
}
