package report

import "github.com/shopspring/decimal"

// Money is a decimal amount rendered with two decimals.
// It marshals to a bare JSON number, e.g. 600.00.
type Money struct {
	decimal.Decimal
}

// M wraps d.
func M(d decimal.Decimal) Money {
	return Money{d}
}

// String returns the amount with two decimals.
func (m Money) String() string {
	return m.StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

var hundred = decimal.NewFromInt(100)

// percent returns part/whole×100 rounded to two places, or 0 when whole is 0.
func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(2)
}
