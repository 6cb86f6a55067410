package compare

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
)

// Placeholder is rendered in place of a cell that cannot be computed.
const Placeholder = "-"

// Amount is a monetary cell value. The zero Amount is "not computable",
// which is distinct from a computed 0.00.
type Amount struct {
	value float64
	ok    bool
}

// NotComputable returns the sentinel for a cell with missing usage or rate.
func NotComputable() Amount {
	return Amount{}
}

// AmountOf wraps a computed value.
func AmountOf(v float64) Amount {
	return Amount{value: v, ok: true}
}

// Computable reports whether the cell carries a value.
func (a Amount) Computable() bool {
	return a.ok
}

// Value returns the computed value and whether there is one.
func (a Amount) Value() (float64, bool) {
	return a.value, a.ok
}

// OrZero returns the value, or 0 for a non-computable cell. Column totals
// are built from this.
func (a Amount) OrZero() float64 {
	if !a.ok {
		return 0
	}
	return a.value
}

// String formats the amount to two decimal places, or Placeholder.
func (a Amount) String() string {
	if !a.ok {
		return Placeholder
	}
	return FormatMoney(a.value)
}

// MarshalJSON encodes a non-computable amount as null.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.ok {
		return []byte("null"), nil
	}
	return json.Marshal(a.value)
}

// UnmarshalJSON accepts null or a number.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = NotComputable()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*a = AmountOf(v)
	return nil
}

// FormatMoney renders v with exactly two decimal places.
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}
