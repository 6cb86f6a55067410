package compare

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseNumber coerces user input to a non-negative number. Anything that
// does not parse, and any negative, NaN or infinite value, becomes 0.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return sanitize(v)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Number is a float64 that decodes leniently from JSON: numbers, numeric
// strings, empty strings, null and garbage are all accepted, with the
// unusable ones coerced to 0.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = Number(sanitize(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*n = Number(ParseNumber(s))
		return nil
	}
	*n = 0
	return nil
}

// Float returns the value as float64.
func (n Number) Float() float64 {
	return float64(n)
}
