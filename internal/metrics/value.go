// Package metrics derives rates, loss ratios and averages from a flattened
// export.
package metrics

import (
	"encoding/json"
	"strconv"
)

// Value is a derived metric that may be undefined. The zero Value means
// "no data".
type Value struct {
	V  float64
	OK bool
}

// Some wraps a defined value.
func Some(v float64) Value {
	return Value{V: v, OK: true}
}

// NoData is the undefined value.
func NoData() Value {
	return Value{}
}

// String formats the value like the text report does: integral values
// without decimals, fractional ones with 8, and "n/a" for no data.
func (v Value) String() string {
	if !v.OK {
		return "n/a"
	}
	return FormatNumber(v.V)
}

// MarshalJSON renders no data as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.OK {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = NoData()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// FormatNumber prints integral numbers with no decimals and everything
// else with 8.
func FormatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 8, 64)
}
