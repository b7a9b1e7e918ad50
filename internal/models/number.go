package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Number decodes a JSON number or a decimal string. Null, empty and
// unparseable values decode as absent instead of failing the whole payload.
type Number struct {
	Value decimal.Decimal
	Valid bool
}

// UnmarshalJSON never returns an error
func (n *Number) UnmarshalJSON(b []byte) error {
	var d decimal.NullDecimal
	if err := d.UnmarshalJSON(b); err != nil {
		*n = Number{}
		return nil
	}
	*n = Number{Value: d.Decimal, Valid: d.Valid}
	return nil
}

// Float64 returns the value, or 0 when absent
func (n Number) Float64() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value.InexactFloat64()
}

// Ptr returns the value, or nil when absent
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	return Float(n.Value.InexactFloat64())
}

// flag decodes a JSON boolean; anything else reads as false
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		v = false
	}
	*f = flag(v)
	return nil
}

// text decodes a JSON string; anything else reads as ""
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		v = ""
	}
	*t = text(v)
	return nil
}
