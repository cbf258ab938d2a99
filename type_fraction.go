package coown

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ShareEpsilon is the tolerance used when checking that fractions sum to one.
var ShareEpsilon = decimal.New(1, -9)

// Fraction is an ownership fraction, normally in [0,1].
type Fraction struct {
	value decimal.Decimal
}

// F returns a Fraction.
func F[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Fraction {
	return Fraction{value: newDecimal(value)}
}

// One is the whole.
var One = Fraction{value: decimal.NewFromInt(1)}

// ParseFraction parses a decimal string like "0.625".
func ParseFraction(s string) (Fraction, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Fraction{}, fmt.Errorf("invalid fraction %q: %w", s, err)
	}
	return Fraction{value: d}, nil
}

func (f Fraction) Add(g Fraction) Fraction       { return Fraction{value: f.value.Add(g.value)} }
func (f Fraction) Sub(g Fraction) Fraction       { return Fraction{value: f.value.Sub(g.value)} }
func (f Fraction) Mul(g Fraction) Fraction       { return Fraction{value: f.value.Mul(g.value)} }
func (f Fraction) Equal(g Fraction) bool         { return f.value.Equal(g.value) }
func (f Fraction) LessThan(g Fraction) bool      { return f.value.LessThan(g.value) }
func (f Fraction) GreaterThan(g Fraction) bool   { return f.value.GreaterThan(g.value) }
func (f Fraction) IsZero() bool                  { return f.value.IsZero() }
func (f Fraction) IsPositive() bool              { return f.value.IsPositive() }
func (f Fraction) IsNegative() bool              { return f.value.IsNegative() }
func (f Fraction) Decimal() decimal.Decimal      { return f.value }
func (f Fraction) String() string                { return f.value.String() }
func (f Fraction) InRange() bool                 { return !f.value.IsNegative() && !f.GreaterThan(One) }
func (f Fraction) Inverse() Fraction             { return Fraction{value: decimal.NewFromInt(1).Div(f.value)} }
func (f Fraction) ApproxEqual(g Fraction) bool   { return f.value.Sub(g.value).Abs().LessThan(ShareEpsilon) }
func (f Fraction) Percent() string               { return f.value.Shift(2).StringFixed(2) + "%" }
func (f Fraction) MarshalJSON() ([]byte, error)  { return f.value.MarshalJSON() }
func (f *Fraction) UnmarshalJSON(b []byte) error { return f.value.UnmarshalJSON(b) }
