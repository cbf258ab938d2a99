package coown

import (
	"time"

	"github.com/google/go-cmp/cmp"
)

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// NO is a helper for test to create money from const wit no currency set
func NO(v float64) Money { return M(v, "") }

// day returns the date of a day in January 2024, at noon UTC.
func day(d int) time.Time { return time.Date(2024, time.January, d, 12, 0, 0, 0, time.UTC) }

// cmpMoney compares the decimal types by value. A zero amount matches
// whatever its currency, like a missing amount once decoded.
var cmpMoney = cmp.Options{
	cmp.Comparer(func(a, b Money) bool {
		return a.Decimal().Equal(b.Decimal()) && (a.Currency() == b.Currency() || a.IsZero())
	}),
	cmp.Comparer(func(a, b Quantity) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b Fraction) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
}
