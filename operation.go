package coown

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"
)

// OperationKind identifies the kind of a broker operation.
type OperationKind string

// Operation kinds, named after the broker's operation types.
const (
	PayIn             OperationKind = "PayIn"
	PayOut            OperationKind = "PayOut"
	Buy               OperationKind = "Buy"
	BuyCard           OperationKind = "BuyCard"
	Sell              OperationKind = "Sell"
	Dividend          OperationKind = "Dividend"
	BrokerCommission  OperationKind = "BrokerCommission"
	ServiceCommission OperationKind = "ServiceCommission"
	MarginCommission  OperationKind = "MarginCommission"
	Tax               OperationKind = "Tax"
	TaxBack           OperationKind = "TaxBack"
	TaxDividend       OperationKind = "TaxDividend"
	Unknown           OperationKind = "Unknown"
)

var operationKinds = []OperationKind{
	PayIn, PayOut, Buy, BuyCard, Sell, Dividend, BrokerCommission,
	ServiceCommission, MarginCommission, Tax, TaxBack, TaxDividend, Unknown,
}

// ParseOperationKind parses a broker operation type.
func ParseOperationKind(s string) (OperationKind, error) {
	k := OperationKind(s)
	if slices.Contains(operationKinds, k) {
		return k, nil
	}
	return Unknown, fmt.Errorf("unknown operation kind %q", s)
}

// IsPurchase is true for operations buying lots of an instrument.
func (k OperationKind) IsPurchase() bool { return k == Buy || k == BuyCard }

// IsSale is true for operations selling lots of an instrument.
func (k OperationKind) IsSale() bool { return k == Sell }

// IsTrade is true for purchases and sales. Only trades have shares.
func (k OperationKind) IsTrade() bool { return k.IsPurchase() || k.IsSale() }

// IsDealOperation is true for operations grouped into deals.
func (k OperationKind) IsDealOperation() bool { return k.IsTrade() || k == Dividend }

// IsCapitalFlow is true for operations that change the capital contributed to the account.
func (k OperationKind) IsCapitalFlow() bool {
	switch k {
	case PayIn, PayOut, BrokerCommission, ServiceCommission, MarginCommission:
		return true
	}
	return false
}

// Operation is an immutable trade or cash event of an account.
type Operation struct {
	ID         OperationID
	Account    AccountID
	Kind       OperationKind
	Date       time.Time
	Payment    Money // signed: negative for purchases, positive for sales
	Instrument string
	Quantity   Quantity
	Commission Money // purchases and sales only, never positive
	Deal       DealID
	// DividendTax is the tax withheld on a dividend, never positive.
	DividendTax Money
	MarginCall  bool
}

// Currency returns the currency of the operation payment.
func (op Operation) Currency() string { return op.Payment.Currency() }

// foreignAmount returns the first of commission and dividend tax whose currency
// is not the payment currency. Amounts without a currency match any.
func (op Operation) foreignAmount() (Money, bool) {
	for _, m := range []Money{op.Commission, op.DividendTax} {
		if m.Currency() != "" && m.Currency() != op.Currency() {
			return m, true
		}
	}
	return Money{}, false
}

// Price returns the average price of one lot, always positive.
// It must only be called on trades with a positive quantity.
func (op Operation) Price() Money { return op.Payment.Abs().Div(op.Quantity) }

// Validate checks the kind specific constraints of the operation.
func (op Operation) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	if op.Kind == Unknown {
		return nil
	}
	if err := ValidateCurrency(op.Currency()); err != nil {
		errs = append(errs, err)
	}
	if m, ok := op.foreignAmount(); ok {
		errs = append(errs, fmt.Errorf("amount in %s differs from payment currency %s", m.Currency(), op.Currency()))
	}
	check(!op.Commission.IsPositive(), "commission must be negative or zero, got %s", op.Commission.Decimal())
	check(!op.DividendTax.IsPositive(), "dividend tax must be negative or zero, got %s", op.DividendTax.Decimal())
	switch {
	case op.Kind.IsTrade():
		if op.Kind.IsPurchase() {
			check(op.Payment.IsNegative(), "purchase payment must be negative, got %s", op.Payment.Decimal())
		} else {
			check(op.Payment.IsPositive(), "sale payment must be positive, got %s", op.Payment.Decimal())
		}
		check(op.Instrument != "", "instrument is missing")
		check(op.Quantity.GreaterThan(Q(0)) && op.Quantity.IsWhole(), "quantity must be a positive number of lots, got %s", op.Quantity)
		check(op.DividendTax.IsZero(), "only dividends have a dividend tax")
	case op.Kind == Dividend:
		check(op.Payment.IsPositive(), "dividend payment must be positive, got %s", op.Payment.Decimal())
		check(op.Instrument != "", "instrument is missing")
		check(op.Quantity.IsZero(), "dividend has no quantity")
		check(op.Commission.IsZero(), "dividend has no commission")
	default:
		switch op.Kind {
		case PayIn, TaxBack:
			check(op.Payment.IsPositive(), "%s payment must be positive, got %s", op.Kind, op.Payment.Decimal())
		default:
			check(op.Payment.IsNegative(), "%s payment must be negative, got %s", op.Kind, op.Payment.Decimal())
		}
		check(op.Instrument == "" || op.Kind == TaxDividend || op.Kind == BrokerCommission, "%s has no instrument", op.Kind)
		check(op.Quantity.IsZero(), "%s has no quantity", op.Kind)
		check(op.Commission.IsZero(), "%s has no commission", op.Kind)
		check(op.Deal == "", "%s does not belong to a deal", op.Kind)
		check(op.DividendTax.IsZero(), "only dividends have a dividend tax")
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid %s operation %q: %w", op.Kind, op.ID, err)
	}
	return nil
}

// SortOperations sorts operations by date, keeping the input order for equal dates.
func SortOperations(ops []Operation) {
	slices.SortStableFunc(ops, func(a, b Operation) int { return a.Date.Compare(b.Date) })
}

// byID is used to keep maps iteration deterministic.
func byID[T ~string](a, b T) int { return cmp.Compare(a, b) }
