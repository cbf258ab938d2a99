package coown

import "time"

// DealState tells whether a deal still holds lots.
type DealState int

const (
	// Open deals have bought quantity different from sold quantity, or no purchase or no sale yet.
	Open DealState = iota
	// Closed deals sold every lot they bought. A new purchase opens a new deal.
	Closed
)

func (s DealState) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Deal groups the purchases, sales and dividends of one instrument in one account,
// from the first purchase to the sale of the last lot.
type Deal struct {
	ID         DealID
	Account    AccountID
	Instrument string
	Currency   string
	Operations []OperationID
	// Income is the last computed income of each co-owner.
	Income map[CoOwnerID]Money
}

// DealIncome is the income of one co-owner in a deal.
type DealIncome struct {
	CoOwner CoOwnerID `json:"coOwner"`
	Value   Money     `json:"value"`
}

// TradedQuantities sums the lots bought and sold by the operations.
func TradedQuantities(ops []Operation) (bought, sold Quantity) {
	for _, op := range ops {
		switch {
		case op.Kind.IsPurchase():
			bought = bought.Add(op.Quantity)
		case op.Kind.IsSale():
			sold = sold.Add(op.Quantity)
		}
	}
	return bought, sold
}

// DealStateOf returns the state of a deal made of these operations.
func DealStateOf(ops []Operation) DealState {
	bought, sold := TradedQuantities(ops)
	if bought.IsPositive() && sold.IsPositive() && bought.Equal(sold) {
		return Closed
	}
	return Open
}

// OpenedAt returns the date of the first trade of the deal, and false if there is none.
func OpenedAt(ops []Operation) (time.Time, bool) {
	var first time.Time
	found := false
	for _, op := range ops {
		if !op.Kind.IsTrade() {
			continue
		}
		if !found || op.Date.Before(first) {
			first, found = op.Date, true
		}
	}
	return first, found
}
