package coown

import (
	"fmt"
	"maps"
	"slices"
)

// IncomeResult is the full replacement of a deal's income rows.
type IncomeResult struct {
	Deal DealID
	// Rows holds one income per co-owner that bought into the deal, sorted by co-owner.
	Rows []DealIncome
	// Stale lists co-owners that had an income in the deal and no longer have one.
	Stale []CoOwnerID
	State DealState
}

// Apply returns a copy of d whose income is replaced by the result.
func (r IncomeResult) Apply(d Deal) Deal {
	d.Income = make(map[CoOwnerID]Money, len(r.Rows))
	for _, row := range r.Rows {
		d.Income[row.CoOwner] = row.Value
	}
	return d
}

// Total returns the sum of every co-owner income.
func (r IncomeResult) Total() Money {
	var total Money
	for _, row := range r.Rows {
		total = total.Add(row.Value)
	}
	return total
}

// holding is what one co-owner bought into a deal.
type holding struct {
	owned      Quantity // lots
	paid       Money    // positive
	commission Money    // negative or zero
}

// RecomputeDealIncome computes the income of each co-owner in a deal, using a
// weighted average cost per co-owner and the co-owner's part of the lots bought.
//
// For a co-owner c, with r = owned[c] / bought:
//
//	income[c] = (averageBuy[c] + averageSell) * sold * r
//	          + boughtCommission[c] + soldCommission * r + dividends * r
//
// averageSell is the plain mean of each sale's own average price. While the
// deal has no sale, every income is zero.
//
// ops must be every operation of the deal; their order does not matter.
// It fails with ErrInvariantViolation when the deal has no purchase, when an
// operation belongs to another deal or currency, or when a trade has no lots.
func RecomputeDealIncome(deal Deal, ops []Operation, shares ShareLedger) (IncomeResult, error) {
	violation := func(op OperationID, format string, args ...any) error {
		return &InvariantError{Deal: deal.ID, Operation: op, Detail: fmt.Sprintf(format, args...)}
	}

	sorted := slices.Clone(ops)
	SortOperations(sorted)

	currency := deal.Currency
	holdings := make(map[CoOwnerID]*holding)
	var (
		purchases, sales int
		sold             Quantity
		soldCommission   Money
		sellPrices       Money
		dividends        Money
	)
	for _, op := range sorted {
		if op.Deal != deal.ID {
			return IncomeResult{}, violation(op.ID, "operation belongs to deal %q", op.Deal)
		}
		if currency == "" {
			currency = op.Currency()
		} else if op.Currency() != currency {
			return IncomeResult{}, violation(op.ID, "operation currency %s differs from deal currency %s", op.Currency(), currency)
		}
		if m, ok := op.foreignAmount(); ok {
			return IncomeResult{}, violation(op.ID, "amount in %s differs from payment currency %s", m.Currency(), op.Currency())
		}
		if op.Kind.IsTrade() && !op.Quantity.IsPositive() {
			return IncomeResult{}, violation(op.ID, "%s without lots", op.Kind)
		}

		switch {
		case op.Kind.IsPurchase():
			purchases++
			price := op.Price()
			for c, share := range shares[op.ID] {
				h, ok := holdings[c]
				if !ok {
					h = &holding{}
					holdings[c] = h
				}
				part := op.Quantity.MulFraction(share)
				h.owned = h.owned.Add(part)
				h.paid = h.paid.Add(price.Mul(part))
				h.commission = h.commission.Add(op.Commission.Scale(share))
			}
		case op.Kind.IsSale():
			sales++
			sold = sold.Add(op.Quantity)
			soldCommission = soldCommission.Add(op.Commission)
			sellPrices = sellPrices.Add(op.Price())
		case op.Kind == Dividend:
			dividends = dividends.Add(op.Payment.Add(op.DividendTax))
		default:
			return IncomeResult{}, violation(op.ID, "%s operations are not part of deals", op.Kind)
		}
	}
	if purchases == 0 {
		return IncomeResult{}, violation("", "deal has no purchase")
	}

	var bought Quantity
	for _, h := range holdings {
		bought = bought.Add(h.owned)
	}
	if !bought.IsPositive() {
		return IncomeResult{}, violation("", "no co-owner holds a share of the purchases")
	}

	var averageSell Money
	if sales > 0 {
		averageSell = sellPrices.Div(Q(sales))
	}

	res := IncomeResult{Deal: deal.ID, State: DealStateOf(sorted)}
	present := make(map[CoOwnerID]bool)
	for _, c := range slices.Sorted(maps.Keys(holdings)) {
		h := holdings[c]
		if !h.owned.IsPositive() {
			continue
		}
		income := M(0, currency)
		if sales > 0 {
			r := h.owned.Ratio(bought)
			averageBuy := h.paid.Div(h.owned)
			income = income.
				Add(averageBuy.Add(averageSell).Mul(sold).Scale(r)).
				Add(h.commission).
				Add(soldCommission.Scale(r)).
				Add(dividends.Scale(r))
		}
		res.Rows = append(res.Rows, DealIncome{CoOwner: c, Value: income})
		present[c] = true
	}
	for _, c := range slices.Sorted(maps.Keys(deal.Income)) {
		if !present[c] {
			res.Stale = append(res.Stale, c)
		}
	}
	return res, nil
}
