package coown

import (
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// CapitalEdit is a proposed change to a Capital row. A nil field keeps the row's
// current value.
type CapitalEdit struct {
	Value        *decimal.Decimal `json:"value,omitempty"`
	DefaultShare *decimal.Decimal `json:"defaultShare,omitempty"`
}

// CapitalAggregate sums the default shares and values of capital rows in one currency.
type CapitalAggregate struct {
	ShareSum Fraction
	ValueSum decimal.Decimal
}

func (a CapitalAggregate) add(c Capital) CapitalAggregate {
	return CapitalAggregate{
		ShareSum: a.ShareSum.Add(c.DefaultShare),
		ValueSum: a.ValueSum.Add(c.Value.Decimal()),
	}
}

// CapitalBatch is a set of edits to commit atomically on an account's capital ledger.
type CapitalBatch struct {
	Account AccountID
	// Rows holds every row referenced by Edits, and the unedited rows of the
	// currencies they touch. Unedited rows may be rescaled.
	Rows  []Capital
	Edits map[CapitalID]CapitalEdit
	// TotalCapital is the account's contributed capital per currency.
	TotalCapital map[string]decimal.Decimal
}

// CapitalResult is what a successful validation asks the caller to persist.
type CapitalResult struct {
	// Rows to persist: edited rows, and unedited rows whose default share was rescaled.
	Rows []Capital
	// Requested lists the ids of the edit request.
	Requested []CapitalID
	// Rescaled lists the ids that were not requested but whose default share changed.
	Rescaled []CapitalID
	// Factors holds the rescale factor applied to each currency that did not sum to 1.
	Factors map[string]Fraction
}

// UneditedAggregates sums, per currency, the rows that are not edited.
func UneditedAggregates(rows []Capital, edits map[CapitalID]CapitalEdit) map[string]CapitalAggregate {
	aggs := make(map[string]CapitalAggregate)
	for _, r := range rows {
		if _, edited := edits[r.ID]; edited {
			continue
		}
		aggs[r.Currency] = aggs[r.Currency].add(r)
	}
	return aggs
}

// ValidateCapitalBatch applies the batch edits to working copies of the rows and
// checks, for every currency touched, that default shares sum to a value in
// (0,1] and that capital values do not exceed the account total.
//
// When a currency's default shares sum to less than 1, every row of that
// currency is rescaled so that they sum to 1, including rows the batch did not
// edit. Those rows are reported in CapitalResult.Rescaled.
//
// On error nothing is returned: the batch is atomic.
func ValidateCapitalBatch(b CapitalBatch) (CapitalResult, error) {
	index := make(map[CapitalID]Capital, len(b.Rows))
	var foreign, duplicated []CapitalID
	for _, r := range b.Rows {
		if r.Account != b.Account {
			foreign = append(foreign, r.ID)
		}
		if _, exists := index[r.ID]; exists {
			duplicated = append(duplicated, r.ID)
		}
		index[r.ID] = r
	}
	if len(foreign) > 0 {
		slices.Sort(foreign)
		return CapitalResult{}, &ValidationError{Kind: ErrCrossAccount, IDs: foreign, Detail: fmt.Sprintf("batch is for account %q", b.Account)}
	}
	if len(duplicated) > 0 {
		slices.Sort(duplicated)
		return CapitalResult{}, &ValidationError{Kind: ErrInvalidCapital, IDs: duplicated, Detail: "row listed twice"}
	}

	requested := slices.Sorted(maps.Keys(b.Edits))
	edited := make(map[CapitalID]Capital, len(requested))
	proposed := make(map[string]CapitalAggregate)
	for _, id := range requested {
		row, ok := index[id]
		if !ok {
			return CapitalResult{}, &ValidationError{Kind: ErrInvalidCapital, IDs: []CapitalID{id}, Detail: "unknown capital row"}
		}
		edit := b.Edits[id]
		if edit.Value != nil {
			if edit.Value.IsNegative() {
				return CapitalResult{}, &ValidationError{Kind: ErrInvalidCapital, Currency: row.Currency, IDs: []CapitalID{id}, Detail: fmt.Sprintf("negative value %s", edit.Value)}
			}
			row.Value = M(*edit.Value, row.Currency)
		}
		if edit.DefaultShare != nil {
			share := F(*edit.DefaultShare)
			if !share.InRange() {
				return CapitalResult{}, &ValidationError{Kind: ErrInvalidCapital, Currency: row.Currency, IDs: []CapitalID{id}, Detail: fmt.Sprintf("default share %s not in [0,1]", share)}
			}
			row.DefaultShare = share
		}
		edited[id] = row
		proposed[row.Currency] = proposed[row.Currency].add(row)
	}

	unedited := UneditedAggregates(b.Rows, b.Edits)
	factors := make(map[string]Fraction)
	for _, cur := range slices.Sorted(maps.Keys(proposed)) {
		p, u := proposed[cur], unedited[cur]

		// Rescaled shares may sum to 1 up to ShareEpsilon.
		totalShare := p.ShareSum.Add(u.ShareSum)
		whole := totalShare.ApproxEqual(One)
		if !totalShare.IsPositive() || (totalShare.GreaterThan(One) && !whole) {
			return CapitalResult{}, &ValidationError{Kind: ErrShareOutOfRange, Currency: cur, Detail: fmt.Sprintf("total default share would be %s", totalShare)}
		}
		if !whole {
			factors[cur] = totalShare.Inverse()
		}

		totalValue := p.ValueSum.Add(u.ValueSum)
		limit := b.TotalCapital[cur]
		if totalValue.GreaterThan(limit) {
			return CapitalResult{}, &ValidationError{Kind: ErrCapitalExceedsTotal, Currency: cur, Detail: fmt.Sprintf("total capital would be %s, account total is %s", totalValue, limit)}
		}
	}

	res := CapitalResult{Requested: requested, Factors: factors}
	for _, r := range b.Rows {
		f, rescale := factors[r.Currency]
		if e, ok := edited[r.ID]; ok {
			if rescale {
				e.DefaultShare = e.DefaultShare.Mul(f)
			}
			res.Rows = append(res.Rows, e)
			continue
		}
		if !rescale {
			continue
		}
		share := r.DefaultShare.Mul(f)
		if share.Equal(r.DefaultShare) {
			continue
		}
		r.DefaultShare = share
		res.Rows = append(res.Rows, r)
		res.Rescaled = append(res.Rescaled, r.ID)
	}
	slices.SortFunc(res.Rows, func(a, b Capital) int { return byID(a.ID, b.ID) })
	slices.Sort(res.Rescaled)
	return res, nil
}

// ShareSums returns the sum of default shares per currency.
func ShareSums(rows []Capital) map[string]Fraction {
	sums := make(map[string]Fraction)
	for _, r := range rows {
		sums[r.Currency] = sums[r.Currency].Add(r.DefaultShare)
	}
	return sums
}
