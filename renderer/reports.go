package renderer

import (
	"cmp"
	"maps"
	"slices"

	"github.com/etnz/coown"
	"github.com/shopspring/decimal"
)

// Capitals is the capital table of an account, one section per currency.
type Capitals struct {
	Account    string
	Currencies []CurrencyCapitals
}

// CurrencyCapitals lists the capital rows of one currency.
type CurrencyCapitals struct {
	Currency string
	Total    coown.Money // contributed to the account
	Balance  coown.Money // cash held by the account
	Rows     []CapitalRow
	Sum      coown.Money
	ShareSum coown.Fraction
}

// CapitalRow is a co-owner's capital and what it could withdraw.
type CapitalRow struct {
	ID       coown.CapitalID
	CoOwner  coown.CoOwnerID
	Investor coown.InvestorID
	Value    coown.Money
	Share    coown.Fraction
	Income   coown.Money
	Limit    coown.Money
}

// NewCapitals builds the capital table. total and balance are the account's
// contributed capital and cash balance per currency.
func NewCapitals(account coown.Account, capitals []coown.Capital, total, balance map[string]decimal.Decimal) *Capitals {
	c := &Capitals{Account: accountName(account)}
	byCurrency := make(map[string][]coown.Capital)
	for _, r := range capitals {
		byCurrency[r.Currency] = append(byCurrency[r.Currency], r)
	}
	for _, cur := range slices.Sorted(maps.Keys(byCurrency)) {
		rows := byCurrency[cur]
		slices.SortFunc(rows, func(a, b coown.Capital) int { return cmp.Compare(a.ID, b.ID) })
		section := CurrencyCapitals{
			Currency: cur,
			Total:    coown.M(total[cur], cur),
			Balance:  coown.M(balance[cur], cur),
			Sum:      coown.M(0, cur),
		}
		// limits are only known when default shares are set.
		limits, _ := coown.CapitalLimits(rows, cur, balance[cur], total[cur])
		for i, r := range rows {
			row := CapitalRow{
				ID:      r.ID,
				CoOwner: r.CoOwner,
				Value:   r.Value,
				Share:   r.DefaultShare,
				Income:  coown.M(0, cur),
				Limit:   r.Value,
			}
			if co, ok := account.CoOwner(r.CoOwner); ok {
				row.Investor = co.Investor
			}
			if i < len(limits) {
				row.Income, row.Limit = limits[i].Income, limits[i].Limit
			}
			section.Rows = append(section.Rows, row)
			section.Sum = section.Sum.Add(r.Value)
			section.ShareSum = section.ShareSum.Add(r.DefaultShare)
		}
		c.Currencies = append(c.Currencies, section)
	}
	return c
}

// Income is the income of each co-owner in one deal.
type Income struct {
	Deal       coown.DealID
	Instrument string
	State      string
	Operations int
	Rows       []IncomeRow
	Total      coown.Money
	Stale      []coown.CoOwnerID
}

// IncomeRow is one co-owner income.
type IncomeRow struct {
	CoOwner  coown.CoOwnerID
	Investor coown.InvestorID
	Value    coown.Money
}

// NewIncome builds the income report of a deal from the last computation.
func NewIncome(account coown.Account, deal coown.Deal, res coown.IncomeResult) *Income {
	i := &Income{
		Deal:       deal.ID,
		Instrument: deal.Instrument,
		State:      res.State.String(),
		Operations: len(deal.Operations),
		Total:      coown.M(0, deal.Currency).Add(res.Total()),
		Stale:      res.Stale,
	}
	for _, r := range res.Rows {
		row := IncomeRow{CoOwner: r.CoOwner, Value: r.Value}
		if co, ok := account.CoOwner(r.CoOwner); ok {
			row.Investor = co.Investor
		}
		i.Rows = append(i.Rows, row)
	}
	return i
}

// Deals lists the deals of an account.
type Deals struct {
	Account string
	Rows    []DealRow
}

// DealRow summarizes one deal.
type DealRow struct {
	ID         coown.DealID
	Instrument string
	State      string
	Bought     coown.Quantity
	Sold       coown.Quantity
	Income     coown.Money
}

// NewDeals builds the deals list. ops are the account operations; those
// without a deal are ignored.
func NewDeals(account coown.Account, deals []coown.Deal, ops []coown.Operation) *Deals {
	byDeal := make(map[coown.DealID][]coown.Operation)
	for _, op := range ops {
		if op.Deal != "" {
			byDeal[op.Deal] = append(byDeal[op.Deal], op)
		}
	}
	d := &Deals{Account: accountName(account)}
	for _, deal := range deals {
		bought, sold := coown.TradedQuantities(byDeal[deal.ID])
		income := coown.M(0, deal.Currency)
		for _, v := range deal.Income {
			income = income.Add(v)
		}
		d.Rows = append(d.Rows, DealRow{
			ID:         deal.ID,
			Instrument: deal.Instrument,
			State:      coown.DealStateOf(byDeal[deal.ID]).String(),
			Bought:     bought,
			Sold:       sold,
			Income:     income,
		})
	}
	return d
}

func accountName(a coown.Account) string {
	if a.Name != "" {
		return a.Name
	}
	return string(a.ID)
}
