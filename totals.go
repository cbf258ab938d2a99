package coown

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TotalCapital returns, per currency, the capital contributed to the account:
// pay-ins, minus pay-outs and account commissions.
func TotalCapital(ops []Operation) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, op := range ops {
		if !op.Kind.IsCapitalFlow() {
			continue
		}
		cur := op.Currency()
		totals[cur] = totals[cur].Add(op.Payment.Decimal())
	}
	return totals
}

// CashBalance returns, per currency, the cash held by the account: every
// payment, net of trade commissions and dividend taxes.
func CashBalance(ops []Operation) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for _, op := range ops {
		cur := op.Currency()
		balances[cur] = balances[cur].
			Add(op.Payment.Decimal()).
			Add(op.Commission.Decimal()).
			Add(op.DividendTax.Decimal())
	}
	return balances
}

// CapitalLimit is the part of the account a co-owner could withdraw.
type CapitalLimit struct {
	CoOwner CoOwnerID
	Capital Money
	Income  Money
	Limit   Money
}

// CapitalLimits spreads the account income in one currency over its co-owners,
// in proportion of their default shares. The income is the cash balance
// minus the total contributed capital.
func CapitalLimits(capitals []Capital, currency string, balance, total decimal.Decimal) ([]CapitalLimit, error) {
	var rows []Capital
	var shares Fraction
	for _, c := range capitals {
		if c.Currency != currency {
			continue
		}
		rows = append(rows, c)
		shares = shares.Add(c.DefaultShare)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if !shares.IsPositive() {
		return nil, &ValidationError{Kind: ErrShareOutOfRange, Currency: currency, Detail: fmt.Sprintf("total default share is %s", shares)}
	}
	income := M(balance.Sub(total), currency)
	limits := make([]CapitalLimit, 0, len(rows))
	for _, c := range rows {
		part := income.Scale(c.DefaultShare).Scale(shares.Inverse())
		limits = append(limits, CapitalLimit{
			CoOwner: c.CoOwner,
			Capital: c.Value,
			Income:  part,
			Limit:   c.Value.Add(part),
		})
	}
	return limits, nil
}
