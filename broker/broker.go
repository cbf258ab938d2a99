// Package broker decodes the operations export of the broker into coown operations.
package broker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/coown"
	"github.com/shopspring/decimal"
)

// DefaultSelector locates the operations list in the broker's operations response.
const DefaultSelector = "$.payload.operations"

// StatusDone is the status of executed operations. Others are ignored.
const StatusDone = "Done"

// Importer converts a broker operations export into operations of one account.
type Importer struct {
	Account coown.AccountID
	// Selector is the JSONPath of the operations list. Defaults to DefaultSelector.
	Selector string
}

// amount is the broker's money object.
type amount struct {
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
}

type trade struct {
	TradeID  string          `json:"tradeId"`
	Date     time.Time       `json:"date"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// operation is one item of the broker export.
type operation struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	OperationType  string          `json:"operationType"`
	Date           time.Time       `json:"date"`
	IsMarginCall   bool            `json:"isMarginCall"`
	Payment        decimal.Decimal `json:"payment"`
	Currency       string          `json:"currency"`
	InstrumentType string          `json:"instrumentType"`
	Figi           string          `json:"figi"`
	Quantity       decimal.Decimal `json:"quantity"`
	Commission     *amount         `json:"commission"`
	Trades         []trade         `json:"trades"`
}

// Decode reads a broker export and returns its executed operations sorted by date.
//
// Broker commissions are ignored because the broker already deducts them from
// each trade's commission. A dividend tax is not an operation on its own: it
// is attached to the latest untaxed dividend of the same instrument.
func (im Importer) Decode(r io.Reader) ([]coown.Operation, error) {
	items, err := im.selectOperations(r)
	if err != nil {
		return nil, err
	}

	var ops []coown.Operation
	var taxes []operation
	var errs []error
	for i, item := range items {
		if item.Status != StatusDone {
			continue
		}
		kind, err := coown.ParseOperationKind(item.OperationType)
		if err != nil {
			errs = append(errs, fmt.Errorf("operation #%d %q: %w", i, item.ID, err))
			continue
		}
		switch kind {
		case coown.BrokerCommission:
			continue
		case coown.TaxDividend:
			taxes = append(taxes, item)
			continue
		}
		op, err := im.convert(kind, item)
		if err != nil {
			errs = append(errs, fmt.Errorf("operation #%d %q: %w", i, item.ID, err))
			continue
		}
		ops = append(ops, op)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	coown.SortOperations(ops)
	if err := attachDividendTaxes(ops, taxes); err != nil {
		return nil, err
	}
	return ops, nil
}

// selectOperations evaluates the selector on the export, and decodes the operations it points to.
func (im Importer) selectOperations(r io.Reader) ([]operation, error) {
	selector := im.Selector
	if selector == "" {
		selector = DefaultSelector
	}
	dec := json.NewDecoder(r)
	// numbers are kept as text until they reach decimal.Decimal.
	dec.UseNumber()
	var jobj any
	if err := dec.Decode(&jobj); err != nil {
		return nil, fmt.Errorf("cannot decode broker export: %w", err)
	}
	jval, err := jsonpath.Get(selector, jobj)
	if err != nil {
		return nil, fmt.Errorf("error evaluating %q: %w", selector, err)
	}
	// a selector ending on a wildcard returns a list of one list.
	if jlist, ok := jval.([]any); ok && len(jlist) == 1 {
		if inner, ok := jlist[0].([]any); ok {
			jval = inner
		}
	}
	if _, ok := jval.([]any); !ok {
		return nil, fmt.Errorf("%q does not select a list of operations", selector)
	}
	data, err := json.Marshal(jval)
	if err != nil {
		return nil, err
	}
	var items []operation
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&items); err != nil {
		return nil, fmt.Errorf("invalid operations at %q: %w", selector, err)
	}
	return items, nil
}

func (im Importer) convert(kind coown.OperationKind, item operation) (coown.Operation, error) {
	if item.ID == "" {
		return coown.Operation{}, errors.New("operation without id")
	}
	if err := coown.ValidateCurrency(item.Currency); err != nil {
		return coown.Operation{}, err
	}
	op := coown.Operation{
		ID:         coown.OperationID(item.ID),
		Account:    im.Account,
		Kind:       kind,
		Date:       item.Date,
		Payment:    coown.M(item.Payment, item.Currency),
		MarginCall: item.IsMarginCall,
	}
	if item.InstrumentType != "" {
		op.Instrument = item.Figi
	}
	if kind.IsTrade() {
		op.Quantity = coown.Q(item.Quantity)
		op.Commission = coown.M(0, item.Currency)
		if item.Commission != nil {
			if c := item.Commission.Currency; c != "" && c != item.Currency {
				return coown.Operation{}, fmt.Errorf("commission in %s, payment in %s", c, item.Currency)
			}
			// The broker exports commissions as negative amounts.
			op.Commission = coown.M(item.Commission.Value.Abs().Neg(), item.Currency)
		}
		if op.Payment.IsZero() {
			op.Payment = tradesPayment(kind, item.Trades, item.Currency)
		}
	}
	if err := op.Validate(); err != nil {
		return coown.Operation{}, err
	}
	return op, nil
}

// tradesPayment computes the payment of a trade from its executions, for the
// exports that leave it empty.
func tradesPayment(kind coown.OperationKind, trades []trade, currency string) coown.Money {
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.Price.Mul(t.Quantity))
	}
	if kind.IsPurchase() {
		total = total.Neg()
	}
	return coown.M(total, currency)
}

// attachDividendTaxes sets each tax on the latest dividend of the same
// instrument, on or before the tax date, that has no tax yet. ops must be sorted.
func attachDividendTaxes(ops []coown.Operation, taxes []operation) error {
	slices.SortStableFunc(taxes, func(a, b operation) int { return a.Date.Compare(b.Date) })
	for _, tax := range taxes {
		found := -1
		for i, op := range ops {
			if op.Date.After(tax.Date) {
				break
			}
			if op.Kind == coown.Dividend && op.Instrument == tax.Figi && op.DividendTax.IsZero() {
				found = i
			}
		}
		if found < 0 {
			return fmt.Errorf("dividend tax %q of %s: no untaxed dividend on or before %s", tax.ID, tax.Figi, tax.Date.Format(time.DateOnly))
		}
		if tax.Currency != ops[found].Currency() {
			return fmt.Errorf("dividend tax %q in %s for a dividend in %s", tax.ID, tax.Currency, ops[found].Currency())
		}
		ops[found].DividendTax = coown.M(tax.Payment.Abs().Neg(), tax.Currency)
	}
	return nil
}
