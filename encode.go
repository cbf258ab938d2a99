package coown

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Records are persisted as JSONL, one record per line, with a stable field order.

// jsonOperation is the persisted form of an Operation.
type jsonOperation struct {
	ID          OperationID     `json:"id"`
	Account     AccountID       `json:"account"`
	Kind        OperationKind   `json:"kind"`
	Date        time.Time       `json:"date"`
	Payment     decimal.Decimal `json:"payment"`
	Currency    string          `json:"currency"`
	Instrument  string          `json:"instrument"`
	Quantity    decimal.Decimal `json:"quantity"`
	Commission  decimal.Decimal `json:"commission"`
	Deal        DealID          `json:"deal"`
	DividendTax decimal.Decimal `json:"dividendTax"`
	MarginCall  bool            `json:"marginCall"`
}

// MarshalJSON implements the json.Marshaler interface for Operation.
func (op Operation) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", op.ID)
	w.Append("account", op.Account)
	w.Append("kind", op.Kind)
	w.Append("date", op.Date.Format(time.RFC3339Nano))
	w.Append("payment", op.Payment.Decimal())
	w.Append("currency", op.Currency())
	w.Optional("instrument", op.Instrument)
	w.Optional("quantity", op.Quantity.Decimal())
	w.Optional("commission", op.Commission.Decimal())
	w.Optional("deal", op.Deal)
	w.Optional("dividendTax", op.DividendTax.Decimal())
	w.Optional("marginCall", op.MarginCall)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Operation.
// Amounts are stored as plain numbers, in the operation currency.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var j jsonOperation
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*op = Operation{
		ID:          j.ID,
		Account:     j.Account,
		Kind:        j.Kind,
		Date:        j.Date,
		Payment:     M(j.Payment, j.Currency),
		Instrument:  j.Instrument,
		Quantity:    Q(j.Quantity),
		Commission:  M(j.Commission, j.Currency),
		Deal:        j.Deal,
		DividendTax: M(j.DividendTax, j.Currency),
		MarginCall:  j.MarginCall,
	}
	return nil
}

type jsonCapital struct {
	ID           CapitalID       `json:"id"`
	Account      AccountID       `json:"account"`
	CoOwner      CoOwnerID       `json:"coOwner"`
	Currency     string          `json:"currency"`
	Value        decimal.Decimal `json:"value"`
	DefaultShare Fraction        `json:"defaultShare"`
}

// MarshalJSON implements the json.Marshaler interface for Capital.
func (c Capital) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonCapital{
		ID:           c.ID,
		Account:      c.Account,
		CoOwner:      c.CoOwner,
		Currency:     c.Currency,
		Value:        c.Value.Decimal(),
		DefaultShare: c.DefaultShare,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface for Capital.
func (c *Capital) UnmarshalJSON(data []byte) error {
	var j jsonCapital
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*c = Capital{
		ID:           j.ID,
		Account:      j.Account,
		CoOwner:      j.CoOwner,
		Currency:     j.Currency,
		Value:        M(j.Value, j.Currency),
		DefaultShare: j.DefaultShare,
	}
	return nil
}

type jsonDeal struct {
	ID         DealID                        `json:"id"`
	Account    AccountID                     `json:"account"`
	Instrument string                        `json:"instrument"`
	Currency   string                        `json:"currency"`
	Operations []OperationID                 `json:"operations,omitempty"`
	Income     map[CoOwnerID]decimal.Decimal `json:"income,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface for Deal.
func (d Deal) MarshalJSON() ([]byte, error) {
	j := jsonDeal{
		ID:         d.ID,
		Account:    d.Account,
		Instrument: d.Instrument,
		Currency:   d.Currency,
		Operations: d.Operations,
	}
	if len(d.Income) > 0 {
		j.Income = make(map[CoOwnerID]decimal.Decimal, len(d.Income))
		for c, v := range d.Income {
			j.Income[c] = v.Decimal()
		}
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements the json.Unmarshaler interface for Deal.
func (d *Deal) UnmarshalJSON(data []byte) error {
	var j jsonDeal
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*d = Deal{
		ID:         j.ID,
		Account:    j.Account,
		Instrument: j.Instrument,
		Currency:   j.Currency,
		Operations: j.Operations,
	}
	if len(j.Income) > 0 {
		d.Income = make(map[CoOwnerID]Money, len(j.Income))
		for c, v := range j.Income {
			d.Income[c] = M(v, j.Currency)
		}
	}
	return nil
}

// EncodeJSONL writes one JSON line per record.
func EncodeJSONL[T any](w io.Writer, records []T) error {
	bw := bufio.NewWriter(w)
	for i, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("cannot encode record %d: %w", i, err)
		}
		bw.Write(b)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// DecodeJSONL reads one record per non empty line. name is used in error messages only.
func DecodeJSONL[T any](r io.Reader, name string) ([]T, error) {
	var records []T
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("format error in %s:%d: %w", name, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", name, err)
	}
	return records, nil
}
