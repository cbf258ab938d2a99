package coown

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func capital(id CapitalID, coOwner CoOwnerID, currency string, value float64, share float64) Capital {
	return Capital{ID: id, Account: "acc", CoOwner: coOwner, Currency: currency, Value: M(value, currency), DefaultShare: F(share)}
}

func totals(kv ...any) map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal)
	for i := 0; i < len(kv); i += 2 {
		m[kv[i].(string)] = decimal.NewFromInt(int64(kv[i+1].(int)))
	}
	return m
}

func TestValidateCapitalBatch_Rescale(t *testing.T) {
	batch := CapitalBatch{
		Account: "acc",
		Rows: []Capital{
			capital("x", "cx", "RUB", 0, 0),
			capital("y", "cy", "RUB", 0, 0),
		},
		Edits: map[CapitalID]CapitalEdit{
			"x": {Value: dec("400"), DefaultShare: dec("0.5")},
			"y": {Value: dec("400"), DefaultShare: dec("0.3")},
		},
		TotalCapital: totals("RUB", 1000),
	}
	res, err := ValidateCapitalBatch(batch)
	if err != nil {
		t.Fatalf("ValidateCapitalBatch() error: %v", err)
	}

	want := map[CapitalID]string{"x": "0.625", "y": "0.375"}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(res.Rows))
	}
	for _, r := range res.Rows {
		if !r.DefaultShare.Equal(F(decimal.RequireFromString(want[r.ID]))) {
			t.Errorf("default share of %s = %s, want %s", r.ID, r.DefaultShare, want[r.ID])
		}
		if !r.Value.Equal(M(400, "RUB")) {
			t.Errorf("value of %s = %s, want 400", r.ID, r.Value.Decimal())
		}
	}
	if diff := cmp.Diff([]CapitalID{"x", "y"}, res.Requested); diff != "" {
		t.Errorf("Requested mismatch (-want +got):\n%s", diff)
	}
	if len(res.Rescaled) != 0 {
		t.Errorf("Rescaled = %v, want none: every row was requested", res.Rescaled)
	}
	if f, ok := res.Factors["RUB"]; !ok || !f.Equal(F(1.25)) {
		t.Errorf("RUB factor = %v, want 1.25", f)
	}
}

func TestValidateCapitalBatch_RescalesUneditedRows(t *testing.T) {
	batch := CapitalBatch{
		Account: "acc",
		Rows: []Capital{
			capital("a", "ca", "EUR", 100, 0.5),
			capital("b", "cb", "EUR", 100, 0.5),
			capital("c", "cc", "EUR", 0, 0),
			capital("u", "ca", "USD", 10, 0.2),
		},
		Edits: map[CapitalID]CapitalEdit{
			"a": {DefaultShare: dec("0.3")},
		},
		TotalCapital: totals("EUR", 1000, "USD", 10),
	}
	res, err := ValidateCapitalBatch(batch)
	if err != nil {
		t.Fatalf("ValidateCapitalBatch() error: %v", err)
	}

	// 0.3 + 0.5 = 0.8, rescaled by 1.25
	got := make(map[CapitalID]string)
	for _, r := range res.Rows {
		got[r.ID] = r.DefaultShare.String()
	}
	want := map[CapitalID]string{"a": "0.375", "b": "0.625"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]CapitalID{"b"}, res.Rescaled); diff != "" {
		t.Errorf("Rescaled mismatch (-want +got):\n%s", diff)
	}
	if _, ok := res.Factors["USD"]; ok {
		t.Error("a currency not in the batch must not be rescaled")
	}
}

func TestValidateCapitalBatch_ShareConservation(t *testing.T) {
	tests := []struct {
		name  string
		rows  []Capital
		edits map[CapitalID]CapitalEdit
	}{
		{
			name:  "single co-owner",
			rows:  []Capital{capital("a", "ca", "EUR", 0, 0)},
			edits: map[CapitalID]CapitalEdit{"a": {DefaultShare: dec("0.1")}},
		},
		{
			name:  "thirds",
			rows:  []Capital{capital("a", "ca", "EUR", 0, 0), capital("b", "cb", "EUR", 0, 0), capital("c", "cc", "EUR", 0, 0)},
			edits: map[CapitalID]CapitalEdit{"a": {DefaultShare: dec("0.1")}, "b": {DefaultShare: dec("0.1")}, "c": {DefaultShare: dec("0.1")}},
		},
		{
			name:  "already one",
			rows:  []Capital{capital("a", "ca", "EUR", 0, 0.4), capital("b", "cb", "EUR", 0, 0.6)},
			edits: map[CapitalID]CapitalEdit{"a": {DefaultShare: dec("0.4")}},
		},
		{
			name:  "partial edit",
			rows:  []Capital{capital("a", "ca", "EUR", 0, 0.25), capital("b", "cb", "EUR", 0, 0.25), capital("c", "cc", "EUR", 0, 0.5)},
			edits: map[CapitalID]CapitalEdit{"c": {DefaultShare: dec("0.07")}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateCapitalBatch(CapitalBatch{Account: "acc", Rows: tt.rows, Edits: tt.edits})
			if err != nil {
				t.Fatalf("ValidateCapitalBatch() error: %v", err)
			}
			// merge the result into the rows, as a caller would persist it.
			merged := make(map[CapitalID]Capital)
			for _, r := range tt.rows {
				merged[r.ID] = r
			}
			for _, r := range res.Rows {
				merged[r.ID] = r
			}
			var rows []Capital
			for _, r := range merged {
				rows = append(rows, r)
			}
			if sum := ShareSums(rows)["EUR"]; !sum.ApproxEqual(One) {
				t.Errorf("default shares sum to %s, want 1", sum)
			}
		})
	}
}

func TestValidateCapitalBatch_Errors(t *testing.T) {
	tests := []struct {
		name  string
		batch CapitalBatch
		want  error
		ids   []CapitalID
	}{
		{
			name: "cross account",
			batch: CapitalBatch{
				Account: "acc",
				Rows:    []Capital{capital("a", "ca", "EUR", 0, 1), {ID: "z", Account: "other", CoOwner: "cz", Currency: "EUR"}},
				Edits:   map[CapitalID]CapitalEdit{"a": {DefaultShare: dec("1")}},
			},
			want: ErrCrossAccount,
			ids:  []CapitalID{"z"},
		},
		{
			name: "share above one",
			batch: CapitalBatch{
				Account: "acc",
				Rows:    []Capital{capital("a", "ca", "EUR", 0, 0.5), capital("b", "cb", "EUR", 0, 0.5)},
				Edits:   map[CapitalID]CapitalEdit{"a": {DefaultShare: dec("0.6")}},
			},
			want: ErrShareOutOfRange,
		},
		{
			name: "zero share",
			batch: CapitalBatch{
				Account: "acc",
				Rows:    []Capital{capital("a", "ca", "EUR", 0, 1)},
				Edits:   map[CapitalID]CapitalEdit{"a": {DefaultShare: dec("0")}},
			},
			want: ErrShareOutOfRange,
		},
		{
			name: "capital above total",
			batch: CapitalBatch{
				Account:      "acc",
				Rows:         []Capital{capital("a", "ca", "EUR", 600, 0.5), capital("b", "cb", "EUR", 0, 0.5)},
				Edits:        map[CapitalID]CapitalEdit{"b": {Value: dec("500")}},
				TotalCapital: totals("EUR", 1000),
			},
			want: ErrCapitalExceedsTotal,
		},
		{
			name: "missing total is zero",
			batch: CapitalBatch{
				Account: "acc",
				Rows:    []Capital{capital("a", "ca", "EUR", 0, 1)},
				Edits:   map[CapitalID]CapitalEdit{"a": {Value: dec("1")}},
			},
			want: ErrCapitalExceedsTotal,
		},
		{
			name: "unknown row",
			batch: CapitalBatch{
				Account: "acc",
				Rows:    []Capital{capital("a", "ca", "EUR", 0, 1)},
				Edits:   map[CapitalID]CapitalEdit{"b": {Value: dec("1")}},
			},
			want: ErrInvalidCapital,
			ids:  []CapitalID{"b"},
		},
		{
			name: "negative value",
			batch: CapitalBatch{
				Account:      "acc",
				Rows:         []Capital{capital("a", "ca", "EUR", 0, 1)},
				Edits:        map[CapitalID]CapitalEdit{"a": {Value: dec("-1")}},
				TotalCapital: totals("EUR", 10),
			},
			want: ErrInvalidCapital,
			ids:  []CapitalID{"a"},
		},
		{
			name: "share out of [0,1]",
			batch: CapitalBatch{
				Account: "acc",
				Rows:    []Capital{capital("a", "ca", "EUR", 0, 1)},
				Edits:   map[CapitalID]CapitalEdit{"a": {DefaultShare: dec("1.5")}},
			},
			want: ErrInvalidCapital,
			ids:  []CapitalID{"a"},
		},
		{
			name: "duplicated row",
			batch: CapitalBatch{
				Account: "acc",
				Rows:    []Capital{capital("a", "ca", "EUR", 0, 1), capital("a", "ca", "EUR", 0, 1)},
				Edits:   map[CapitalID]CapitalEdit{"a": {DefaultShare: dec("1")}},
			},
			want: ErrInvalidCapital,
			ids:  []CapitalID{"a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateCapitalBatch(tt.batch)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ValidateCapitalBatch() error = %v, want %v", err, tt.want)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error %T is not a *ValidationError", err)
			}
			if tt.ids != nil {
				if diff := cmp.Diff(tt.ids, verr.IDs); diff != "" {
					t.Errorf("error ids mismatch (-want +got):\n%s", diff)
				}
			}
			if len(res.Rows) != 0 || len(res.Requested) != 0 {
				t.Errorf("a failed batch must not return rows, got %+v", res)
			}
		})
	}
}

func TestValidateCapitalBatch_Atomicity(t *testing.T) {
	rows := []Capital{
		capital("e", "ca", "EUR", 0, 1),
		capital("u", "ca", "USD", 0, 1),
	}
	batch := CapitalBatch{
		Account: "acc",
		Rows:    rows,
		Edits: map[CapitalID]CapitalEdit{
			"e": {Value: dec("10")},
			"u": {Value: dec("10")},
		},
		TotalCapital: totals("EUR", 100, "USD", 5),
	}
	res, err := ValidateCapitalBatch(batch)
	if !errors.Is(err, ErrCapitalExceedsTotal) {
		t.Fatalf("ValidateCapitalBatch() error = %v, want ErrCapitalExceedsTotal", err)
	}
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Currency != "USD" {
		t.Errorf("error currency = %q, want USD", verr.Currency)
	}
	if res.Rows != nil {
		t.Errorf("no row of any currency must be returned, got %v", res.Rows)
	}
	if !rows[0].Value.IsZero() {
		t.Error("input rows must not be modified")
	}
}

func TestUneditedAggregates(t *testing.T) {
	rows := []Capital{
		capital("a", "ca", "EUR", 100, 0.2),
		capital("b", "cb", "EUR", 50, 0.3),
		capital("c", "cc", "EUR", 10, 0.5),
		capital("d", "ca", "USD", 7, 1),
	}
	aggs := UneditedAggregates(rows, map[CapitalID]CapitalEdit{"c": {}})
	eur := aggs["EUR"]
	if !eur.ShareSum.Equal(F(0.5)) || !eur.ValueSum.Equal(decimal.NewFromInt(150)) {
		t.Errorf("EUR aggregate = %s, %s, want 0.5, 150", eur.ShareSum, eur.ValueSum)
	}
	if usd := aggs["USD"]; !usd.ShareSum.Equal(One) || !usd.ValueSum.Equal(decimal.NewFromInt(7)) {
		t.Errorf("USD aggregate = %s, %s, want 1, 7", usd.ShareSum, usd.ValueSum)
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Kind: ErrShareOutOfRange, Currency: "EUR", IDs: []CapitalID{"a", "b"}, Detail: "total default share would be 1.2"}
	want := "total default share out of range in EUR (capital a, b): total default share would be 1.2"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
