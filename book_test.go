package coown

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testAccount() Account {
	return Account{ID: "acc", Name: "Family", CoOwners: []CoOwner{
		{ID: "c1", Account: "acc", Investor: "alice", Creator: true},
		{ID: "c2", Account: "acc", Investor: "bob"},
	}}
}

// fundedBook returns a book with 1000 EUR paid in, shared 60/40.
func fundedBook(t *testing.T) *Book {
	t.Helper()
	b, err := NewBook(testAccount())
	if err != nil {
		t.Fatal(err)
	}
	b.deals.NewID = sequentialIDs()
	if _, err := b.Sync([]Operation{newOp("p1", PayIn, 1, "", 0, 1000)}); err != nil {
		t.Fatal(err)
	}
	for _, c := range []struct {
		id      CapitalID
		coOwner CoOwnerID
	}{{"k1", "c1"}, {"k2", "c2"}} {
		if err := b.AddCapital(c.id, c.coOwner, "EUR"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.EditCapital(map[CapitalID]CapitalEdit{
		"k1": {Value: dec("600"), DefaultShare: dec("0.6")},
		"k2": {Value: dec("400"), DefaultShare: dec("0.4")},
	}); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestNewBook_Invalid(t *testing.T) {
	a := testAccount()
	a.CoOwners[1].Creator = true
	if _, err := NewBook(a); err == nil {
		t.Error("NewBook() expected an error for an account with two creators")
	}
}

func TestBook_Sync(t *testing.T) {
	b := fundedBook(t)
	ops := []Operation{
		newOp("b1", Buy, 2, "A", 10, -1000),
		newOp("s1", Sell, 3, "A", 10, 1200),
		newOp("p1", PayIn, 1, "", 0, 1000),
	}
	res, err := b.Sync(ops)
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if diff := cmp.Diff([]OperationID{"b1", "s1"}, res.Added); diff != "" {
		t.Errorf("Added mismatch (-want +got):\n%s", diff)
	}
	if res.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", res.Duplicates)
	}
	if len(res.Skipped) != 0 {
		t.Errorf("Skipped = %v, want none", res.Skipped)
	}
	if len(res.Incomes) != 1 {
		t.Fatalf("got %d incomes, want 1", len(res.Incomes))
	}
	// (100 + 120) * 10 * share
	want := map[CoOwnerID]string{"c1": "1320", "c2": "880"}
	if diff := cmp.Diff(want, incomes(res.Incomes[0])); diff != "" {
		t.Errorf("income mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, incomeStrings(b.Deals()[0])); diff != "" {
		t.Errorf("stored income mismatch (-want +got):\n%s", diff)
	}

	// a second sync with the same operations changes nothing
	res, err = b.Sync(ops)
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if len(res.Added) != 0 || res.Duplicates != 3 {
		t.Errorf("second Sync() added %v with %d duplicates", res.Added, res.Duplicates)
	}
}

func TestBook_SyncRejectsInvalidOperations(t *testing.T) {
	b := fundedBook(t)
	bad := newOp("b1", Buy, 2, "A", 10, 1000) // positive purchase payment
	foreign := newOp("b2", Buy, 2, "A", 10, -1000)
	foreign.Account = "other"
	if _, err := b.Sync([]Operation{bad, foreign, newOp("b3", Buy, 2, "A", 1, -10)}); err == nil {
		t.Fatal("Sync() expected an error")
	}
	if got := len(b.Operations()); got != 1 {
		t.Errorf("book has %d operations, want only the pay-in", got)
	}
}

func TestBook_SyncSkipsSaleOnlyDeals(t *testing.T) {
	b := fundedBook(t)
	res, err := b.Sync([]Operation{newOp("s1", Sell, 2, "A", 10, 1200)})
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	err = res.Skipped["d1"]
	if !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("Skipped[d1] = %v, want an invariant violation", err)
	}
}

func TestBook_EditCapital(t *testing.T) {
	b := fundedBook(t)
	res, err := b.EditCapital(map[CapitalID]CapitalEdit{"k1": {DefaultShare: dec("0.3")}})
	if err != nil {
		t.Fatalf("EditCapital() error: %v", err)
	}
	// 0.3 + 0.4 = 0.7, rescaled to 1
	if diff := cmp.Diff([]CapitalID{"k2"}, res.Rescaled); diff != "" {
		t.Errorf("Rescaled mismatch (-want +got):\n%s", diff)
	}
	sums := ShareSums(b.Capitals())
	if !sums["EUR"].ApproxEqual(One) {
		t.Errorf("EUR share sum = %s, want 1", sums["EUR"])
	}

	before := b.Capitals()
	_, err = b.EditCapital(map[CapitalID]CapitalEdit{"k1": {Value: dec("700")}})
	if !errors.Is(err, ErrCapitalExceedsTotal) {
		t.Fatalf("EditCapital() error = %v, want ErrCapitalExceedsTotal", err)
	}
	if diff := cmp.Diff(before, b.Capitals(), cmpMoney); diff != "" {
		t.Errorf("a rejected batch changed the rows (-before +after):\n%s", diff)
	}
}

func TestBook_AddCapital(t *testing.T) {
	b := fundedBook(t)
	tests := []struct {
		name     string
		id       CapitalID
		coOwner  CoOwnerID
		currency string
	}{
		{"invalid currency", "k3", "c1", "ZZZ"},
		{"unknown co-owner", "k3", "c9", "USD"},
		{"duplicated id", "k1", "c1", "USD"},
		{"duplicated currency", "k3", "c1", "EUR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := b.AddCapital(tt.id, tt.coOwner, tt.currency); err == nil {
				t.Error("AddCapital() expected an error")
			}
		})
	}
	if err := b.AddCapital("k3", "c1", "USD"); err != nil {
		t.Errorf("AddCapital() error: %v", err)
	}
}

func TestBook_SaveAndOpen(t *testing.T) {
	b := fundedBook(t)
	if _, err := b.Sync([]Operation{
		newOp("b1", Buy, 2, "A", 10, -1000),
		newOp("s1", Sell, 3, "A", 10, 1200),
	}); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := b.Save(dir); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := OpenBook(dir)
	if err != nil {
		t.Fatalf("OpenBook() error: %v", err)
	}
	if diff := cmp.Diff(b.Account(), got.Account()); diff != "" {
		t.Errorf("account mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(b.Capitals(), got.Capitals(), cmpMoney); diff != "" {
		t.Errorf("capitals mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(b.Operations(), got.Operations(), cmpMoney); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(b.Shares(), got.Shares(), cmpMoney); diff != "" {
		t.Errorf("shares mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(b.Deals(), got.Deals(), cmpMoney); diff != "" {
		t.Errorf("deals mismatch (-want +got):\n%s", diff)
	}
	if got.DealState("d1") != Closed {
		t.Error("reopened deal must be closed")
	}
}

func TestOpenBook_Errors(t *testing.T) {
	if _, err := OpenBook(t.TempDir()); err == nil {
		t.Error("OpenBook() expected an error without account file")
	}
	dir := t.TempDir()
	if err := fundedBook(t).Save(dir); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, SharesFile), []byte("{}\nnot json\n"), 0o644)
	if _, err := OpenBook(dir); err == nil {
		t.Error("OpenBook() expected an error on a corrupted file")
	}
}

func TestBook_CoOwners(t *testing.T) {
	b := fundedBook(t)
	if err := b.AddCoOwner(CoOwner{ID: "c3", Investor: "carol", Creator: true}); err == nil {
		t.Error("AddCoOwner() expected an error for a second creator")
	}
	if err := b.AddCoOwner(CoOwner{ID: "c2", Investor: "bob"}); err == nil {
		t.Error("AddCoOwner() expected an error for a duplicated co-owner")
	}
	if err := b.AddCoOwner(CoOwner{ID: "c3", Investor: "carol"}); err != nil {
		t.Fatalf("AddCoOwner() error: %v", err)
	}
	account := b.Account()
	if c, ok := account.CoOwner("c3"); !ok || c.Account != "acc" {
		t.Errorf("added co-owner = %+v, %v", c, ok)
	}

	if _, _, err := b.RemoveCoOwner("c1"); err == nil {
		t.Error("RemoveCoOwner() expected an error for the creator")
	}
	if _, _, err := b.RemoveCoOwner("c9"); err == nil {
		t.Error("RemoveCoOwner() expected an error for an unknown co-owner")
	}

	if _, err := b.Sync([]Operation{
		newOp("b1", Buy, 2, "A", 10, -1000),
		newOp("s1", Sell, 3, "A", 10, 1200),
	}); err != nil {
		t.Fatal(err)
	}
	incomes, skipped, err := b.RemoveCoOwner("c2")
	if err != nil {
		t.Fatalf("RemoveCoOwner() error: %v", err)
	}
	if len(skipped) != 0 || len(incomes) != 1 {
		t.Fatalf("RemoveCoOwner() recomputed %d deals, skipped %v", len(incomes), skipped)
	}
	// Only c1 still holds lots, so it takes the whole deal income.
	if diff := cmp.Diff(map[CoOwnerID]string{"c1": "2200"}, incomeStrings(b.Deals()[0])); diff != "" {
		t.Errorf("income mismatch (-want +got):\n%s", diff)
	}
	if _, ok := account.CoOwner("c2"); !ok || len(account.CoOwners) != 3 {
		t.Errorf("an earlier copy of the account changed: %+v", account.CoOwners)
	}
	removed := b.Account()
	if _, ok := removed.CoOwner("c2"); ok {
		t.Error("removed co-owner is still in the account")
	}
	for _, c := range b.Capitals() {
		if c.CoOwner == "c2" {
			t.Errorf("capital %q of the removed co-owner is still there", c.ID)
		}
	}
}
