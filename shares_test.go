package coown

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestShareLedger(t *testing.T) {
	l := NewShareLedger(
		Share{Operation: "b2", CoOwner: "c2", Value: F(0.4)},
		Share{Operation: "b2", CoOwner: "c1", Value: F(0.6)},
		Share{Operation: "b1", CoOwner: "c1", Value: F(0.5)},
	)
	if !l.Has("b1") || l.Has("b3") {
		t.Error("Has() does not report the recorded operations")
	}
	if got := l.Of("b1", "c2"); !got.IsZero() {
		t.Errorf("Of() = %s for an unrecorded co-owner, want 0", got)
	}
	if diff := cmp.Diff([]OperationID{"b1"}, l.Incomplete()); diff != "" {
		t.Errorf("Incomplete() mismatch (-want +got):\n%s", diff)
	}
	want := []Share{
		{Operation: "b1", CoOwner: "c1", Value: F(0.5)},
		{Operation: "b2", CoOwner: "c1", Value: F(0.6)},
		{Operation: "b2", CoOwner: "c2", Value: F(0.4)},
	}
	if diff := cmp.Diff(want, l.Rows(), cmpMoney); diff != "" {
		t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
	}

	l.RemoveCoOwner("c2")
	if diff := cmp.Diff([]OperationID{"b1", "b2"}, l.Incomplete()); diff != "" {
		t.Errorf("Incomplete() after removal mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotShares(t *testing.T) {
	capitals := []Capital{
		capital("k2", "c2", "EUR", 0, 0.375),
		capital("k1", "c1", "EUR", 0, 0.625),
		capital("k3", "c1", "USD", 0, 1),
		{ID: "k4", Account: "other", CoOwner: "c9", Currency: "EUR", DefaultShare: F(1)},
	}
	got := SnapshotShares(newOp("b1", Buy, 1, "A", 1, -10), capitals)
	want := []Share{
		{Operation: "b1", CoOwner: "c1", Value: F(0.625)},
		{Operation: "b1", CoOwner: "c2", Value: F(0.375)},
	}
	if diff := cmp.Diff(want, got, cmpMoney); diff != "" {
		t.Errorf("SnapshotShares() mismatch (-want +got):\n%s", diff)
	}
}

func TestAccount_Validate(t *testing.T) {
	valid := testAccount()
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	tests := map[string]func(a *Account){
		"no creator":        func(a *Account) { a.CoOwners[0].Creator = false },
		"two creators":      func(a *Account) { a.CoOwners[1].Creator = true },
		"foreign co-owner":  func(a *Account) { a.CoOwners[1].Account = "other" },
		"duplicated member": func(a *Account) { a.CoOwners[1].ID = "c1" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			a := testAccount()
			mutate(&a)
			if err := a.Validate(); err == nil {
				t.Error("Validate() expected an error")
			}
		})
	}
	a := testAccount()
	if got := a.Creator().ID; got != "c1" {
		t.Errorf("Creator() = %q, want c1", got)
	}
}
