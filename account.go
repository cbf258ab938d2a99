package coown

import (
	"errors"
	"fmt"
)

type (
	AccountID   string
	CoOwnerID   string
	InvestorID  string
	CapitalID   string
	OperationID string
	DealID      string
)

// CoOwner is one investor's stake within one shared account.
type CoOwner struct {
	ID       CoOwnerID  `json:"id"`
	Account  AccountID  `json:"account"`
	Investor InvestorID `json:"investor"`
	Creator  bool       `json:"creator,omitempty"`
}

// Account is a shared brokerage account.
type Account struct {
	ID       AccountID `json:"id"`
	Name     string    `json:"name,omitempty"`
	CoOwners []CoOwner `json:"coOwners"`
}

// Validate checks that the account has exactly one creator and that every
// co-owner belongs to it.
func (a *Account) Validate() error {
	var errs []error
	creators := 0
	seen := make(map[CoOwnerID]bool)
	for _, c := range a.CoOwners {
		if c.Account != a.ID {
			errs = append(errs, fmt.Errorf("co-owner %q belongs to account %q", c.ID, c.Account))
		}
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("co-owner %q is declared twice", c.ID))
		}
		seen[c.ID] = true
		if c.Creator {
			creators++
		}
	}
	if creators != 1 {
		errs = append(errs, fmt.Errorf("account %q must have exactly one creator, got %d", a.ID, creators))
	}
	return errors.Join(errs...)
}

// CoOwner returns the co-owner with that id.
func (a *Account) CoOwner(id CoOwnerID) (CoOwner, bool) {
	for _, c := range a.CoOwners {
		if c.ID == id {
			return c, true
		}
	}
	return CoOwner{}, false
}

// Creator returns the co-owner that created the account.
func (a *Account) Creator() CoOwner {
	for _, c := range a.CoOwners {
		if c.Creator {
			return c
		}
	}
	return CoOwner{}
}

// Capital is the capital a co-owner contributed in one currency, and the
// default share applied to new trades in that currency.
type Capital struct {
	ID           CapitalID
	Account      AccountID
	CoOwner      CoOwnerID
	Currency     string
	Value        Money
	DefaultShare Fraction
}
