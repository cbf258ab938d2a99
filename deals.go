package coown

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// DealBook holds the deals of one account and their operations. It assigns new
// operations to deals.
type DealBook struct {
	account AccountID
	order   []DealID
	deals   map[DealID]*Deal
	ops     map[DealID][]Operation

	// NewID generates the id of new deals. It defaults to a random UUID.
	NewID func() DealID
}

// NewDealBook creates a book from existing deals and the operations attached to them.
// Operations without a deal are ignored: pass them to Assign.
func NewDealBook(account AccountID, deals []Deal, ops []Operation) (*DealBook, error) {
	b := &DealBook{
		account: account,
		deals:   make(map[DealID]*Deal, len(deals)),
		ops:     make(map[DealID][]Operation, len(deals)),
		NewID:   func() DealID { return DealID(uuid.NewString()) },
	}
	for _, d := range deals {
		if d.Account != account {
			return nil, fmt.Errorf("deal %q belongs to account %q, not %q", d.ID, d.Account, account)
		}
		if _, exists := b.deals[d.ID]; exists {
			return nil, fmt.Errorf("deal %q is declared twice", d.ID)
		}
		d := d
		b.deals[d.ID] = &d
		b.order = append(b.order, d.ID)
	}
	for _, op := range ops {
		if op.Deal == "" {
			continue
		}
		if _, ok := b.deals[op.Deal]; !ok {
			return nil, fmt.Errorf("operation %q references unknown deal %q", op.ID, op.Deal)
		}
		b.ops[op.Deal] = append(b.ops[op.Deal], op)
	}
	for id := range b.ops {
		SortOperations(b.ops[id])
	}
	return b, nil
}

// Deal returns a copy of the deal with that id.
func (b *DealBook) Deal(id DealID) (Deal, bool) {
	d, ok := b.deals[id]
	if !ok {
		return Deal{}, false
	}
	return *d, true
}

// Deals returns every deal, in creation order.
func (b *DealBook) Deals() []Deal {
	deals := make([]Deal, 0, len(b.order))
	for _, id := range b.order {
		deals = append(deals, *b.deals[id])
	}
	return deals
}

// Operations returns the operations of a deal sorted by date.
func (b *DealBook) Operations(id DealID) []Operation {
	return slices.Clone(b.ops[id])
}

// SetIncome records the result of an income computation.
func (b *DealBook) SetIncome(r IncomeResult) {
	if d, ok := b.deals[r.Deal]; ok {
		*d = r.Apply(*d)
	}
}

// State returns the state of a deal.
func (b *DealBook) State(id DealID) DealState {
	return DealStateOf(b.ops[id])
}

// openDeal returns the most recent open deal of the instrument.
func (b *DealBook) openDeal(instrument string) *Deal {
	for _, id := range slices.Backward(b.order) {
		d := b.deals[id]
		if d.Instrument == instrument && DealStateOf(b.ops[id]) == Open {
			return d
		}
	}
	return nil
}

// dividendDeal returns the deal of the instrument that opened last on or before the dividend.
func (b *DealBook) dividendDeal(op Operation) *Deal {
	var found *Deal
	var openedAt time.Time
	for _, id := range b.order {
		d := b.deals[id]
		if d.Instrument != op.Instrument {
			continue
		}
		at, ok := OpenedAt(b.ops[id])
		if !ok || at.After(op.Date) {
			continue
		}
		if found == nil || !at.Before(openedAt) {
			found, openedAt = d, at
		}
	}
	return found
}

// Assignment is the outcome of DealBook.Assign.
type Assignment struct {
	// Operations holds the assigned operations with their Deal set.
	Operations []Operation
	// Shares holds the shares of the new trades.
	Shares []Share
	// Created lists the new deals, Affected every deal whose income must be recomputed.
	Created, Affected []DealID
	// Unassigned lists the dividends that arrived before any deal of their instrument.
	Unassigned []OperationID
}

// Assign attaches operations without a deal to deals, in date order.
//
// A purchase or sale joins the open deal of its instrument, or opens a new one.
// Its shares are a snapshot of each co-owner's default share in the operation
// currency. A dividend joins the deal of its instrument opened last on or
// before the dividend date.
func (b *DealBook) Assign(ops []Operation, capitals []Capital) (Assignment, error) {
	var a Assignment
	sorted := slices.Clone(ops)
	SortOperations(sorted)
	affected := make(map[DealID]bool)
	for _, op := range sorted {
		if op.Deal != "" || !op.Kind.IsDealOperation() {
			continue
		}
		if op.Account != b.account {
			return Assignment{}, fmt.Errorf("operation %q belongs to account %q, not %q", op.ID, op.Account, b.account)
		}
		var d *Deal
		if op.Kind.IsTrade() {
			d = b.openDeal(op.Instrument)
			if d == nil {
				d = &Deal{ID: b.NewID(), Account: b.account, Instrument: op.Instrument, Currency: op.Currency()}
				b.deals[d.ID] = d
				b.order = append(b.order, d.ID)
				a.Created = append(a.Created, d.ID)
			}
			a.Shares = append(a.Shares, SnapshotShares(op, capitals)...)
		} else {
			d = b.dividendDeal(op)
			if d == nil {
				a.Unassigned = append(a.Unassigned, op.ID)
				continue
			}
		}
		op.Deal = d.ID
		d.Operations = append(d.Operations, op.ID)
		b.ops[d.ID] = append(b.ops[d.ID], op)
		SortOperations(b.ops[d.ID])
		a.Operations = append(a.Operations, op)
		affected[d.ID] = true
	}
	for _, id := range b.order {
		if affected[id] {
			a.Affected = append(a.Affected, id)
		}
	}
	return a, nil
}
