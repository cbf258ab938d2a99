package coown

import (
	"maps"
	"slices"
)

// ShareLedger records, per trade operation, the fraction owned by each co-owner.
// Shares are written once, when the operation is first recorded.
type ShareLedger map[OperationID]map[CoOwnerID]Fraction

// Share is one row of the ledger.
type Share struct {
	Operation OperationID `json:"operation"`
	CoOwner   CoOwnerID   `json:"coOwner"`
	Value     Fraction    `json:"value"`
}

// NewShareLedger builds a ledger from its rows.
func NewShareLedger(rows ...Share) ShareLedger {
	l := make(ShareLedger)
	l.Add(rows...)
	return l
}

// Add records rows, replacing existing values for the same operation and co-owner.
func (l ShareLedger) Add(rows ...Share) {
	for _, r := range rows {
		m, ok := l[r.Operation]
		if !ok {
			m = make(map[CoOwnerID]Fraction)
			l[r.Operation] = m
		}
		m[r.CoOwner] = r.Value
	}
}

// Of returns the share of the co-owner in the operation, zero if none is recorded.
func (l ShareLedger) Of(op OperationID, c CoOwnerID) Fraction {
	return l[op][c]
}

// Has reports whether shares are recorded for the operation.
func (l ShareLedger) Has(op OperationID) bool {
	_, ok := l[op]
	return ok
}

// Sum returns the sum of all co-owners shares in the operation.
func (l ShareLedger) Sum(op OperationID) Fraction {
	var sum Fraction
	for _, v := range l[op] {
		sum = sum.Add(v)
	}
	return sum
}

// Incomplete returns the operations whose shares do not sum to one.
func (l ShareLedger) Incomplete() []OperationID {
	var ops []OperationID
	for op := range l {
		if !l.Sum(op).ApproxEqual(One) {
			ops = append(ops, op)
		}
	}
	slices.SortFunc(ops, byID[OperationID])
	return ops
}

// Rows returns the ledger as a list sorted by operation then co-owner.
func (l ShareLedger) Rows() []Share {
	var rows []Share
	for _, op := range slices.SortedFunc(maps.Keys(l), byID[OperationID]) {
		for _, c := range slices.SortedFunc(maps.Keys(l[op]), byID[CoOwnerID]) {
			rows = append(rows, Share{Operation: op, CoOwner: c, Value: l[op][c]})
		}
	}
	return rows
}

// RemoveCoOwner deletes every share of the co-owner, as when it leaves the account.
func (l ShareLedger) RemoveCoOwner(c CoOwnerID) {
	for _, m := range l {
		delete(m, c)
	}
}

// SnapshotShares returns the shares of a new trade: each co-owner gets its
// current default share in the operation currency.
func SnapshotShares(op Operation, capitals []Capital) []Share {
	var rows []Share
	for _, c := range capitals {
		if c.Account != op.Account || c.Currency != op.Currency() {
			continue
		}
		rows = append(rows, Share{Operation: op.ID, CoOwner: c.CoOwner, Value: c.DefaultShare})
	}
	slices.SortFunc(rows, func(a, b Share) int { return byID(a.CoOwner, b.CoOwner) })
	return rows
}
