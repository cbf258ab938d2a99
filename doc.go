// Package coown keeps the accounts of a brokerage account shared by several
// co-owners.
//
// Each co-owner contributes capital to the account in one or more currencies,
// and has a default share per currency: the fraction of every new trade in
// that currency that belongs to it. Trades are grouped into deals, from the
// first purchase of an instrument to the sale of its last lot, and the income
// of a deal is split between co-owners according to the lots each one owns.
//
// The package provides two engines:
//   - ValidateCapitalBatch checks a set of capital edits against the account
//     total and rescales default shares so that they sum to one per currency.
//   - RecomputeDealIncome computes the income of each co-owner in a deal with a
//     weighted average cost per co-owner.
//
// Both are pure functions. Book wires them to a directory of JSONL files, and
// serializes capital edits per account and income computation per deal.
package coown
