package coown

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
)

// Files of a book directory.
const (
	AccountFile    = "account.json"
	CapitalsFile   = "capitals.jsonl"
	OperationsFile = "operations.jsonl"
	SharesFile     = "shares.jsonl"
	DealsFile      = "deals.jsonl"
)

// Book holds everything known about one shared account and runs the capital
// validator and the income allocator on it.
//
// Capital edits are serialized per account and income recomputation per deal,
// because both rewrite rows they were not explicitly asked to change.
type Book struct {
	locks Locks

	mu         sync.RWMutex
	account    Account
	capitals   []Capital
	operations []Operation
	shares     ShareLedger
	deals      *DealBook
}

// NewBook creates an empty book for the account.
func NewBook(account Account) (*Book, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	deals, err := NewDealBook(account.ID, nil, nil)
	if err != nil {
		return nil, err
	}
	return &Book{account: account, shares: make(ShareLedger), deals: deals}, nil
}

// OpenBook decodes a book from a directory. Only the account file is mandatory.
func OpenBook(dir string) (*Book, error) {
	data, err := os.ReadFile(filepath.Join(dir, AccountFile))
	if err != nil {
		return nil, fmt.Errorf("cannot read account: %w", err)
	}
	var account Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("format error in %s: %w", AccountFile, err)
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	capitals, err := decodeFile[Capital](dir, CapitalsFile)
	if err != nil {
		return nil, err
	}
	operations, err := decodeFile[Operation](dir, OperationsFile)
	if err != nil {
		return nil, err
	}
	shares, err := decodeFile[Share](dir, SharesFile)
	if err != nil {
		return nil, err
	}
	deals, err := decodeFile[Deal](dir, DealsFile)
	if err != nil {
		return nil, err
	}
	SortOperations(operations)
	book, err := NewDealBook(account.ID, deals, operations)
	if err != nil {
		return nil, err
	}
	return &Book{
		account:    account,
		capitals:   capitals,
		operations: operations,
		shares:     NewShareLedger(shares...),
		deals:      book,
	}, nil
}

func decodeFile[T any](dir, name string) ([]T, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeJSONL[T](f, name)
}

func encodeFile[T any](dir, name string, records []T) error {
	var buf bytes.Buffer
	if err := EncodeJSONL(&buf, records); err != nil {
		return fmt.Errorf("cannot encode %s: %w", name, err)
	}
	return os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644)
}

// Save encodes the book into a directory.
func (b *Book) Save(dir string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(b.account, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, AccountFile), append(data, '\n'), 0o644); err != nil {
		return err
	}
	return errors.Join(
		encodeFile(dir, CapitalsFile, b.capitals),
		encodeFile(dir, OperationsFile, b.operations),
		encodeFile(dir, SharesFile, b.shares.Rows()),
		encodeFile(dir, DealsFile, b.deals.Deals()),
	)
}

// Account returns the book's account.
func (b *Book) Account() Account {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.account
}

// Capitals returns the capital rows.
func (b *Book) Capitals() []Capital {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.capitals)
}

// Operations returns every operation sorted by date.
func (b *Book) Operations() []Operation {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.operations)
}

// Shares returns the share rows.
func (b *Book) Shares() []Share {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.shares.Rows()
}

// Deals returns every deal in creation order, with its state.
func (b *Book) Deals() []Deal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.deals.Deals()
}

// DealState returns the state of a deal.
func (b *Book) DealState(id DealID) DealState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.deals.State(id)
}

// TotalCapital returns the capital contributed to the account per currency.
func (b *Book) TotalCapital() map[string]decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return TotalCapital(b.operations)
}

// CashBalance returns the cash held by the account per currency.
func (b *Book) CashBalance() map[string]decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return CashBalance(b.operations)
}

// AddCapital declares a new capital row, with a zero value and default share.
// Use EditCapital to set them.
func (b *Book) AddCapital(id CapitalID, coOwner CoOwnerID, currency string) error {
	if err := ValidateCurrency(currency); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.account.CoOwner(coOwner); !ok {
		return fmt.Errorf("unknown co-owner %q", coOwner)
	}
	for _, c := range b.capitals {
		if c.ID == id {
			return fmt.Errorf("capital %q already exists", id)
		}
		if c.CoOwner == coOwner && c.Currency == currency {
			return fmt.Errorf("co-owner %q already has a capital in %s", coOwner, currency)
		}
	}
	b.capitals = append(b.capitals, Capital{
		ID:       id,
		Account:  b.account.ID,
		CoOwner:  coOwner,
		Currency: currency,
		Value:    M(0, currency),
	})
	return nil
}

// EditCapital validates a batch of capital edits and applies it.
func (b *Book) EditCapital(edits map[CapitalID]CapitalEdit) (CapitalResult, error) {
	unlock := b.locks.Lock(AccountKey(b.account.ID))
	defer unlock()

	b.mu.RLock()
	batch := CapitalBatch{
		Account:      b.account.ID,
		Rows:         slices.Clone(b.capitals),
		Edits:        edits,
		TotalCapital: TotalCapital(b.operations),
	}
	b.mu.RUnlock()

	res, err := ValidateCapitalBatch(batch)
	if err != nil {
		return CapitalResult{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	updated := make(map[CapitalID]Capital, len(res.Rows))
	for _, r := range res.Rows {
		updated[r.ID] = r
	}
	for i, c := range b.capitals {
		if u, ok := updated[c.ID]; ok {
			b.capitals[i] = u
		}
	}
	return res, nil
}

// SyncResult reports what Sync did.
type SyncResult struct {
	Added      []OperationID
	Duplicates int
	Assignment Assignment
	Incomes    []IncomeResult
	// Skipped holds the deals whose income could not be computed, like a deal
	// made of sales only because the purchases predate the history.
	Skipped map[DealID]error
}

// Sync records new operations, assigns them to deals with a snapshot of the
// co-owners' default shares, and recomputes the income of every affected deal.
// Operations already known are ignored.
func (b *Book) Sync(ops []Operation) (SyncResult, error) {
	unlock := b.locks.Lock(AccountKey(b.account.ID))
	defer unlock()

	var res SyncResult
	var errs []error
	b.mu.Lock()
	known := make(map[OperationID]bool, len(b.operations))
	for _, op := range b.operations {
		known[op.ID] = true
	}
	var fresh []Operation
	for _, op := range ops {
		if known[op.ID] {
			res.Duplicates++
			continue
		}
		if op.Account != b.account.ID {
			errs = append(errs, fmt.Errorf("operation %q belongs to account %q", op.ID, op.Account))
			continue
		}
		if err := op.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		known[op.ID] = true
		fresh = append(fresh, op)
	}
	if err := errors.Join(errs...); err != nil {
		b.mu.Unlock()
		return SyncResult{}, err
	}

	assignment, err := b.deals.Assign(fresh, b.capitals)
	if err != nil {
		b.mu.Unlock()
		return SyncResult{}, err
	}
	assigned := make(map[OperationID]Operation, len(assignment.Operations))
	for _, op := range assignment.Operations {
		assigned[op.ID] = op
	}
	for _, op := range fresh {
		if a, ok := assigned[op.ID]; ok {
			op = a
		}
		b.operations = append(b.operations, op)
		res.Added = append(res.Added, op.ID)
	}
	SortOperations(b.operations)
	b.shares.Add(assignment.Shares...)
	res.Assignment = assignment
	b.mu.Unlock()

	res.Incomes, res.Skipped = b.recompute(assignment.Affected)
	return res, nil
}

func (b *Book) recompute(ids []DealID) ([]IncomeResult, map[DealID]error) {
	var incomes []IncomeResult
	skipped := make(map[DealID]error)
	for _, id := range ids {
		r, err := b.RecomputeDeal(id)
		if err != nil {
			skipped[id] = err
			continue
		}
		incomes = append(incomes, r)
	}
	return incomes, skipped
}

// RecomputeDeal recomputes and replaces the income of one deal.
func (b *Book) RecomputeDeal(id DealID) (IncomeResult, error) {
	unlock := b.locks.Lock(DealKey(id))
	defer unlock()

	b.mu.RLock()
	deal, ok := b.deals.Deal(id)
	if !ok {
		b.mu.RUnlock()
		return IncomeResult{}, fmt.Errorf("unknown deal %q", id)
	}
	ops := b.deals.Operations(id)
	shares := make(ShareLedger, len(ops))
	for _, op := range ops {
		for c, v := range b.shares[op.ID] {
			shares.Add(Share{Operation: op.ID, CoOwner: c, Value: v})
		}
	}
	b.mu.RUnlock()

	res, err := RecomputeDealIncome(deal, ops, shares)
	if err != nil {
		return IncomeResult{}, err
	}
	b.mu.Lock()
	b.deals.SetIncome(res)
	b.mu.Unlock()
	return res, nil
}

// RecomputeAll recomputes the income of every deal. Deals the allocator
// rejects are reported and left unchanged.
func (b *Book) RecomputeAll() ([]IncomeResult, map[DealID]error) {
	b.mu.RLock()
	var ids []DealID
	for _, d := range b.deals.Deals() {
		ids = append(ids, d.ID)
	}
	b.mu.RUnlock()
	return b.recompute(ids)
}

// AddCoOwner adds an investor to the account. It takes no share of past
// trades: its capital rows must be added and edited to share new ones.
func (b *Book) AddCoOwner(c CoOwner) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.Account == "" {
		c.Account = b.account.ID
	}
	if c.Creator {
		return fmt.Errorf("account %q already has a creator", b.account.ID)
	}
	account := b.account
	account.CoOwners = append(slices.Clone(account.CoOwners), c)
	if err := account.Validate(); err != nil {
		return err
	}
	b.account = account
	return nil
}

// RemoveCoOwner removes a co-owner with its capital rows and shares, then
// recomputes the deals it had an income in.
func (b *Book) RemoveCoOwner(id CoOwnerID) ([]IncomeResult, map[DealID]error, error) {
	unlock := b.locks.Lock(AccountKey(b.account.ID))
	defer unlock()

	b.mu.Lock()
	c, ok := b.account.CoOwner(id)
	if !ok {
		b.mu.Unlock()
		return nil, nil, fmt.Errorf("unknown co-owner %q", id)
	}
	if c.Creator {
		b.mu.Unlock()
		return nil, nil, fmt.Errorf("co-owner %q created the account and cannot be removed", id)
	}
	b.account.CoOwners = slices.DeleteFunc(slices.Clone(b.account.CoOwners), func(c CoOwner) bool { return c.ID == id })
	b.capitals = slices.DeleteFunc(b.capitals, func(c Capital) bool { return c.CoOwner == id })
	b.shares.RemoveCoOwner(id)
	var affected []DealID
	for _, d := range b.deals.Deals() {
		if _, ok := d.Income[id]; ok {
			affected = append(affected, d.ID)
		}
	}
	b.mu.Unlock()

	incomes, skipped := b.recompute(affected)
	return incomes, skipped, nil
}
