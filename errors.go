package coown

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. They are never transient: retrying with the same input fails the same way.
var (
	// ErrCrossAccount reports a capital batch referencing rows of more than one account.
	ErrCrossAccount = errors.New("capital rows belong to more than one account")
	// ErrShareOutOfRange reports a currency whose total default share would be 0 or exceed 1.
	ErrShareOutOfRange = errors.New("total default share out of range")
	// ErrCapitalExceedsTotal reports a currency whose total capital would exceed the account total.
	ErrCapitalExceedsTotal = errors.New("total capital exceeds the account capital")
	// ErrInvalidCapital reports an edit that is invalid on its own (unknown row, negative value...).
	ErrInvalidCapital = errors.New("invalid capital edit")
	// ErrInvariantViolation reports an allocator call on inputs the caller should have filtered.
	ErrInvariantViolation = errors.New("invariant violation")
)

// ValidationError is returned by the capital validator. It matches its Kind with errors.Is.
type ValidationError struct {
	Kind     error
	Currency string
	IDs      []CapitalID
	Detail   string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Currency != "" {
		fmt.Fprintf(&b, " in %s", e.Currency)
	}
	if len(e.IDs) > 0 {
		ids := make([]string, len(e.IDs))
		for i, id := range e.IDs {
			ids[i] = string(id)
		}
		fmt.Fprintf(&b, " (capital %s)", strings.Join(ids, ", "))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// InvariantError is returned by the income allocator when its preconditions do not hold.
type InvariantError struct {
	Deal      DealID
	Operation OperationID
	Detail    string
}

func (e *InvariantError) Error() string {
	msg := fmt.Sprintf("%v in deal %q", ErrInvariantViolation, e.Deal)
	if e.Operation != "" {
		msg += fmt.Sprintf(" at operation %q", e.Operation)
	}
	return msg + ": " + e.Detail
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }
